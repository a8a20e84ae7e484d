package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"referral-program-server/middleware"
	"referral-program-server/models"
	"referral-program-server/seed"
	"referral-program-server/services"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "routes_test.db") +
		"?_txlock=immediate&_pragma=busy_timeout(10000)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.ReferralLink{}, &models.ReferralClick{}))
	require.NoError(t, seed.EnsureAdmin(db))

	middleware.InitSessionStore()

	app := fiber.New()
	referralService := services.NewReferralService(db)
	statsService := services.NewStatsService(db)
	SetupAuthRoutes(app, referralService)
	SetupReferralRoutes(app, referralService)
	SetupStatsRoutes(app, statsService)
	return app, db
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any, cookies []*http.Cookie) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func doJSONList(t *testing.T, app *fiber.App, path string, cookies []*http.Cookie) (*http.Response, []map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	var decoded []map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func register(t *testing.T, app *fiber.App, username, linkCode string) map[string]any {
	t.Helper()
	resp, body := doJSON(t, app, http.MethodPost, "/register", map[string]string{
		"username":         username,
		"email":            username + "@example.com",
		"password":         "hunter22",
		"referralLinkCode": linkCode,
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return body
}

func login(t *testing.T, app *fiber.App, username, password string) []*http.Cookie {
	t.Helper()
	resp, _ := doJSON(t, app, http.MethodPost, "/login", map[string]string{
		"username": username,
		"password": password,
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, resp.Cookies())
	return resp.Cookies()
}

func TestReferralFlow(t *testing.T) {
	app, _ := newTestApp(t)

	body := register(t, app, "alice", "")
	assert.Equal(t, "User created successfully", body["message"])
	assert.NotEmpty(t, body["referral_code"])

	alice := login(t, app, "alice", "hunter22")

	resp, link := doJSON(t, app, http.MethodPost, "/referral-links", nil, alice)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	linkCode := link["link_code"].(string)
	assert.Contains(t, link["url"], "/referral/"+linkCode)

	// Public click before bob signs up
	resp, clickBody := doJSON(t, app, http.MethodGet, "/referral/"+linkCode, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "alice", clickBody["referrer"])

	// bob registers through the link → attributed, one conversion
	register(t, app, "bob", linkCode)

	resp, network := doJSONList(t, app, "/network", alice)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, network, 1)
	assert.Equal(t, "bob", network[0]["name"])
	assert.Equal(t, float64(0), network[0]["referrals"])

	resp, stats := doJSON(t, app, http.MethodGet, "/stats", nil, alice)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), stats["totalClicks"])
	assert.Equal(t, float64(1), stats["totalConversions"])
	assert.Equal(t, float64(15), stats["earnings"])
	assert.Equal(t, float64(1), stats["referralsCount"])

	// Explicit conversion on top of the signup one
	resp, _ = doJSON(t, app, http.MethodPost, "/referral/"+linkCode+"/convert", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, stats = doJSON(t, app, http.MethodGet, "/stats", nil, alice)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), stats["totalConversions"])
	assert.Equal(t, float64(30), stats["earnings"])
}

func TestRegisterValidation(t *testing.T) {
	app, _ := newTestApp(t)
	register(t, app, "alice", "")

	resp, body := doJSON(t, app, http.MethodPost, "/register", map[string]string{
		"username": "alice",
		"email":    "other@example.com",
		"password": "pw",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Username already exists", body["error"])

	resp, body = doJSON(t, app, http.MethodPost, "/register", map[string]string{
		"username": "carol",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Missing required fields", body["error"])
}

func TestLoginFailures(t *testing.T) {
	app, _ := newTestApp(t)
	register(t, app, "alice", "")

	resp, _ := doJSON(t, app, http.MethodPost, "/login", map[string]string{
		"username": "alice",
		"password": "wrong",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPost, "/login", map[string]string{
		"username": "alice",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLogoutEndsSession(t *testing.T) {
	app, _ := newTestApp(t)
	register(t, app, "alice", "")
	alice := login(t, app, "alice", "hunter22")

	resp, _ := doJSON(t, app, http.MethodGet, "/user/profile", nil, alice)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPost, "/logout", nil, alice)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, "/user/profile", nil, alice)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestProfile(t *testing.T) {
	app, _ := newTestApp(t)
	register(t, app, "alice", "")
	alice := login(t, app, "alice", "hunter22")

	resp, body := doJSON(t, app, http.MethodGet, "/user/profile", nil, alice)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "alice", body["username"])
	assert.Equal(t, false, body["is_admin"])
	assert.NotEmpty(t, body["referral_code"])
	assert.Nil(t, body["referred_by"])
	assert.Equal(t, float64(0), body["referrals_count"])
	assert.NotContains(t, body, "password_hash")
}

func TestSessionRequired(t *testing.T) {
	app, _ := newTestApp(t)

	for _, path := range []string{"/user/profile", "/referral-links", "/stats", "/analytics/trends", "/achievements", "/network"} {
		resp, _ := doJSON(t, app, http.MethodGet, path, nil, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
	}
}

func TestAdminOnly(t *testing.T) {
	app, _ := newTestApp(t)
	register(t, app, "alice", "")
	alice := login(t, app, "alice", "hunter22")

	for _, path := range []string{"/admin/users", "/analytics/admin-trends"} {
		// Anonymous and regular sessions both get 403
		resp, _ := doJSON(t, app, http.MethodGet, path, nil, nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode, path)
		resp, _ = doJSON(t, app, http.MethodGet, path, nil, alice)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode, path)
	}

	admin := login(t, app, "admin", "admin123")
	resp, users := doJSONList(t, app, "/admin/users", admin)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, users, 2) // seeded admin + alice

	resp, trends := doJSON(t, app, http.MethodGet, "/analytics/admin-trends", nil, admin)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, trends, "revenue")
	assert.Contains(t, trends, "engagement")
}

func TestTrackingUnknownAndInactiveCodes(t *testing.T) {
	app, db := newTestApp(t)
	register(t, app, "alice", "")
	alice := login(t, app, "alice", "hunter22")

	_, link := doJSON(t, app, http.MethodPost, "/referral-links", nil, alice)
	linkCode := link["link_code"].(string)
	require.NoError(t, db.Model(&models.ReferralLink{}).
		Where("link_code = ?", linkCode).
		Update("is_active", false).Error)

	for _, code := range []string{"no-such-code", linkCode} {
		resp, body := doJSON(t, app, http.MethodGet, "/referral/"+code, nil, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "Invalid referral link", body["error"])

		resp, _ = doJSON(t, app, http.MethodPost, "/referral/"+code+"/convert", nil, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	}

	// Deactivated links disappear from the owner's listing too
	resp, links := doJSONList(t, app, "/referral-links", alice)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, links)
}

func TestAchievementsEndpoint(t *testing.T) {
	app, _ := newTestApp(t)
	register(t, app, "alice", "")
	alice := login(t, app, "alice", "hunter22")

	_, link := doJSON(t, app, http.MethodPost, "/referral-links", nil, alice)
	register(t, app, "bob", link["link_code"].(string))

	resp, achievements := doJSONList(t, app, "/achievements", alice)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, achievements, 5)
	assert.Equal(t, "First Referral", achievements[0]["title"])
	assert.Equal(t, true, achievements[0]["completed"])
	assert.Equal(t, float64(1), achievements[1]["progress"])
}
