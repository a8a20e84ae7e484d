package middleware

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
)

// Store is the server-side session store backing the auth cookie. Sessions
// carry exactly two values: the user id and the admin flag. Credentials are
// never put in a session.
var Store *session.Store

func InitSessionStore() {
	Store = session.New(session.Config{
		Expiration:     7 * 24 * time.Hour,
		CookieHTTPOnly: true,
		CookieSameSite: "Lax",
	})
}

// RequireSession rejects unauthenticated requests and mirrors the session
// identity into Locals so handlers get an explicit auth context instead of
// reaching into the session themselves.
func RequireSession() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := Store.Get(c)
		if err != nil {
			log.Printf("❌ [AUTH] Session load failed for %s: %v", c.Path(), err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Not authenticated",
			})
		}

		userID, ok := sess.Get("user_id").(uint)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Not authenticated",
			})
		}
		isAdmin, _ := sess.Get("is_admin").(bool)

		c.Locals("user_id", userID)
		c.Locals("is_admin", isAdmin)
		return c.Next()
	}
}

// RequireAdmin guards admin routes. A missing session and a non-admin
// session both come back 403, matching the admin-or-nothing contract.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := Store.Get(c)
		if err != nil {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Admin access required",
			})
		}

		userID, ok := sess.Get("user_id").(uint)
		isAdmin, _ := sess.Get("is_admin").(bool)
		if !ok || !isAdmin {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Admin access required",
			})
		}

		c.Locals("user_id", userID)
		c.Locals("is_admin", true)
		return c.Next()
	}
}
