package handlers

import (
	"referral-program-server/middleware"
	"referral-program-server/models"
	"referral-program-server/services"

	"github.com/gofiber/fiber/v2"
)

func SetupStatsRoutes(app *fiber.App, statsService *services.StatsService) {
	// findUser re-checks that the session's user still exists; a stale
	// session for a vanished row is a 404, not a 500.
	findUser := func(c *fiber.Ctx) (*models.User, bool) {
		userID := c.Locals("user_id").(uint)
		var user models.User
		if err := statsService.DB.First(&user, userID).Error; err != nil {
			return nil, false
		}
		return &user, true
	}
	userNotFound := func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	}

	app.Get("/stats", middleware.RequireSession(), func(c *fiber.Ctx) error {
		user, ok := findUser(c)
		if !ok {
			return userNotFound(c)
		}

		stats, err := statsService.UserStats(user.ID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to compute stats",
			})
		}
		return c.JSON(stats)
	})

	app.Get("/analytics/trends", middleware.RequireSession(), func(c *fiber.Ctx) error {
		user, ok := findUser(c)
		if !ok {
			return userNotFound(c)
		}

		trends, err := statsService.UserTrends(user.ID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to compute trends",
			})
		}
		return c.JSON(trends)
	})

	app.Get("/achievements", middleware.RequireSession(), func(c *fiber.Ctx) error {
		user, ok := findUser(c)
		if !ok {
			return userNotFound(c)
		}

		achievements, err := statsService.Achievements(user.ID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to compute achievements",
			})
		}
		return c.JSON(achievements)
	})

	app.Get("/network", middleware.RequireSession(), func(c *fiber.Ctx) error {
		user, ok := findUser(c)
		if !ok {
			return userNotFound(c)
		}

		network, err := statsService.Network(user.ID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to load network",
			})
		}
		return c.JSON(network)
	})

	app.Get("/admin/users", middleware.RequireAdmin(), func(c *fiber.Ctx) error {
		var users []models.User
		if err := statsService.DB.Order("id").Find(&users).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to load users",
			})
		}

		response := make([]fiber.Map, 0, len(users))
		for _, user := range users {
			var referralsCount int64
			if err := statsService.DB.Model(&models.User{}).
				Where("referred_by = ?", user.ID).
				Count(&referralsCount).Error; err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "Failed to load users",
				})
			}
			response = append(response, fiber.Map{
				"id":              user.ID,
				"username":        user.Username,
				"email":           user.Email,
				"is_admin":        user.IsAdmin,
				"referral_code":   user.ReferralCode,
				"referrals_count": referralsCount,
				"created_at":      user.CreatedAt,
			})
		}
		return c.JSON(response)
	})

	app.Get("/analytics/admin-trends", middleware.RequireAdmin(), func(c *fiber.Ctx) error {
		trends, err := statsService.PlatformTrends()
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to compute platform trends",
			})
		}
		return c.JSON(trends)
	})
}
