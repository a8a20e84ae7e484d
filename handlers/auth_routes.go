package handlers

import (
	"errors"
	"log"

	"referral-program-server/middleware"
	"referral-program-server/models"
	"referral-program-server/services"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

func SetupAuthRoutes(app *fiber.App, referralService *services.ReferralService) {
	app.Post("/register", func(c *fiber.Ctx) error {
		var input services.RegisterInput
		if err := c.BodyParser(&input); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Missing required fields",
			})
		}

		user, err := referralService.Register(input)
		if err != nil {
			var vErr *services.ValidationError
			if errors.As(err, &vErr) {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": vErr.Message,
				})
			}
			log.Printf("❌ [REGISTER] %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Registration failed",
			})
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message":       "User created successfully",
			"referral_code": user.ReferralCode,
		})
	})

	app.Post("/login", func(c *fiber.Ctx) error {
		var input struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := c.BodyParser(&input); err != nil || input.Username == "" || input.Password == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Missing username or password",
			})
		}

		var user models.User
		if err := referralService.DB.Where("username = ?", input.Username).First(&user).Error; err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid credentials",
			})
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid credentials",
			})
		}

		sess, err := middleware.Store.Get(c)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to create session",
			})
		}
		sess.Set("user_id", user.ID)
		sess.Set("is_admin", user.IsAdmin)
		if err := sess.Save(); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to create session",
			})
		}

		return c.JSON(fiber.Map{
			"message": "Login successful",
			"user": fiber.Map{
				"id":            user.ID,
				"username":      user.Username,
				"email":         user.Email,
				"is_admin":      user.IsAdmin,
				"referral_code": user.ReferralCode,
			},
		})
	})

	app.Post("/logout", func(c *fiber.Ctx) error {
		sess, err := middleware.Store.Get(c)
		if err == nil {
			_ = sess.Destroy()
		}
		return c.JSON(fiber.Map{"message": "Logged out successfully"})
	})

	app.Get("/user/profile", middleware.RequireSession(), func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(uint)

		var user models.User
		if err := referralService.DB.First(&user, userID).Error; err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "User not found",
			})
		}

		var referralsCount int64
		if err := referralService.DB.Model(&models.User{}).
			Where("referred_by = ?", user.ID).
			Count(&referralsCount).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to load profile",
			})
		}

		return c.JSON(fiber.Map{
			"id":              user.ID,
			"username":        user.Username,
			"email":           user.Email,
			"is_admin":        user.IsAdmin,
			"referral_code":   user.ReferralCode,
			"referred_by":     user.ReferredBy,
			"referrals_count": referralsCount,
		})
	})
}
