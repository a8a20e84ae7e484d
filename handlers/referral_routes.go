package handlers

import (
	"errors"
	"log"
	"os"

	"referral-program-server/middleware"
	"referral-program-server/services"

	"github.com/gofiber/fiber/v2"
)

// linkURL builds the shareable URL handed to the frontend. The code alone is
// what the tracking endpoints key on.
func linkURL(code string) string {
	base := os.Getenv("BASE_URL")
	if base == "" {
		base = "http://localhost:3000"
	}
	return base + "/referral/" + code
}

func SetupReferralRoutes(app *fiber.App, referralService *services.ReferralService) {
	app.Get("/referral-links", middleware.RequireSession(), func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(uint)

		links, err := referralService.ActiveLinks(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to load referral links",
			})
		}

		response := make([]fiber.Map, 0, len(links))
		for _, link := range links {
			response = append(response, fiber.Map{
				"id":          link.ID,
				"link_code":   link.LinkCode,
				"clicks":      link.Clicks,
				"conversions": link.Conversions,
				"created_at":  link.CreatedAt,
				"url":         linkURL(link.LinkCode),
			})
		}
		return c.JSON(response)
	})

	app.Post("/referral-links", middleware.RequireSession(), func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(uint)

		link, err := referralService.CreateLink(userID)
		if err != nil {
			log.Printf("❌ [LINKS] Create failed for user %d: %v", userID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to create referral link",
			})
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"id":         link.ID,
			"link_code":  link.LinkCode,
			"url":        linkURL(link.LinkCode),
			"created_at": link.CreatedAt,
		})
	})

	// Public tracking endpoints — no auth, these are what the shared links hit.
	app.Get("/referral/:code", func(c *fiber.Ctx) error {
		referrer, err := referralService.TrackClick(c.Params("code"), c.IP(), c.Get("User-Agent"))
		if err != nil {
			if errors.Is(err, services.ErrLinkNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"error": "Invalid referral link",
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to track referral",
			})
		}

		return c.JSON(fiber.Map{
			"message":  "Referral link tracked",
			"referrer": referrer,
		})
	})

	app.Post("/referral/:code/convert", func(c *fiber.Ctx) error {
		if err := referralService.TrackConversion(c.Params("code")); err != nil {
			if errors.Is(err, services.ErrLinkNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"error": "Invalid referral link",
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to track conversion",
			})
		}

		return c.JSON(fiber.Map{"message": "Conversion tracked successfully"})
	})
}
