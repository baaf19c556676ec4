package middleware

import (
	"crypto/subtle"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// ValidateWebhookToken checks the shared token the gateway is configured to
// send with every webhook delivery. When GREEN_API_WEBHOOK_TOKEN is unset the
// check is a no-op, matching an unauthenticated gateway setup.
func ValidateWebhookToken() fiber.Handler {
	return func(c *fiber.Ctx) error {
		expected := os.Getenv("GREEN_API_WEBHOOK_TOKEN")
		if expected == "" {
			return c.Next()
		}

		provided := strings.TrimPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid webhook token",
			})
		}

		return c.Next()
	}
}
