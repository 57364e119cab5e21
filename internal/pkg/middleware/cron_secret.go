package middleware

import (
	"crypto/subtle"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/tomsflightclub/flightclub/internal/pkg/env"
)

// CronSecretMiddleware authenticates trusted-scheduler calls to internal
// endpoints (the bulk digest trigger). The caller presents the shared
// secret as a bearer credential or X-Cron-Secret header. Unauthorized
// requests are rejected before any handler side effects.
func CronSecretMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		secret := strings.TrimSpace(env.GetEnv("CRON_SECRET", ""))
		if secret == "" {
			log.Print("cron middleware: CRON_SECRET not configured, rejecting request")
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "Internal trigger disabled"})
		}

		presented := extractCronSecret(c)
		if presented == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing credential"})
		}
		if subtle.ConstantTimeCompare([]byte(presented), []byte(secret)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid credential"})
		}

		return c.Next()
	}
}

func extractCronSecret(c *fiber.Ctx) string {
	if v := strings.TrimSpace(c.Get("X-Cron-Secret")); v != "" {
		return v
	}
	auth := strings.TrimSpace(c.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
