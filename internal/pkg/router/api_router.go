package router

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/tomsflightclub/flightclub/app/controllers"
	apiv1 "github.com/tomsflightclub/flightclub/internal/api/v1"
	"github.com/tomsflightclub/flightclub/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	// The scheduler trigger under /api/internal authenticates with the cron
	// secret and is exempt from the public rate limit.
	api := app.Group("/api", limiter.New(limiter.Config{
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), "/api/internal")
		},
	}))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	// API v1 routes
	v1 := api.Group("/v1")
	apiServer := apiv1.NewAPIServer()
	apiv1.RegisterHandlers(v1, apiServer)

	// Internal trigger endpoints for the trusted scheduler
	internal := app.Group("/api/internal", middleware.CronSecretMiddleware())
	internal.Post("/digests/send", controllers.HandleBulkSendDigests)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
