package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tomsflightclub/flightclub/app/controllers"
	"github.com/tomsflightclub/flightclub/internal/pkg/middleware"
)

func (h HttpRouter) registerAdminRoutes(app *fiber.App) {
	adminGroup := app.Group("/admin", middleware.RequireAdmin)

	// Subscriber management
	adminGroup.Get("/users", controllers.HandleAdminListUsers)
	adminGroup.Post("/users/:id/plan", controllers.HandleAdminUserPlanUpdate)

	// Deal management
	adminGroup.Post("/deals", controllers.HandleAdminCreateDeal)
	adminGroup.Put("/deals/:uuid", controllers.HandleAdminUpdateDeal)
	adminGroup.Delete("/deals/:uuid", controllers.HandleAdminDeleteDeal)
}
