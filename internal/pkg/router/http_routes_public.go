package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tomsflightclub/flightclub/app/controllers"
	"github.com/tomsflightclub/flightclub/internal/pkg/middleware"
)

func (h HttpRouter) registerPublicRoutes(app *fiber.App) {
	// One-click unsubscribe from digest emails. Must stay reachable without
	// login or CSRF token: the click comes straight from a mail client.
	app.Get("/unsubscribe", loggedInMiddleware, controllers.HandleUnsubscribe)
	app.Get("/unsubscribed", loggedInMiddleware, controllers.HandleUnsubscribedPage)

	// Account activation link from the signup mail
	app.Get("/activate", loggedInMiddleware, controllers.HandleAuthActivate)

	// Auth
	app.Post("/logout", middleware.RequireAuth, controllers.HandleAuthLogout)

	// Billing provider webhooks (no CSRF, signature-verified in controller)
	app.Post("/webhooks/stripe", controllers.HandleStripeWebhook)
	app.Post("/api/billing/stripe/webhook", controllers.HandleStripeWebhook)
}
