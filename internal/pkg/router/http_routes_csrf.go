package router

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/csrf"

	"github.com/tomsflightclub/flightclub/app/controllers"
	"github.com/tomsflightclub/flightclub/internal/pkg/env"
	"github.com/tomsflightclub/flightclub/internal/pkg/middleware"
)

func (h HttpRouter) registerCSRFProtectedRoutes(app *fiber.App) {
	csrfConf := csrf.Config{
		KeyLookup:      "form:_csrf",
		ContextKey:     "csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		Expiration:     1 * time.Hour,
		CookieSecure:   !env.IsDev(),
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), "/api/")
		},
	}

	group := app.Group("", cors.New(), csrf.New(csrfConf))
	group.Get("/", loggedInMiddleware, controllers.HandleHome)
	group.Get("/upgrade", loggedInMiddleware, controllers.HandleUpgradePage)
	group.Get("/login", loggedInMiddleware, controllers.HandleAuthLogin)
	group.Post("/login", loggedInMiddleware, controllers.HandleAuthLogin)
	group.Get("/register", loggedInMiddleware, controllers.HandleAuthRegister)
	group.Post("/register", loggedInMiddleware, controllers.HandleAuthRegister)
	group.Get("/user/profile", middleware.RequireAuth, controllers.HandleUserProfile)
	group.Post("/user/profile", middleware.RequireAuth, controllers.HandleUserProfileUpdate)
	group.Post("/user/billing/checkout", middleware.RequireAuth, controllers.HandleBillingCheckout)
	group.Post("/user/billing/resync", middleware.RequireAuth, controllers.HandleUserBillingResync)
}
