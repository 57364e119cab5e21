package apiv1

import (
	"github.com/gofiber/fiber/v2"

	// Delegate to existing controllers to keep behavior consistent
	"github.com/tomsflightclub/flightclub/app/controllers"
	"github.com/tomsflightclub/flightclub/internal/pkg/middleware"
)

// Pong is the health check response body.
type Pong struct {
	Ping string `json:"ping"`
}

// APIServer implements the v1 surface documented in public/docs/v1/openapi.yml.
type APIServer struct{}

// NewAPIServer creates a new API server instance
func NewAPIServer() *APIServer {
	return &APIServer{}
}

// RegisterHandlers attaches the v1 routes to the given router group.
func RegisterHandlers(r fiber.Router, s *APIServer) {
	r.Get("/ping", s.GetPing)
	r.Get("/deals", s.GetDeals)
	r.Get("/user", middleware.RequireAPISessionAuth, s.GetUserAccount)
	r.Get("/user/plan", middleware.RequireAPISessionAuth, s.GetUserPlan)
	r.Get("/user/preferences", middleware.RequireAPISessionAuth, s.GetUserPreferences)
	r.Put("/user/preferences", middleware.RequireAPISessionAuth, s.PutUserPreferences)
}

// GetPing handles the ping endpoint
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	response := Pong{
		Ping: "pong",
	}

	return c.Status(fiber.StatusOK).JSON(response)
}

// GetDeals serves the tier-gated deal feed. Anonymous callers see the free
// tier; session holders see their own.
func (s *APIServer) GetDeals(c *fiber.Ctx) error {
	return controllers.HandleListDeals(c)
}

// GetUserAccount returns account information for the authenticated user.
func (s *APIServer) GetUserAccount(c *fiber.Ctx) error {
	return controllers.HandleGetUserAccount(c)
}

// GetUserPlan returns the effective plan snapshot.
func (s *APIServer) GetUserPlan(c *fiber.Ctx) error {
	return controllers.HandleGetUserPlan(c)
}

// GetUserPreferences returns the digest settings.
func (s *APIServer) GetUserPreferences(c *fiber.Ctx) error {
	return controllers.HandleGetEmailPreferences(c)
}

// PutUserPreferences updates the digest settings.
func (s *APIServer) PutUserPreferences(c *fiber.Ctx) error {
	return controllers.HandleUpdateEmailPreferences(c)
}
