package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"

	"github.com/tomsflightclub/flightclub/app/models"
	"github.com/tomsflightclub/flightclub/app/repository"
	"github.com/tomsflightclub/flightclub/internal/pkg/entitlements"
	"github.com/tomsflightclub/flightclub/internal/pkg/statistics"
	"github.com/tomsflightclub/flightclub/internal/pkg/usercontext"
)

// HandleHome renders the landing page with the freshest deals and the
// cached headline numbers. Anonymous visitors get the free-tier view.
func HandleHome(c *fiber.Ctx) error {
	stats := statistics.GetStatisticsData()

	var teasers []models.Deal
	if deals, err := repository.GetGlobalFactory().GetDealRepository().GetCurrent(time.Now(), 5); err == nil {
		teasers = deals
	}

	userCtx := usercontext.GetUserContext(c)

	return c.Render("index", fiber.Map{
		"Title":              "Tom's Flight Club",
		"FromProtected":      userCtx.IsLoggedIn,
		"Username":           userCtx.Username,
		"Flash":              flash.Get(c),
		"Deals":              teasers,
		"TotalSubscribers":   stats.TotalSubscribers,
		"PremiumSubscribers": stats.PremiumSubscribers,
		"CurrentDeals":       stats.CurrentDeals,
	})
}

// HandleUpgradePage renders the premium pitch with the checkout entry point.
func HandleUpgradePage(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	return c.Render("upgrade", fiber.Map{
		"Title":         "Go premium",
		"FromProtected": userCtx.IsLoggedIn,
		"Username":      userCtx.Username,
		"Plan":          entitlements.Normalize(userCtx.Plan),
		"IsPremium":     entitlements.Normalize(userCtx.Plan) == entitlements.PlanPremium,
		"Flash":         flash.Get(c),
		"Checkout":      c.Query("checkout"),
		"CSRF":          csrfToken(c),
	})
}
