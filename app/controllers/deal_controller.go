package controllers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/tomsflightclub/flightclub/app/models"
	"github.com/tomsflightclub/flightclub/app/repository"
	"github.com/tomsflightclub/flightclub/internal/pkg/digest"
	"github.com/tomsflightclub/flightclub/internal/pkg/entitlements"
	"github.com/tomsflightclub/flightclub/internal/pkg/usercontext"
)

// HandleListDeals serves the tier-gated deal feed. Free accounts (and
// anonymous callers) see the newest deal in full and the rest as locked
// teasers; premium sees up to the premium cap. An explicit ?city= filter
// overrides the subscriber's home city.
func HandleListDeals(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	plan := entitlements.Normalize(userCtx.Plan)

	city := strings.TrimSpace(c.Query("city"))
	if city == "" && userCtx.IsLoggedIn {
		user, err := repository.GetGlobalFactory().GetUserRepository().GetByID(userCtx.UserID)
		if err == nil {
			city = user.HomeCity
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load user"})
		}
	}

	dealRepo := repository.GetGlobalFactory().GetDealRepository()
	now := time.Now()

	var (
		candidates []models.Deal
		err        error
	)
	if city != "" {
		candidates, err = dealRepo.GetCurrentByOriginCity(city, now, entitlements.DigestCandidateCap)
	} else {
		candidates, err = dealRepo.GetCurrent(now, entitlements.DigestCandidateCap)
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load deals"})
	}

	visible := entitlements.VisibleDealLimit(plan)
	if visible > len(candidates) {
		visible = len(candidates)
	}

	visibleOut := make([]fiber.Map, 0, visible)
	for i := range candidates[:visible] {
		visibleOut = append(visibleOut, dealResponse(&candidates[i]))
	}

	// Locked deals leak only the route, never price or dates.
	lockedOut := make([]fiber.Map, 0, len(candidates)-visible)
	for i := visible; i < len(candidates); i++ {
		lockedOut = append(lockedOut, fiber.Map{
			"origin_city":      candidates[i].OriginCity,
			"destination_city": candidates[i].DestinationCity,
		})
	}

	return c.JSON(fiber.Map{
		"plan":         string(plan),
		"city":         city,
		"deals":        visibleOut,
		"locked":       lockedOut,
		"locked_count": len(lockedOut),
	})
}

func dealResponse(d *models.Deal) fiber.Map {
	return fiber.Map{
		"uuid":                d.UUID,
		"origin_city":         d.OriginCity,
		"origin_airport":      d.OriginAirport,
		"destination_city":    d.DestinationCity,
		"destination_airport": d.DestinationAirport,
		"price_minor":         d.PriceMinor,
		"currency":            d.Currency,
		"price_display":       digest.FormatPrice(d.PriceMinor, d.Currency),
		"valid_until":         d.ValidUntil.UTC().Format(time.RFC3339),
		"discovered_at":       d.DiscoveredAt.UTC().Format(time.RFC3339),
	}
}
