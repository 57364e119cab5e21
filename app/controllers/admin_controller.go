package controllers

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/tomsflightclub/flightclub/app/models"
	"github.com/tomsflightclub/flightclub/app/repository"
	"github.com/tomsflightclub/flightclub/internal/pkg/billing"
	"github.com/tomsflightclub/flightclub/internal/pkg/database"
	"github.com/tomsflightclub/flightclub/internal/pkg/entitlements"
)

var adminValidate = validator.New()

// adminDealRequest is the create/update body for deal administration. The
// price is in minor units; the validity window must be coherent.
type adminDealRequest struct {
	OriginCity         string    `json:"origin_city" validate:"required,max=100"`
	OriginAirport      string    `json:"origin_airport" validate:"required,len=3"`
	DestinationCity    string    `json:"destination_city" validate:"required,max=100"`
	DestinationAirport string    `json:"destination_airport" validate:"required,len=3"`
	PriceMinor         int64     `json:"price_minor" validate:"gt=0"`
	Currency           string    `json:"currency" validate:"required,len=3"`
	Premium            bool      `json:"premium"`
	ValidFrom          time.Time `json:"valid_from" validate:"required"`
	ValidUntil         time.Time `json:"valid_until" validate:"required,gtfield=ValidFrom"`
}

// HandleAdminListUsers returns a paged subscriber overview, optionally
// filtered by a search query against name and email.
func HandleAdminListUsers(c *fiber.Ctx) error {
	userRepo := repository.GetGlobalFactory().GetUserRepository()

	if query := strings.TrimSpace(c.Query("q")); query != "" {
		users, err := userRepo.Search(query)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Search failed"})
		}
		return c.JSON(fiber.Map{"users": users, "total": len(users)})
	}

	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	const perPage = 50

	users, err := userRepo.List((page-1)*perPage, perPage)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load users"})
	}
	total, err := userRepo.Count()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to count users"})
	}

	return c.JSON(fiber.Map{"users": users, "total": total, "page": page, "per_page": perPage})
}

// HandleAdminUserPlanUpdate applies an operator plan override. The change
// runs through the same billing service path as webhook syncs so the
// subscription history stays coherent and a linked provider subscription is
// canceled on downgrade.
func HandleAdminUserPlanUpdate(c *fiber.Ctx) error {
	userID, err := c.ParamsInt("id")
	if err != nil || userID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid user id"})
	}

	var req struct {
		Plan string `json:"plan" form:"plan"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}

	plan := strings.ToLower(strings.TrimSpace(req.Plan))
	if plan != string(entitlements.PlanFree) && plan != string(entitlements.PlanPremium) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "invalid_plan",
			"message": fmt.Sprintf("Plan %q is not supported, accepted values: %s, %s", req.Plan, entitlements.PlanFree, entitlements.PlanPremium),
		})
	}

	svc := billing.NewServiceFromDB(database.GetDB())
	if err := svc.AdminChangePlan(c.UserContext(), uint(userID), plan); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "User not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Plan change failed"})
	}

	return c.JSON(fiber.Map{"user_id": userID, "plan": plan})
}

// HandleAdminCreateDeal publishes a new deal into the feed.
func HandleAdminCreateDeal(c *fiber.Ctx) error {
	var req adminDealRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}
	if err := adminValidate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}

	deal := &models.Deal{
		OriginCity:         strings.TrimSpace(req.OriginCity),
		OriginAirport:      strings.ToUpper(strings.TrimSpace(req.OriginAirport)),
		DestinationCity:    strings.TrimSpace(req.DestinationCity),
		DestinationAirport: strings.ToUpper(strings.TrimSpace(req.DestinationAirport)),
		PriceMinor:         req.PriceMinor,
		Currency:           strings.ToUpper(strings.TrimSpace(req.Currency)),
		Premium:            req.Premium,
		ValidFrom:          req.ValidFrom,
		ValidUntil:         req.ValidUntil,
	}

	if err := repository.GetGlobalFactory().GetDealRepository().Create(deal); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to create deal"})
	}

	return c.Status(fiber.StatusCreated).JSON(dealResponse(deal))
}

// HandleAdminUpdateDeal corrects an existing deal in place. Deal rows are
// otherwise immutable; this is the operator escape hatch for bad data.
func HandleAdminUpdateDeal(c *fiber.Ctx) error {
	uuid := c.Params("uuid")
	dealRepo := repository.GetGlobalFactory().GetDealRepository()

	deal, err := dealRepo.GetByUUID(uuid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Deal not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load deal"})
	}

	var req adminDealRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}
	if err := adminValidate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}

	deal.OriginCity = strings.TrimSpace(req.OriginCity)
	deal.OriginAirport = strings.ToUpper(strings.TrimSpace(req.OriginAirport))
	deal.DestinationCity = strings.TrimSpace(req.DestinationCity)
	deal.DestinationAirport = strings.ToUpper(strings.TrimSpace(req.DestinationAirport))
	deal.PriceMinor = req.PriceMinor
	deal.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	deal.Premium = req.Premium
	deal.ValidFrom = req.ValidFrom
	deal.ValidUntil = req.ValidUntil

	if err := dealRepo.Update(deal); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to update deal"})
	}

	return c.JSON(dealResponse(deal))
}

// HandleAdminDeleteDeal retires a deal from the feed ahead of its expiry.
func HandleAdminDeleteDeal(c *fiber.Ctx) error {
	uuid := c.Params("uuid")
	dealRepo := repository.GetGlobalFactory().GetDealRepository()

	deal, err := dealRepo.GetByUUID(uuid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Deal not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load deal"})
	}

	if err := dealRepo.Delete(deal.ID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to delete deal"})
	}

	return c.SendStatus(fiber.StatusNoContent)
}
