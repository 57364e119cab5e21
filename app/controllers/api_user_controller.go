package controllers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/tomsflightclub/flightclub/app/models"
	"github.com/tomsflightclub/flightclub/app/repository"
	"github.com/tomsflightclub/flightclub/internal/pkg/entitlements"
	"github.com/tomsflightclub/flightclub/internal/pkg/usercontext"
)

// HandleGetUserAccount returns account information for the authenticated user.
func HandleGetUserAccount(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing or invalid authentication"})
	}

	repos := repository.GetGlobalFactory()
	account, err := repos.GetUserRepository().GetByID(userCtx.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "User not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load user"})
	}

	pref, err := repos.GetPreferenceRepository().GetByUserID(userCtx.UserID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load preferences"})
		}
		pref = &models.EmailPreference{UserID: account.ID, Cadence: models.CadenceDaily, Subscribed: true}
	}

	plan := entitlements.Normalize(account.Plan)

	return c.JSON(fiber.Map{
		"id":            account.ID,
		"username":      account.Name,
		"email":         account.Email,
		"status":        account.Status,
		"plan":          string(plan),
		"home_city":     account.HomeCity,
		"is_admin":      account.Role == models.ROLE_ADMIN,
		"created_at":    account.CreatedAt.UTC().Format(time.RFC3339),
		"last_login_at": formatTimePtr(account.LastLoginAt),
		"limits": fiber.Map{
			"visible_deals": entitlements.VisibleDealLimit(plan),
		},
		"preferences": fiber.Map{
			"cadence":      pref.Cadence,
			"subscribed":   pref.Subscribed,
			"last_sent_at": formatTimePtr(pref.LastSentAt),
		},
	})
}
