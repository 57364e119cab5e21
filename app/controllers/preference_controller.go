package controllers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/tomsflightclub/flightclub/app/models"
	"github.com/tomsflightclub/flightclub/app/repository"
	"github.com/tomsflightclub/flightclub/internal/pkg/usercontext"
)

// preferenceUpdateRequest is the accepted PUT body. Pointer fields make
// partial updates possible: absent fields keep their stored value.
type preferenceUpdateRequest struct {
	Cadence    *string `json:"cadence"`
	Subscribed *bool   `json:"subscribed"`
	HomeCity   *string `json:"home_city"`
}

// HandleGetEmailPreferences returns the digest settings for the logged-in
// subscriber. A missing preference row reads as the defaults; no row is
// created on a pure read.
func HandleGetEmailPreferences(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing or invalid authentication"})
	}

	repos := repository.GetGlobalFactory()
	user, err := repos.GetUserRepository().GetByID(userCtx.UserID)
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
		pref = &models.EmailPreference{UserID: userCtx.UserID, Cadence: models.CadenceDaily, Subscribed: true}
	}

	return c.JSON(preferenceResponse(user, pref))
}

// HandleUpdateEmailPreferences applies a partial update to the digest
// settings. Cadence values outside the closed set are rejected with the
// accepted values named in the error.
func HandleUpdateEmailPreferences(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing or invalid authentication"})
	}

	var req preferenceUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid JSON body"})
	}

	if req.Cadence != nil {
		cadence := strings.ToLower(strings.TrimSpace(*req.Cadence))
		if !models.IsValidCadence(cadence) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":   "invalid_cadence",
				"message": fmt.Sprintf("Cadence %q is not supported, accepted values: %s", *req.Cadence, strings.Join(models.Cadences(), ", ")),
			})
		}
		req.Cadence = &cadence
	}

	repos := repository.GetGlobalFactory()
	user, err := repos.GetUserRepository().GetByID(userCtx.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "User not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load user"})
	}

	prefRepo := repos.GetPreferenceRepository()
	pref, err := prefRepo.GetOrCreate(userCtx.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load preferences"})
	}

	if req.Cadence != nil {
		pref.Cadence = *req.Cadence
	}
	if req.Subscribed != nil {
		pref.Subscribed = *req.Subscribed
	}
	if err := prefRepo.Save(pref); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to save preferences"})
	}

	if req.HomeCity != nil {
		user.HomeCity = strings.TrimSpace(*req.HomeCity)
		if err := repos.GetUserRepository().Update(user); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to save home city"})
		}
	}

	return c.JSON(preferenceResponse(user, pref))
}

func preferenceResponse(user *models.User, pref *models.EmailPreference) fiber.Map {
	return fiber.Map{
		"cadence":      pref.Cadence,
		"subscribed":   pref.Subscribed,
		"home_city":    user.HomeCity,
		"last_sent_at": formatTimePtr(pref.LastSentAt),
	}
}
