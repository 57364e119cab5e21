package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"

	"github.com/tomsflightclub/flightclub/app/models"
	"github.com/tomsflightclub/flightclub/app/repository"
	"github.com/tomsflightclub/flightclub/internal/pkg/entitlements"
	"github.com/tomsflightclub/flightclub/internal/pkg/usercontext"
)

// HandleUserProfile renders the account page: plan, home city and digest
// settings in one place.
func HandleUserProfile(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	repos := repository.GetGlobalFactory()
	user, err := repos.GetUserRepository().GetByID(userCtx.UserID)
	if err != nil {
		fm := fiber.Map{"type": "error", "message": "User not found"}
		return flash.WithError(c, fm).Redirect("/")
	}

	pref, err := repos.GetPreferenceRepository().GetByUserID(userCtx.UserID)
	if err != nil {
		pref = &models.EmailPreference{UserID: user.ID, Cadence: models.CadenceDaily, Subscribed: true}
	}

	return c.Render("user/profile", fiber.Map{
		"Title":         "My account",
		"FromProtected": isLoggedIn(c),
		"Username":      user.Name,
		"Flash":         flash.Get(c),
		"User":          user,
		"Plan":          entitlements.Normalize(user.Plan),
		"IsPremium":     entitlements.Normalize(user.Plan) == entitlements.PlanPremium,
		"Cadence":       pref.Cadence,
		"Cadences":      models.Cadences(),
		"Subscribed":    pref.Subscribed,
		"CSRF":          csrfToken(c),
	})
}

// HandleUserProfileUpdate saves home city and cadence changes from the
// profile form and mirrors them through the same rules as the API.
func HandleUserProfileUpdate(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	repos := repository.GetGlobalFactory()
	user, err := repos.GetUserRepository().GetByID(userCtx.UserID)
	if err != nil {
		fm := fiber.Map{"type": "error", "message": "User not found"}
		return flash.WithError(c, fm).Redirect("/")
	}

	cadence := c.FormValue("cadence")
	if cadence != "" && !models.IsValidCadence(cadence) {
		fm := fiber.Map{"type": "error", "message": "That sending schedule is not supported"}
		return flash.WithError(c, fm).Redirect("/user/profile")
	}

	pref, err := repos.GetPreferenceRepository().GetOrCreate(userCtx.UserID)
	if err != nil {
		fm := fiber.Map{"type": "error", "message": "Failed to load preferences"}
		return flash.WithError(c, fm).Redirect("/user/profile")
	}

	if cadence != "" {
		pref.Cadence = cadence
	}
	pref.Subscribed = c.FormValue("subscribed") == "on" || c.FormValue("subscribed") == "true"
	if err := repos.GetPreferenceRepository().Save(pref); err != nil {
		fm := fiber.Map{"type": "error", "message": "Failed to save preferences"}
		return flash.WithError(c, fm).Redirect("/user/profile")
	}

	user.HomeCity = c.FormValue("home_city")
	if err := repos.GetUserRepository().Update(user); err != nil {
		fm := fiber.Map{"type": "error", "message": "Failed to save your home city"}
		return flash.WithError(c, fm).Redirect("/user/profile")
	}

	fm := fiber.Map{"type": "success", "message": "Settings saved"}
	return flash.WithSuccess(c, fm).Redirect("/user/profile")
}
