package controllers

import (
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/tomsflightclub/flightclub/app/repository"
	"github.com/tomsflightclub/flightclub/internal/pkg/constants"
)

// HandleUnsubscribe processes one-click unsubscribe links from digest
// emails. The token is the subscriber id. Whatever the token resolves to,
// the response is the same success page: a stale or mangled link must not
// scare off someone who just wants out, and repeat clicks stay idempotent.
func HandleUnsubscribe(c *fiber.Ctx) error {
	token := c.Query("token")

	userID, err := strconv.ParseUint(token, 10, 32)
	if err != nil || userID == 0 {
		log.Printf("unsubscribe: ignoring invalid token %q", token)
		return c.Redirect(constants.UnsubscribedRoute, fiber.StatusSeeOther)
	}

	affected, err := repository.GetGlobalFactory().GetPreferenceRepository().UnsubscribeByUserID(uint(userID))
	if err != nil {
		log.Printf("unsubscribe: failed for user %d: %v", userID, err)
	} else if affected == 0 {
		log.Printf("unsubscribe: no preference row for user %d, nothing to do", userID)
	}

	return c.Redirect(constants.UnsubscribedRoute, fiber.StatusSeeOther)
}

// HandleUnsubscribedPage renders the confirmation page.
func HandleUnsubscribedPage(c *fiber.Ctx) error {
	return c.Render("unsubscribed", fiber.Map{
		"Title": "Unsubscribed",
	})
}
