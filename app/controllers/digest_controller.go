package controllers

import (
	"context"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/tomsflightclub/flightclub/internal/pkg/database"
	"github.com/tomsflightclub/flightclub/internal/pkg/digest"
)

// HandleBulkSendDigests runs one digest batch for the requested cadence and
// reports the aggregate outcome. The route sits behind the cron secret
// middleware; the scheduler is the only intended caller. The batch runs
// synchronously so the scheduler sees real sent/failed counts.
func HandleBulkSendDigests(c *fiber.Ctx) error {
	cadence := strings.TrimSpace(c.Query("cadence", c.FormValue("cadence")))
	if cadence == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "bad_request",
			"message": "cadence is required",
		})
	}

	dispatcher := digest.NewDispatcherFromDB(database.GetDB())

	// Detached from the request context: a dropped scheduler connection
	// must not abort a half-finished batch.
	result, err := dispatcher.BulkSendDigests(context.Background(), cadence)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "invalid_cadence",
			"message": err.Error(),
		})
	}

	log.Printf("digest: batch done, %s", result.Summary())

	return c.JSON(fiber.Map{
		"cadence": result.Cadence,
		"sent":    result.Sent,
		"failed":  result.Failed,
		"skipped": result.Skipped,
		"message": result.Summary(),
	})
}
