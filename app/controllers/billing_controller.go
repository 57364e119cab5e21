package controllers

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"
	"gorm.io/gorm"

	"github.com/tomsflightclub/flightclub/app/models"
	"github.com/tomsflightclub/flightclub/app/repository"
	"github.com/tomsflightclub/flightclub/internal/pkg/billing"
	"github.com/tomsflightclub/flightclub/internal/pkg/database"
	"github.com/tomsflightclub/flightclub/internal/pkg/env"
	"github.com/tomsflightclub/flightclub/internal/pkg/session"
	"github.com/tomsflightclub/flightclub/internal/pkg/usercontext"
)

// HandleBillingCheckout starts a hosted Stripe checkout for the premium
// plan and redirects the browser to the payment page.
func HandleBillingCheckout(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Redirect("/login", fiber.StatusSeeOther)
	}

	user, err := repository.GetGlobalFactory().GetUserRepository().GetByID(userCtx.UserID)
	if err != nil {
		fm := fiber.Map{"type": "error", "message": "Failed to load your account"}
		return flash.WithError(c, fm).Redirect("/upgrade")
	}

	priceRef := strings.TrimSpace(c.FormValue("price_ref"))
	if priceRef == "" {
		priceRef = env.GetEnv("STRIPE_PRICE_PREMIUM", "")
	}

	base := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/")
	client := billing.NewStripeClientFromEnv()
	checkout, err := client.CreateCheckoutSession(
		c.UserContext(),
		user.Email,
		priceRef,
		base+"/upgrade?checkout=success",
		base+"/upgrade?checkout=canceled",
	)
	if err != nil {
		log.Printf("billing: checkout session failed for user %d: %v", user.ID, err)
		fm := fiber.Map{"type": "error", "message": "Could not start the checkout, please try again"}
		return flash.WithError(c, fm).Redirect("/upgrade")
	}

	return c.Redirect(checkout.URL, fiber.StatusSeeOther)
}

// HandleStripeWebhook ingests Stripe events. Every delivery is persisted
// before processing; the provider event id deduplicates redeliveries. The
// subscription state inside the event is upserted and the cached user plan
// reconciled from it.
func HandleStripeWebhook(c *fiber.Ctx) error {
	payload := c.Body()
	svc := billing.NewServiceFromDB(database.GetDB())

	signatureValid := billing.VerifyStripeWebhookSignature(
		payload,
		c.Get("Stripe-Signature"),
		env.GetEnv("STRIPE_WEBHOOK_SECRET", ""),
	)

	event, parseErr := billing.ParseStripeWebhookEvent(payload)

	in := billing.WebhookEventInput{
		Provider:       models.BillingProviderStripe,
		PayloadJSON:    string(payload),
		SignatureValid: signatureValid,
	}
	if event != nil {
		in.ProviderEventID = event.ID
		in.EventType = event.Type
	}

	created, record, err := svc.RecordWebhookEvent(c.UserContext(), in)
	if err != nil {
		log.Printf("billing: failed to record stripe webhook: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to record event"})
	}
	if !created {
		// Redelivery of an event we already hold.
		return c.JSON(fiber.Map{"received": true, "duplicate": true})
	}

	if parseErr != nil {
		_ = svc.MarkWebhookProcessed(c.UserContext(), record.ID, parseErr)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid webhook payload"})
	}
	if !signatureValid {
		sigErr := errors.New("invalid webhook signature")
		_ = svc.MarkWebhookProcessed(c.UserContext(), record.ID, sigErr)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid signature"})
	}

	processErr := processStripeEvent(c, svc, event)
	if err := svc.MarkWebhookProcessed(c.UserContext(), record.ID, processErr); err != nil {
		log.Printf("billing: failed to mark webhook %d processed: %v", record.ID, err)
	}
	if processErr != nil {
		log.Printf("billing: stripe event %s (%s) failed: %v", event.ID, event.Type, processErr)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Event processing failed"})
	}

	return c.JSON(fiber.Map{"received": true})
}

func processStripeEvent(c *fiber.Ctx, svc *billing.Service, event *billing.StripeWebhookEvent) error {
	if event.Subscription == nil {
		// Events without a subscription object are acknowledged unprocessed.
		return nil
	}
	sub := event.Subscription

	user, err := repository.GetGlobalFactory().GetUserRepository().GetByStripeCustomerID(sub.CustomerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("no user for stripe customer %s", sub.CustomerID)
		}
		return err
	}

	status := billing.StripeStatusToSubscriptionStatus(sub.Status)
	if strings.EqualFold(event.Type, "customer.subscription.deleted") {
		status = models.SubscriptionStatusCanceled
	}

	_, _, err = svc.SyncSubscription(c.UserContext(), billing.NormalizedSubscription{
		UserID:                 user.ID,
		Provider:               models.BillingProviderStripe,
		ProviderSubscriptionID: sub.ID,
		ProviderPriceRef:       sub.PriceRef,
		BillingInterval:        sub.Interval,
		Status:                 status,
		CurrentPeriodStart:     sub.CurrentPeriodStart,
		CurrentPeriodEnd:       sub.CurrentPeriodEnd,
		CancelAtPeriodEnd:      sub.CancelAtPeriodEnd,
		RawPayloadJSON:         string(c.Body()),
	})
	return err
}

// HandleUserBillingResync lets a subscriber force a reconciliation of the
// cached plan against the subscription rows, for the rare case where a
// webhook went missing.
func HandleUserBillingResync(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Redirect("/login", fiber.StatusSeeOther)
	}

	svc := billing.NewServiceFromDB(database.GetDB())
	plan, err := svc.ReconcileUserPlan(c.UserContext(), userCtx.UserID)
	if err != nil {
		log.Printf("billing: resync failed for user %d: %v", userCtx.UserID, err)
		fm := fiber.Map{"type": "error", "message": "Plan refresh failed, please try again"}
		return flash.WithError(c, fm).Redirect("/upgrade")
	}

	// Refresh the session copy so the next request sees the new plan.
	if err := session.SetSessionValue(c, "user_plan", plan); err != nil {
		log.Printf("billing: failed to refresh session plan for user %d: %v", userCtx.UserID, err)
	}

	fm := fiber.Map{"type": "success", "message": fmt.Sprintf("Your plan is up to date: %s", plan)}
	return flash.WithSuccess(c, fm).Redirect("/upgrade")
}

// HandleGetUserPlan returns the effective plan snapshot for the logged-in
// subscriber: the plan, the backing subscription row and the projected next
// payment date.
func HandleGetUserPlan(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing or invalid authentication"})
	}

	svc := billing.NewServiceFromDB(database.GetDB())
	status, err := svc.PlanStatusForUser(c.UserContext(), userCtx.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "User not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to resolve plan"})
	}

	return c.JSON(status)
}
