package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/tomsflightclub/flightclub/app/models"
	"github.com/tomsflightclub/flightclub/internal/pkg/entitlements"
	"gorm.io/gorm"
)

// RemoteCanceler cancels a subscription at the billing provider. Cancels are
// best-effort: the provider is the external source of truth and its webhooks
// eventually reconcile any divergence, so a failed remote call never blocks
// the local state change.
type RemoteCanceler interface {
	CancelSubscription(ctx context.Context, providerSubscriptionID string) error
}

// Service provides provider-neutral billing synchronization, effective-plan
// resolution and administrative plan changes.
type Service struct {
	repo   Repository
	remote RemoteCanceler
}

// NewService creates a billing service from an injected repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// NewServiceFromDB creates a billing service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB) *Service {
	s := NewService(NewRepository(db))
	s.remote = NewStripeClientFromEnv()
	return s
}

// WithRemoteCanceler overrides the provider client used for remote cancels.
func (s *Service) WithRemoteCanceler(rc RemoteCanceler) *Service {
	s.remote = rc
	return s
}

// ResolveEffectivePlan determines a user's plan from the most recent
// subscription row by creation time. Conflicting historical rows are
// resolved by that tie-break alone. No rows at all means free.
func (s *Service) ResolveEffectivePlan(ctx context.Context, userID uint) (entitlements.Plan, *models.Subscription, error) {
	_ = ctx
	if userID == 0 {
		return entitlements.PlanFree, nil, errors.New("user_id is required")
	}
	if _, err := s.repo.GetUser(userID); err != nil {
		return entitlements.PlanFree, nil, err
	}

	sub, err := s.repo.GetLatestSubscriptionByUser(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entitlements.PlanFree, nil, nil
		}
		return entitlements.PlanFree, nil, err
	}

	if sub.IsCurrentPremiumAt(time.Now()) {
		return entitlements.PlanPremium, sub, nil
	}
	return entitlements.PlanFree, sub, nil
}

// PlanStatusForUser returns the read-only snapshot served by the plan
// endpoint: effective plan, current subscription row and the projected next
// payment date (period end of an active, non-terminating subscription).
func (s *Service) PlanStatusForUser(ctx context.Context, userID uint) (*PlanStatus, error) {
	plan, sub, err := s.ResolveEffectivePlan(ctx, userID)
	if err != nil {
		return nil, err
	}

	status := &PlanStatus{Plan: string(plan)}
	if sub != nil {
		status.Subscription = sub
		if plan == entitlements.PlanPremium && !sub.CancelAtPeriodEnd {
			status.NextPaymentProjected = sub.CurrentPeriodEnd
		}
	}
	return status, nil
}

// ReconcileUserPlan recomputes the effective plan and refreshes the cached
// plan column on the user row when it drifted.
func (s *Service) ReconcileUserPlan(ctx context.Context, userID uint) (string, error) {
	plan, _, err := s.ResolveEffectivePlan(ctx, userID)
	if err != nil {
		return "", err
	}

	user, err := s.repo.GetUser(userID)
	if err != nil {
		return "", err
	}
	if normalizePlan(user.Plan) == string(plan) {
		return string(plan), nil
	}
	if err := s.repo.UpdateUserPlan(userID, string(plan)); err != nil {
		return "", err
	}
	return string(plan), nil
}

// ResolveMappedPlan resolves provider price references to an internal plan.
func (s *Service) ResolveMappedPlan(ctx context.Context, provider, priceRef, interval string) (string, error) {
	_ = ctx
	p := strings.ToLower(strings.TrimSpace(provider))
	ref := strings.TrimSpace(priceRef)
	i := normalizeInterval(interval)
	if p == "" || ref == "" {
		return string(entitlements.PlanFree), errors.New("provider and provider price ref are required")
	}

	// Prefer exact interval match.
	m, err := s.repo.FindActivePlanMapping(p, ref, i)
	if err == nil {
		return normalizePlan(m.InternalPlan), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	// Fallback for mappings that intentionally use "unknown".
	m, err = s.repo.FindActivePlanMapping(p, ref, "unknown")
	if err == nil {
		return normalizePlan(m.InternalPlan), nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return string(entitlements.PlanFree), gorm.ErrRecordNotFound
	}
	return "", err
}

// SyncSubscription upserts provider subscription data and reconciles the
// cached user plan. Re-delivered webhooks hit the same provider
// subscription id and stay idempotent.
func (s *Service) SyncSubscription(ctx context.Context, in NormalizedSubscription) (*models.Subscription, string, error) {
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	if in.UserID == 0 || provider == "" || strings.TrimSpace(in.ProviderSubscriptionID) == "" {
		return nil, "", errors.New("user_id, provider and provider_subscription_id are required")
	}

	interval := normalizeInterval(in.BillingInterval)
	status := strings.ToLower(strings.TrimSpace(in.Status))
	if status == "" {
		status = models.SubscriptionStatusActive
	}

	plan, err := s.ResolveMappedPlan(ctx, provider, in.ProviderPriceRef, interval)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", err
	}
	if plan == "" {
		plan = string(entitlements.PlanFree)
	}

	sub := &models.Subscription{
		UserID:                 in.UserID,
		Provider:               provider,
		ProviderSubscriptionID: strings.TrimSpace(in.ProviderSubscriptionID),
		ProviderPriceRef:       strings.TrimSpace(in.ProviderPriceRef),
		Plan:                   plan,
		BillingInterval:        interval,
		Status:                 status,
		CurrentPeriodStart:     in.CurrentPeriodStart,
		CurrentPeriodEnd:       in.CurrentPeriodEnd,
		CancelAtPeriodEnd:      in.CancelAtPeriodEnd,
		RawPayloadJSON:         in.RawPayloadJSON,
	}
	if err := s.repo.UpsertSubscription(sub); err != nil {
		return nil, "", err
	}

	effectivePlan, err := s.ReconcileUserPlan(ctx, in.UserID)
	if err != nil {
		return sub, "", err
	}
	return sub, effectivePlan, nil
}

// AdminChangePlan applies an operator-requested upgrade or downgrade as a
// two-step saga: step A updates the cached plan on the user row, step B
// writes the subscription row. If B fails the compensating inverse of A is
// issued and B's error surfaces. A linked provider subscription is canceled
// best-effort on downgrade; its failure is logged and never blocks the
// local change.
func (s *Service) AdminChangePlan(ctx context.Context, userID uint, targetPlan string) error {
	plan := entitlements.Normalize(targetPlan)
	user, err := s.repo.GetUser(userID)
	if err != nil {
		return err
	}
	previousPlan := normalizePlan(user.Plan)
	if previousPlan == string(plan) {
		return nil
	}

	// Step A: cached plan flag.
	if err := s.repo.UpdateUserPlan(userID, string(plan)); err != nil {
		return err
	}

	// Step B: the subscription row.
	var stepB error
	if plan == entitlements.PlanPremium {
		now := time.Now()
		end := now.AddDate(0, 1, 0)
		stepB = s.repo.CreateSubscription(&models.Subscription{
			UserID:                 userID,
			Provider:               "admin",
			ProviderSubscriptionID: fmt.Sprintf("admin:%d:%d", userID, now.UnixNano()),
			ProviderPriceRef:       "admin_grant",
			Plan:                   string(plan),
			Status:                 models.SubscriptionStatusActive,
			CurrentPeriodStart:     &now,
			CurrentPeriodEnd:       &end,
		})
	} else {
		stepB = s.cancelCurrentSubscription(ctx, userID)
	}

	if stepB != nil {
		// Compensating inverse of step A; the original error surfaces.
		if compErr := s.repo.UpdateUserPlan(userID, previousPlan); compErr != nil {
			log.Printf("billing: compensating plan revert failed for user %d: %v", userID, compErr)
		}
		return stepB
	}
	return nil
}

// cancelCurrentSubscription marks the latest local row canceled and fires a
// best-effort remote cancel when the row is provider-linked.
func (s *Service) cancelCurrentSubscription(ctx context.Context, userID uint) error {
	sub, err := s.repo.GetLatestSubscriptionByUser(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if sub.Status == models.SubscriptionStatusCanceled {
		return nil
	}

	if sub.Provider == models.BillingProviderStripe && s.remote != nil {
		if err := s.remote.CancelSubscription(ctx, sub.ProviderSubscriptionID); err != nil {
			log.Printf("billing: best-effort remote cancel failed for subscription %s: %v", sub.ProviderSubscriptionID, err)
		}
	}

	return s.repo.MarkSubscriptionCanceled(sub.ID, "admin_downgrade", time.Now())
}

// RecordWebhookEvent persists webhook payloads idempotently.
func (s *Service) RecordWebhookEvent(ctx context.Context, in WebhookEventInput) (bool, *models.BillingWebhookEvent, error) {
	_ = ctx
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	if provider == "" {
		return false, nil, errors.New("provider is required")
	}
	eventID := strings.TrimSpace(in.ProviderEventID)
	if eventID == "" {
		sum := sha256.Sum256([]byte(in.PayloadJSON))
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	event := &models.BillingWebhookEvent{
		Provider:        provider,
		ProviderEventID: eventID,
		EventType:       strings.TrimSpace(in.EventType),
		PayloadJSON:     in.PayloadJSON,
		SignatureValid:  in.SignatureValid,
	}
	return s.repo.CreateWebhookEventIfNotExists(event)
}

// MarkWebhookProcessed marks an event as processed and stores an optional error.
func (s *Service) MarkWebhookProcessed(ctx context.Context, webhookEventID uint, processingErr error) error {
	_ = ctx
	if webhookEventID == 0 {
		return errors.New("webhook_event_id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.repo.MarkWebhookProcessed(webhookEventID, errMsg)
}
