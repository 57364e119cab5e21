package digest

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/tomsflightclub/flightclub/app/models"
	"github.com/tomsflightclub/flightclub/app/repository"
	"github.com/tomsflightclub/flightclub/internal/pkg/billing"
	"github.com/tomsflightclub/flightclub/internal/pkg/entitlements"
	"github.com/tomsflightclub/flightclub/internal/pkg/mail"
	"gorm.io/gorm"
)

const defaultSendTimeout = 30 * time.Second

// PlanResolver resolves the effective plan for one subscriber.
type PlanResolver interface {
	ResolveEffectivePlan(ctx context.Context, userID uint) (entitlements.Plan, *models.Subscription, error)
}

// RunResult aggregates one dispatcher run. Skipped counts subscribers with
// nothing to send; they are neither sent nor failed.
type RunResult struct {
	Cadence string `json:"cadence"`
	Sent    int    `json:"sent"`
	Failed  int    `json:"failed"`
	Skipped int    `json:"skipped"`
}

// Summary renders the operator-facing one-liner for a run.
func (r *RunResult) Summary() string {
	return fmt.Sprintf("cadence=%s sent=%d failed=%d skipped=%d", r.Cadence, r.Sent, r.Failed, r.Skipped)
}

// Dispatcher iterates all subscribed recipients of a cadence, composes and
// sends each digest independently, and aggregates outcomes. One recipient's
// failure never aborts the batch; each send is bounded by a timeout so a
// stalled transport call cannot stall the run. The dispatcher holds no run
// lock: re-invocation is the retry mechanism and last_sent_at is advisory.
type Dispatcher struct {
	prefs       repository.PreferenceRepository
	users       repository.UserRepository
	composer    *Composer
	plans       PlanResolver
	mailer      mail.Mailer
	sendTimeout time.Duration
}

// NewDispatcher wires a dispatcher from its collaborators.
func NewDispatcher(
	prefs repository.PreferenceRepository,
	users repository.UserRepository,
	composer *Composer,
	plans PlanResolver,
	mailer mail.Mailer,
) *Dispatcher {
	return &Dispatcher{
		prefs:       prefs,
		users:       users,
		composer:    composer,
		plans:       plans,
		mailer:      mailer,
		sendTimeout: defaultSendTimeout,
	}
}

// NewDispatcherFromDB builds the production dispatcher over GORM and SMTP.
func NewDispatcherFromDB(db *gorm.DB) *Dispatcher {
	repos := repository.NewRepositories(db)
	return NewDispatcher(
		repos.Preference,
		repos.User,
		NewComposer(repos.Deal),
		billing.NewServiceFromDB(db),
		mail.NewSMTPMailer(),
	)
}

// WithSendTimeout overrides the per-recipient send bound.
func (d *Dispatcher) WithSendTimeout(t time.Duration) *Dispatcher {
	d.sendTimeout = t
	return d
}

// BulkSendDigests runs one cadence batch. The cadence must be a member of
// the closed cadence set; recipients are preference rows with subscribed
// true and a matching cadence. Outcomes are order-independent: each
// recipient is processed in isolation.
func (d *Dispatcher) BulkSendDigests(ctx context.Context, cadence string) (*RunResult, error) {
	if !models.IsValidCadence(cadence) {
		return nil, fmt.Errorf("invalid cadence %q, accepted values: %v", cadence, models.Cadences())
	}

	prefs, err := d.prefs.ListSubscribedByCadence(cadence)
	if err != nil {
		return nil, err
	}

	result := &RunResult{Cadence: cadence}
	for i := range prefs {
		sent, err := d.sendOne(ctx, &prefs[i])
		if err != nil {
			result.Failed++
			log.Printf("digest: send to user %d failed: %v", prefs[i].UserID, err)
			continue
		}
		if sent {
			result.Sent++
		} else {
			result.Skipped++
		}
	}
	return result, nil
}

// sendOne composes, renders and sends a single digest. Returns false with a
// nil error when the subscriber legitimately has nothing to send.
func (d *Dispatcher) sendOne(ctx context.Context, pref *models.EmailPreference) (bool, error) {
	user, err := d.users.GetByID(pref.UserID)
	if err != nil {
		return false, fmt.Errorf("load user: %w", err)
	}

	plan, _, err := d.plans.ResolveEffectivePlan(ctx, user.ID)
	if err != nil {
		return false, fmt.Errorf("resolve plan: %w", err)
	}

	now := time.Now()
	dig, err := d.composer.ComposeDigest(user, plan, now)
	if err != nil {
		return false, fmt.Errorf("compose digest: %w", err)
	}
	if dig.IsEmpty() {
		return false, nil
	}

	subject, body := RenderDigestEmail(user, plan, dig)

	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()
	if err := d.mailer.Send(sendCtx, user.Email, subject, body); err != nil {
		return false, fmt.Errorf("send mail: %w", err)
	}

	if err := d.prefs.TouchLastSent(user.ID, now); err != nil {
		// The mail left the building; a failed stamp is logged, not counted.
		log.Printf("digest: failed to stamp last_sent_at for user %d: %v", user.ID, err)
	}
	return true, nil
}
