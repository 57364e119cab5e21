package digest

import (
	"errors"
	"time"

	"github.com/tomsflightclub/flightclub/app/models"
	"github.com/tomsflightclub/flightclub/app/repository"
	"github.com/tomsflightclub/flightclub/internal/pkg/entitlements"
)

// Digest is the composed set of deals for one subscriber: the actionable
// visible deals and the locked teaser remainder shown for upsell.
type Digest struct {
	Visible []models.Deal
	Locked  []models.Deal
}

// IsEmpty reports whether there is nothing to send at all.
func (d *Digest) IsEmpty() bool {
	return len(d.Visible) == 0 && len(d.Locked) == 0
}

// Composer selects and splits eligible deals for a subscriber. Given fixed
// user and deal snapshots the output is deterministic; all ordering comes
// from the repository's discovery-recency sort.
type Composer struct {
	deals repository.DealRepository
}

// NewComposer creates a digest composer over the deal repository.
func NewComposer(deals repository.DealRepository) *Composer {
	return &Composer{deals: deals}
}

// ComposeDigest builds the digest for one subscriber at the given time.
// Candidates match the subscriber's home city; without a home city the
// fallback is deals from all origin cities, never an empty set. Expired
// deals are excluded by the repository query itself.
func (c *Composer) ComposeDigest(user *models.User, plan entitlements.Plan, at time.Time) (*Digest, error) {
	if user == nil {
		return nil, errors.New("user is required")
	}

	var (
		candidates []models.Deal
		err        error
	)
	if user.HasHomeCity() {
		candidates, err = c.deals.GetCurrentByOriginCity(user.HomeCity, at, entitlements.DigestCandidateCap)
	} else {
		candidates, err = c.deals.GetCurrent(at, entitlements.DigestCandidateCap)
	}
	if err != nil {
		return nil, err
	}

	visible := entitlements.VisibleDealLimit(plan)
	if visible > len(candidates) {
		visible = len(candidates)
	}

	return &Digest{
		Visible: candidates[:visible],
		Locked:  candidates[visible:],
	}, nil
}
