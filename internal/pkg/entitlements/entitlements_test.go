package entitlements

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, PlanFree, Normalize("free"))
	assert.Equal(t, PlanPremium, Normalize("premium"))
	assert.Equal(t, PlanPremium, Normalize(" PREMIUM "))
	assert.Equal(t, PlanFree, Normalize("gold"))
	assert.Equal(t, PlanFree, Normalize(""))
}

func TestRank(t *testing.T) {
	assert.Greater(t, Rank(PlanPremium), Rank(PlanFree))
}

func TestVisibleDealLimit(t *testing.T) {
	assert.Equal(t, 1, VisibleDealLimit(PlanFree))
	assert.Equal(t, 10, VisibleDealLimit(PlanPremium))
}
