package digest

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tomsflightclub/flightclub/app/models"
	"github.com/tomsflightclub/flightclub/internal/pkg/entitlements"
)

func TestRenderDigestEmail(t *testing.T) {
	user := &models.User{ID: 42, Name: "Tom", Email: "tom@example.com", HomeCity: "London"}

	t.Run("free digest upsells the locked remainder", func(t *testing.T) {
		dig := &Digest{
			Visible: []models.Deal{makeDeal(1, "London", time.Hour, time.Hour)},
			Locked: []models.Deal{
				makeDeal(2, "London", 2*time.Hour, time.Hour),
				makeDeal(3, "London", 3*time.Hour, time.Hour),
			},
		}

		subject, body := RenderDigestEmail(user, entitlements.PlanFree, dig)

		assert.Equal(t, "3 new flight deals from London", subject)
		assert.Contains(t, body, "59.00 GBP")
		assert.Contains(t, body, "members only")
		assert.Contains(t, body, "/upgrade")
		assert.Contains(t, body, fmt.Sprintf("/unsubscribe?token=%d", user.ID))
		assert.Equal(t, 1, strings.Count(body, "59.00 GBP"), "locked deals must not leak prices")
	})

	t.Run("premium digest has no upsell", func(t *testing.T) {
		dig := &Digest{
			Visible: []models.Deal{makeDeal(1, "London", time.Hour, time.Hour)},
		}

		subject, body := RenderDigestEmail(user, entitlements.PlanPremium, dig)

		assert.Equal(t, "1 new flight deal from London", subject)
		assert.NotContains(t, body, "/upgrade")
		assert.Contains(t, body, fmt.Sprintf("/unsubscribe?token=%d", user.ID))
	})

	t.Run("no home city falls back to a generic subject", func(t *testing.T) {
		nomad := &models.User{ID: 7, Name: "Ada", Email: "ada@example.com"}
		dig := &Digest{Visible: []models.Deal{makeDeal(1, "Manchester", time.Hour, time.Hour)}}

		subject, _ := RenderDigestEmail(nomad, entitlements.PlanFree, dig)
		assert.Equal(t, "1 new flight deal from your airports", subject)
	})
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "59.00 GBP", FormatPrice(5900, "gbp"))
	assert.Equal(t, "123.45 EUR", FormatPrice(12345, "EUR"))
	assert.Equal(t, "0.99 USD", FormatPrice(99, "usd"))
}
