package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsCurrentPremiumAt(t *testing.T) {
	now := time.Now()
	future := now.Add(24 * time.Hour)
	past := now.Add(-24 * time.Hour)

	tests := []struct {
		name      string
		status    string
		periodEnd *time.Time
		want      bool
	}{
		{name: "active with future period end", status: SubscriptionStatusActive, periodEnd: &future, want: true},
		{name: "trialing with future period end", status: SubscriptionStatusTrialing, periodEnd: &future, want: true},
		{name: "active but period elapsed", status: SubscriptionStatusActive, periodEnd: &past, want: false},
		{name: "active without period end", status: SubscriptionStatusActive, periodEnd: nil, want: false},
		{name: "canceled with future period end", status: SubscriptionStatusCanceled, periodEnd: &future, want: false},
		{name: "past due with future period end", status: SubscriptionStatusPastDue, periodEnd: &future, want: false},
		{name: "incomplete", status: SubscriptionStatusIncomplete, periodEnd: &future, want: false},
		{name: "expired", status: SubscriptionStatusExpired, periodEnd: &future, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := &Subscription{Status: tt.status, CurrentPeriodEnd: tt.periodEnd}
			assert.Equal(t, tt.want, sub.IsCurrentPremiumAt(now))
		})
	}
}
