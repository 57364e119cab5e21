package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsValidCadence(t *testing.T) {
	for _, c := range Cadences() {
		assert.True(t, IsValidCadence(c), "cadence %q", c)
	}

	assert.False(t, IsValidCadence("fortnightly"))
	assert.False(t, IsValidCadence("Daily"))
	assert.False(t, IsValidCadence(""))
}

func TestCadences(t *testing.T) {
	assert.Equal(t, []string{"never", "daily", "three_weekly", "twice_weekly", "weekly"}, Cadences())
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	pref := &EmailPreference{UserID: 1, Cadence: CadenceDaily, Subscribed: true}

	pref.Unsubscribe()
	assert.False(t, pref.Subscribed)
	assert.Equal(t, CadenceNever, pref.Cadence)

	pref.Unsubscribe()
	assert.False(t, pref.Subscribed)
	assert.Equal(t, CadenceNever, pref.Cadence)
}

func TestTouchLastSent(t *testing.T) {
	pref := &EmailPreference{UserID: 1}
	at := time.Now()

	pref.TouchLastSent(at)
	if assert.NotNil(t, pref.LastSentAt) {
		assert.Equal(t, at, *pref.LastSentAt)
	}
}
