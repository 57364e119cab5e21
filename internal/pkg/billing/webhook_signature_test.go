package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func signStripePayload(t *testing.T, payload []byte, secret string, ts time.Time) string {
	t.Helper()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts.Unix())
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyStripeWebhookSignature(t *testing.T) {
	payload := []byte(`{"id":"evt_123","type":"customer.subscription.updated"}`)
	secret := "whsec_test"
	now := time.Now()

	t.Run("valid signature passes", func(t *testing.T) {
		header := fmt.Sprintf("t=%d,v1=%s", now.Unix(), signStripePayload(t, payload, secret, now))
		assert.True(t, verifyStripeWebhookSignatureAt(payload, header, secret, now))
	})

	t.Run("wrong secret fails", func(t *testing.T) {
		header := fmt.Sprintf("t=%d,v1=%s", now.Unix(), signStripePayload(t, payload, "whsec_other", now))
		assert.False(t, verifyStripeWebhookSignatureAt(payload, header, secret, now))
	})

	t.Run("tampered payload fails", func(t *testing.T) {
		header := fmt.Sprintf("t=%d,v1=%s", now.Unix(), signStripePayload(t, payload, secret, now))
		assert.False(t, verifyStripeWebhookSignatureAt([]byte(`{"id":"evt_456"}`), header, secret, now))
	})

	t.Run("stale timestamp fails", func(t *testing.T) {
		ts := now.Add(-10 * time.Minute)
		header := fmt.Sprintf("t=%d,v1=%s", ts.Unix(), signStripePayload(t, payload, secret, ts))
		assert.False(t, verifyStripeWebhookSignatureAt(payload, header, secret, now))
	})

	t.Run("future timestamp fails", func(t *testing.T) {
		ts := now.Add(10 * time.Minute)
		header := fmt.Sprintf("t=%d,v1=%s", ts.Unix(), signStripePayload(t, payload, secret, ts))
		assert.False(t, verifyStripeWebhookSignatureAt(payload, header, secret, now))
	})

	t.Run("any matching v1 during secret rotation passes", func(t *testing.T) {
		header := fmt.Sprintf("t=%d,v1=%s,v1=%s",
			now.Unix(),
			signStripePayload(t, payload, "whsec_rotated_out", now),
			signStripePayload(t, payload, secret, now),
		)
		assert.True(t, verifyStripeWebhookSignatureAt(payload, header, secret, now))
	})

	t.Run("missing header fails", func(t *testing.T) {
		assert.False(t, verifyStripeWebhookSignatureAt(payload, "", secret, now))
	})

	t.Run("missing secret fails", func(t *testing.T) {
		header := fmt.Sprintf("t=%d,v1=%s", now.Unix(), signStripePayload(t, payload, secret, now))
		assert.False(t, verifyStripeWebhookSignatureAt(payload, header, "", now))
	})

	t.Run("garbage timestamp fails", func(t *testing.T) {
		header := fmt.Sprintf("t=abc,v1=%s", signStripePayload(t, payload, secret, now))
		assert.False(t, verifyStripeWebhookSignatureAt(payload, header, secret, now))
	})

	t.Run("header without v1 entries fails", func(t *testing.T) {
		header := fmt.Sprintf("t=%d", now.Unix())
		assert.False(t, verifyStripeWebhookSignatureAt(payload, header, secret, now))
	})
}
