package billing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const subscriptionPayload = `{
	"id": "evt_1",
	"type": "customer.subscription.updated",
	"data": {
		"object": {
			"id": "sub_123",
			"customer": "cus_456",
			"status": "active",
			"cancel_at_period_end": true,
			"current_period_start": 1735689600,
			"current_period_end": 1738368000,
			"items": {
				"data": [
					{"price": {"id": "price_premium_monthly", "recurring": {"interval": "month"}}}
				]
			}
		}
	}
}`

func TestParseStripeWebhookEvent(t *testing.T) {
	t.Run("subscription event carries normalized subscription", func(t *testing.T) {
		event, err := ParseStripeWebhookEvent([]byte(subscriptionPayload))
		require.NoError(t, err)

		assert.Equal(t, "evt_1", event.ID)
		assert.Equal(t, "customer.subscription.updated", event.Type)
		require.NotNil(t, event.Subscription)
		assert.Equal(t, "sub_123", event.Subscription.ID)
		assert.Equal(t, "cus_456", event.Subscription.CustomerID)
		assert.Equal(t, "price_premium_monthly", event.Subscription.PriceRef)
		assert.Equal(t, "month", event.Subscription.Interval)
		assert.Equal(t, "active", event.Subscription.Status)
		assert.True(t, event.Subscription.CancelAtPeriodEnd)
		require.NotNil(t, event.Subscription.CurrentPeriodStart)
		require.NotNil(t, event.Subscription.CurrentPeriodEnd)
		assert.Equal(t, int64(1735689600), event.Subscription.CurrentPeriodStart.Unix())
		assert.Equal(t, int64(1738368000), event.Subscription.CurrentPeriodEnd.Unix())
	})

	t.Run("non subscription event has nil subscription", func(t *testing.T) {
		event, err := ParseStripeWebhookEvent([]byte(`{"id":"evt_2","type":"invoice.paid","data":{"object":{"id":"in_1"}}}`))
		require.NoError(t, err)
		assert.Equal(t, "invoice.paid", event.Type)
		assert.Nil(t, event.Subscription)
	})

	t.Run("missing event id is an error", func(t *testing.T) {
		_, err := ParseStripeWebhookEvent([]byte(`{"type":"customer.subscription.updated"}`))
		assert.Error(t, err)
	})

	t.Run("malformed json is an error", func(t *testing.T) {
		_, err := ParseStripeWebhookEvent([]byte(`{not json`))
		assert.Error(t, err)
	})
}

func TestIsStripeSubscriptionEvent(t *testing.T) {
	assert.True(t, IsStripeSubscriptionEvent("customer.subscription.created"))
	assert.True(t, IsStripeSubscriptionEvent("customer.subscription.updated"))
	assert.True(t, IsStripeSubscriptionEvent("customer.subscription.deleted"))
	assert.True(t, IsStripeSubscriptionEvent(" Customer.Subscription.Updated "))
	assert.False(t, IsStripeSubscriptionEvent("invoice.paid"))
	assert.False(t, IsStripeSubscriptionEvent(""))
}

func TestStripeClientCreateCheckoutSession(t *testing.T) {
	var gotPath, gotAuth string
	var gotForm map[string][]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, r.ParseForm())
		gotForm = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cs_1","url":"https://checkout.stripe.com/pay/cs_1"}`))
	}))
	defer server.Close()

	client := &StripeClient{
		SecretKey:  "sk_test_123",
		APIBaseURL: server.URL,
		HTTPClient: &http.Client{Timeout: 5 * time.Second},
	}

	session, err := client.CreateCheckoutSession(context.Background(),
		"tom@example.com", "price_premium_monthly",
		"https://example.com/upgrade?checkout=success",
		"https://example.com/upgrade?checkout=canceled",
	)
	require.NoError(t, err)

	assert.Equal(t, "/v1/checkout/sessions", gotPath)
	assert.Equal(t, "Bearer sk_test_123", gotAuth)
	assert.Equal(t, "subscription", gotForm["mode"][0])
	assert.Equal(t, "price_premium_monthly", gotForm["line_items[0][price]"][0])
	assert.Equal(t, "cs_1", session.ID)
	assert.Equal(t, "https://checkout.stripe.com/pay/cs_1", session.URL)
}

func TestStripeClientCreateCheckoutSessionErrors(t *testing.T) {
	t.Run("missing secret key", func(t *testing.T) {
		client := &StripeClient{HTTPClient: http.DefaultClient}
		_, err := client.CreateCheckoutSession(context.Background(), "a@b.c", "price_1", "s", "c")
		assert.Error(t, err)
	})

	t.Run("missing price ref", func(t *testing.T) {
		client := &StripeClient{SecretKey: "sk", HTTPClient: http.DefaultClient}
		_, err := client.CreateCheckoutSession(context.Background(), "a@b.c", "", "s", "c")
		assert.Error(t, err)
	})

	t.Run("non 2xx response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusPaymentRequired)
			_, _ = w.Write([]byte(`{"error":{"message":"card declined"}}`))
		}))
		defer server.Close()

		client := &StripeClient{SecretKey: "sk", APIBaseURL: server.URL, HTTPClient: server.Client()}
		_, err := client.CreateCheckoutSession(context.Background(), "a@b.c", "price_1", "s", "c")
		assert.Error(t, err)
	})
}

func TestStripeClientCancelSubscription(t *testing.T) {
	var gotMethod, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"id":"sub_123","status":"canceled"}`))
	}))
	defer server.Close()

	client := &StripeClient{SecretKey: "sk", APIBaseURL: server.URL, HTTPClient: server.Client()}

	require.NoError(t, client.CancelSubscription(context.Background(), "sub_123"))
	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, "/v1/subscriptions/sub_123", gotPath)

	assert.Error(t, client.CancelSubscription(context.Background(), ""))
}
