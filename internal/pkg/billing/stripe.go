package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tomsflightclub/flightclub/internal/pkg/env"
)

const defaultStripeAPIBaseURL = "https://api.stripe.com"

type StripeClient struct {
	SecretKey  string
	APIBaseURL string

	HTTPClient *http.Client
}

// StripeCheckoutSession is the subset of the checkout session resource the
// app needs: the hosted payment page URL and the session id.
type StripeCheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// StripeSubscription is the normalized subscription resource returned by
// the Stripe API and embedded in webhook payloads.
type StripeSubscription struct {
	ID                 string
	CustomerID         string
	PriceRef           string
	Interval           string
	Status             string
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
	CancelAtPeriodEnd  bool
}

// StripeWebhookEvent is a parsed Stripe event envelope.
type StripeWebhookEvent struct {
	ID           string
	Type         string
	Subscription *StripeSubscription
}

func NewStripeClientFromEnv() *StripeClient {
	return &StripeClient{
		SecretKey:  strings.TrimSpace(env.GetEnv("STRIPE_SECRET_KEY", "")),
		APIBaseURL: strings.TrimSpace(env.GetEnv("STRIPE_API_BASE_URL", defaultStripeAPIBaseURL)),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// CreateCheckoutSession starts a hosted subscription checkout for the given
// customer and price and returns the redirect URL.
func (c *StripeClient) CreateCheckoutSession(ctx context.Context, customerEmail, priceRef, successURL, cancelURL string) (*StripeCheckoutSession, error) {
	if strings.TrimSpace(c.SecretKey) == "" {
		return nil, errors.New("STRIPE_SECRET_KEY is not configured")
	}
	if strings.TrimSpace(priceRef) == "" {
		return nil, errors.New("price ref is required")
	}

	form := url.Values{}
	form.Set("mode", "subscription")
	form.Set("customer_email", strings.TrimSpace(customerEmail))
	form.Set("line_items[0][price]", strings.TrimSpace(priceRef))
	form.Set("line_items[0][quantity]", "1")
	form.Set("success_url", successURL)
	form.Set("cancel_url", cancelURL)

	body, err := c.do(ctx, http.MethodPost, "/v1/checkout/sessions", form)
	if err != nil {
		return nil, err
	}

	var out StripeCheckoutSession
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.URL) == "" {
		return nil, errors.New("stripe checkout session response missing url")
	}
	return &out, nil
}

// GetSubscription fetches a subscription resource for self-service resync.
func (c *StripeClient) GetSubscription(ctx context.Context, subscriptionID string) (*StripeSubscription, error) {
	if strings.TrimSpace(c.SecretKey) == "" {
		return nil, errors.New("STRIPE_SECRET_KEY is not configured")
	}
	id := strings.TrimSpace(subscriptionID)
	if id == "" {
		return nil, errors.New("subscription id is required")
	}

	body, err := c.do(ctx, http.MethodGet, "/v1/subscriptions/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	return parseStripeSubscription(body)
}

// CancelSubscription cancels a subscription at Stripe immediately. Callers
// treat failures as non-fatal; webhooks reconcile the final state.
func (c *StripeClient) CancelSubscription(ctx context.Context, subscriptionID string) error {
	if strings.TrimSpace(c.SecretKey) == "" {
		return errors.New("STRIPE_SECRET_KEY is not configured")
	}
	id := strings.TrimSpace(subscriptionID)
	if id == "" {
		return errors.New("subscription id is required")
	}

	_, err := c.do(ctx, http.MethodDelete, "/v1/subscriptions/"+url.PathEscape(id), nil)
	return err
}

func (c *StripeClient) do(ctx context.Context, method, path string, form url.Values) ([]byte, error) {
	var reqBody io.Reader
	if form != nil {
		reqBody = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.APIBaseURL, "/")+path, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)
	req.Header.Set("Accept", "application/json")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("stripe request %s %s failed: status=%d body=%s", method, path, resp.StatusCode, string(body))
	}
	return body, nil
}

// ParseStripeWebhookEvent extracts the event envelope and, for
// subscription-bearing events, the normalized subscription object.
func ParseStripeWebhookEvent(payload []byte) (*StripeWebhookEvent, error) {
	var envelope struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Data struct {
			Object json.RawMessage `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, err
	}
	if strings.TrimSpace(envelope.ID) == "" {
		return nil, errors.New("stripe webhook payload missing event id")
	}

	out := &StripeWebhookEvent{
		ID:   strings.TrimSpace(envelope.ID),
		Type: strings.TrimSpace(envelope.Type),
	}

	if IsStripeSubscriptionEvent(out.Type) && len(envelope.Data.Object) > 0 {
		sub, err := parseStripeSubscription(envelope.Data.Object)
		if err != nil {
			return nil, err
		}
		out.Subscription = sub
	}
	return out, nil
}

// IsStripeSubscriptionEvent reports whether the event type carries a
// subscription object the sync cares about.
func IsStripeSubscriptionEvent(eventType string) bool {
	switch strings.ToLower(strings.TrimSpace(eventType)) {
	case "customer.subscription.created",
		"customer.subscription.updated",
		"customer.subscription.deleted":
		return true
	default:
		return false
	}
}

func parseStripeSubscription(raw []byte) (*StripeSubscription, error) {
	var obj struct {
		ID                 string `json:"id"`
		Customer           string `json:"customer"`
		Status             string `json:"status"`
		CancelAtPeriodEnd  bool   `json:"cancel_at_period_end"`
		CurrentPeriodStart int64  `json:"current_period_start"`
		CurrentPeriodEnd   int64  `json:"current_period_end"`
		Items              struct {
			Data []struct {
				Price struct {
					ID        string `json:"id"`
					Recurring struct {
						Interval string `json:"interval"`
					} `json:"recurring"`
				} `json:"price"`
			} `json:"data"`
		} `json:"items"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, err
	}
	if strings.TrimSpace(obj.ID) == "" {
		return nil, errors.New("stripe subscription object missing id")
	}

	out := &StripeSubscription{
		ID:                strings.TrimSpace(obj.ID),
		CustomerID:        strings.TrimSpace(obj.Customer),
		Status:            strings.TrimSpace(obj.Status),
		CancelAtPeriodEnd: obj.CancelAtPeriodEnd,
	}
	if len(obj.Items.Data) > 0 {
		out.PriceRef = strings.TrimSpace(obj.Items.Data[0].Price.ID)
		out.Interval = strings.TrimSpace(obj.Items.Data[0].Price.Recurring.Interval)
	}
	if obj.CurrentPeriodStart > 0 {
		t := time.Unix(obj.CurrentPeriodStart, 0)
		out.CurrentPeriodStart = &t
	}
	if obj.CurrentPeriodEnd > 0 {
		t := time.Unix(obj.CurrentPeriodEnd, 0)
		out.CurrentPeriodEnd = &t
	}
	return out, nil
}
