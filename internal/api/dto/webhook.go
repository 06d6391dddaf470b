package dto

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/reportloop/reportloop/internal/types"
)

// WebhookEnvelope is the outer shape of an inbound provider webhook. The
// body is parsed only after signature verification has passed over the raw
// bytes.
type WebhookEnvelope struct {
	ID       string            `json:"id"`
	EventID  string            `json:"event_id"`
	Type     string            `json:"type"`
	Data     json.RawMessage   `json:"data"`
	Metadata map[string]string `json:"metadata"`
}

// ProviderEventData is the inner event object. Providers are not consistent
// about which id field they populate, so both are read.
type ProviderEventData struct {
	ID             string `json:"id"`
	SubscriptionID string `json:"subscription_id"`

	Status string `json:"status"`

	AmountPaid decimal.Decimal `json:"amount_paid"`
	Currency   string          `json:"currency"`

	CurrentPeriodEnd  int64 `json:"current_period_end"`
	CancelAtPeriodEnd *bool `json:"cancel_at_period_end"`

	Metadata map[string]string `json:"metadata"`
}

// ExternalSubscriptionID returns whichever subscription id field the
// provider populated.
func (d *ProviderEventData) ExternalSubscriptionID() string {
	if d.SubscriptionID != "" {
		return d.SubscriptionID
	}
	return d.ID
}

// WebhookResult reports the outcome of processing one delivery
type WebhookResult struct {
	EventID   string                 `json:"event_id"`
	EventType types.WebhookEventType `json:"event_type"`

	// Duplicate is true when the event id was already processed; the
	// delivery is acknowledged without reapplying it.
	Duplicate bool `json:"duplicate"`

	// Handled is false for unknown event types and for handler failures,
	// both of which are still acknowledged.
	Handled bool `json:"handled"`

	Message string `json:"message,omitempty"`
}
