package webhookevent

import (
	"encoding/json"
	"time"

	"github.com/reportloop/reportloop/internal/types"
)

// WebhookEvent is the audit row for one processed inbound event. EventID is
// unique at the storage layer; that uniqueness is the sole mechanism
// preventing duplicate application of a redelivered event. Rows are written
// once and retained indefinitely for audit and replay debugging.
type WebhookEvent struct {
	ID string `db:"id" json:"id"`

	// EventID is the provider-assigned event identifier
	EventID string `db:"event_id" json:"event_id"`

	EventType types.WebhookEventType `db:"event_type" json:"event_type"`

	// TenantID is best-effort: empty when the payload carries no resolvable
	// tenant reference.
	TenantID string `db:"tenant_id" json:"tenant_id"`

	Payload json.RawMessage `db:"payload" json:"payload"`

	ReceivedAt time.Time `db:"received_at" json:"received_at"`
}
