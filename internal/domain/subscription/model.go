package subscription

import (
	"time"

	"github.com/reportloop/reportloop/internal/types"
)

// Subscription is the one current billing relationship for a tenant. At most
// one row exists per tenant, enforced by upsert-on-conflict keyed by tenant
// id. Rows are mutated exclusively by lifecycle transitions; cancellation is
// a logical delete via SubscriptionStatus.
type Subscription struct {
	// ID is the unique identifier for the subscription
	ID string `db:"id" json:"id"`

	// PlanID is the identifier for the plan in our system
	PlanID string `db:"plan_id" json:"plan_id"`

	// ExternalSubscriptionID is the opaque id assigned by the payment
	// provider. All webhook-driven transitions are keyed by this id, never
	// by tenant id, so state stays correct when a tenant churns and
	// resubscribes.
	ExternalSubscriptionID string `db:"external_subscription_id" json:"external_subscription_id"`

	// SubscriptionStatus is the provider-reported lifecycle status
	SubscriptionStatus types.SubscriptionStatus `db:"subscription_status" json:"subscription_status"`

	// CurrentPeriodStart is the start of the period the subscription has
	// been invoiced for.
	CurrentPeriodStart time.Time `db:"current_period_start" json:"current_period_start"`

	// CurrentPeriodEnd is the end of the period the subscription has been
	// invoiced for.
	CurrentPeriodEnd time.Time `db:"current_period_end" json:"current_period_end"`

	// TrialEnd is when the trial window closes, if one was granted
	TrialEnd *time.Time `db:"trial_end" json:"trial_end"`

	// GracePeriodUntil bounds the window after a failed payment during
	// which access is still permitted. Cleared on successful payment.
	GracePeriodUntil *time.Time `db:"grace_period_until" json:"grace_period_until"`

	// CancelAtPeriodEnd is whether the provider will cancel the
	// subscription at the end of the current period
	CancelAtPeriodEnd bool `db:"cancel_at_period_end" json:"cancel_at_period_end"`

	// CancelledAt is the date the subscription was canceled
	CancelledAt *time.Time `db:"cancelled_at" json:"cancelled_at"`

	types.BaseModel
}

// InGracePeriod reports whether access is still permitted under the grace
// window at the given instant.
func (s *Subscription) InGracePeriod(now time.Time) bool {
	return s.GracePeriodUntil != nil && now.Before(*s.GracePeriodUntil)
}
