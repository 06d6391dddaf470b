package types

import (
	ierr "github.com/reportloop/reportloop/internal/errors"
	"github.com/samber/lo"
)

// SubscriptionStatus is the status of a subscription.
// Mirrors the payment provider's subscription statuses so that webhook
// payloads can be applied without translation.
type SubscriptionStatus string

const (
	SubscriptionStatusTrialing   SubscriptionStatus = "trialing"
	SubscriptionStatusActive     SubscriptionStatus = "active"
	SubscriptionStatusPastDue    SubscriptionStatus = "past_due"
	SubscriptionStatusGrace      SubscriptionStatus = "grace"
	SubscriptionStatusCancelled  SubscriptionStatus = "canceled"
	SubscriptionStatusIncomplete SubscriptionStatus = "incomplete"
)

func (s SubscriptionStatus) String() string {
	return string(s)
}

func (s SubscriptionStatus) Validate() error {
	allowed := []SubscriptionStatus{
		SubscriptionStatusTrialing,
		SubscriptionStatusActive,
		SubscriptionStatusPastDue,
		SubscriptionStatusGrace,
		SubscriptionStatusCancelled,
		SubscriptionStatusIncomplete,
	}
	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid subscription status").
			WithHint("Invalid subscription status").
			WithReportableDetails(map[string]any{
				"status":         s,
				"allowed_status": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// IsTerminal reports whether no further lifecycle transitions apply
func (s SubscriptionStatus) IsTerminal() bool {
	return s == SubscriptionStatusCancelled
}
