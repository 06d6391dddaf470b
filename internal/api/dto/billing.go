package dto

import (
	"time"

	"github.com/reportloop/reportloop/internal/domain/subscription"
	"github.com/reportloop/reportloop/internal/domain/webhookevent"
	ierr "github.com/reportloop/reportloop/internal/errors"
	"github.com/reportloop/reportloop/internal/types"
)

// CreateCustomerRequest creates the provider-side customer for a tenant
type CreateCustomerRequest struct {
	TenantID string            `json:"tenant_id" binding:"required"`
	Email    string            `json:"email" binding:"required"`
	Name     string            `json:"name"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func (r *CreateCustomerRequest) Validate() error {
	if r.Email == "" {
		return ierr.NewError("email is required").
			WithHint("Customer email is required").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// CreateCustomerResponse carries the provider-assigned customer id
type CreateCustomerResponse struct {
	ExternalCustomerID string `json:"external_customer_id"`
}

// CreateSubscriptionRequest subscribes a tenant to a plan. PriceRef may be
// omitted when the plan carries its own provider price reference.
type CreateSubscriptionRequest struct {
	TenantID  string `json:"tenant_id" binding:"required"`
	PlanID    string `json:"plan_id" binding:"required"`
	PriceRef  string `json:"price_ref,omitempty"`
	TrialDays int    `json:"trial_days,omitempty"`
}

func (r *CreateSubscriptionRequest) Validate() error {
	if r.PlanID == "" {
		return ierr.NewError("plan_id is required").
			WithHint("A plan is required to subscribe").
			Mark(ierr.ErrValidation)
	}
	if r.TrialDays < 0 {
		return ierr.NewError("trial_days must not be negative").
			WithHint("Trial days must be zero or positive").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// CreateSubscriptionResponse carries the provider-assigned subscription id
// and the computed trial end.
type CreateSubscriptionResponse struct {
	ExternalSubscriptionID string                   `json:"external_subscription_id"`
	Status                 types.SubscriptionStatus `json:"status"`
	TrialEnd               time.Time                `json:"trial_end"`
}

// SubscriptionResponse is the reconciled local subscription row
type SubscriptionResponse struct {
	*subscription.Subscription
}

// WebhookEventResponse is one audit row
type WebhookEventResponse struct {
	*webhookevent.WebhookEvent
}

// ListWebhookEventsResponse is the audit listing for a tenant
type ListWebhookEventsResponse struct {
	Items []*WebhookEventResponse `json:"items"`
	Total int                     `json:"total"`
}
