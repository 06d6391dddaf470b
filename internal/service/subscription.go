package service

import (
	"context"
	"time"

	"github.com/reportloop/reportloop/internal/api/dto"
	"github.com/reportloop/reportloop/internal/domain/subscription"
	ierr "github.com/reportloop/reportloop/internal/errors"
	"github.com/reportloop/reportloop/internal/types"
)

// SubscriptionService applies billing-event transitions to the stored
// subscription state. Every transition resolves its target row by the
// provider-assigned subscription id, never by tenant id, so state stays
// correct if a tenant churns and resubscribes.
//
// Transitions are idempotent at the data level: reapplying the same event
// produces the same end state. The ingestor's dedup layer still guards them,
// since idempotency is not provable for every future event type.
type SubscriptionService interface {
	HandlePaymentSucceeded(ctx context.Context, data *dto.ProviderEventData) error
	HandlePaymentFailed(ctx context.Context, data *dto.ProviderEventData) error
	HandleSubscriptionCancelled(ctx context.Context, data *dto.ProviderEventData) error
	HandleSubscriptionUpdated(ctx context.Context, data *dto.ProviderEventData) error
	GetCurrentSubscription(ctx context.Context, tenantID string) (*dto.SubscriptionResponse, error)
}

type subscriptionService struct {
	ServiceParams
}

func NewSubscriptionService(params ServiceParams) SubscriptionService {
	return &subscriptionService{ServiceParams: params}
}

// HandlePaymentSucceeded activates the subscription and clears any grace
// window. Fired for both payment_succeeded and invoice_paid events.
func (s *subscriptionService) HandlePaymentSucceeded(ctx context.Context, data *dto.ProviderEventData) error {
	sub, err := s.resolveSubscription(ctx, data)
	if err != nil {
		return err
	}

	sub.SubscriptionStatus = types.SubscriptionStatusActive
	sub.GracePeriodUntil = nil
	sub.UpdatedAt = time.Now().UTC()

	if err := s.SubRepo.Update(ctx, sub); err != nil {
		return err
	}

	s.Logger.Infow("subscription activated by successful payment",
		"tenant_id", sub.TenantID,
		"external_subscription_id", sub.ExternalSubscriptionID,
		"amount_paid", data.AmountPaid,
		"currency", data.Currency,
	)
	return nil
}

// HandlePaymentFailed opens a grace window without touching the status: the
// tenant keeps functional access until the window closes.
func (s *subscriptionService) HandlePaymentFailed(ctx context.Context, data *dto.ProviderEventData) error {
	sub, err := s.resolveSubscription(ctx, data)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	graceUntil := now.AddDate(0, 0, s.graceDays())
	sub.GracePeriodUntil = &graceUntil
	sub.UpdatedAt = now

	if err := s.SubRepo.Update(ctx, sub); err != nil {
		return err
	}

	s.Logger.Warnw("payment failed, grace period opened",
		"tenant_id", sub.TenantID,
		"external_subscription_id", sub.ExternalSubscriptionID,
		"grace_period_until", graceUntil,
	)
	return nil
}

// HandleSubscriptionCancelled marks the subscription canceled. The row is
// retained; cancellation is a logical delete.
func (s *subscriptionService) HandleSubscriptionCancelled(ctx context.Context, data *dto.ProviderEventData) error {
	sub, err := s.resolveSubscription(ctx, data)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	sub.SubscriptionStatus = types.SubscriptionStatusCancelled
	if sub.CancelledAt == nil {
		sub.CancelledAt = &now
	}
	sub.UpdatedAt = now

	if err := s.SubRepo.Update(ctx, sub); err != nil {
		return err
	}

	s.Logger.Infow("subscription cancelled",
		"tenant_id", sub.TenantID,
		"external_subscription_id", sub.ExternalSubscriptionID,
		"cancelled_at", sub.CancelledAt,
	)
	return nil
}

// HandleSubscriptionUpdated merges whatever fields the provider sent:
// status, current period end, and the cancel-at-period-end flag.
func (s *subscriptionService) HandleSubscriptionUpdated(ctx context.Context, data *dto.ProviderEventData) error {
	sub, err := s.resolveSubscription(ctx, data)
	if err != nil {
		return err
	}

	if data.Status != "" {
		status := types.SubscriptionStatus(data.Status)
		if err := status.Validate(); err != nil {
			s.Logger.Warnw("ignoring unknown subscription status in update",
				"external_subscription_id", sub.ExternalSubscriptionID,
				"status", data.Status,
			)
		} else {
			sub.SubscriptionStatus = status
		}
	}

	if data.CurrentPeriodEnd > 0 {
		sub.CurrentPeriodEnd = time.Unix(data.CurrentPeriodEnd, 0).UTC()
	}

	if data.CancelAtPeriodEnd != nil {
		sub.CancelAtPeriodEnd = *data.CancelAtPeriodEnd
		if *data.CancelAtPeriodEnd {
			periodEnd := sub.CurrentPeriodEnd
			sub.CancelledAt = &periodEnd
		} else if sub.SubscriptionStatus != types.SubscriptionStatusCancelled {
			sub.CancelledAt = nil
		}
	}

	sub.UpdatedAt = time.Now().UTC()

	if err := s.SubRepo.Update(ctx, sub); err != nil {
		return err
	}

	s.Logger.Infow("subscription updated",
		"tenant_id", sub.TenantID,
		"external_subscription_id", sub.ExternalSubscriptionID,
		"subscription_status", sub.SubscriptionStatus,
		"current_period_end", sub.CurrentPeriodEnd,
		"cancel_at_period_end", sub.CancelAtPeriodEnd,
	)
	return nil
}

func (s *subscriptionService) GetCurrentSubscription(ctx context.Context, tenantID string) (*dto.SubscriptionResponse, error) {
	sub, err := s.SubRepo.GetByTenantID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return &dto.SubscriptionResponse{Subscription: sub}, nil
}

func (s *subscriptionService) resolveSubscription(ctx context.Context, data *dto.ProviderEventData) (*subscription.Subscription, error) {
	externalID := data.ExternalSubscriptionID()
	if externalID == "" {
		return nil, ierr.NewError("event carries no subscription id").
			WithHint("The provider event has no subscription reference").
			Mark(ierr.ErrValidation)
	}

	sub, err := s.SubRepo.GetByExternalID(ctx, externalID)
	if err != nil {
		if ierr.IsNotFound(err) {
			s.Logger.Warnw("event for unknown subscription",
				"external_subscription_id", externalID,
			)
		}
		return nil, err
	}
	return sub, nil
}

func (s *subscriptionService) graceDays() int {
	days := s.Config.Billing.GracePeriodDays
	if days <= 0 {
		days = 7
	}
	return days
}
