package service

import (
	"context"

	"github.com/samber/lo"

	"github.com/reportloop/reportloop/internal/api/dto"
	"github.com/reportloop/reportloop/internal/billing"
	"github.com/reportloop/reportloop/internal/domain/webhookevent"
	ierr "github.com/reportloop/reportloop/internal/errors"
)

const defaultEventListLimit = 50

// BillingService fronts the provider gateway for the API layer and serves
// the reconciled local views.
type BillingService interface {
	CreateCustomer(ctx context.Context, req dto.CreateCustomerRequest) (*dto.CreateCustomerResponse, error)
	CreateSubscription(ctx context.Context, req dto.CreateSubscriptionRequest) (*dto.CreateSubscriptionResponse, error)
	GetCurrentSubscription(ctx context.Context, tenantID string) (*dto.SubscriptionResponse, error)
	ListWebhookEvents(ctx context.Context, tenantID string, limit int) (*dto.ListWebhookEventsResponse, error)
}

type billingService struct {
	ServiceParams
	gateway *billing.Gateway
}

func NewBillingService(params ServiceParams, gateway *billing.Gateway) BillingService {
	return &billingService{
		ServiceParams: params,
		gateway:       gateway,
	}
}

func (s *billingService) CreateCustomer(ctx context.Context, req dto.CreateCustomerRequest) (*dto.CreateCustomerResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	result, err := s.gateway.CreateCustomer(ctx, billing.CreateCustomerRequest{
		TenantID: req.TenantID,
		Email:    req.Email,
		Name:     req.Name,
		Metadata: req.Metadata,
	})
	if err != nil {
		return nil, err
	}

	return &dto.CreateCustomerResponse{
		ExternalCustomerID: result.ExternalCustomerID,
	}, nil
}

func (s *billingService) CreateSubscription(ctx context.Context, req dto.CreateSubscriptionRequest) (*dto.CreateSubscriptionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	priceRef := req.PriceRef
	if priceRef == "" {
		p, err := s.PlanRepo.Get(ctx, req.PlanID)
		if err != nil {
			return nil, err
		}
		priceRef = p.PriceRef
	}
	if priceRef == "" {
		return nil, ierr.NewError("plan has no provider price reference").
			WithHint("A provider price reference is required to subscribe").
			WithReportableDetails(map[string]any{"plan_id": req.PlanID}).
			Mark(ierr.ErrValidation)
	}

	result, err := s.gateway.CreateSubscription(ctx, billing.CreateSubscriptionRequest{
		TenantID:  req.TenantID,
		PlanID:    req.PlanID,
		PriceRef:  priceRef,
		TrialDays: req.TrialDays,
	})
	if err != nil {
		return nil, err
	}

	return &dto.CreateSubscriptionResponse{
		ExternalSubscriptionID: result.ExternalSubscriptionID,
		Status:                 result.Status,
		TrialEnd:               result.TrialEnd,
	}, nil
}

func (s *billingService) GetCurrentSubscription(ctx context.Context, tenantID string) (*dto.SubscriptionResponse, error) {
	sub, err := s.SubRepo.GetByTenantID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return &dto.SubscriptionResponse{Subscription: sub}, nil
}

func (s *billingService) ListWebhookEvents(ctx context.Context, tenantID string, limit int) (*dto.ListWebhookEventsResponse, error) {
	if limit <= 0 {
		limit = defaultEventListLimit
	}

	events, err := s.WebhookEventRepo.ListByTenant(ctx, tenantID, limit)
	if err != nil {
		return nil, err
	}

	return &dto.ListWebhookEventsResponse{
		Items: lo.Map(events, func(e *webhookevent.WebhookEvent, _ int) *dto.WebhookEventResponse {
			return &dto.WebhookEventResponse{WebhookEvent: e}
		}),
		Total: len(events),
	}, nil
}
