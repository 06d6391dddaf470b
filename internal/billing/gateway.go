package billing

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/samber/lo"

	"github.com/reportloop/reportloop/internal/config"
	"github.com/reportloop/reportloop/internal/domain/subscription"
	"github.com/reportloop/reportloop/internal/domain/tenant"
	"github.com/reportloop/reportloop/internal/domain/webhookevent"
	ierr "github.com/reportloop/reportloop/internal/errors"
	"github.com/reportloop/reportloop/internal/logger"
	"github.com/reportloop/reportloop/internal/types"
)

const metadataSource = "reportloop"

// defaultPeriodDays seeds period bounds until the provider reports real ones
const defaultPeriodDays = 30

// CreateCustomerRequest is the input for creating a provider customer
type CreateCustomerRequest struct {
	TenantID string            `json:"tenant_id"`
	Email    string            `json:"email"`
	Name     string            `json:"name"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// CreateCustomerResult carries the provider-assigned customer id
type CreateCustomerResult struct {
	ExternalCustomerID string `json:"external_customer_id"`
}

// CreateSubscriptionRequest is the input for creating a provider subscription
type CreateSubscriptionRequest struct {
	TenantID string `json:"tenant_id"`
	PlanID   string `json:"plan_id"`

	// PriceRef is the provider-side price/plan reference
	PriceRef string `json:"price_ref"`

	// ExternalCustomerID may be omitted; it is then looked up from the
	// tenant row.
	ExternalCustomerID string `json:"external_customer_id,omitempty"`

	TrialDays int `json:"trial_days,omitempty"`
}

// CreateSubscriptionResult carries the provider-assigned subscription id and
// the computed trial end.
type CreateSubscriptionResult struct {
	ExternalSubscriptionID string                   `json:"external_subscription_id"`
	Status                 types.SubscriptionStatus `json:"status"`
	TrialEnd               time.Time                `json:"trial_end"`
}

// Gateway builds provider-specific request bodies, sends them through the
// endpoint resolver and persists the returned external identifiers onto the
// local tenant/subscription rows. It is stateless and constructed once at
// startup.
type Gateway struct {
	resolver *EndpointResolver
	cfg      config.BillingConfig

	tenantRepo tenant.Repository
	subRepo    subscription.Repository
	eventRepo  webhookevent.Repository

	logger *logger.Logger
}

func NewGateway(
	resolver *EndpointResolver,
	cfg config.BillingConfig,
	tenantRepo tenant.Repository,
	subRepo subscription.Repository,
	eventRepo webhookevent.Repository,
	logger *logger.Logger,
) *Gateway {
	return &Gateway{
		resolver:   resolver,
		cfg:        cfg,
		tenantRepo: tenantRepo,
		subRepo:    subRepo,
		eventRepo:  eventRepo,
		logger:     logger,
	}
}

// CreateCustomer creates the customer object on the provider and stores the
// returned id on the tenant row. The tenant id rides along in provider
// metadata so the relationship is recoverable from the provider side too.
//
// A local persistence failure after a successful provider call is logged
// and does not fail the operation: the provider object already exists, and
// the id is re-derivable from provider metadata on the next reconciliation.
func (g *Gateway) CreateCustomer(ctx context.Context, req CreateCustomerRequest) (*CreateCustomerResult, error) {
	if req.Email == "" {
		return nil, ierr.NewError("email is required").
			WithHint("Customer email is required").
			Mark(ierr.ErrValidation)
	}
	if req.TenantID == "" {
		return nil, ierr.NewError("tenant_id is required").
			WithHint("Tenant id is required").
			Mark(ierr.ErrValidation)
	}

	metadata := lo.Assign(req.Metadata, map[string]string{
		"tenant_id": req.TenantID,
		"source":    metadataSource,
	})

	payload, err := json.Marshal(map[string]any{
		"email":    req.Email,
		"name":     req.Name,
		"metadata": metadata,
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to encode customer payload").
			Mark(ierr.ErrValidation)
	}

	resp, err := g.resolver.Do(ctx, http.MethodPost, g.cfg.CustomerEndpoints, payload)
	if err != nil {
		return nil, err
	}

	externalID := extractProviderID(resp.Body)
	if externalID == "" {
		return nil, ierr.NewError("provider response missing customer id").
			WithHint("Provider returned an unrecognized response shape").
			WithReportableDetails(map[string]any{"body": string(resp.Body)}).
			Mark(ierr.ErrUpstream)
	}

	g.logger.Infow("created provider customer",
		"tenant_id", req.TenantID,
		"external_customer_id", externalID,
	)

	if err := g.persistExternalCustomerID(ctx, req.TenantID, externalID); err != nil {
		// The provider object exists; surfacing this as a failure would
		// push the caller to create a second one. Logged and reconciled on
		// the next tenant read instead.
		g.logger.Errorw("failed to persist external customer id",
			"tenant_id", req.TenantID,
			"external_customer_id", externalID,
			"error", err,
		)
	}

	return &CreateCustomerResult{ExternalCustomerID: externalID}, nil
}

func (g *Gateway) persistExternalCustomerID(ctx context.Context, tenantID, externalID string) error {
	t, err := g.tenantRepo.GetByID(ctx, tenantID)
	if err != nil {
		return err
	}
	t.ExternalCustomerID = externalID
	t.UpdatedAt = time.Now().UTC()
	return g.tenantRepo.Update(ctx, t)
}

// CreateSubscription creates the subscription object on the provider and
// upserts the local subscription row, keyed by tenant. A synthetic
// subscription_created audit row keeps the audit trail uniform with
// provider-originated events.
func (g *Gateway) CreateSubscription(ctx context.Context, req CreateSubscriptionRequest) (*CreateSubscriptionResult, error) {
	if req.PriceRef == "" {
		return nil, ierr.NewError("price_ref is required").
			WithHint("A provider price reference is required").
			Mark(ierr.ErrValidation)
	}
	if req.TenantID == "" {
		return nil, ierr.NewError("tenant_id is required").
			WithHint("Tenant id is required").
			Mark(ierr.ErrValidation)
	}

	externalCustomerID := req.ExternalCustomerID
	if externalCustomerID == "" {
		t, err := g.tenantRepo.GetByID(ctx, req.TenantID)
		if err != nil {
			return nil, err
		}
		if t.ExternalCustomerID == "" {
			return nil, ierr.NewError("tenant has no provider customer").
				WithHint("Create the provider customer before subscribing").
				WithReportableDetails(map[string]any{"tenant_id": req.TenantID}).
				Mark(ierr.ErrPreconditionFailed)
		}
		externalCustomerID = t.ExternalCustomerID
	}

	trialDays := req.TrialDays
	if trialDays <= 0 {
		trialDays = g.cfg.TrialDays
	}
	now := time.Now().UTC()
	trialEnd := now.AddDate(0, 0, trialDays)

	payload, err := json.Marshal(map[string]any{
		"customer":          externalCustomerID,
		"items":             []map[string]string{{"price": req.PriceRef}},
		"trial_period_days": trialDays,
		"metadata": map[string]string{
			"tenant_id": req.TenantID,
			"plan_id":   req.PlanID,
			"source":    metadataSource,
		},
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to encode subscription payload").
			Mark(ierr.ErrValidation)
	}

	resp, err := g.resolver.Do(ctx, http.MethodPost, g.cfg.SubscriptionEndpoints, payload)
	if err != nil {
		return nil, err
	}

	externalID := extractProviderID(resp.Body)
	if externalID == "" {
		return nil, ierr.NewError("provider response missing subscription id").
			WithHint("Provider returned an unrecognized response shape").
			WithReportableDetails(map[string]any{"body": string(resp.Body)}).
			Mark(ierr.ErrUpstream)
	}

	status := extractProviderStatus(resp.Body)
	periodStart, periodEnd := extractPeriodBounds(resp.Body, now)

	sub := &subscription.Subscription{
		ID:                     types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
		PlanID:                 req.PlanID,
		ExternalSubscriptionID: externalID,
		SubscriptionStatus:     status,
		CurrentPeriodStart:     periodStart,
		CurrentPeriodEnd:       periodEnd,
		TrialEnd:               &trialEnd,
		GracePeriodUntil:       nil,
		BaseModel: types.BaseModel{
			TenantID:  req.TenantID,
			Status:    types.StatusPublished,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}

	if err := g.subRepo.Upsert(ctx, sub); err != nil {
		g.logger.Errorw("failed to persist subscription after provider success",
			"tenant_id", req.TenantID,
			"external_subscription_id", externalID,
			"error", err,
		)
	}

	g.appendSyntheticEvent(ctx, req.TenantID, externalID, status, trialEnd)

	g.logger.Infow("created provider subscription",
		"tenant_id", req.TenantID,
		"external_subscription_id", externalID,
		"subscription_status", status,
		"trial_end", trialEnd,
	)

	return &CreateSubscriptionResult{
		ExternalSubscriptionID: externalID,
		Status:                 status,
		TrialEnd:               trialEnd,
	}, nil
}

// appendSyntheticEvent writes the subscription_created audit row. Failures
// only cost an audit entry, never the operation.
func (g *Gateway) appendSyntheticEvent(ctx context.Context, tenantID, externalID string, status types.SubscriptionStatus, trialEnd time.Time) {
	payload, err := json.Marshal(map[string]any{
		"type": types.WebhookEventTypeSubscriptionCreated,
		"data": map[string]any{
			"subscription_id": externalID,
			"status":          status,
			"trial_end":       trialEnd,
		},
		"metadata": map[string]string{"tenant_id": tenantID},
	})
	if err != nil {
		return
	}

	event := &webhookevent.WebhookEvent{
		ID:         types.GenerateUUIDWithPrefix(types.UUID_PREFIX_WEBHOOK_EVENT),
		EventID:    types.GenerateUUIDWithPrefix(types.UUID_PREFIX_WEBHOOK_EVENT),
		EventType:  types.WebhookEventTypeSubscriptionCreated,
		TenantID:   tenantID,
		Payload:    payload,
		ReceivedAt: time.Now().UTC(),
	}
	if err := g.eventRepo.Insert(ctx, event); err != nil {
		g.logger.Warnw("failed to append subscription_created audit event",
			"tenant_id", tenantID,
			"external_subscription_id", externalID,
			"error", err,
		)
	}
}

// extractProviderID normalizes the provider's response shape. The exact
// contract differs across provider deployments; the id has been observed
// under id, customer_id, subscription_id and data.id.
func extractProviderID(body []byte) string {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}

	for _, key := range []string{"id", "customer_id", "subscription_id"} {
		if id, ok := payload[key].(string); ok && id != "" {
			return id
		}
	}

	if data, ok := payload["data"].(map[string]any); ok {
		if id, ok := data["id"].(string); ok && id != "" {
			return id
		}
	}

	return ""
}

// extractProviderStatus returns the provider-reported status, defaulting to
// incomplete when unspecified or unrecognized.
func extractProviderStatus(body []byte) types.SubscriptionStatus {
	var payload struct {
		Status string `json:"status"`
		Data   struct {
			Status string `json:"status"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return types.SubscriptionStatusIncomplete
	}

	raw := payload.Status
	if raw == "" {
		raw = payload.Data.Status
	}

	status := types.SubscriptionStatus(raw)
	if status.Validate() != nil {
		return types.SubscriptionStatusIncomplete
	}
	return status
}

// extractPeriodBounds reads unix-second period bounds when present, seeding
// a default window otherwise. Real bounds arrive with the provider's
// subscription_updated webhooks.
func extractPeriodBounds(body []byte, now time.Time) (time.Time, time.Time) {
	var payload struct {
		CurrentPeriodStart int64 `json:"current_period_start"`
		CurrentPeriodEnd   int64 `json:"current_period_end"`
	}

	start := now
	end := now.AddDate(0, 0, defaultPeriodDays)

	if err := json.Unmarshal(body, &payload); err != nil {
		return start, end
	}
	if payload.CurrentPeriodStart > 0 {
		start = time.Unix(payload.CurrentPeriodStart, 0).UTC()
	}
	if payload.CurrentPeriodEnd > 0 {
		end = time.Unix(payload.CurrentPeriodEnd, 0).UTC()
	}
	return start, end
}
