package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/reportloop/reportloop/internal/api/dto"
	"github.com/reportloop/reportloop/internal/domain/webhookevent"
	ierr "github.com/reportloop/reportloop/internal/errors"
	"github.com/reportloop/reportloop/internal/types"
)

const (
	webhookOutcomeProcessed    = "processed"
	webhookOutcomeDuplicate    = "duplicate"
	webhookOutcomeRejected     = "rejected"
	webhookOutcomeIgnored      = "ignored"
	webhookOutcomeHandlerError = "handler_error"
)

// WebhookService ingests provider webhook deliveries: verify the signature
// over the raw bytes, extract a stable event id, reject duplicates with an
// atomic unique insert, then dispatch to the subscription state machine.
//
// The audit row is committed before dispatch so a crash mid-handling cannot
// cause double application on redelivery. Handler failures are logged and
// the delivery is still acknowledged: the provider's redelivery cannot be
// told apart from a duplicate, and non-duplication wins that trade.
type WebhookService interface {
	ProcessWebhook(ctx context.Context, rawBody []byte, signature string) (*dto.WebhookResult, error)
}

type webhookService struct {
	ServiceParams
	subscriptionSvc SubscriptionService
}

func NewWebhookService(params ServiceParams, subscriptionSvc SubscriptionService) WebhookService {
	return &webhookService{
		ServiceParams:   params,
		subscriptionSvc: subscriptionSvc,
	}
}

func (s *webhookService) ProcessWebhook(ctx context.Context, rawBody []byte, signature string) (*dto.WebhookResult, error) {
	if err := s.verifySignature(rawBody, signature); err != nil {
		s.Metrics.WebhookEventsTotal.WithLabelValues(webhookOutcomeRejected).Inc()
		return nil, err
	}

	// Parse only after the raw bytes have been authenticated
	var envelope dto.WebhookEnvelope
	if err := json.Unmarshal(rawBody, &envelope); err != nil {
		s.Metrics.WebhookEventsTotal.WithLabelValues(webhookOutcomeRejected).Inc()
		return nil, ierr.WithError(err).
			WithHint("Webhook body is not valid JSON").
			Mark(ierr.ErrValidation)
	}

	var data dto.ProviderEventData
	if len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, &data); err != nil {
			s.Logger.Warnw("webhook data object is malformed, continuing with envelope only",
				"event_type", envelope.Type,
				"error", err,
			)
		}
	}

	eventID, err := s.resolveEventID(&envelope, &data)
	if err != nil {
		s.Metrics.WebhookEventsTotal.WithLabelValues(webhookOutcomeRejected).Inc()
		return nil, err
	}

	eventType := types.WebhookEventType(envelope.Type)
	tenantID := resolveTenantID(&envelope, &data)

	result := &dto.WebhookResult{
		EventID:   eventID,
		EventType: eventType,
	}

	// Record before dispatch. The unique constraint on event id is the
	// dedup mechanism; a constraint violation means a concurrent or earlier
	// delivery already claimed this event.
	event := &webhookevent.WebhookEvent{
		ID:         types.GenerateUUIDWithPrefix(types.UUID_PREFIX_WEBHOOK_EVENT),
		EventID:    eventID,
		EventType:  eventType,
		TenantID:   tenantID,
		Payload:    json.RawMessage(rawBody),
		ReceivedAt: time.Now().UTC(),
	}
	if err := s.WebhookEventRepo.Insert(ctx, event); err != nil {
		if ierr.IsAlreadyExists(err) {
			s.Logger.Infow("webhook event already processed",
				"event_id", eventID,
				"event_type", eventType,
			)
			s.Metrics.WebhookEventsTotal.WithLabelValues(webhookOutcomeDuplicate).Inc()
			result.Duplicate = true
			result.Message = "event already processed"
			return result, nil
		}
		return nil, err
	}

	if err := s.dispatch(ctx, eventType, &data); err != nil {
		if ierr.IsInvalidOperation(err) {
			s.Logger.Infow("unhandled webhook event type",
				"event_id", eventID,
				"event_type", eventType,
			)
			s.Metrics.WebhookEventsTotal.WithLabelValues(webhookOutcomeIgnored).Inc()
			result.Message = "unhandled event type"
			return result, nil
		}

		// Acknowledged anyway: the event row is committed, so redelivery
		// would be treated as a duplicate. Failed handlers are retried
		// through monitoring, not through provider redelivery.
		s.Logger.Errorw("webhook handler failed after event was recorded",
			"event_id", eventID,
			"event_type", eventType,
			"tenant_id", tenantID,
			"error", err,
		)
		s.Metrics.WebhookEventsTotal.WithLabelValues(webhookOutcomeHandlerError).Inc()
		result.Message = "handler failed"
		return result, nil
	}

	s.Metrics.WebhookEventsTotal.WithLabelValues(webhookOutcomeProcessed).Inc()
	result.Handled = true
	return result, nil
}

// verifySignature checks the hex HMAC-SHA256 of the raw body against the
// signature header. Comparison is constant-time. With no secret configured
// verification is skipped, loudly.
func (s *webhookService) verifySignature(rawBody []byte, signature string) error {
	secret := s.Config.Billing.WebhookSecret
	if secret == "" {
		s.Logger.Warnw("webhook secret not configured, skipping signature verification")
		return nil
	}

	if signature == "" {
		return ierr.NewError("missing webhook signature").
			WithHint("Webhook signature header is required").
			Mark(ierr.ErrUnauthorized)
	}

	provided := strings.TrimPrefix(strings.TrimSpace(signature), types.WebhookSignaturePrefix)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(provided))) {
		return ierr.NewError("webhook signature mismatch").
			WithHint("Webhook signature verification failed").
			Mark(ierr.ErrUnauthorized)
	}
	return nil
}

// resolveEventID derives a stable event id: the envelope id, then the
// envelope event_id, then the embedded object id. When the provider omits
// all of them a local id is generated; such events cannot be deduplicated,
// so stricter deployments set require_event_id and reject them instead.
func (s *webhookService) resolveEventID(envelope *dto.WebhookEnvelope, data *dto.ProviderEventData) (string, error) {
	if envelope.ID != "" {
		return envelope.ID, nil
	}
	if envelope.EventID != "" {
		return envelope.EventID, nil
	}
	if data.ID != "" {
		return data.ID, nil
	}

	if s.Config.Billing.RequireEventID {
		return "", ierr.NewError("webhook event has no id").
			WithHint("Provider events must carry an event id").
			Mark(ierr.ErrValidation)
	}

	generated := types.GenerateUUIDWithPrefix(types.UUID_PREFIX_WEBHOOK_EVENT)
	s.Logger.Warnw("webhook event has no provider id, generated one; duplicates of this event cannot be detected",
		"event_type", envelope.Type,
		"generated_event_id", generated,
	)
	return generated, nil
}

func resolveTenantID(envelope *dto.WebhookEnvelope, data *dto.ProviderEventData) string {
	if id := envelope.Metadata["tenant_id"]; id != "" {
		return id
	}
	return data.Metadata["tenant_id"]
}

func (s *webhookService) dispatch(ctx context.Context, eventType types.WebhookEventType, data *dto.ProviderEventData) error {
	switch eventType {
	case types.WebhookEventTypePaymentSucceeded, types.WebhookEventTypeInvoicePaid:
		return s.subscriptionSvc.HandlePaymentSucceeded(ctx, data)
	case types.WebhookEventTypePaymentFailed:
		return s.subscriptionSvc.HandlePaymentFailed(ctx, data)
	case types.WebhookEventTypeSubscriptionCancelled:
		return s.subscriptionSvc.HandleSubscriptionCancelled(ctx, data)
	case types.WebhookEventTypeSubscriptionUpdated:
		return s.subscriptionSvc.HandleSubscriptionUpdated(ctx, data)
	default:
		// Forward compatibility with provider additions
		return ierr.NewError("unhandled event type").
			WithReportableDetails(map[string]any{"event_type": eventType}).
			Mark(ierr.ErrInvalidOperation)
	}
}
