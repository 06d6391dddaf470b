package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/reportloop/reportloop/internal/domain/subscription"
	ierr "github.com/reportloop/reportloop/internal/errors"
	"github.com/reportloop/reportloop/internal/testutil"
	"github.com/reportloop/reportloop/internal/types"
)

const testWebhookSecret = "whsec_test_secret"

type WebhookServiceSuite struct {
	testutil.BaseServiceTestSuite
	service WebhookService
}

func TestWebhookService(t *testing.T) {
	suite.Run(t, new(WebhookServiceSuite))
}

func (s *WebhookServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.GetConfig().Billing.WebhookSecret = testWebhookSecret
	s.GetConfig().Billing.RequireEventID = false

	params := newTestServiceParams(&s.BaseServiceTestSuite)
	s.service = NewWebhookService(params, NewSubscriptionService(params))
}

func (s *WebhookServiceSuite) sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *WebhookServiceSuite) seedSubscription() {
	sub := &subscription.Subscription{
		ID:                     types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
		PlanID:                 "plan_pro",
		ExternalSubscriptionID: "sub_ext_1",
		SubscriptionStatus:     types.SubscriptionStatusPastDue,
		CurrentPeriodStart:     s.GetNow(),
		CurrentPeriodEnd:       s.GetNow().AddDate(0, 1, 0),
		BaseModel: types.BaseModel{
			TenantID: "tenant-1",
			Status:   types.StatusPublished,
		},
	}
	s.Require().NoError(s.GetStores().SubRepo.Upsert(s.GetContext(), sub))
}

func (s *WebhookServiceSuite) TestValidSignatureProcessed() {
	s.seedSubscription()
	body := []byte(`{"id":"evt_1","type":"payment_succeeded","data":{"subscription_id":"sub_ext_1"}}`)

	result, err := s.service.ProcessWebhook(s.GetContext(), body, s.sign(body))
	s.NoError(err)
	s.True(result.Handled)
	s.False(result.Duplicate)
	s.Equal("evt_1", result.EventID)

	sub, err := s.GetStores().SubRepo.GetByExternalID(s.GetContext(), "sub_ext_1")
	s.NoError(err)
	s.Equal(types.SubscriptionStatusActive, sub.SubscriptionStatus)
}

func (s *WebhookServiceSuite) TestSignatureWithSchemePrefix() {
	s.seedSubscription()
	body := []byte(`{"id":"evt_2","type":"payment_succeeded","data":{"subscription_id":"sub_ext_1"}}`)

	result, err := s.service.ProcessWebhook(s.GetContext(), body, types.WebhookSignaturePrefix+s.sign(body))
	s.NoError(err)
	s.True(result.Handled)
}

func (s *WebhookServiceSuite) TestInvalidSignatureRejected() {
	body := []byte(`{"id":"evt_3","type":"payment_succeeded"}`)

	_, err := s.service.ProcessWebhook(s.GetContext(), body, "deadbeef")
	s.Error(err)
	s.True(ierr.IsUnauthorized(err))

	// nothing recorded for a rejected delivery
	s.Equal(0, s.GetStores().WebhookEventRepo.(*testutil.InMemoryWebhookEventStore).Count())
}

func (s *WebhookServiceSuite) TestMissingSignatureRejected() {
	body := []byte(`{"id":"evt_4","type":"payment_succeeded"}`)

	_, err := s.service.ProcessWebhook(s.GetContext(), body, "")
	s.Error(err)
	s.True(ierr.IsUnauthorized(err))
}

func (s *WebhookServiceSuite) TestTamperedBodyRejected() {
	body := []byte(`{"id":"evt_5","type":"payment_succeeded"}`)
	signature := s.sign(body)

	tampered := []byte(`{"id":"evt_5","type":"subscription_cancelled"}`)
	_, err := s.service.ProcessWebhook(s.GetContext(), tampered, signature)
	s.Error(err)
	s.True(ierr.IsUnauthorized(err))
}

func (s *WebhookServiceSuite) TestNoSecretSkipsVerification() {
	s.GetConfig().Billing.WebhookSecret = ""
	s.seedSubscription()
	body := []byte(`{"id":"evt_6","type":"payment_succeeded","data":{"subscription_id":"sub_ext_1"}}`)

	result, err := s.service.ProcessWebhook(s.GetContext(), body, "")
	s.NoError(err)
	s.True(result.Handled)
}

func (s *WebhookServiceSuite) TestMalformedJSONRejected() {
	body := []byte(`{"id":"evt_7",`)

	_, err := s.service.ProcessWebhook(s.GetContext(), body, s.sign(body))
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *WebhookServiceSuite) TestReplayIsDeduplicated() {
	s.seedSubscription()
	body := []byte(`{"id":"evt_8","type":"payment_failed","data":{"subscription_id":"sub_ext_1"}}`)
	signature := s.sign(body)

	first, err := s.service.ProcessWebhook(s.GetContext(), body, signature)
	s.NoError(err)
	s.True(first.Handled)

	sub, err := s.GetStores().SubRepo.GetByExternalID(s.GetContext(), "sub_ext_1")
	s.NoError(err)
	s.Require().NotNil(sub.GracePeriodUntil)
	graceAfterFirst := *sub.GracePeriodUntil

	time.Sleep(2 * time.Millisecond)

	second, err := s.service.ProcessWebhook(s.GetContext(), body, signature)
	s.NoError(err)
	s.True(second.Duplicate)
	s.False(second.Handled)

	// the replay did not reapply the transition
	sub, err = s.GetStores().SubRepo.GetByExternalID(s.GetContext(), "sub_ext_1")
	s.NoError(err)
	s.Equal(graceAfterFirst, *sub.GracePeriodUntil)
	s.Equal(1, s.GetStores().WebhookEventRepo.(*testutil.InMemoryWebhookEventStore).Count())
}

func (s *WebhookServiceSuite) TestConcurrentDeliveriesOneWins() {
	s.seedSubscription()
	body := []byte(`{"id":"evt_9","type":"payment_succeeded","data":{"subscription_id":"sub_ext_1"}}`)
	signature := s.sign(body)

	type outcome struct {
		duplicate bool
		err       error
	}

	const workers = 16
	results := make(chan outcome, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := s.service.ProcessWebhook(s.GetContext(), body, signature)
			if err != nil {
				results <- outcome{err: err}
				return
			}
			results <- outcome{duplicate: result.Duplicate}
		}()
	}
	wg.Wait()
	close(results)

	duplicates := 0
	for res := range results {
		s.NoError(res.err)
		if res.duplicate {
			duplicates++
		}
	}
	s.Equal(workers-1, duplicates)
	s.Equal(1, s.GetStores().WebhookEventRepo.(*testutil.InMemoryWebhookEventStore).Count())
}

func (s *WebhookServiceSuite) TestEventIDFallbackChain() {
	s.seedSubscription()

	testCases := []struct {
		name     string
		body     string
		expected string
	}{
		{
			name:     "envelope_id_wins",
			body:     `{"id":"evt_a","event_id":"evt_b","type":"payment_succeeded","data":{"id":"evt_c","subscription_id":"sub_ext_1"}}`,
			expected: "evt_a",
		},
		{
			name:     "event_id_second",
			body:     `{"event_id":"evt_b","type":"payment_succeeded","data":{"id":"evt_c","subscription_id":"sub_ext_1"}}`,
			expected: "evt_b",
		},
		{
			name:     "data_id_third",
			body:     `{"type":"payment_succeeded","data":{"id":"evt_c","subscription_id":"sub_ext_1"}}`,
			expected: "evt_c",
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			body := []byte(tc.body)
			result, err := s.service.ProcessWebhook(s.GetContext(), body, s.sign(body))
			s.NoError(err)
			s.Equal(tc.expected, result.EventID)
		})
	}
}

func (s *WebhookServiceSuite) TestMissingEventIDGeneratesOne() {
	s.seedSubscription()
	body := []byte(`{"type":"payment_succeeded","data":{"subscription_id":"sub_ext_1"}}`)

	result, err := s.service.ProcessWebhook(s.GetContext(), body, s.sign(body))
	s.NoError(err)
	s.True(result.Handled)
	s.NotEmpty(result.EventID)
}

func (s *WebhookServiceSuite) TestMissingEventIDRejectedWhenRequired() {
	s.GetConfig().Billing.RequireEventID = true
	body := []byte(`{"type":"payment_succeeded","data":{"subscription_id":"sub_ext_1"}}`)

	_, err := s.service.ProcessWebhook(s.GetContext(), body, s.sign(body))
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *WebhookServiceSuite) TestUnknownEventTypeAcknowledged() {
	body := []byte(`{"id":"evt_10","type":"invoice.finalized","data":{"subscription_id":"sub_ext_1"}}`)

	result, err := s.service.ProcessWebhook(s.GetContext(), body, s.sign(body))
	s.NoError(err)
	s.False(result.Handled)
	s.False(result.Duplicate)
	s.Equal("unhandled event type", result.Message)

	// still audited
	s.Equal(1, s.GetStores().WebhookEventRepo.(*testutil.InMemoryWebhookEventStore).Count())
}

func (s *WebhookServiceSuite) TestHandlerFailureStillAcknowledged() {
	// no subscription seeded, so the handler cannot resolve the target row
	body := []byte(`{"id":"evt_11","type":"payment_succeeded","data":{"subscription_id":"sub_ext_ghost"}}`)

	result, err := s.service.ProcessWebhook(s.GetContext(), body, s.sign(body))
	s.NoError(err)
	s.False(result.Handled)
	s.Equal("handler failed", result.Message)

	// redelivery of the same event is now a duplicate, not a second attempt
	replay, err := s.service.ProcessWebhook(s.GetContext(), body, s.sign(body))
	s.NoError(err)
	s.True(replay.Duplicate)
}

func (s *WebhookServiceSuite) TestTenantIDResolvedFromMetadata() {
	s.seedSubscription()
	body := []byte(`{"id":"evt_12","type":"payment_succeeded","metadata":{"tenant_id":"tenant-1"},"data":{"subscription_id":"sub_ext_1"}}`)

	result, err := s.service.ProcessWebhook(s.GetContext(), body, s.sign(body))
	s.NoError(err)
	s.True(result.Handled)

	event, err := s.GetStores().WebhookEventRepo.GetByEventID(s.GetContext(), "evt_12")
	s.NoError(err)
	s.Equal("tenant-1", event.TenantID)
}

func (s *WebhookServiceSuite) TestAuditRowKeepsRawPayload() {
	s.seedSubscription()
	body := []byte(`{"id":"evt_13","type":"payment_succeeded","data":{"subscription_id":"sub_ext_1"}}`)

	_, err := s.service.ProcessWebhook(s.GetContext(), body, s.sign(body))
	s.NoError(err)

	event, err := s.GetStores().WebhookEventRepo.GetByEventID(s.GetContext(), "evt_13")
	s.NoError(err)
	s.Equal(string(body), string(event.Payload))
	s.Equal(types.WebhookEventTypePaymentSucceeded, event.EventType)
	s.False(event.ReceivedAt.IsZero())
}

func (s *WebhookServiceSuite) TestDistinctEventsBothApplied() {
	s.seedSubscription()

	for i := 0; i < 3; i++ {
		body := []byte(fmt.Sprintf(`{"id":"evt_seq_%d","type":"payment_succeeded","data":{"subscription_id":"sub_ext_1"}}`, i))
		result, err := s.service.ProcessWebhook(s.GetContext(), body, s.sign(body))
		s.NoError(err)
		s.True(result.Handled)
	}

	s.Equal(3, s.GetStores().WebhookEventRepo.(*testutil.InMemoryWebhookEventStore).Count())
}
