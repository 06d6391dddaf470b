package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/reportloop/reportloop/internal/api/dto"
	"github.com/reportloop/reportloop/internal/domain/subscription"
	ierr "github.com/reportloop/reportloop/internal/errors"
	"github.com/reportloop/reportloop/internal/testutil"
	"github.com/reportloop/reportloop/internal/types"
)

// newTestServiceParams assembles ServiceParams from a base suite's stores.
// Shared by the service test suites in this package.
func newTestServiceParams(s *testutil.BaseServiceTestSuite) ServiceParams {
	stores := s.GetStores()
	return ServiceParams{
		Logger:           s.GetLogger(),
		Config:           s.GetConfig(),
		Cache:            s.GetCache(),
		Metrics:          s.GetMetrics(),
		TenantRepo:       stores.TenantRepo,
		PlanRepo:         stores.PlanRepo,
		SubRepo:          stores.SubRepo,
		UsageRepo:        stores.UsageRepo,
		WebhookEventRepo: stores.WebhookEventRepo,
	}
}

type SubscriptionServiceSuite struct {
	testutil.BaseServiceTestSuite
	service SubscriptionService
}

func TestSubscriptionService(t *testing.T) {
	suite.Run(t, new(SubscriptionServiceSuite))
}

func (s *SubscriptionServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewSubscriptionService(newTestServiceParams(&s.BaseServiceTestSuite))
}

func (s *SubscriptionServiceSuite) seedSubscription(status types.SubscriptionStatus, graceUntil *time.Time) *subscription.Subscription {
	now := s.GetNow()
	sub := &subscription.Subscription{
		ID:                     types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
		PlanID:                 "plan_pro",
		ExternalSubscriptionID: "sub_ext_1",
		SubscriptionStatus:     status,
		CurrentPeriodStart:     now,
		CurrentPeriodEnd:       now.AddDate(0, 1, 0),
		GracePeriodUntil:       graceUntil,
		BaseModel: types.BaseModel{
			TenantID: "tenant-1",
			Status:   types.StatusPublished,
		},
	}
	s.Require().NoError(s.GetStores().SubRepo.Upsert(s.GetContext(), sub))
	return sub
}

func (s *SubscriptionServiceSuite) TestPaymentSucceededActivatesAndClearsGrace() {
	grace := s.GetNow().AddDate(0, 0, 3)
	s.seedSubscription(types.SubscriptionStatusPastDue, &grace)

	err := s.service.HandlePaymentSucceeded(s.GetContext(), &dto.ProviderEventData{
		SubscriptionID: "sub_ext_1",
	})
	s.NoError(err)

	sub, err := s.GetStores().SubRepo.GetByExternalID(s.GetContext(), "sub_ext_1")
	s.NoError(err)
	s.Equal(types.SubscriptionStatusActive, sub.SubscriptionStatus)
	s.Nil(sub.GracePeriodUntil)
}

func (s *SubscriptionServiceSuite) TestPaymentFailedOpensGraceWindow() {
	s.seedSubscription(types.SubscriptionStatusActive, nil)

	err := s.service.HandlePaymentFailed(s.GetContext(), &dto.ProviderEventData{
		SubscriptionID: "sub_ext_1",
	})
	s.NoError(err)

	sub, err := s.GetStores().SubRepo.GetByExternalID(s.GetContext(), "sub_ext_1")
	s.NoError(err)

	// the status is untouched; only the grace window opens
	s.Equal(types.SubscriptionStatusActive, sub.SubscriptionStatus)
	s.Require().NotNil(sub.GracePeriodUntil)

	expected := time.Now().UTC().AddDate(0, 0, s.GetConfig().Billing.GracePeriodDays)
	s.WithinDuration(expected, *sub.GracePeriodUntil, time.Minute)
}

func (s *SubscriptionServiceSuite) TestCancellationIsIdempotent() {
	s.seedSubscription(types.SubscriptionStatusActive, nil)

	err := s.service.HandleSubscriptionCancelled(s.GetContext(), &dto.ProviderEventData{
		SubscriptionID: "sub_ext_1",
	})
	s.NoError(err)

	sub, err := s.GetStores().SubRepo.GetByExternalID(s.GetContext(), "sub_ext_1")
	s.NoError(err)
	s.Equal(types.SubscriptionStatusCancelled, sub.SubscriptionStatus)
	s.Require().NotNil(sub.CancelledAt)
	firstCancelledAt := *sub.CancelledAt

	// reapplying produces the same end state
	err = s.service.HandleSubscriptionCancelled(s.GetContext(), &dto.ProviderEventData{
		SubscriptionID: "sub_ext_1",
	})
	s.NoError(err)

	sub, err = s.GetStores().SubRepo.GetByExternalID(s.GetContext(), "sub_ext_1")
	s.NoError(err)
	s.Equal(types.SubscriptionStatusCancelled, sub.SubscriptionStatus)
	s.Equal(firstCancelledAt, *sub.CancelledAt)
}

func (s *SubscriptionServiceSuite) TestUpdateMergesProviderFields() {
	s.seedSubscription(types.SubscriptionStatusTrialing, nil)

	newPeriodEnd := s.GetNow().AddDate(0, 2, 0).Truncate(time.Second)
	err := s.service.HandleSubscriptionUpdated(s.GetContext(), &dto.ProviderEventData{
		SubscriptionID:   "sub_ext_1",
		Status:           "active",
		CurrentPeriodEnd: newPeriodEnd.Unix(),
	})
	s.NoError(err)

	sub, err := s.GetStores().SubRepo.GetByExternalID(s.GetContext(), "sub_ext_1")
	s.NoError(err)
	s.Equal(types.SubscriptionStatusActive, sub.SubscriptionStatus)
	s.Equal(newPeriodEnd, sub.CurrentPeriodEnd)
}

func (s *SubscriptionServiceSuite) TestUpdateIgnoresUnknownStatus() {
	s.seedSubscription(types.SubscriptionStatusActive, nil)

	err := s.service.HandleSubscriptionUpdated(s.GetContext(), &dto.ProviderEventData{
		SubscriptionID: "sub_ext_1",
		Status:         "paused_by_unicorn",
	})
	s.NoError(err)

	sub, err := s.GetStores().SubRepo.GetByExternalID(s.GetContext(), "sub_ext_1")
	s.NoError(err)
	s.Equal(types.SubscriptionStatusActive, sub.SubscriptionStatus)
}

func (s *SubscriptionServiceSuite) TestUpdateCancelAtPeriodEnd() {
	seeded := s.seedSubscription(types.SubscriptionStatusActive, nil)

	err := s.service.HandleSubscriptionUpdated(s.GetContext(), &dto.ProviderEventData{
		SubscriptionID:    "sub_ext_1",
		CancelAtPeriodEnd: boolPtr(true),
	})
	s.NoError(err)

	sub, err := s.GetStores().SubRepo.GetByExternalID(s.GetContext(), "sub_ext_1")
	s.NoError(err)
	s.True(sub.CancelAtPeriodEnd)
	s.Require().NotNil(sub.CancelledAt)
	s.Equal(seeded.CurrentPeriodEnd, *sub.CancelledAt)

	// the flag can be flipped back off before the period ends
	err = s.service.HandleSubscriptionUpdated(s.GetContext(), &dto.ProviderEventData{
		SubscriptionID:    "sub_ext_1",
		CancelAtPeriodEnd: boolPtr(false),
	})
	s.NoError(err)

	sub, err = s.GetStores().SubRepo.GetByExternalID(s.GetContext(), "sub_ext_1")
	s.NoError(err)
	s.False(sub.CancelAtPeriodEnd)
	s.Nil(sub.CancelledAt)
}

func (s *SubscriptionServiceSuite) TestEventForUnknownSubscription() {
	err := s.service.HandlePaymentSucceeded(s.GetContext(), &dto.ProviderEventData{
		SubscriptionID: "sub_ext_missing",
	})
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *SubscriptionServiceSuite) TestEventWithoutSubscriptionReference() {
	err := s.service.HandlePaymentSucceeded(s.GetContext(), &dto.ProviderEventData{})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func boolPtr(b bool) *bool {
	return &b
}
