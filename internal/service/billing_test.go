package service

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/reportloop/reportloop/internal/api/dto"
	"github.com/reportloop/reportloop/internal/billing"
	"github.com/reportloop/reportloop/internal/domain/plan"
	"github.com/reportloop/reportloop/internal/domain/tenant"
	"github.com/reportloop/reportloop/internal/domain/webhookevent"
	ierr "github.com/reportloop/reportloop/internal/errors"
	"github.com/reportloop/reportloop/internal/testutil"
	"github.com/reportloop/reportloop/internal/types"
)

type BillingServiceSuite struct {
	testutil.BaseServiceTestSuite
	client  *testutil.MockHTTPClient
	service BillingService
}

func TestBillingService(t *testing.T) {
	suite.Run(t, new(BillingServiceSuite))
}

func (s *BillingServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.client = testutil.NewMockHTTPClient()

	cfg := s.GetConfig().Billing
	cfg.Retry.InitialInterval = time.Millisecond
	cfg.Retry.MaxInterval = 5 * time.Millisecond

	params := newTestServiceParams(&s.BaseServiceTestSuite)
	stores := s.GetStores()

	resolver := billing.NewEndpointResolver(s.client, cfg, s.GetLogger())
	gateway := billing.NewGateway(resolver, cfg, stores.TenantRepo, stores.SubRepo, stores.WebhookEventRepo, s.GetLogger())
	s.service = NewBillingService(params, gateway)
}

func (s *BillingServiceSuite) seedTenantWithPlan() {
	t := &tenant.Tenant{
		ID:                 "tenant-1",
		Name:               "Acme Reports",
		PlanID:             "plan_pro",
		ExternalCustomerID: "cus_123",
		Status:             types.StatusPublished,
	}
	s.Require().NoError(s.GetStores().TenantRepo.Create(s.GetContext(), t))

	p := &plan.Plan{
		ID:        "plan_pro",
		Name:      "Pro",
		LookupKey: "pro",
		PriceRef:  "price_pro_monthly",
	}
	s.Require().NoError(s.GetStores().PlanRepo.Create(s.GetContext(), p))
}

func (s *BillingServiceSuite) TestCreateSubscriptionResolvesPriceRefFromPlan() {
	s.seedTenantWithPlan()
	s.client.RegisterResponse("/v1/subscriptions", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body:       []byte(`{"id":"sub_1","status":"trialing"}`),
	})

	resp, err := s.service.CreateSubscription(s.GetContext(), dto.CreateSubscriptionRequest{
		TenantID: "tenant-1",
		PlanID:   "plan_pro",
	})
	s.NoError(err)
	s.Equal("sub_1", resp.ExternalSubscriptionID)
	s.Equal(types.SubscriptionStatusTrialing, resp.Status)
}

func (s *BillingServiceSuite) TestCreateSubscriptionPlanWithoutPriceRef() {
	p := &plan.Plan{ID: "plan_free", Name: "Free", LookupKey: "free"}
	s.Require().NoError(s.GetStores().PlanRepo.Create(s.GetContext(), p))

	_, err := s.service.CreateSubscription(s.GetContext(), dto.CreateSubscriptionRequest{
		TenantID: "tenant-1",
		PlanID:   "plan_free",
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *BillingServiceSuite) TestCreateSubscriptionValidation() {
	_, err := s.service.CreateSubscription(s.GetContext(), dto.CreateSubscriptionRequest{
		TenantID: "tenant-1",
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *BillingServiceSuite) TestCreateCustomer() {
	s.seedTenantWithPlan()
	s.client.RegisterResponse("/v1/customers", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body:       []byte(`{"customer_id":"cus_456"}`),
	})

	resp, err := s.service.CreateCustomer(s.GetContext(), dto.CreateCustomerRequest{
		TenantID: "tenant-1",
		Email:    "billing@acme.test",
	})
	s.NoError(err)
	s.Equal("cus_456", resp.ExternalCustomerID)
}

func (s *BillingServiceSuite) TestGetCurrentSubscriptionNotFound() {
	_, err := s.service.GetCurrentSubscription(s.GetContext(), "tenant-ghost")
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *BillingServiceSuite) TestListWebhookEventsAppliesDefaultLimit() {
	store := s.GetStores().WebhookEventRepo
	for i := 0; i < defaultEventListLimit+10; i++ {
		err := store.Insert(s.GetContext(), &webhookevent.WebhookEvent{
			ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_WEBHOOK_EVENT),
			EventID:   fmt.Sprintf("evt_%d", i),
			EventType: types.WebhookEventTypePaymentSucceeded,
			TenantID:  "tenant-1",
			Payload:   []byte(`{}`),
		})
		s.Require().NoError(err)
	}

	resp, err := s.service.ListWebhookEvents(s.GetContext(), "tenant-1", 0)
	s.NoError(err)
	s.Equal(defaultEventListLimit, resp.Total)
	s.Len(resp.Items, defaultEventListLimit)

	// newest first
	s.Equal(fmt.Sprintf("evt_%d", defaultEventListLimit+9), resp.Items[0].EventID)
}
