package billing

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/reportloop/reportloop/internal/config"
	"github.com/reportloop/reportloop/internal/domain/tenant"
	ierr "github.com/reportloop/reportloop/internal/errors"
	"github.com/reportloop/reportloop/internal/logger"
	"github.com/reportloop/reportloop/internal/testutil"
	"github.com/reportloop/reportloop/internal/types"
)

type GatewaySuite struct {
	suite.Suite
	ctx        context.Context
	client     *testutil.MockHTTPClient
	tenantRepo *testutil.InMemoryTenantStore
	subRepo    *testutil.InMemorySubscriptionStore
	eventRepo  *testutil.InMemoryWebhookEventStore
	gateway    *Gateway
	cfg        config.BillingConfig
}

func TestGateway(t *testing.T) {
	suite.Run(t, new(GatewaySuite))
}

func (s *GatewaySuite) SetupTest() {
	s.ctx = testutil.SetupContext()
	s.client = testutil.NewMockHTTPClient()
	s.tenantRepo = testutil.NewInMemoryTenantStore()
	s.subRepo = testutil.NewInMemorySubscriptionStore()
	s.eventRepo = testutil.NewInMemoryWebhookEventStore()

	s.cfg = config.GetDefaultBillingConfig()
	s.cfg.CustomerEndpoints = []string{"/alpha/customers"}
	s.cfg.SubscriptionEndpoints = []string{"/alpha/subscriptions"}
	s.cfg.Retry = config.RetryConfig{
		MaxAttempts:     2,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
	}

	log, err := logger.NewLogger(config.GetDefaultConfig())
	s.Require().NoError(err)

	resolver := NewEndpointResolver(s.client, s.cfg, log)
	s.gateway = NewGateway(resolver, s.cfg, s.tenantRepo, s.subRepo, s.eventRepo, log)
}

func (s *GatewaySuite) seedTenant(externalCustomerID string) *tenant.Tenant {
	t := &tenant.Tenant{
		ID:                 "tenant-1",
		Name:               "Acme Reports",
		PlanID:             "plan_pro",
		ExternalCustomerID: externalCustomerID,
		Status:             types.StatusPublished,
	}
	s.Require().NoError(s.tenantRepo.Create(s.ctx, t))
	return t
}

func (s *GatewaySuite) TestCreateCustomer() {
	s.seedTenant("")
	s.client.RegisterResponse("/alpha/customers", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body:       []byte(`{"id":"cus_123"}`),
	})

	result, err := s.gateway.CreateCustomer(s.ctx, CreateCustomerRequest{
		TenantID: "tenant-1",
		Email:    "billing@acme.test",
		Name:     "Acme Reports",
	})
	s.NoError(err)
	s.Equal("cus_123", result.ExternalCustomerID)

	stored, err := s.tenantRepo.GetByID(s.ctx, "tenant-1")
	s.NoError(err)
	s.Equal("cus_123", stored.ExternalCustomerID)
}

func (s *GatewaySuite) TestCreateCustomerRequiresEmail() {
	_, err := s.gateway.CreateCustomer(s.ctx, CreateCustomerRequest{
		TenantID: "tenant-1",
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *GatewaySuite) TestCreateCustomerProviderDown() {
	s.seedTenant("")
	s.client.RegisterResponse("/alpha/customers", testutil.MockResponse{
		StatusCode: http.StatusInternalServerError,
	})

	_, err := s.gateway.CreateCustomer(s.ctx, CreateCustomerRequest{
		TenantID: "tenant-1",
		Email:    "billing@acme.test",
	})
	s.Error(err)
	s.True(ierr.IsUpstream(err))
	s.Equal(s.cfg.Retry.MaxAttempts, s.client.CallCount("/alpha/customers"))
}

func (s *GatewaySuite) TestCreateCustomerUnrecognizedResponse() {
	s.seedTenant("")
	s.client.RegisterResponse("/alpha/customers", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body:       []byte(`{"ok":true}`),
	})

	_, err := s.gateway.CreateCustomer(s.ctx, CreateCustomerRequest{
		TenantID: "tenant-1",
		Email:    "billing@acme.test",
	})
	s.Error(err)
	s.True(ierr.IsUpstream(err))
}

func (s *GatewaySuite) TestCreateSubscription() {
	s.seedTenant("cus_123")

	periodEnd := time.Now().UTC().AddDate(0, 1, 0).Unix()
	s.client.RegisterResponse("/alpha/subscriptions", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body: []byte(fmt.Sprintf(
			`{"id":"sub_456","status":"trialing","current_period_end":%d}`, periodEnd)),
	})

	result, err := s.gateway.CreateSubscription(s.ctx, CreateSubscriptionRequest{
		TenantID: "tenant-1",
		PlanID:   "plan_pro",
		PriceRef: "price_pro_monthly",
	})
	s.NoError(err)
	s.Equal("sub_456", result.ExternalSubscriptionID)
	s.Equal(types.SubscriptionStatusTrialing, result.Status)

	expectedTrialEnd := time.Now().UTC().AddDate(0, 0, s.cfg.TrialDays)
	s.WithinDuration(expectedTrialEnd, result.TrialEnd, time.Minute)

	sub, err := s.subRepo.GetByTenantID(s.ctx, "tenant-1")
	s.NoError(err)
	s.Equal("sub_456", sub.ExternalSubscriptionID)
	s.Equal(types.SubscriptionStatusTrialing, sub.SubscriptionStatus)
	s.Equal(time.Unix(periodEnd, 0).UTC(), sub.CurrentPeriodEnd)
	s.Nil(sub.GracePeriodUntil)

	// synthetic audit row
	s.Equal(1, s.eventRepo.Count())
	events, err := s.eventRepo.ListByTenant(s.ctx, "tenant-1", 10)
	s.NoError(err)
	s.Require().Len(events, 1)
	s.Equal(types.WebhookEventTypeSubscriptionCreated, events[0].EventType)
}

func (s *GatewaySuite) TestCreateSubscriptionRequiresPriceRef() {
	_, err := s.gateway.CreateSubscription(s.ctx, CreateSubscriptionRequest{
		TenantID: "tenant-1",
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *GatewaySuite) TestCreateSubscriptionWithoutProviderCustomer() {
	s.seedTenant("")

	_, err := s.gateway.CreateSubscription(s.ctx, CreateSubscriptionRequest{
		TenantID: "tenant-1",
		PlanID:   "plan_pro",
		PriceRef: "price_pro_monthly",
	})
	s.Error(err)
	s.True(ierr.IsPreconditionFailed(err))
}

func (s *GatewaySuite) TestResubscribeReplacesRow() {
	s.seedTenant("cus_123")

	s.client.RegisterResponses("/alpha/subscriptions",
		testutil.MockResponse{StatusCode: http.StatusOK, Body: []byte(`{"id":"sub_old","status":"active"}`)},
		testutil.MockResponse{StatusCode: http.StatusOK, Body: []byte(`{"id":"sub_new","status":"trialing"}`)},
	)

	_, err := s.gateway.CreateSubscription(s.ctx, CreateSubscriptionRequest{
		TenantID: "tenant-1",
		PlanID:   "plan_pro",
		PriceRef: "price_pro_monthly",
	})
	s.Require().NoError(err)

	_, err = s.gateway.CreateSubscription(s.ctx, CreateSubscriptionRequest{
		TenantID: "tenant-1",
		PlanID:   "plan_agency",
		PriceRef: "price_agency_monthly",
	})
	s.Require().NoError(err)

	sub, err := s.subRepo.GetByTenantID(s.ctx, "tenant-1")
	s.NoError(err)
	s.Equal("sub_new", sub.ExternalSubscriptionID)
	s.Equal("plan_agency", sub.PlanID)

	// the replaced subscription is no longer reachable by its old id
	_, err = s.subRepo.GetByExternalID(s.ctx, "sub_old")
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}
