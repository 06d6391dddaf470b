package billing

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/reportloop/reportloop/internal/config"
	ierr "github.com/reportloop/reportloop/internal/errors"
	"github.com/reportloop/reportloop/internal/logger"
	"github.com/reportloop/reportloop/internal/testutil"
)

type EndpointResolverSuite struct {
	suite.Suite
	ctx      context.Context
	client   *testutil.MockHTTPClient
	resolver *EndpointResolver
	cfg      config.BillingConfig
}

func TestEndpointResolver(t *testing.T) {
	suite.Run(t, new(EndpointResolverSuite))
}

func (s *EndpointResolverSuite) SetupTest() {
	s.ctx = testutil.SetupContext()
	s.client = testutil.NewMockHTTPClient()

	s.cfg = config.GetDefaultBillingConfig()
	// distinct suffixes so the mock's suffix matching stays unambiguous
	s.cfg.CustomerEndpoints = []string{"/alpha/customers", "/beta/customers", "/gamma/customers"}
	s.cfg.Retry = config.RetryConfig{
		MaxAttempts:     3,
		InitialInterval: 5 * time.Millisecond,
		MaxInterval:     20 * time.Millisecond,
	}

	log, err := logger.NewLogger(config.GetDefaultConfig())
	s.Require().NoError(err)

	s.resolver = NewEndpointResolver(s.client, s.cfg, log)
}

func (s *EndpointResolverSuite) TestFirstPathSucceeds() {
	s.client.RegisterResponse("/alpha/customers", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body:       []byte(`{"id":"cus_1"}`),
	})

	resp, err := s.resolver.Do(s.ctx, http.MethodPost, s.cfg.CustomerEndpoints, []byte(`{}`))
	s.NoError(err)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal(1, s.client.CallCount("/alpha/customers"))
	s.Equal(0, s.client.CallCount("/beta/customers"))
}

func (s *EndpointResolverSuite) TestClientErrorMovesToNextPathWithoutRetry() {
	s.client.RegisterResponse("/alpha/customers", testutil.MockResponse{
		StatusCode: http.StatusNotFound,
		Body:       []byte(`{"error":"no such route"}`),
	})
	s.client.RegisterResponse("/beta/customers", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body:       []byte(`{"id":"cus_1"}`),
	})

	resp, err := s.resolver.Do(s.ctx, http.MethodPost, s.cfg.CustomerEndpoints, []byte(`{}`))
	s.NoError(err)
	s.Equal(http.StatusOK, resp.StatusCode)

	// the 404 must not be retried on the same path
	s.Equal(1, s.client.CallCount("/alpha/customers"))
	s.Equal(1, s.client.CallCount("/beta/customers"))
	s.Equal(0, s.client.CallCount("/gamma/customers"))
}

func (s *EndpointResolverSuite) TestServerErrorRetriedOnSamePath() {
	s.client.RegisterResponses("/alpha/customers",
		testutil.MockResponse{StatusCode: http.StatusInternalServerError},
		testutil.MockResponse{StatusCode: http.StatusBadGateway},
		testutil.MockResponse{StatusCode: http.StatusOK, Body: []byte(`{"id":"cus_1"}`)},
	)

	resp, err := s.resolver.Do(s.ctx, http.MethodPost, s.cfg.CustomerEndpoints, []byte(`{}`))
	s.NoError(err)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal(3, s.client.CallCount("/alpha/customers"))
	s.Equal(0, s.client.CallCount("/beta/customers"))
}

func (s *EndpointResolverSuite) TestExhaustionAfterAllPathsFail() {
	for _, path := range s.cfg.CustomerEndpoints {
		s.client.RegisterResponse(path, testutil.MockResponse{
			StatusCode: http.StatusInternalServerError,
		})
	}

	start := time.Now()
	resp, err := s.resolver.Do(s.ctx, http.MethodPost, s.cfg.CustomerEndpoints, []byte(`{}`))
	elapsed := time.Since(start)

	s.Error(err)
	s.Nil(resp)
	s.True(ierr.IsUpstream(err))

	// every path runs its full schedule
	for _, path := range s.cfg.CustomerEndpoints {
		s.Equal(s.cfg.Retry.MaxAttempts, s.client.CallCount(path))
	}

	// two backoff waits per path (5ms + 10ms), three paths
	s.GreaterOrEqual(elapsed, 40*time.Millisecond)
}

func (s *EndpointResolverSuite) TestContextCancellationStopsRetrying() {
	for _, path := range s.cfg.CustomerEndpoints {
		s.client.RegisterResponse(path, testutil.MockResponse{
			StatusCode: http.StatusInternalServerError,
		})
	}

	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	_, err := s.resolver.Do(ctx, http.MethodPost, s.cfg.CustomerEndpoints, []byte(`{}`))
	s.Error(err)

	// one probe per path at most, no backoff waits
	total := 0
	for _, path := range s.cfg.CustomerEndpoints {
		total += s.client.CallCount(path)
	}
	s.LessOrEqual(total, len(s.cfg.CustomerEndpoints))
}

func (s *EndpointResolverSuite) TestNoCandidatePaths() {
	_, err := s.resolver.Do(s.ctx, http.MethodPost, nil, []byte(`{}`))
	s.Error(err)
	s.True(ierr.IsValidation(err))
}
