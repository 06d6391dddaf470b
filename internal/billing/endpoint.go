package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/reportloop/reportloop/internal/config"
	ierr "github.com/reportloop/reportloop/internal/errors"
	"github.com/reportloop/reportloop/internal/httpclient"
	"github.com/reportloop/reportloop/internal/logger"
)

// PathError records the last error observed for one candidate path
type PathError struct {
	Path string
	Err  error
}

// ExhaustedError is returned when every candidate path has been tried
// without a successful response. It carries the last error per path for
// diagnostics.
type ExhaustedError struct {
	Method string
	Paths  []PathError
}

func (e *ExhaustedError) Error() string {
	parts := make([]string, 0, len(e.Paths))
	for _, p := range e.Paths {
		parts = append(parts, fmt.Sprintf("%s: %v", p.Path, p.Err))
	}
	return fmt.Sprintf("all candidate endpoints exhausted for %s: %s", e.Method, strings.Join(parts, "; "))
}

// EndpointResolver performs an outbound provider call against an ordered
// list of candidate paths. The provider's routing is not reliably known in
// advance (test and production deployments differ), so each path is tried in
// order: a 2xx response short-circuits everything, a 4xx kills that path but
// not the list, and network errors, timeouts and 5xx responses are retried
// under an exponential backoff schedule.
//
// The resolver holds no mutable state across calls and is safe for
// unlimited concurrent use.
type EndpointResolver struct {
	client  httpclient.Client
	baseURL string
	apiKey  string
	retry   config.RetryConfig
	logger  *logger.Logger
}

func NewEndpointResolver(
	client httpclient.Client,
	cfg config.BillingConfig,
	logger *logger.Logger,
) *EndpointResolver {
	return &EndpointResolver{
		client:  client,
		baseURL: strings.TrimRight(cfg.APIBaseURL, "/"),
		apiKey:  cfg.APIKey,
		retry:   cfg.Retry,
		logger:  logger,
	}
}

// Do attempts the call against each candidate path in order and returns the
// first successful response. On exhaustion it returns an error marked
// ErrUpstream wrapping an *ExhaustedError.
func (r *EndpointResolver) Do(ctx context.Context, method string, paths []string, body []byte) (*httpclient.Response, error) {
	if len(paths) == 0 {
		return nil, ierr.NewError("no candidate endpoints").
			WithHint("At least one candidate endpoint is required").
			Mark(ierr.ErrValidation)
	}

	pathErrs := make([]PathError, 0, len(paths))

	for _, path := range paths {
		resp, err := r.tryPath(ctx, method, path, body)
		if err == nil {
			return resp, nil
		}
		if ctx.Err() != nil {
			return nil, ierr.WithError(ctx.Err()).
				WithHint("Provider call was cancelled").
				Mark(ierr.ErrHTTPClient)
		}
		pathErrs = append(pathErrs, PathError{Path: path, Err: err})
	}

	exhausted := &ExhaustedError{Method: method, Paths: pathErrs}
	details := make(map[string]any, len(pathErrs))
	for _, pe := range pathErrs {
		details[pe.Path] = pe.Err.Error()
	}

	r.logger.Errorw("all candidate endpoints exhausted",
		"method", method,
		"paths", paths,
		"errors", details,
	)

	return nil, ierr.WithError(exhausted).
		WithHint("Payment provider is unreachable").
		WithReportableDetails(details).
		Mark(ierr.ErrUpstream)
}

// tryPath runs the retry schedule for a single path. A 4xx response aborts
// the schedule immediately: the provider understood the request on this
// path and rejected it, so retrying cannot help.
func (r *EndpointResolver) tryPath(ctx context.Context, method, path string, body []byte) (*httpclient.Response, error) {
	url := r.baseURL + path

	schedule := backoff.NewExponentialBackOff()
	schedule.InitialInterval = r.retry.InitialInterval
	schedule.Multiplier = 2
	schedule.MaxInterval = r.retry.MaxInterval
	schedule.RandomizationFactor = 0
	schedule.Reset()

	var lastErr error
	for attempt := 0; attempt < r.retry.MaxAttempts; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, schedule.NextBackOff()); err != nil {
				return nil, lastErr
			}
		}

		req := &httpclient.Request{
			Method: method,
			URL:    url,
			Body:   body,
			Headers: map[string]string{
				"Authorization": "Bearer " + r.apiKey,
			},
		}

		resp, err := r.client.Send(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if httpclient.IsClientError(err) {
			r.logger.Debugw("candidate endpoint rejected request, moving on",
				"method", method,
				"path", path,
				"error", err,
			)
			return nil, err
		}

		r.logger.Warnw("provider call failed, will retry",
			"method", method,
			"path", path,
			"attempt", attempt+1,
			"max_attempts", r.retry.MaxAttempts,
			"error", err,
		)
	}

	return nil, lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
