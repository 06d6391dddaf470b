package testutil

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/reportloop/reportloop/internal/httpclient"
)

// MockHTTPClient implements a mock HTTP client for testing
type MockHTTPClient struct {
	mu     sync.Mutex
	routes map[string]*mockRoute
	calls  map[string]int
}

type mockRoute struct {
	responses []MockResponse
	next      int
}

// MockResponse represents a mock HTTP response. A non-nil Err is returned
// instead of a response, simulating a transport failure. Status codes >= 400
// are surfaced the way the real client surfaces them, as *httpclient.Error.
type MockResponse struct {
	StatusCode int
	Body       []byte
	Headers    map[string]string
	Err        error
}

// NewMockHTTPClient creates a new mock HTTP client
func NewMockHTTPClient() *MockHTTPClient {
	return &MockHTTPClient{
		routes: make(map[string]*mockRoute),
		calls:  make(map[string]int),
	}
}

// RegisterResponse registers a single mock response for a given URL suffix
func (m *MockHTTPClient) RegisterResponse(url string, resp MockResponse) {
	m.RegisterResponses(url, resp)
}

// RegisterResponses registers a sequence of responses consumed in order by
// successive calls to the same URL. The last response repeats once the
// sequence is exhausted.
func (m *MockHTTPClient) RegisterResponses(url string, responses ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes[url] = &mockRoute{responses: responses}
}

// CallCount returns how many requests matched the given URL suffix
func (m *MockHTTPClient) CallCount(url string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[url]
}

// Send implements the httpclient.Client interface
func (m *MockHTTPClient) Send(ctx context.Context, req *httpclient.Request) (*httpclient.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched *mockRoute
	var matchedURL string
	for route, r := range m.routes {
		if strings.HasSuffix(req.URL, route) {
			matched = r
			matchedURL = route
			break
		}
	}

	if matched == nil {
		return nil, httpclient.NewError(http.StatusNotFound, []byte("Not Found"))
	}

	m.calls[matchedURL]++

	resp := matched.responses[matched.next]
	if matched.next < len(matched.responses)-1 {
		matched.next++
	}

	if resp.Err != nil {
		return nil, resp.Err
	}
	if resp.StatusCode >= 400 {
		return nil, httpclient.NewError(resp.StatusCode, resp.Body)
	}

	return &httpclient.Response{
		StatusCode: resp.StatusCode,
		Body:       resp.Body,
		Headers:    resp.Headers,
	}, nil
}

// Clear removes all registered responses and call counts
func (m *MockHTTPClient) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes = make(map[string]*mockRoute)
	m.calls = make(map[string]int)
}
