// Package testutil provides testing utilities for flix-cache.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockUpstream is a configurable stand-in for both the metadata API and
// the application origin.
//
// Unconfigured paths get a default response: requests with ?page get a
// JSON listing page, other JSON requests get a minimal object, anything
// else gets a small text body.
type MockUpstream struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)
	failing  bool

	// TotalPages is reported by default listing pages.
	TotalPages int

	// Tracking
	RequestCount      int
	pathCounts        map[string]int
	LastRequestHeader http.Header
	LastQuery         map[string]string
}

// NewMockUpstream creates a new mock upstream server.
func NewMockUpstream() *MockUpstream {
	mock := &MockUpstream{
		handlers:   make(map[string]func(w http.ResponseWriter, r *http.Request)),
		pathCounts: make(map[string]int),
		TotalPages: 1,
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		if mock.failing {
			mock.mu.Unlock()
			dropConnection(w)
			return
		}
		mock.RequestCount++
		mock.pathCounts[r.URL.Path]++
		mock.LastRequestHeader = r.Header.Clone()
		mock.LastQuery = make(map[string]string)
		for k, v := range r.URL.Query() {
			mock.LastQuery[k] = v[0]
		}
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockUpstream) URL() string {
	return m.server.URL
}

// Client returns an HTTP client for the mock server.
func (m *MockUpstream) Client() *http.Client {
	return m.server.Client()
}

// Close shuts down the mock server.
func (m *MockUpstream) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockUpstream) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.pathCounts = make(map[string]int)
	m.LastRequestHeader = nil
	m.LastQuery = nil
}

// SetFailing makes every request fail at the connection level, the way an
// unreachable network looks to a client.
func (m *MockUpstream) SetFailing(failing bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failing = failing
}

// SetHandler sets a custom handler for a specific path.
func (m *MockUpstream) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockUpstream) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}

		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockUpstream) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// CountFor returns the number of requests made for path.
func (m *MockUpstream) CountFor(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pathCounts[path]
}

// Query returns the query parameters of the last request.
func (m *MockUpstream) Query() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastQuery
}

func (m *MockUpstream) defaultHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Has("page") {
		page, err := strconv.Atoi(r.URL.Query().Get("page"))
		if err != nil || page < 1 {
			page = 1
		}
		m.mu.RLock()
		total := m.TotalPages
		m.mu.RUnlock()

		w.Header().Set("Content-Type", "application/json;charset=utf-8")
		fmt.Fprint(w, PageBody(page, total, page*100))
		return
	}

	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		w.Header().Set("Content-Type", "application/json;charset=utf-8")
		fmt.Fprint(w, `{"id":1}`)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "upstream %s", r.URL.Path)
}

// PageBody renders a listing page holding one result with the given ID.
func PageBody(page, totalPages, id int) string {
	return fmt.Sprintf(
		`{"page":%d,"results":[{"id":%d,"title":"Movie %d","media_type":"movie"}],"total_pages":%d,"total_results":%d}`,
		page, id, id, totalPages, totalPages,
	)
}

// NewJSONResponse creates a standard 200 OK JSON response.
func NewJSONResponse(data string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       data,
		Headers: map[string]string{
			"Content-Type": "application/json;charset=utf-8",
		},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"status_code":25,"status_message":"Your request count (41) is over the allowed limit of 40."}`,
		Headers: map[string]string{
			"Content-Type": "application/json;charset=utf-8",
			"Retry-After":  "1",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"status_code":11,"status_message":"Internal error: Something went wrong, contact TMDb."}`,
		Headers: map[string]string{
			"Content-Type": "application/json;charset=utf-8",
		},
	}
}

// NewNotFoundResponse creates a 404 response with a metadata API error body.
func NewNotFoundResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotFound,
		Body:       `{"status_code":34,"status_message":"The resource you requested could not be found."}`,
		Headers: map[string]string{
			"Content-Type": "application/json;charset=utf-8",
		},
	}
}

func dropConnection(w http.ResponseWriter) {
	hj, ok := w.(http.Hijacker)
	if !ok {
		panic("testutil: response writer cannot be hijacked")
	}
	conn, _, err := hj.Hijack()
	if err != nil {
		return
	}
	conn.Close()
}
