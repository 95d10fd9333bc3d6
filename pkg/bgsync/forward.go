package bgsync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Forwarder delivers one mutation to the remote endpoint.
type Forwarder interface {
	Forward(ctx context.Context, m Mutation) error
}

// ForwardError is returned when the remote endpoint rejects a mutation.
type ForwardError struct {
	StatusCode int
	Body       string
}

func (e *ForwardError) Error() string {
	return fmt.Sprintf("forward rejected: HTTP %d: %s", e.StatusCode, e.Body)
}

// HTTPForwarder POSTs mutations as JSON. Each request carries the
// mutation ID as Idempotency-Key so redelivery can be deduplicated
// remotely.
type HTTPForwarder struct {
	endpoint   string
	httpClient *http.Client
	userAgent  string
}

// NewHTTPForwarder creates a forwarder for endpoint.
// A nil client uses a client with a 30s timeout.
func NewHTTPForwarder(endpoint string, client *http.Client, userAgent string) *HTTPForwarder {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPForwarder{
		endpoint:   endpoint,
		httpClient: client,
		userAgent:  userAgent,
	}
}

// Forward sends m. Any 2xx status is success.
func (f *HTTPForwarder) Forward(ctx context.Context, m Mutation) error {
	body, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal mutation: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", m.ID.String())
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("forward mutation: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &ForwardError{StatusCode: resp.StatusCode, Body: string(snippet)}
	}
	io.Copy(io.Discard, resp.Body)

	return nil
}
