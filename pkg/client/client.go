// Package client provides the metadata API client. Every typed call is
// served from the in-memory ResponseCache while its entry is live and
// goes to the network otherwise.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/flix-app/flix-cache/pkg/cache"
	"github.com/flix-app/flix-cache/pkg/logging"
	"github.com/rs/zerolog"
)

// DefaultBaseURL is the metadata API root.
const DefaultBaseURL = "https://api.themoviedb.org/3"

// maxErrorBody bounds how much of a failed response is read.
const maxErrorBody = 4096

// Client is the metadata API client.
type Client struct {
	httpClient *http.Client
	cache      *cache.ResponseCache
	config     Config
	baseURL    string
	policy     retryPolicy
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL of the API, without trailing slash.
	BaseURL string

	// APIKey is appended to every request as api_key (REQUIRED).
	APIKey string

	UserAgent string

	// Transport defaults to http.DefaultTransport. Setting it to a
	// strategy.Transport routes API calls through the offline strategies.
	Transport http.RoundTripper

	// Cache is the response cache consulted before every call (REQUIRED).
	Cache *cache.ResponseCache

	Timeout time.Duration

	// Retry overrides the per-class retry configuration when MaxAttempts > 0.
	Retry RetryConfig

	Logger *zerolog.Logger
}

// DefaultConfig returns a configuration with its own response cache.
func DefaultConfig(apiKey string) Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		APIKey:    apiKey,
		UserAgent: "flix-cache/1.0",
		Cache:     cache.New(),
		Timeout:   30 * time.Second,
	}
}

// New creates a new client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}

	if cfg.Cache == nil {
		return nil, fmt.Errorf("response cache is required")
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if !base.IsAbs() || base.Host == "" {
		return nil, fmt.Errorf("base url must be absolute (got %q)", cfg.BaseURL)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	logger := logging.NewLogger("api-client")
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	policy := retryPolicy(RetryConfigForErrorClass)
	if cfg.Retry.MaxAttempts > 0 {
		policy = fixedPolicy(cfg.Retry)
	}

	return &Client{
		httpClient: &http.Client{
			Transport: cfg.Transport,
			Timeout:   cfg.Timeout,
		},
		cache:   cfg.Cache,
		config:  cfg,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		policy:  policy,
		logger:  logger,
	}, nil
}

// Cache returns the response cache.
func (c *Client) Cache() *cache.ResponseCache {
	return c.cache
}

// call describes one cacheable GET.
type call struct {
	// route is the metrics label, e.g. "/movie/{id}"
	route    string
	endpoint string
	params   map[string]string
	ttl      time.Duration
}

// cachedGet serves call from the response cache, or fetches it, decodes
// it into a fresh *T and caches that pointer for call.ttl. A hit returns
// the identical pointer stored by the miss. Concurrent misses both fetch;
// the later Set wins.
func cachedGet[T any](ctx context.Context, c *Client, cl call) (*T, error) {
	key := cache.GenerateKey(cl.endpoint, cl.params)

	if v, ok := c.cache.Get(key); ok {
		if typed, ok := v.(*T); ok {
			apiCacheLookups.WithLabelValues(cl.route, "hit").Inc()
			c.logger.Debug().Str("key", key).Msg("Response cache hit")
			return typed, nil
		}
		c.logger.Warn().Str("key", key).Msgf("Cached value is %T, refetching", v)
	}
	apiCacheLookups.WithLabelValues(cl.route, "miss").Inc()

	resp, err := c.Get(ctx, cl.route, cl.endpoint, cl.params)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	out := new(T)
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", cl.endpoint, err)
	}

	c.cache.Set(key, out, cl.ttl)
	c.logger.Debug().Str("key", key).Dur("ttl", cl.ttl).Msg("Cached response")
	return out, nil
}

// Get performs a GET against endpoint with retry. Only 2xx responses are
// returned; every failure is an *APIError, possibly wrapped in
// ErrRetryExhausted or ErrContextCancelled. route labels metrics and
// defaults to endpoint.
func (c *Client) Get(ctx context.Context, route, endpoint string, params map[string]string) (*http.Response, error) {
	if route == "" {
		route = endpoint
	}
	target := c.requestURL(endpoint, params)

	startTime := time.Now()
	defer func() {
		apiRequestDuration.WithLabelValues(route).Observe(time.Since(startTime).Seconds())
	}()

	var resp *http.Response
	err := retryWithBackoff(ctx, c.logger, c.policy, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return &APIError{Class: ErrorClassClient, Message: "create request", Err: err}
		}
		req.Header.Set("Accept", "application/json")
		if c.config.UserAgent != "" {
			req.Header.Set("User-Agent", c.config.UserAgent)
		}

		c.logger.Debug().Str("endpoint", endpoint).Msg("Executing API request")

		r, err := c.httpClient.Do(req)
		if err != nil {
			apiErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			apiRequestsTotal.WithLabelValues(route, "network_error").Inc()
			c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("HTTP request failed")
			return &APIError{Class: ErrorClassNetwork, Message: "request failed", Err: err}
		}

		apiRequestsTotal.WithLabelValues(route, strconv.Itoa(r.StatusCode)).Inc()
		if r.StatusCode >= 200 && r.StatusCode <= 299 {
			resp = r
			return nil
		}

		apiErr := c.errorFromResponse(r)
		apiErrorsTotal.WithLabelValues(string(apiErr.Class)).Inc()
		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", r.StatusCode).
			Str("error_class", string(apiErr.Class)).
			Msg("API request error")
		return apiErr
	}, classOf)
	if err != nil {
		return nil, err
	}

	return resp, nil
}

// requestURL joins endpoint to the base URL and appends params and the
// API key. The key never takes part in cache keys.
func (c *Client) requestURL(endpoint string, params map[string]string) string {
	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}
	q.Set("api_key", c.config.APIKey)
	return c.baseURL + "/" + strings.TrimLeft(endpoint, "/") + "?" + q.Encode()
}

// errorFromResponse classifies a non-2xx response and closes its body.
func (c *Client) errorFromResponse(resp *http.Response) *APIError {
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var payload struct {
		StatusMessage string `json:"status_message"`
		Error         string `json:"error"`
		Message       string `json:"message"`
		Offline       bool   `json:"offline"`
	}
	_ = json.Unmarshal(body, &payload)

	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Class:      classifyStatus(resp.StatusCode),
		Message:    resp.Status,
	}
	switch {
	case payload.StatusMessage != "":
		apiErr.Message = payload.StatusMessage
	case payload.Message != "":
		apiErr.Message = payload.Message
	}
	if resp.StatusCode == http.StatusServiceUnavailable && payload.Offline {
		apiErr.Class = ErrorClassOffline
	}
	return apiErr
}

// classifyStatus categorizes an HTTP error status.
func classifyStatus(status int) ErrorClass {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case status >= 400 && status < 500:
		return ErrorClassClient
	case status >= 500:
		return ErrorClassServer
	default:
		return ErrorClassClient
	}
}
