package client

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
)

// RetryConfig holds the configuration for retry logic.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the initial request).
	MaxAttempts int

	// InitialBackoff is the initial backoff duration.
	InitialBackoff time.Duration

	// MaxBackoff is the maximum backoff duration.
	MaxBackoff time.Duration

	// BackoffMultiplier is the multiplier for exponential backoff.
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// RetryConfigForErrorClass returns the appropriate retry configuration for an error class.
func RetryConfigForErrorClass(errorClass ErrorClass) RetryConfig {
	switch errorClass {
	case ErrorClassServer:
		// 5xx server errors - shorter backoff
		return RetryConfig{
			MaxAttempts:       3,
			InitialBackoff:    1 * time.Second,
			MaxBackoff:        10 * time.Second,
			BackoffMultiplier: 2.0,
		}
	case ErrorClassRateLimit:
		// 429 - the metadata API window is 10s
		return RetryConfig{
			MaxAttempts:       3,
			InitialBackoff:    5 * time.Second,
			MaxBackoff:        60 * time.Second,
			BackoffMultiplier: 2.0,
		}
	case ErrorClassNetwork:
		// Network errors - medium backoff
		return RetryConfig{
			MaxAttempts:       3,
			InitialBackoff:    2 * time.Second,
			MaxBackoff:        30 * time.Second,
			BackoffMultiplier: 2.0,
		}
	default:
		return DefaultRetryConfig()
	}
}

// retryPolicy picks the retry configuration for a failed attempt.
type retryPolicy func(ErrorClass) RetryConfig

// fixedPolicy applies cfg to every retryable class.
func fixedPolicy(cfg RetryConfig) retryPolicy {
	return func(ErrorClass) RetryConfig { return cfg }
}

// retryWithBackoff executes fn with exponential backoff retry logic.
// The class of each failure decides whether and how long to wait.
// It respects context cancellation and adds jitter to prevent thundering herd.
func retryWithBackoff(ctx context.Context, logger zerolog.Logger, policy retryPolicy, fn func() error, classify func(error) ErrorClass) error {
	var (
		lastErr error
		backoff time.Duration
		class   ErrorClass
		config  RetryConfig
	)

	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 1 {
				logger.Info().
					Str("error_class", string(class)).
					Int("attempt", attempt).
					Msg("Request succeeded after retry")
			}
			return nil
		}

		lastErr = err
		class = classify(err)

		// Don't retry client errors - return immediately
		if !shouldRetry(class) {
			return lastErr
		}

		config = policy(class)
		if attempt >= config.MaxAttempts {
			break
		}

		if backoff == 0 {
			backoff = config.InitialBackoff
		}

		apiRetriesTotal.WithLabelValues(string(class)).Inc()

		// Add jitter (±20% randomness)
		jitter := time.Duration(float64(backoff) * (0.8 + rand.Float64()*0.4))
		apiRetryBackoffSeconds.WithLabelValues(string(class)).Observe(jitter.Seconds())

		logger.Debug().
			Str("error_class", string(class)).
			Int("attempt", attempt).
			Dur("backoff", jitter).
			Msg("Retrying request after backoff")

		select {
		case <-ctx.Done():
			logger.Warn().
				Str("error_class", string(class)).
				Int("attempt", attempt).
				Msg("Context cancelled during retry backoff")
			return fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
		case <-time.After(jitter):
		}

		backoff = time.Duration(float64(backoff) * config.BackoffMultiplier)
		if backoff > config.MaxBackoff {
			backoff = config.MaxBackoff
		}
	}

	apiRetryExhaustedTotal.WithLabelValues(string(class)).Inc()
	logger.Warn().
		Str("error_class", string(class)).
		Int("max_attempts", config.MaxAttempts).
		Msg("Retry attempts exhausted")

	return fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, config.MaxAttempts, lastErr)
}
