// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	// Set global log level
	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	// Configure output
	var output io.Writer = cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output}
	}

	// Create logger with timestamp
	logger := zerolog.New(output).With().Timestamp().Logger()

	// Set as global logger
	log.Logger = logger

	return logger
}

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// ValidLevel reports whether level names a known log level.
func ValidLevel(level LogLevel) bool {
	switch strings.ToLower(string(level)) {
	case "debug", "info", "warn", "warning", "error":
		return true
	}
	return false
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Response cache operations (hit/miss, key, TTL)
//   - Strategy decisions (class, source, partition hit)
//   - Janitor sweeps and skipped control messages
//
// Info: Normal operation events
//   - Lifecycle transitions (installing, installed, activated)
//   - Partitions deleted on activation
//   - Connectivity restored, sync drains finished
//   - Server startup/shutdown
//
// Warn: Warning conditions that don't prevent operation
//   - Network failures (offline fallback in use)
//   - Stale API responses served from the dynamic partition
//   - Manifest assets that failed to pre-cache
//   - Retry attempts, failed sync forwards
//
// Error: Error conditions requiring attention
//   - Partition store failures (open, match, put)
//   - Failed API requests after retries
//   - Configuration errors
//
// Context Fields:
//   - component: emitting package (router, lifecycle, bgsync, ...)
//   - class: request class (image, api, navigation, other, passthrough)
//   - source: cache, network or synthesized
//   - partition: partition name (static-v1, dynamic-v1, images-v1)
//   - version: deployed version
//   - endpoint: metadata API path
//   - error_class: client, server, rate_limit, network, offline
//   - key, ttl: response cache entry
