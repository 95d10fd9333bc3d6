package cache

import (
	"time"
)

// Entry represents a cached API response payload.
type Entry struct {
	// Key is the generated cache key
	Key string

	// Value is the decoded response payload
	Value any

	// CachedAt is when the value was stored
	CachedAt time.Time

	// ExpiresAt is the first instant at which the entry is no longer valid
	ExpiresAt time.Time
}

// IsExpired reports whether the entry is invalid at now.
// An entry is valid while now < ExpiresAt.
func (e *Entry) IsExpired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// TTL returns the time until expiration.
// Returns 0 if already expired.
func (e *Entry) TTL(now time.Time) time.Duration {
	ttl := e.ExpiresAt.Sub(now)
	if ttl < 0 {
		return 0
	}
	return ttl
}
