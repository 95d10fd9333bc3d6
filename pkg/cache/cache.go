package cache

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultTTL is used when a caller stores a value without a positive TTL
	DefaultTTL = 5 * time.Minute

	// DefaultSweepInterval is how often the janitor sweeps expired entries
	DefaultSweepInterval = 5 * time.Minute
)

// Per-call-site TTL policy, chosen by data volatility.
const (
	// TTLSearch applies to search/query results
	TTLSearch = 2 * time.Minute

	// TTLListing applies to popular/top-rated/upcoming listings
	TTLListing = 5 * time.Minute

	// TTLDiscovery applies to trending and discover listings
	TTLDiscovery = 10 * time.Minute

	// TTLMetadata applies to details, videos, seasons and similar titles
	TTLMetadata = 30 * time.Minute

	// TTLProviders applies to watch providers, credits, keywords and people
	TTLProviders = 60 * time.Minute

	// TTLReference applies to near-static reference data (genres, provider regions)
	TTLReference = 24 * time.Hour
)

// Stats is a snapshot of the cache contents.
type Stats struct {
	Size int      `json:"size"`
	Keys []string `json:"keys"`
}

// ResponseCache is an in-memory key/value store with per-entry expiry.
//
// Expiry is enforced lazily in Get; Cleanup and the janitor only reclaim
// memory. There is no single-flight: two concurrent misses for the same key
// both fetch and both Set, and the later Set wins.
type ResponseCache struct {
	mu         sync.Mutex
	entries    map[string]*Entry
	now        func() time.Time
	defaultTTL time.Duration
	logger     zerolog.Logger
}

// Option configures a ResponseCache.
type Option func(*ResponseCache)

// WithClock replaces the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(c *ResponseCache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithDefaultTTL sets the TTL used when Set receives ttl <= 0.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(c *ResponseCache) {
		if ttl > 0 {
			c.defaultTTL = ttl
		}
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *ResponseCache) {
		c.logger = logger
	}
}

// New creates an empty response cache.
func New(opts ...Option) *ResponseCache {
	c := &ResponseCache{
		entries:    make(map[string]*Entry),
		now:        time.Now,
		defaultTTL: DefaultTTL,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Set stores value under key, expiring ttl from now.
// Any existing entry for key is overwritten.
func (c *ResponseCache) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if _, exists := c.entries[key]; !exists {
		CacheEntries.Inc()
	}
	c.entries[key] = &Entry{
		Key:       key,
		Value:     value,
		CachedAt:  now,
		ExpiresAt: now.Add(ttl),
	}

	c.logger.Debug().
		Str("key", key).
		Dur("ttl", ttl).
		Msg("Cached response")
}

// Get returns the value stored under key if it has not expired.
// An expired entry is evicted and reported as a miss.
func (c *ResponseCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[key]
	if !exists {
		CacheMisses.Inc()
		c.logger.Debug().Str("key", key).Msg("Cache miss")
		return nil, false
	}

	now := c.now()
	if entry.IsExpired(now) {
		delete(c.entries, key)
		CacheEntries.Dec()
		CacheEvictions.WithLabelValues("expired").Inc()
		CacheMisses.Inc()
		c.logger.Debug().Str("key", key).Msg("Cache entry expired")
		return nil, false
	}

	CacheHits.Inc()
	c.logger.Debug().Str("key", key).Dur("ttl", entry.TTL(now)).Msg("Cache hit")
	return entry.Value, true
}

// Has reports whether Get would hit for key.
func (c *ResponseCache) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Cleanup evicts every entry whose expiry has passed and returns how many
// were removed.
func (c *ResponseCache) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, entry := range c.entries {
		if entry.IsExpired(now) {
			delete(c.entries, key)
			removed++
		}
	}

	if removed > 0 {
		CacheEntries.Sub(float64(removed))
		CacheEvictions.WithLabelValues("sweep").Add(float64(removed))
		c.logger.Debug().Int("removed", removed).Msg("Swept expired cache entries")
	}

	return removed
}

// Clear removes every entry.
func (c *ResponseCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n := len(c.entries); n > 0 {
		CacheEntries.Sub(float64(n))
		CacheEvictions.WithLabelValues("clear").Add(float64(n))
	}
	c.entries = make(map[string]*Entry)
}

// Len returns the number of stored entries, including expired ones not yet
// evicted.
func (c *ResponseCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns the current size and the sorted list of keys.
func (c *ResponseCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.entries))
	for key := range c.entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	return Stats{Size: len(keys), Keys: keys}
}

// StartJanitor runs Cleanup every interval until ctx is cancelled.
// The returned channel is closed once the janitor has stopped.
func (c *ResponseCache) StartJanitor(ctx context.Context, interval time.Duration) <-chan struct{} {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	done := make(chan struct{})
	go func() {
		defer close(done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.Cleanup()
			}
		}
	}()

	return done
}
