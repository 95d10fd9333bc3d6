// Package cache provides the in-memory response cache used by the metadata
// API client.
//
// The cache is a keyed store with per-entry expiry:
//
// - Deterministic key generation (parameter order never matters)
// - Lazy expiry on read: an entry is valid while now < expiresAt
// - Optional janitor sweep for memory hygiene
// - Prometheus metrics for observability
//
// # Basic Usage
//
//	responses := cache.New()
//
//	key := cache.GenerateKey("/movie/popular", map[string]string{"page": "1"})
//
//	if value, ok := responses.Get(key); ok {
//		return value.(*PagedResults), nil
//	}
//
//	// Cache miss - fetch from the API, then populate
//	responses.Set(key, results, cache.TTLListing)
//
// # TTL Policy
//
// Callers choose the TTL by data volatility:
//
//   - TTLSearch (2m) - search results
//   - TTLListing (5m) - popular/top-rated/upcoming
//   - TTLDiscovery (10m) - trending and discover listings
//   - TTLMetadata (30m) - details, videos, seasons
//   - TTLProviders (1h) - watch providers, credits, people
//   - TTLReference (24h) - genre lists, provider regions
//
// # Metrics
//
//   - flix_response_cache_hits_total - Cache hits
//   - flix_response_cache_misses_total - Cache misses
//   - flix_response_cache_evictions_total{reason} - Removed entries
//   - flix_response_cache_entries - Live entries
//
// A ResponseCache is owned by exactly one API client. Create a fresh one per
// test instead of resetting shared state.
package cache
