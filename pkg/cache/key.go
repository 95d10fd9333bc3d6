package cache

import (
	"sort"
	"strings"
)

// Key identifies a cached API response.
type Key struct {
	// Endpoint is the API path (e.g., "/movie/popular")
	Endpoint string

	// Params are the flat query parameters (e.g., {"page": "1"})
	Params map[string]string
}

// String generates a deterministic cache key string.
// Format: endpoint?param1=val1&param2=val2
//
// Parameter names are sorted, so insertion order never changes the key:
//
//	/movie/popular?language=en-US&page=1
func (k Key) String() string {
	if len(k.Params) == 0 {
		return k.Endpoint
	}

	names := make([]string, 0, len(k.Params))
	for name := range k.Params {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, name+"="+k.Params[name])
	}

	return k.Endpoint + "?" + strings.Join(pairs, "&")
}

// GenerateKey is shorthand for Key{Endpoint: endpoint, Params: params}.String().
func GenerateKey(endpoint string, params map[string]string) string {
	return Key{Endpoint: endpoint, Params: params}.String()
}
