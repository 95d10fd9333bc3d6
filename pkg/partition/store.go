package partition

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
)

var (
	// ErrCacheMiss indicates no stored response matched the request
	ErrCacheMiss = errors.New("cache miss")

	// ErrPartitionUnavailable indicates the backing store could not be reached
	ErrPartitionUnavailable = errors.New("partition unavailable")

	// ErrInvalidEntry indicates a stored entry is invalid or corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Store is a durable, named-partition response store.
// Implementations must be safe for concurrent use; each single operation is
// atomic, and concurrent writes to the same request are last-write-wins.
type Store interface {
	// Open returns the named partition, creating it if needed.
	Open(ctx context.Context, name string) (Partition, error)

	// Names lists all existing partitions, sorted.
	Names(ctx context.Context) ([]string, error)

	// Remove deletes a partition and all its entries.
	// Returns false if the partition did not exist.
	Remove(ctx context.Context, name string) (bool, error)
}

// Partition holds responses keyed by request identity (method + URL).
// No TTL is stored: freshness is decided by the caller's strategy.
type Partition interface {
	// Name returns the partition name.
	Name() string

	// Match returns a fresh copy of the response stored for req.
	// Returns ErrCacheMiss if nothing is stored.
	Match(ctx context.Context, req *http.Request) (*http.Response, error)

	// MatchKey is Match for a request identified only by method and URL.
	MatchKey(ctx context.Context, method, rawURL string) (*http.Response, error)

	// Put stores resp for req, replacing any previous entry. The response
	// body is read and restored so the caller can still deliver it.
	Put(ctx context.Context, req *http.Request, resp *http.Response) error

	// Delete removes the entry for req. Returns false if none existed.
	Delete(ctx context.Context, req *http.Request) (bool, error)
}

// RequestKey builds the entry identity for a request.
// Format: METHOD absolute-url (fragment stripped)
//
// Example:
//
//	GET https://api.themoviedb.org/3/movie/popular?page=1
func RequestKey(method, rawURL string) string {
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = http.MethodGet
	}

	if u, err := url.Parse(rawURL); err == nil {
		u.Fragment = ""
		u.RawFragment = ""
		rawURL = u.String()
	}

	return method + " " + rawURL
}

// keyForRequest returns the entry identity of req.
func keyForRequest(req *http.Request) string {
	if req == nil || req.URL == nil {
		return RequestKey(http.MethodGet, "")
	}
	return RequestKey(req.Method, req.URL.String())
}
