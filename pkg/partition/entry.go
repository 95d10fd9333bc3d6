package partition

import (
	"net/http"
	"time"
)

// Entry represents a stored response capture.
type Entry struct {
	// Body is the full response body
	Body []byte `json:"body"`

	// StatusCode is the HTTP status code of the stored response
	StatusCode int `json:"status_code"`

	// Header are the response headers
	Header http.Header `json:"header"`

	// URL is the request URL the response was stored for
	URL string `json:"url"`

	// StoredAt is when the response was written to the partition
	StoredAt time.Time `json:"stored_at"`
}

// Age returns how long ago the entry was stored.
func (e *Entry) Age() time.Duration {
	return time.Since(e.StoredAt)
}
