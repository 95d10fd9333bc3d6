package strategy

import (
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"
)

// hopHeaders are connection-scoped and never forwarded.
var hopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// Handler serves routed responses over HTTP, acting as an edge proxy.
//
// Absolute-form request URLs (forward-proxy use) are routed as-is;
// origin-form requests are resolved against base. Install must cache the
// manifest under the same base for static lookups to hit. When base is a
// public origin rather than the upstream itself, give the router a
// Retarget fetcher.
type Handler struct {
	router *Router
	base   *url.URL
	logger zerolog.Logger
}

// NewHandler creates an edge handler. base may be nil when the handler
// only serves forward-proxy requests.
func NewHandler(router *Router, base *url.URL) *Handler {
	if router == nil {
		panic("router cannot be nil")
	}
	return &Handler{
		router: router,
		base:   base,
		logger: router.logger,
	}
}

// ServeHTTP routes r and copies the response to w.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	out, err := h.outbound(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp := h.router.Route(r.Context(), out)
	defer resp.Body.Close()

	// Copy response headers
	for key, values := range resp.Header {
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
	removeHopHeaders(w.Header())

	w.WriteHeader(resp.StatusCode)

	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		h.logger.Warn().Err(err).Str("url", out.URL.String()).Msg("Failed to write response")
	}
}

// outbound builds the request the router resolves.
func (h *Handler) outbound(r *http.Request) (*http.Request, error) {
	target := r.URL
	if !target.IsAbs() {
		if h.base == nil {
			return nil, fmt.Errorf("no upstream configured for %s", r.URL.Path)
		}
		target = rebase(r.URL, h.base)
	}

	out, err := http.NewRequestWithContext(r.Context(), r.Method, target.String(), r.Body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	out.Header = r.Header.Clone()
	out.ContentLength = r.ContentLength
	removeHopHeaders(out.Header)

	return out, nil
}

func removeHopHeaders(header http.Header) {
	for _, key := range hopHeaders {
		header.Del(key)
	}
}
