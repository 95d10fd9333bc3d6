package strategy

import "net/http"

// Transport is an http.RoundTripper that resolves requests through a
// Router. A client using it receives the offline fallbacks transparently;
// RoundTrip never returns an error.
type Transport struct {
	Router *Router
}

var _ http.RoundTripper = (*Transport)(nil)

// RoundTrip routes req.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.Router.Route(req.Context(), req), nil
}
