package strategy

import (
	"net/http"
	"net/url"
	"strings"
)

// Retarget returns a Fetcher that sends requests addressed to origin to
// upstream instead. Requests for any other host pass through unchanged.
//
// Callers keep addressing, and therefore caching, by origin; only the
// network round trip goes to upstream.
func Retarget(next Fetcher, origin string, upstream *url.URL) Fetcher {
	from, err := url.Parse(origin)
	if err != nil || from.Host == "" || upstream == nil {
		return next
	}

	return FetcherFunc(func(req *http.Request) (*http.Response, error) {
		if !sameOrigin(req.URL, from) {
			return next.Do(req)
		}
		out := req.Clone(req.Context())
		out.URL = rebase(req.URL, upstream)
		out.Host = ""
		return next.Do(out)
	})
}

// rebase moves u onto base's scheme and host, prefixing base's path.
func rebase(u, base *url.URL) *url.URL {
	target := *u
	target.Scheme = base.Scheme
	target.Host = base.Host
	target.Path = strings.TrimRight(base.Path, "/") + u.Path
	target.RawPath = ""
	return &target
}

func sameOrigin(a, b *url.URL) bool {
	return strings.EqualFold(a.Scheme, b.Scheme) && strings.EqualFold(a.Host, b.Host)
}
