// Package strategy resolves intercepted requests from the durable
// partition store, the network, or a synthesized fallback.
//
// Every GET request is classified exactly once, first match wins:
//
//	image       Sec-Fetch-Dest: image, or a path containing /t/p/
//	api         URL matches the API allowlist
//	navigation  Sec-Fetch-Mode: navigate
//	other       everything else (static assets)
//
// and resolved with the strategy of its class:
//
//	image       cache-first (images partition), network backfill, placeholder SVG
//	api         network-first, write to dynamic, stale fallback, offline JSON 503
//	navigation  network-first, stored shell, stored offline page, text 503
//	other       cache-first (static partition), write-through to dynamic, text 503
//
// Router.Route always returns a response. Partition failures fall through
// to the next step and network failures trigger the fallbacks above.
//
// Concurrent requests for the same resource may both miss and both fetch;
// partition writes are last-write-wins with no single-flight.
//
// Router is exposed three ways: directly via Route, as an http.RoundTripper
// (Transport) for in-process clients, and as an http.Handler (Handler) for
// an edge proxy:
//
//	router := strategy.NewRouter(strategy.Config{
//		Store:   partition.NewRedisStore(redisClient),
//		Fetcher: &http.Client{Timeout: 10 * time.Second},
//		Names:   lifecycle.NamesFor("1"),
//	})
//	apiClient := &http.Client{Transport: &strategy.Transport{Router: router}}
package strategy
