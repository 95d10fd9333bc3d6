package strategy

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/flix-app/flix-cache/pkg/lifecycle"
	"github.com/flix-app/flix-cache/pkg/logging"
	"github.com/flix-app/flix-cache/pkg/partition"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/flix-app/flix-cache/pkg/strategy"

// classPassthrough labels non-GET requests, which bypass every strategy.
const classPassthrough = "passthrough"

// Fetcher performs a single network round trip.
// *http.Client satisfies it.
type Fetcher interface {
	Do(req *http.Request) (*http.Response, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(req *http.Request) (*http.Response, error)

// Do calls f(req).
func (f FetcherFunc) Do(req *http.Request) (*http.Response, error) {
	return f(req)
}

// NetworkObserver is told the outcome of every network attempt.
type NetworkObserver interface {
	NetworkSucceeded()
	NetworkFailed(err error)
}

// Config configures a Router.
type Config struct {
	// Store holds the durable partitions (REQUIRED).
	Store partition.Store

	// Fetcher performs network requests (REQUIRED). It must not route
	// through this Router.
	Fetcher Fetcher

	// Names are the partitions of the active version.
	Names lifecycle.Names

	// Classifier defaults to DefaultClassifier().
	Classifier *Classifier

	// Origin resolves the shell and offline page for navigation requests
	// whose URL is not absolute (e.g. "http://localhost:8080").
	Origin string

	// Observer is optional.
	Observer NetworkObserver

	// Logger defaults to the "router" component logger.
	Logger *zerolog.Logger
}

// Router resolves every intercepted request with the strategy of its class.
// Route always produces a response: network failures and partition
// failures are caught and funnelled into the next fallback step.
type Router struct {
	store      partition.Store
	fetcher    Fetcher
	names      lifecycle.Names
	classifier Classifier
	origin     string
	observer   NetworkObserver
	tracer     trace.Tracer
	logger     zerolog.Logger
}

// NewRouter creates a router. Panics if Store or Fetcher is nil.
func NewRouter(cfg Config) *Router {
	if cfg.Store == nil {
		panic("partition store cannot be nil")
	}
	if cfg.Fetcher == nil {
		panic("fetcher cannot be nil")
	}

	classifier := DefaultClassifier()
	if cfg.Classifier != nil {
		classifier = *cfg.Classifier
	}

	logger := logging.NewLogger("router")
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	return &Router{
		store:      cfg.Store,
		fetcher:    cfg.Fetcher,
		names:      cfg.Names,
		classifier: classifier,
		origin:     cfg.Origin,
		observer:   cfg.Observer,
		tracer:     otel.Tracer(tracerName),
		logger:     logger,
	}
}

// Names returns the partitions this router reads and writes.
func (r *Router) Names() lifecycle.Names {
	return r.names
}

// Classify returns the class req would be routed as.
func (r *Router) Classify(req *http.Request) Class {
	return r.classifier.Classify(req)
}

// Route resolves req. It never returns nil.
//
// Only GET requests are intercepted. Other methods go straight to the
// network; a network failure becomes a plain-text 503.
func (r *Router) Route(ctx context.Context, req *http.Request) *http.Response {
	start := time.Now()

	ctx, span := r.tracer.Start(ctx, "strategy.Route")
	defer span.End()
	req = req.WithContext(ctx)

	var (
		resp  *http.Response
		label string
	)
	if req.Method != http.MethodGet {
		label = classPassthrough
		resp = r.passthrough(ctx, req)
	} else {
		class := r.classifier.Classify(req)
		label = class.String()

		switch class {
		case ClassImage:
			resp = r.HandleImage(ctx, req)
		case ClassAPI:
			resp = r.HandleAPI(ctx, req)
		case ClassNavigation:
			resp = r.HandleNavigation(ctx, req)
		default:
			resp = r.HandleOther(ctx, req)
		}
	}

	source := resp.Header.Get(HeaderSource)
	span.SetAttributes(
		attribute.String("flix.class", label),
		attribute.String("flix.source", source),
		attribute.Int("http.status_code", resp.StatusCode),
	)
	RouterRequests.WithLabelValues(label, source).Inc()
	RouterDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())

	r.logger.Debug().
		Str("class", label).
		Str("source", source).
		Str("url", req.URL.String()).
		Int("status", resp.StatusCode).
		Msg("Request routed")

	return resp
}

// HandleImage is cache-first with network backfill into the images
// partition. When neither has the image a placeholder SVG is returned.
func (r *Router) HandleImage(ctx context.Context, req *http.Request) *http.Response {
	images := r.open(ctx, r.names.Images)
	if cached := r.match(ctx, images, req); cached != nil {
		return withSource(cached, SourceCache)
	}

	resp, err := r.fetch(ctx, ClassImage.String(), req)
	if err != nil {
		return withSource(PlaceholderImage(req), SourceSynthesized)
	}

	if isOK(resp) {
		r.put(ctx, images, req, resp)
	}
	return withSource(resp, SourceNetwork)
}

// HandleAPI is network-first. Successful responses overwrite the dynamic
// partition entry; on network failure the stored copy is returned however
// old it is, and with no copy the offline JSON payload is synthesized.
func (r *Router) HandleAPI(ctx context.Context, req *http.Request) *http.Response {
	resp, err := r.fetch(ctx, ClassAPI.String(), req)
	if err == nil {
		if isOK(resp) {
			r.put(ctx, r.open(ctx, r.names.Dynamic), req, resp)
		}
		return withSource(resp, SourceNetwork)
	}

	// No freshness check: the dynamic partition has no TTL.
	if cached := r.match(ctx, r.open(ctx, r.names.Dynamic), req); cached != nil {
		r.logger.Warn().Str("url", req.URL.String()).Msg("Serving stale API response")
		return withSource(cached, SourceCache)
	}

	return withSource(OfflineAPI(req), SourceSynthesized)
}

// HandleNavigation is network-first. On network failure the stored shell
// document is returned, then the stored offline page, then a plain 503.
func (r *Router) HandleNavigation(ctx context.Context, req *http.Request) *http.Response {
	resp, err := r.fetch(ctx, ClassNavigation.String(), req)
	if err == nil {
		return withSource(resp, SourceNetwork)
	}

	static := r.open(ctx, r.names.Static)
	if static != nil {
		origin := r.originOf(req)
		for _, path := range []string{lifecycle.ShellPath, lifecycle.OfflinePage} {
			cached, err := static.MatchKey(ctx, http.MethodGet, lifecycle.ResolvePath(origin, path))
			if err == nil {
				return withSource(cached, SourceCache)
			}
			r.partitionError("match", static.Name(), err)
		}
	}

	return withSource(OfflineText(req, "Offline"), SourceSynthesized)
}

// HandleOther is cache-first against the static partition. Network
// responses are written through to the dynamic partition; static is only
// populated at install time.
func (r *Router) HandleOther(ctx context.Context, req *http.Request) *http.Response {
	if cached := r.match(ctx, r.open(ctx, r.names.Static), req); cached != nil {
		return withSource(cached, SourceCache)
	}

	resp, err := r.fetch(ctx, ClassOther.String(), req)
	if err != nil {
		return withSource(OfflineText(req, "Service Unavailable"), SourceSynthesized)
	}

	if isOK(resp) {
		r.put(ctx, r.open(ctx, r.names.Dynamic), req, resp)
	}
	return withSource(resp, SourceNetwork)
}

func (r *Router) passthrough(ctx context.Context, req *http.Request) *http.Response {
	resp, err := r.fetch(ctx, classPassthrough, req)
	if err != nil {
		return withSource(OfflineText(req, "Service Unavailable"), SourceSynthesized)
	}
	return withSource(resp, SourceNetwork)
}

// fetch performs the network attempt and reports its outcome.
func (r *Router) fetch(ctx context.Context, class string, req *http.Request) (*http.Response, error) {
	resp, err := r.fetcher.Do(req)
	if err != nil {
		RouterNetworkFailures.WithLabelValues(class).Inc()
		span := trace.SpanFromContext(ctx)
		span.RecordError(err)
		span.SetStatus(codes.Error, "network failure")

		r.logger.Warn().
			Err(err).
			Str("class", class).
			Str("url", req.URL.String()).
			Msg("Network request failed")

		if r.observer != nil {
			r.observer.NetworkFailed(err)
		}
		return nil, err
	}

	if r.observer != nil {
		r.observer.NetworkSucceeded()
	}
	return resp, nil
}

// open returns nil when the partition cannot be opened.
func (r *Router) open(ctx context.Context, name string) partition.Partition {
	p, err := r.store.Open(ctx, name)
	if err != nil {
		r.partitionError("open", name, err)
		return nil
	}
	return p
}

// match returns nil on miss, on error, or when p is nil.
func (r *Router) match(ctx context.Context, p partition.Partition, req *http.Request) *http.Response {
	if p == nil {
		return nil
	}

	resp, err := p.Match(ctx, req)
	if err != nil {
		r.partitionError("match", p.Name(), err)
		return nil
	}

	r.logger.Debug().Str("partition", p.Name()).Str("url", req.URL.String()).Msg("Partition hit")
	return resp
}

// put stores resp; failures are logged and otherwise ignored.
func (r *Router) put(ctx context.Context, p partition.Partition, req *http.Request, resp *http.Response) {
	if p == nil {
		return
	}
	if err := p.Put(ctx, req, resp); err != nil {
		r.partitionError("put", p.Name(), err)
	}
}

// partitionError records a caught partition failure. Misses are not errors.
func (r *Router) partitionError(operation, name string, err error) {
	if errors.Is(err, partition.ErrCacheMiss) {
		return
	}
	RouterPartitionErrors.WithLabelValues(operation).Inc()
	r.logger.Error().
		Err(err).
		Str("operation", operation).
		Str("partition", name).
		Msg("Partition error, falling through")
}

// originOf returns scheme://host of req, or the configured origin.
func (r *Router) originOf(req *http.Request) string {
	if req.URL.IsAbs() {
		return req.URL.Scheme + "://" + req.URL.Host
	}
	return r.origin
}

func isOK(resp *http.Response) bool {
	return resp.StatusCode >= 200 && resp.StatusCode <= 299
}

func withSource(resp *http.Response, source string) *http.Response {
	if resp.Header == nil {
		resp.Header = http.Header{}
	}
	resp.Header.Set(HeaderSource, source)
	return resp
}
