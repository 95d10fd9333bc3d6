package lifecycle

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/flix-app/flix-cache/pkg/logging"
	"github.com/flix-app/flix-cache/pkg/partition"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DefaultInstallConcurrency bounds parallel manifest fetches.
const DefaultInstallConcurrency = 4

// Fetcher performs a single network round trip.
// *http.Client satisfies it.
type Fetcher interface {
	Do(req *http.Request) (*http.Response, error)
}

// InstallParams are the capabilities Install needs.
type InstallParams struct {
	Store   partition.Store
	Fetcher Fetcher

	// Origin is the scheme and host the manifest paths are resolved against
	// (e.g. "http://localhost:8080").
	Origin string

	// Manifest defaults to DefaultManifest.
	Manifest []string

	Names Names

	// Concurrency defaults to DefaultInstallConcurrency.
	Concurrency int

	// Logger defaults to the "lifecycle" component logger.
	Logger *zerolog.Logger
}

// AssetFailure records one manifest asset that could not be pre-cached.
type AssetFailure struct {
	Path string
	Err  error
}

// InstallReport summarises a pre-cache run.
type InstallReport struct {
	Partition string
	Cached    []string
	Failed    []AssetFailure
	Duration  time.Duration
}

// Complete reports whether every manifest asset was cached.
func (r InstallReport) Complete() bool {
	return len(r.Failed) == 0
}

// Install pre-populates the static partition with the manifest assets.
//
// Assets are fetched concurrently. A failed asset is logged and reported but
// never aborts the run; the only returned error is failure to open the
// static partition, which callers should also treat as non-fatal.
func Install(ctx context.Context, p InstallParams) (InstallReport, error) {
	start := time.Now()
	logger := componentLogger(p.Logger)

	manifest := p.Manifest
	if manifest == nil {
		manifest = DefaultManifest
	}
	concurrency := p.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultInstallConcurrency
	}

	report := InstallReport{Partition: p.Names.Static}

	static, err := p.Store.Open(ctx, p.Names.Static)
	if err != nil {
		logger.Error().Err(err).Str("partition", p.Names.Static).Msg("Failed to open static partition")
		report.Duration = time.Since(start)
		return report, fmt.Errorf("open static partition: %w", err)
	}

	logger.Info().
		Str("partition", p.Names.Static).
		Int("assets", len(manifest)).
		Msg("Caching static files")

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, path := range manifest {
		g.Go(func() error {
			err := precache(gctx, p.Fetcher, static, p.Origin, path)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.Warn().Err(err).Str("asset", path).Msg("Failed to cache static file")
				PrecacheAssets.WithLabelValues("error").Inc()
				report.Failed = append(report.Failed, AssetFailure{Path: path, Err: err})
				return nil
			}
			PrecacheAssets.WithLabelValues("ok").Inc()
			report.Cached = append(report.Cached, path)
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	sort.Strings(report.Cached)
	sort.Slice(report.Failed, func(i, j int) bool { return report.Failed[i].Path < report.Failed[j].Path })
	report.Duration = time.Since(start)

	logger.Info().
		Str("partition", p.Names.Static).
		Int("cached", len(report.Cached)).
		Int("failed", len(report.Failed)).
		Dur("duration", report.Duration).
		Msg("Install complete")

	return report, nil
}

func precache(ctx context.Context, fetcher Fetcher, static partition.Partition, origin, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ResolvePath(origin, path), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := fetcher.Do(req)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("fetch: unexpected status %d", resp.StatusCode)
	}

	if err := static.Put(ctx, req, resp); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	return nil
}

// ResolvePath joins an origin and an absolute path.
func ResolvePath(origin, path string) string {
	return strings.TrimRight(origin, "/") + "/" + strings.TrimLeft(path, "/")
}

func componentLogger(l *zerolog.Logger) zerolog.Logger {
	if l != nil {
		return *l
	}
	return logging.NewLogger("lifecycle")
}
