package pagination

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/flix-app/flix-cache/pkg/client"
	"github.com/flix-app/flix-cache/pkg/logging"
	"github.com/rs/zerolog"
)

// APIMaxPages is the highest page the metadata API serves.
const APIMaxPages = 500

// Config holds batch fetcher configuration
type Config struct {
	// MaxConcurrency is the maximum number of parallel requests.
	// The metadata API allows roughly 40 requests per 10 seconds.
	MaxConcurrency int

	// Timeout per page fetch
	Timeout time.Duration

	// MaxPages caps how many pages are fetched (at most APIMaxPages)
	MaxPages int

	Logger *zerolog.Logger
}

// DefaultConfig returns safe default configuration
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 5,
		Timeout:        15 * time.Second,
		MaxPages:       APIMaxPages,
	}
}

// PageFetcher fetches a single listing page. *client.Client implements it.
type PageFetcher interface {
	FetchPage(ctx context.Context, endpoint string, page int) (*client.Page, error)
}

// PageResult represents the result of fetching a single page
type PageResult struct {
	PageNumber int
	Page       *client.Page
	Error      error
}

// Result holds every page of one listing.
type Result struct {
	// TotalPages is the page count reported by the API, before capping
	TotalPages int

	// Requested is the number of pages attempted
	Requested int

	Pages  map[int]*client.Page
	Failed map[int]error
}

// Complete reports whether every requested page was fetched.
func (r *Result) Complete() bool {
	return len(r.Failed) == 0 && len(r.Pages) == r.Requested
}

// Items returns the results of all fetched pages in page order.
func (r *Result) Items() []client.Media {
	nums := make([]int, 0, len(r.Pages))
	for n := range r.Pages {
		nums = append(nums, n)
	}
	sort.Ints(nums)

	var items []client.Media
	for _, n := range nums {
		items = append(items, r.Pages[n].Results...)
	}
	return items
}

// BatchFetcher handles parallel fetching of multiple pages
type BatchFetcher struct {
	fetcher PageFetcher
	config  Config
	logger  zerolog.Logger
}

// NewBatchFetcher creates a new batch fetcher
func NewBatchFetcher(fetcher PageFetcher, config Config) *BatchFetcher {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 5
	}
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}
	if config.MaxPages <= 0 || config.MaxPages > APIMaxPages {
		config.MaxPages = APIMaxPages
	}

	logger := logging.NewLogger("pagination")
	if config.Logger != nil {
		logger = *config.Logger
	}

	return &BatchFetcher{
		fetcher: fetcher,
		config:  config,
		logger:  logger,
	}
}

// FetchAllPages fetches all pages of an endpoint in parallel using a worker pool.
// A failed first page is returned as an error. Failures of later pages are
// recorded in Result.Failed; ctx cancellation leaves unfetched pages out of
// both maps and is returned alongside the partial result.
func (bf *BatchFetcher) FetchAllPages(ctx context.Context, endpoint string) (*Result, error) {
	start := time.Now()

	firstCtx, cancel := context.WithTimeout(ctx, bf.config.Timeout)
	first, err := bf.fetcher.FetchPage(firstCtx, endpoint, 1)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch first page: %w", err)
	}

	result := &Result{
		TotalPages: first.TotalPages,
		Requested:  min(max(first.TotalPages, 1), bf.config.MaxPages),
		Pages:      map[int]*client.Page{1: first},
		Failed:     map[int]error{},
	}

	bf.logger.Info().
		Str("endpoint", endpoint).
		Int("total_pages", result.TotalPages).
		Int("requested", result.Requested).
		Msg("Starting parallel page fetch")

	// Single page optimization
	if result.Requested == 1 {
		bf.logger.Info().
			Str("endpoint", endpoint).
			Dur("duration", time.Since(start)).
			Msg("Fetch complete (single page)")
		return result, nil
	}

	pageQueue := make(chan int, result.Requested-1)
	for page := 2; page <= result.Requested; page++ {
		pageQueue <- page
	}
	close(pageQueue)

	pageResults := make(chan PageResult, result.Requested-1)

	var wg sync.WaitGroup
	for i := 0; i < min(bf.config.MaxConcurrency, result.Requested-1); i++ {
		wg.Add(1)
		go bf.worker(ctx, endpoint, pageQueue, pageResults, &wg, i)
	}

	go func() {
		wg.Wait()
		close(pageResults)
	}()

	for r := range pageResults {
		if r.Error != nil {
			result.Failed[r.PageNumber] = r.Error
			continue
		}
		result.Pages[r.PageNumber] = r.Page

		// Progress logging every 50 pages
		if len(result.Pages)%50 == 0 {
			bf.logger.Info().
				Int("fetched", len(result.Pages)).
				Int("total", result.Requested).
				Float64("progress_pct", float64(len(result.Pages))/float64(result.Requested)*100).
				Msg("Fetch progress")
		}
	}

	bf.logger.Info().
		Str("endpoint", endpoint).
		Int("pages", len(result.Pages)).
		Int("failed", len(result.Failed)).
		Int("total", result.Requested).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("fetch cancelled (partial data: %d/%d pages): %w", len(result.Pages), result.Requested, err)
	}
	return result, nil
}

// worker processes pages from the queue
func (bf *BatchFetcher) worker(ctx context.Context, endpoint string, pageQueue <-chan int, results chan<- PageResult, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()
	pagesProcessed := 0

	for pageNum := range pageQueue {
		if ctx.Err() != nil {
			bf.logger.Debug().
				Int("worker_id", workerID).
				Int("pages_processed", pagesProcessed).
				Msg("Worker stopping (context cancelled)")
			return
		}

		pageCtx, cancel := context.WithTimeout(ctx, bf.config.Timeout)
		page, err := bf.fetcher.FetchPage(pageCtx, endpoint, pageNum)
		cancel()

		if err != nil {
			bf.logger.Warn().
				Err(err).
				Int("worker_id", workerID).
				Int("page", pageNum).
				Msg("Page fetch failed")
		}

		// buffered for every page: never blocks
		results <- PageResult{PageNumber: pageNum, Page: page, Error: err}
		pagesProcessed++
	}

	if pagesProcessed > 0 {
		bf.logger.Debug().
			Int("worker_id", workerID).
			Int("pages_processed", pagesProcessed).
			Msg("Worker completed")
	}
}
