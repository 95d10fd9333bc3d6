// Package pagination provides parallel batch fetching for paginated
// metadata API listings.
//
// Listing responses report total_pages in their body, so the first page
// is always fetched alone; the remaining pages are distributed over a
// bounded worker pool. The metadata API never serves pages beyond 500.
//
// Example usage:
//
//	fetcher := pagination.NewBatchFetcher(apiClient, pagination.DefaultConfig())
//	result, err := fetcher.FetchAllPages(ctx, "/movie/popular")
//	movies := result.Items()
//
// The batch fetcher:
//   - Fetches the first page to learn the page count (failure is fatal)
//   - Caps the page count at MaxPages
//   - Spawns a worker pool (default 5 workers)
//   - Records per-page failures and returns everything else
//
// Pages go through the client, so pages still live in the response cache
// are not fetched again.
package pagination
