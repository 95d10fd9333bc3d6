package client

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/flix-app/flix-cache/pkg/cache"
)

func pageParams(page int) map[string]string {
	if page < 1 {
		page = 1
	}
	return map[string]string{"page": strconv.Itoa(page)}
}

// SearchMulti searches movies, TV and people.
func (c *Client) SearchMulti(ctx context.Context, query string, page int) (*Page, error) {
	params := pageParams(page)
	params["query"] = query
	return cachedGet[Page](ctx, c, call{
		route: "/search/multi", endpoint: "/search/multi", params: params, ttl: cache.TTLSearch,
	})
}

// PopularMovies returns a page of popular movies.
func (c *Client) PopularMovies(ctx context.Context, page int) (*Page, error) {
	return c.listing(ctx, "/movie/popular", page, cache.TTLListing)
}

// PopularTV returns a page of popular TV series.
func (c *Client) PopularTV(ctx context.Context, page int) (*Page, error) {
	return c.listing(ctx, "/tv/popular", page, cache.TTLListing)
}

// TopRatedMovies returns a page of top-rated movies.
func (c *Client) TopRatedMovies(ctx context.Context, page int) (*Page, error) {
	return c.listing(ctx, "/movie/top_rated", page, cache.TTLListing)
}

// UpcomingMovies returns a page of upcoming movies.
func (c *Client) UpcomingMovies(ctx context.Context, page int) (*Page, error) {
	return c.listing(ctx, "/movie/upcoming", page, cache.TTLListing)
}

// Trending returns trending titles. mediaType is "all", "movie", "tv" or
// "person"; window is "day" or "week".
func (c *Client) Trending(ctx context.Context, mediaType, window string, page int) (*Page, error) {
	return cachedGet[Page](ctx, c, call{
		route:    "/trending/{media_type}/{window}",
		endpoint: fmt.Sprintf("/trending/%s/%s", mediaType, window),
		params:   pageParams(page),
		ttl:      cache.TTLDiscovery,
	})
}

// DiscoverMovies runs a movie discover query. filters are passed as query
// parameters (e.g. "with_genres", "sort_by", "page").
func (c *Client) DiscoverMovies(ctx context.Context, filters map[string]string) (*Page, error) {
	return cachedGet[Page](ctx, c, call{
		route: "/discover/movie", endpoint: "/discover/movie", params: copyParams(filters), ttl: cache.TTLDiscovery,
	})
}

// DiscoverTV runs a TV discover query.
func (c *Client) DiscoverTV(ctx context.Context, filters map[string]string) (*Page, error) {
	return cachedGet[Page](ctx, c, call{
		route: "/discover/tv", endpoint: "/discover/tv", params: copyParams(filters), ttl: cache.TTLDiscovery,
	})
}

// MovieDetails returns the detail record of a movie.
func (c *Client) MovieDetails(ctx context.Context, id int64) (*MovieDetails, error) {
	return cachedGet[MovieDetails](ctx, c, call{
		route: "/movie/{id}", endpoint: fmt.Sprintf("/movie/%d", id), ttl: cache.TTLMetadata,
	})
}

// TVDetails returns the detail record of a TV series.
func (c *Client) TVDetails(ctx context.Context, id int64) (*TVDetails, error) {
	return cachedGet[TVDetails](ctx, c, call{
		route: "/tv/{id}", endpoint: fmt.Sprintf("/tv/%d", id), ttl: cache.TTLMetadata,
	})
}

// MovieVideos returns trailers and clips of a movie.
func (c *Client) MovieVideos(ctx context.Context, id int64) (*VideoList, error) {
	return cachedGet[VideoList](ctx, c, call{
		route: "/movie/{id}/videos", endpoint: fmt.Sprintf("/movie/%d/videos", id), ttl: cache.TTLMetadata,
	})
}

// SimilarMovies returns movies similar to id.
func (c *Client) SimilarMovies(ctx context.Context, id int64, page int) (*Page, error) {
	return cachedGet[Page](ctx, c, call{
		route:    "/movie/{id}/similar",
		endpoint: fmt.Sprintf("/movie/%d/similar", id),
		params:   pageParams(page),
		ttl:      cache.TTLMetadata,
	})
}

// MovieWatchProviders returns where a movie can be watched, per region.
func (c *Client) MovieWatchProviders(ctx context.Context, id int64) (*WatchProviders, error) {
	return cachedGet[WatchProviders](ctx, c, call{
		route:    "/movie/{id}/watch/providers",
		endpoint: fmt.Sprintf("/movie/%d/watch/providers", id),
		ttl:      cache.TTLProviders,
	})
}

// PersonDetails returns the detail record of a person.
func (c *Client) PersonDetails(ctx context.Context, id int64) (*Person, error) {
	return cachedGet[Person](ctx, c, call{
		route: "/person/{id}", endpoint: fmt.Sprintf("/person/%d", id), ttl: cache.TTLProviders,
	})
}

// MovieGenres returns the movie genre list.
func (c *Client) MovieGenres(ctx context.Context) (*GenreList, error) {
	return cachedGet[GenreList](ctx, c, call{
		route: "/genre/movie/list", endpoint: "/genre/movie/list", ttl: cache.TTLReference,
	})
}

// TVGenres returns the TV genre list.
func (c *Client) TVGenres(ctx context.Context) (*GenreList, error) {
	return cachedGet[GenreList](ctx, c, call{
		route: "/genre/tv/list", endpoint: "/genre/tv/list", ttl: cache.TTLReference,
	})
}

// WatchProviderRegions returns the regions with watch-provider data.
func (c *Client) WatchProviderRegions(ctx context.Context) (*RegionList, error) {
	return cachedGet[RegionList](ctx, c, call{
		route: "/watch/providers/regions", endpoint: "/watch/providers/regions", ttl: cache.TTLReference,
	})
}

// FetchPage fetches one page of any listing endpoint, cached for the
// listing TTL. It backs multi-page fetches.
func (c *Client) FetchPage(ctx context.Context, endpoint string, page int) (*Page, error) {
	return c.listing(ctx, endpoint, page, cache.TTLListing)
}

func (c *Client) listing(ctx context.Context, endpoint string, page int, ttl time.Duration) (*Page, error) {
	return cachedGet[Page](ctx, c, call{
		route: endpoint, endpoint: endpoint, params: pageParams(page), ttl: ttl,
	})
}

func copyParams(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
