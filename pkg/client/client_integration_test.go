//go:build integration

package client

import (
	"context"
	"regexp"
	"testing"

	"github.com/flix-app/flix-cache/internal/testutil"
	"github.com/flix-app/flix-cache/pkg/cache"
	"github.com/flix-app/flix-cache/pkg/lifecycle"
	"github.com/flix-app/flix-cache/pkg/partition"
	"github.com/flix-app/flix-cache/pkg/strategy"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedisContainer creates a Redis container for integration testing.
func setupRedisContainer(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := redisContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := redisContainer.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	cleanup := func() {
		client.Close()
		redisContainer.Terminate(ctx)
	}

	return client, cleanup
}

// redisRoutedClient builds a fresh client and router over a shared Redis
// store, the way a restarted process would.
func redisRoutedClient(t *testing.T, mock *testutil.MockUpstream, rdb *redis.Client) *Client {
	t.Helper()
	classifier := strategy.Classifier{
		APIPatterns: []*regexp.Regexp{regexp.MustCompile("^" + regexp.QuoteMeta(mock.URL()) + "/")},
	}
	router := strategy.NewRouter(strategy.Config{
		Store:      partition.NewRedisStore(rdb),
		Fetcher:    mock.Client(),
		Names:      lifecycle.NamesFor("1"),
		Classifier: &classifier,
		Logger:     &quiet,
	})

	cfg := DefaultConfig("test-key")
	cfg.BaseURL = mock.URL()
	cfg.Cache = cache.New(cache.WithLogger(quiet))
	cfg.Transport = &strategy.Transport{Router: router}
	cfg.Retry = fastRetry
	cfg.Logger = &quiet

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestIntegration_StaleFallbackSurvivesRestart(t *testing.T) {
	rdb, cleanup := setupRedisContainer(t)
	defer cleanup()

	mock := testutil.NewMockUpstream()
	defer mock.Close()
	ctx := context.Background()

	before := redisRoutedClient(t, mock, rdb)
	online, err := before.TopRatedMovies(ctx, 1)
	if err != nil {
		t.Fatalf("online TopRatedMovies() error = %v", err)
	}

	mock.SetFailing(true)
	after := redisRoutedClient(t, mock, rdb)

	offline, err := after.TopRatedMovies(ctx, 1)
	if err != nil {
		t.Fatalf("offline TopRatedMovies() error = %v", err)
	}
	if offline.Results[0].ID != online.Results[0].ID {
		t.Errorf("stale results = %+v, want %+v", offline.Results, online.Results)
	}

	// never fetched while online: nothing to fall back to
	if _, err := after.UpcomingMovies(ctx, 1); !IsOffline(err) {
		t.Errorf("UpcomingMovies() error = %v, want offline", err)
	}
}

func TestIntegration_ResponseCacheShieldsPartition(t *testing.T) {
	rdb, cleanup := setupRedisContainer(t)
	defer cleanup()

	mock := testutil.NewMockUpstream()
	defer mock.Close()
	ctx := context.Background()

	c := redisRoutedClient(t, mock, rdb)
	for i := 0; i < 3; i++ {
		if _, err := c.MovieGenres(ctx); err != nil {
			t.Fatalf("MovieGenres() error = %v", err)
		}
	}

	if mock.CountFor("/genre/movie/list") != 1 {
		t.Errorf("upstream requests = %d, want 1", mock.CountFor("/genre/movie/list"))
	}

	store := partition.NewRedisStore(rdb)
	names, err := store.Names(ctx)
	if err != nil {
		t.Fatalf("Names() error = %v", err)
	}
	if len(names) != 1 || names[0] != "dynamic-v1" {
		t.Errorf("partitions = %v, want [dynamic-v1]", names)
	}
}
