//go:build integration

package partition

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedisContainer starts a Redis container and returns a client
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

	endpoint, err := redisContainer.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get Redis endpoint: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: endpoint,
	})

	// Test connection
	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("Failed to connect to Redis: %v", err)
	}

	cleanup := func() {
		client.Close()
		redisContainer.Terminate(ctx)
	}

	return client, cleanup
}

func TestRedisStore_Integration_Contract(t *testing.T) {
	client, cleanup := setupRedisContainer(t)
	defer cleanup()

	testStoreContract(t, NewRedisStore(client))
}

// TestRedisStore_Integration_SharedAcrossClients models two tabs sharing one origin cache
func TestRedisStore_Integration_SharedAcrossClients(t *testing.T) {
	client, cleanup := setupRedisContainer(t)
	defer cleanup()

	second := redis.NewClient(&redis.Options{Addr: client.Options().Addr})
	defer second.Close()

	ctx := context.Background()
	tabA := NewRedisStore(client)
	tabB := NewRedisStore(second)

	pa, _ := tabA.Open(ctx, "dynamic-v1")
	pb, _ := tabB.Open(ctx, "dynamic-v1")

	var wg sync.WaitGroup
	for i, p := range []Partition{pa, pb} {
		wg.Add(1)
		go func(i int, p Partition) {
			defer wg.Done()
			req, _ := http.NewRequest("GET", "https://api.themoviedb.org/3/movie/popular?page=1", nil)
			if err := p.Put(ctx, req, newResponse(200, `{"tab":`+string(rune('0'+i))+`}`)); err != nil {
				t.Errorf("Put() error = %v", err)
			}
		}(i, p)
	}
	wg.Wait()

	req, _ := http.NewRequest("GET", "https://api.themoviedb.org/3/movie/popular?page=1", nil)
	fromA, err := pa.Match(ctx, req)
	if err != nil {
		t.Fatalf("Match() via tab A error = %v", err)
	}
	fromB, err := pb.Match(ctx, req)
	if err != nil {
		t.Fatalf("Match() via tab B error = %v", err)
	}

	bodyA, bodyB := readBody(t, fromA), readBody(t, fromB)
	if bodyA != bodyB {
		t.Errorf("tabs disagree after last-write-wins: %q vs %q", bodyA, bodyB)
	}
	if bodyA != `{"tab":0}` && bodyA != `{"tab":1}` {
		t.Errorf("unexpected body %q", bodyA)
	}
}
