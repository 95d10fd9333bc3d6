package partition

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/redis/go-redis/v9"
)

const (
	backendRedis = "redis"

	// DefaultRedisPrefix namespaces all keys written by RedisStore
	DefaultRedisPrefix = "flix"
)

// RedisStore is a Store shared by every process connected to the same Redis.
//
// Layout:
//
//	{prefix}:partitions          SET of partition names
//	{prefix}:partition:{name}    HASH request-key -> JSON Entry
type RedisStore struct {
	redis  *redis.Client
	prefix string
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a Redis-backed store using DefaultRedisPrefix.
func NewRedisStore(redisClient *redis.Client) *RedisStore {
	return NewRedisStoreWithPrefix(redisClient, DefaultRedisPrefix)
}

// NewRedisStoreWithPrefix creates a Redis-backed store under a custom key prefix.
func NewRedisStoreWithPrefix(redisClient *redis.Client, prefix string) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *RedisStore) registryKey() string {
	return s.prefix + ":partitions"
}

func (s *RedisStore) partitionKey(name string) string {
	return s.prefix + ":partition:" + name
}

// Open registers the partition name and returns a handle.
func (s *RedisStore) Open(ctx context.Context, name string) (Partition, error) {
	if err := s.redis.SAdd(ctx, s.registryKey(), name).Err(); err != nil {
		observe(backendRedis, "open", err)
		return nil, fmt.Errorf("%w: open %q: %v", ErrPartitionUnavailable, name, err)
	}
	observe(backendRedis, "open", nil)

	return &redisPartition{store: s, name: name}, nil
}

// Names lists all registered partitions, sorted.
func (s *RedisStore) Names(ctx context.Context) ([]string, error) {
	names, err := s.redis.SMembers(ctx, s.registryKey()).Result()
	if err != nil {
		observe(backendRedis, "names", err)
		return nil, fmt.Errorf("%w: list partitions: %v", ErrPartitionUnavailable, err)
	}
	observe(backendRedis, "names", nil)

	sort.Strings(names)
	return names, nil
}

// Remove deletes the partition hash and its registry entry atomically.
func (s *RedisStore) Remove(ctx context.Context, name string) (bool, error) {
	var srem *redis.IntCmd
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.partitionKey(name))
		srem = pipe.SRem(ctx, s.registryKey(), name)
		return nil
	})
	if err != nil {
		observe(backendRedis, "remove", err)
		return false, fmt.Errorf("redis remove partition %q: %w", name, err)
	}
	observe(backendRedis, "remove", nil)

	return srem.Val() > 0, nil
}

type redisPartition struct {
	store *RedisStore
	name  string
}

func (p *redisPartition) Name() string {
	return p.name
}

func (p *redisPartition) Match(ctx context.Context, req *http.Request) (*http.Response, error) {
	return p.match(ctx, req, keyForRequest(req))
}

func (p *redisPartition) MatchKey(ctx context.Context, method, rawURL string) (*http.Response, error) {
	return p.match(ctx, nil, RequestKey(method, rawURL))
}

func (p *redisPartition) match(ctx context.Context, req *http.Request, key string) (*http.Response, error) {
	data, err := p.store.redis.HGet(ctx, p.store.partitionKey(p.name), key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			observe(backendRedis, "match", ErrCacheMiss)
			return nil, ErrCacheMiss
		}
		observe(backendRedis, "match", err)
		return nil, fmt.Errorf("redis hget: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		observe(backendRedis, "match", err)
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	observe(backendRedis, "match", nil)
	return EntryToResponse(req, &entry), nil
}

func (p *redisPartition) Put(ctx context.Context, req *http.Request, resp *http.Response) error {
	entry, err := ResponseToEntry(req, resp)
	if err != nil {
		observe(backendRedis, "put", err)
		return err
	}

	data, err := json.Marshal(entry)
	if err != nil {
		observe(backendRedis, "put", err)
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	// HSET and SADD run in one transaction so a partition removed while the
	// write was in flight is registered again and stays visible to Names.
	// Last write wins per entry.
	_, err = p.store.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, p.store.partitionKey(p.name), keyForRequest(req), data)
		pipe.SAdd(ctx, p.store.registryKey(), p.name)
		return nil
	})
	if err != nil {
		observe(backendRedis, "put", err)
		return fmt.Errorf("redis hset: %w", err)
	}

	observe(backendRedis, "put", nil)
	PartitionBytesWritten.WithLabelValues(backendRedis).Add(float64(len(entry.Body)))

	return nil
}

func (p *redisPartition) Delete(ctx context.Context, req *http.Request) (bool, error) {
	n, err := p.store.redis.HDel(ctx, p.store.partitionKey(p.name), keyForRequest(req)).Result()
	if err != nil {
		observe(backendRedis, "delete", err)
		return false, fmt.Errorf("redis hdel: %w", err)
	}
	observe(backendRedis, "delete", nil)

	return n > 0, nil
}
