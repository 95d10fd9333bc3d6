// Package partition provides the durable, named-partition response store used
// by the request-strategy router.
//
// A Store holds independently lifecycled partitions (e.g. "static-v1",
// "dynamic-v1", "images-v1"). Each partition maps a request identity
// (method + URL) to a captured response. No TTL is stored: freshness is
// decided by the strategy that reads the partition.
//
// Two backends are provided:
//
//   - MemoryStore - process-local, the default
//   - RedisStore - shared by every process using the same Redis, the
//     analogue of an origin-wide browser cache shared across tabs
//
// # Basic Usage
//
//	store := partition.NewRedisStore(redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	}))
//
//	images, err := store.Open(ctx, "images-v1")
//	if err != nil {
//		// errors.Is(err, partition.ErrPartitionUnavailable): go to network
//	}
//
//	resp, err := images.Match(ctx, req)
//	if err == partition.ErrCacheMiss {
//		// fetch, then images.Put(ctx, req, networkResp)
//	}
//
// # Concurrency
//
// Every operation is atomic on its own. There is no multi-key transaction
// and no single-flight: two processes that miss on the same request both
// fetch and both Put, and the later Put wins.
//
// # Metrics
//
//   - flix_partition_operations_total{backend,operation,result}
//   - flix_partition_bytes_written_total{backend}
package partition
