package partition

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PartitionOperations tracks store operations by backend, operation and result
	PartitionOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flix_partition_operations_total",
			Help: "Total number of durable partition operations",
		},
		[]string{"backend", "operation", "result"}, // "memory"|"redis", "open"|"match"|"put"|..., "ok"|"miss"|"error"
	)

	// PartitionBytesWritten tracks stored response bytes by backend
	PartitionBytesWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flix_partition_bytes_written_total",
			Help: "Total response body bytes written to durable partitions",
		},
		[]string{"backend"},
	)
)

func observe(backend, operation string, err error) {
	result := "ok"
	switch {
	case err == nil:
	case err == ErrCacheMiss:
		result = "miss"
	default:
		result = "error"
	}
	PartitionOperations.WithLabelValues(backend, operation, result).Inc()
}
