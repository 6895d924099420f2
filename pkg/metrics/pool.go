package metrics

import (
	"time"
)

// PoolMetrics provides observability for database connection pool usage.
//
// This interface is optional - pass nil to disable metrics collection with
// zero overhead.
type PoolMetrics interface {
	// RecordAcquire records an attempt to lease a connection from the pool.
	// outcome is "ok", "timeout" or "error".
	RecordAcquire(duration time.Duration, outcome string)

	// RecordRetry records a retried operation after a transient failure.
	RecordRetry()

	// RecordHealthCheck records a background health probe result.
	RecordHealthCheck(healthy bool)

	// SetConnStats updates the pool sizing gauges.
	SetConnStats(total, idle, inUse int32)
}
