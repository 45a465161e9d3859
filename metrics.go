package proximity

import (
	"sync/atomic"
	"time"

	"golang.org/x/sys/cpu"
)

// RemovalReason describes why an entry left the cache.
type RemovalReason string

const (
	// RemovalCapacity is an eviction to make room for a new entry.
	RemovalCapacity RemovalReason = "capacity"
	// RemovalMemory is an eviction to stay within the memory budget.
	RemovalMemory RemovalReason = "memory"
	// RemovalExpired is the removal of an entry whose confidence fell below the floor.
	RemovalExpired RemovalReason = "expired"
	// RemovalInvalidated is the removal of an entry by an invalidation signal.
	RemovalInvalidated RemovalReason = "invalidated"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; the
// observability package ships a Prometheus implementation.
type MetricsCollector interface {
	// RecordHit is called after every lookup served from cache.
	RecordHit(latency time.Duration)

	// RecordMiss is called after every lookup that went to the backend.
	// err is the backend (or insert) error, nil on success.
	RecordMiss(latency time.Duration, err error)

	// RecordRemoval is called once per removed entry.
	RecordRemoval(reason RemovalReason)

	// RecordRecall is called for every sampled recall measurement.
	RecordRecall(recall float64)

	// RecordSize is called after every structural change.
	RecordSize(entries int, bytes int64)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordHit(time.Duration)         {}
func (NoopMetricsCollector) RecordMiss(time.Duration, error) {}
func (NoopMetricsCollector) RecordRemoval(RemovalReason)     {}
func (NoopMetricsCollector) RecordRecall(float64)            {}
func (NoopMetricsCollector) RecordSize(int, int64)           {}

// counter is an atomic counter padded to its own cache line; hits and misses
// are updated from every serving goroutine.
type counter struct {
	atomic.Int64
	_ cpu.CacheLinePad
}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	HitCount       counter
	HitTotalNanos  counter
	MissCount      counter
	MissErrors     counter
	MissTotalNanos counter
	Evictions      counter
	Expirations    counter
	Invalidations  counter
	RecallSamples  counter
	RecallMicroSum counter
	Entries        counter
	Bytes          counter
}

// RecordHit implements MetricsCollector.
func (b *BasicMetricsCollector) RecordHit(latency time.Duration) {
	b.HitCount.Add(1)
	b.HitTotalNanos.Add(latency.Nanoseconds())
}

// RecordMiss implements MetricsCollector.
func (b *BasicMetricsCollector) RecordMiss(latency time.Duration, err error) {
	b.MissCount.Add(1)
	b.MissTotalNanos.Add(latency.Nanoseconds())
	if err != nil {
		b.MissErrors.Add(1)
	}
}

// RecordRemoval implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRemoval(reason RemovalReason) {
	switch reason {
	case RemovalExpired:
		b.Expirations.Add(1)
	case RemovalInvalidated:
		b.Invalidations.Add(1)
	default:
		b.Evictions.Add(1)
	}
}

// RecordRecall implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRecall(recall float64) {
	b.RecallSamples.Add(1)
	b.RecallMicroSum.Add(int64(recall * 1e6))
}

// RecordSize implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSize(entries int, bytes int64) {
	b.Entries.Store(int64(entries))
	b.Bytes.Store(bytes)
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	s := BasicMetricsStats{
		HitCount:      b.HitCount.Load(),
		MissCount:     b.MissCount.Load(),
		MissErrors:    b.MissErrors.Load(),
		Evictions:     b.Evictions.Load(),
		Expirations:   b.Expirations.Load(),
		Invalidations: b.Invalidations.Load(),
		RecallSamples: b.RecallSamples.Load(),
		Entries:       b.Entries.Load(),
		Bytes:         b.Bytes.Load(),
	}
	if s.HitCount > 0 {
		s.HitAvgNanos = b.HitTotalNanos.Load() / s.HitCount
	}
	if s.MissCount > 0 {
		s.MissAvgNanos = b.MissTotalNanos.Load() / s.MissCount
	}
	if s.RecallSamples > 0 {
		s.AvgRecall = float64(b.RecallMicroSum.Load()) / 1e6 / float64(s.RecallSamples)
	}
	return s
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	HitCount      int64
	HitAvgNanos   int64
	MissCount     int64
	MissErrors    int64
	MissAvgNanos  int64
	Evictions     int64
	Expirations   int64
	Invalidations int64
	RecallSamples int64
	AvgRecall     float64
	Entries       int64
	Bytes         int64
}
