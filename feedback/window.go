package feedback

import (
	"sync"
	"time"
)

// WindowSnapshot summarizes a Window at a point in time.
type WindowSnapshot struct {
	At             time.Time
	Hits           uint64
	Misses         uint64
	AvgHitLatency  time.Duration
	AvgMissLatency time.Duration
	RecallSamples  uint64
	// Recall is the mean sampled recall; 1 when there are no samples.
	Recall float64
}

// HitRatio returns hits / (hits + misses), or 0 without traffic.
func (s WindowSnapshot) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

type bucket struct {
	start       int64 // unix nanos of the bucket start, 0 if unused
	hits        uint64
	misses      uint64
	hitLatency  time.Duration
	missLatency time.Duration
	recallSum   float64
	recallN     uint64
}

// Window is a sliding time window split into fixed-width buckets.
type Window struct {
	mu      sync.Mutex
	width   time.Duration
	buckets []bucket
}

// NewWindow creates a window covering size, split into n buckets.
func NewWindow(size time.Duration, n int) *Window {
	if n < 1 {
		n = 1
	}
	if size <= 0 {
		size = time.Minute
	}
	width := size / time.Duration(n)
	if width <= 0 {
		width = 1
	}
	return &Window{width: width, buckets: make([]bucket, n)}
}

// Size returns the total duration covered by the window.
func (w *Window) Size() time.Duration {
	return w.width * time.Duration(len(w.buckets))
}

func (w *Window) bucketFor(now time.Time) *bucket {
	slot := now.UnixNano() / int64(w.width)
	b := &w.buckets[int(slot%int64(len(w.buckets)))]
	start := slot * int64(w.width)
	if b.start != start {
		*b = bucket{start: start}
	}
	return b
}

// RecordHit records a cache hit and its latency.
func (w *Window) RecordHit(latency time.Duration, now time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	b := w.bucketFor(now)
	b.hits++
	b.hitLatency += latency
}

// RecordMiss records a cache miss and its latency.
func (w *Window) RecordMiss(latency time.Duration, now time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	b := w.bucketFor(now)
	b.misses++
	b.missLatency += latency
}

// RecordRecall records one sampled recall value in [0, 1].
func (w *Window) RecordRecall(recall float64, now time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	b := w.bucketFor(now)
	b.recallSum += recall
	b.recallN++
}

// Snapshot aggregates all buckets that fall inside the window ending at now.
func (w *Window) Snapshot(now time.Time) WindowSnapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	cutoff := now.UnixNano() - int64(w.Size())
	var (
		s               = WindowSnapshot{At: now, Recall: 1}
		hitLat, missLat time.Duration
		recallSum       float64
	)
	for i := range w.buckets {
		b := &w.buckets[i]
		if b.start+int64(w.width) <= cutoff || b.start > now.UnixNano() {
			continue
		}
		s.Hits += b.hits
		s.Misses += b.misses
		hitLat += b.hitLatency
		missLat += b.missLatency
		recallSum += b.recallSum
		s.RecallSamples += b.recallN
	}

	if s.Hits > 0 {
		s.AvgHitLatency = hitLat / time.Duration(s.Hits)
	}
	if s.Misses > 0 {
		s.AvgMissLatency = missLat / time.Duration(s.Misses)
	}
	if s.RecallSamples > 0 {
		s.Recall = recallSum / float64(s.RecallSamples)
	}
	return s
}
