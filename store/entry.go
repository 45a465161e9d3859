package store

import (
	"math"
	"sync/atomic"
	"time"

	"github.com/hupe1980/proximity/model"
)

type confidenceState struct {
	value float64
	at    time.Time
}

// Entry is one cached region.
type Entry struct {
	ID        model.EntryID
	Center    model.Vector
	Radius    float64
	CreatedAt time.Time
	// Cost is the backend latency of the query that produced the entry.
	Cost time.Duration

	payload []byte

	lastAccessed atomic.Int64 // unix nanos
	accessCount  atomic.Uint64
	confidence   atomic.Pointer[confidenceState]
}

// LastAccessedAt returns the time of the most recent hit (CreatedAt if none).
func (e *Entry) LastAccessedAt() time.Time {
	return time.Unix(0, e.lastAccessed.Load())
}

// AccessCount returns the number of hits served by the entry.
func (e *Entry) AccessCount() uint64 {
	return e.accessCount.Load()
}

// BaseConfidence returns the last materialized confidence and its instant.
func (e *Entry) BaseConfidence() (float64, time.Time) {
	c := e.confidence.Load()
	return c.value, c.at
}

// Confidence returns the effective confidence at now under exponential decay.
func (e *Entry) Confidence(now time.Time, decayRate float64) float64 {
	c := e.confidence.Load()
	return Decay(c.value, decayRate, now.Sub(c.at))
}

// Size returns the number of bytes accounted for the entry.
func (e *Entry) Size() int64 {
	return entrySize(e.Center.Dim(), len(e.payload))
}

// Snapshot returns a read-only copy of the entry's metadata.
func (e *Entry) Snapshot(now time.Time, decayRate float64) Snapshot {
	return Snapshot{
		ID:             e.ID,
		Center:         e.Center,
		Radius:         e.Radius,
		CreatedAt:      e.CreatedAt,
		LastAccessedAt: e.LastAccessedAt(),
		AccessCount:    e.AccessCount(),
		Confidence:     e.Confidence(now, decayRate),
		Cost:           e.Cost,
		Size:           e.Size(),
	}
}

// Snapshot is an immutable view of an entry handed to eviction policies and
// invalidation predicates.
type Snapshot struct {
	ID             model.EntryID
	Center         model.Vector
	Radius         float64
	CreatedAt      time.Time
	LastAccessedAt time.Time
	AccessCount    uint64
	// Confidence is the effective (decayed) confidence at snapshot time.
	Confidence float64
	Cost       time.Duration
	Size       int64
}

// Decay evaluates c0 * exp(-rate * dt). Negative dt and rate are treated as zero,
// so the result never exceeds c0.
func Decay(c0, rate float64, dt time.Duration) float64 {
	if rate <= 0 || dt <= 0 {
		return c0
	}
	return c0 * math.Exp(-rate*dt.Seconds())
}

// entryOverhead approximates the fixed per-entry memory cost.
const entryOverhead = 160

func entrySize(dim, payloadLen int) int64 {
	return int64(entryOverhead + 4*dim + payloadLen)
}
