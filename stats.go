package proximity

import (
	"github.com/hupe1980/proximity/feedback"
)

// Stats is a point-in-time view of a cache.
type Stats struct {
	Entries  int
	Capacity int
	// Bytes is the accounted size of all entries.
	Bytes int64

	Hits          uint64
	Misses        uint64
	BackendCalls  uint64
	BackendErrors uint64
	// Merges counts misses resolved by an entry a concurrent miss inserted.
	Merges        uint64
	Evictions     uint64
	Expirations   uint64
	Invalidations uint64

	// Window is the sliding-window summary (zero without feedback).
	Window feedback.WindowSnapshot
	// Params are the currently effective adaptive parameters.
	Params feedback.Params
}

// HitRatio returns Hits / (Hits + Misses), or 0 without traffic.
func (s Stats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}
