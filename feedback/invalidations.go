package feedback

import (
	"math"
	"sync"
	"time"

	"github.com/hupe1980/proximity/distance"
	"github.com/hupe1980/proximity/model"
)

type invalidation struct {
	center []float32
	at     time.Time
}

// InvalidationLog is a bounded ring of recently invalidated region centers.
type InvalidationLog struct {
	mu     sync.Mutex
	metric distance.Metric
	ttl    time.Duration
	ring   []invalidation
	next   int
	full   bool
}

// NewInvalidationLog keeps up to size invalidations for at most ttl.
func NewInvalidationLog(metric distance.Metric, size int, ttl time.Duration) *InvalidationLog {
	if size < 1 {
		size = 1
	}
	return &InvalidationLog{
		metric: metric,
		ttl:    ttl,
		ring:   make([]invalidation, size),
	}
}

// Record remembers that a region centered at center was invalidated.
func (l *InvalidationLog) Record(center model.Vector, at time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.ring[l.next] = invalidation{center: l.metric.Embed(center.View()), at: at}
	l.next = (l.next + 1) % len(l.ring)
	if l.next == 0 {
		l.full = true
	}
}

// CountNear returns how many unexpired invalidations lie within radius of v.
func (l *InvalidationLog) CountNear(v model.Vector, radius float64, now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := l.next
	if l.full {
		n = len(l.ring)
	}

	q := l.metric.Embed(v.View())
	limit := l.metric.ToEmbedded(radius)

	count := 0
	for i := 0; i < n; i++ {
		inv := &l.ring[i]
		if l.ttl > 0 && now.Sub(inv.at) > l.ttl {
			continue
		}
		if len(inv.center) != len(q) {
			continue
		}
		if math.Sqrt(float64(distance.SquaredL2(q, inv.center))) <= limit {
			count++
		}
	}
	return count
}
