package eviction

import (
	"math"
	"time"

	"github.com/hupe1980/proximity/model"
	"github.com/hupe1980/proximity/store"
)

// Weights of the keep-score terms. Terms are normalized to [0, 1] across
// the candidate set before weighting.
type Weights struct {
	Recency    float64
	Frequency  float64
	Cost       float64
	Confidence float64
}

// DefaultWeights favors recency and frequency, then recomputation cost.
var DefaultWeights = Weights{
	Recency:    0.4,
	Frequency:  0.3,
	Cost:       0.2,
	Confidence: 0.1,
}

// Scored evicts the entry with the lowest weighted keep-score.
type Scored struct {
	floor   float64
	weights Weights
}

// NewScored returns a weighted keep-score policy.
func NewScored(floor float64, w Weights) *Scored {
	return &Scored{floor: floor, weights: w}
}

func (*Scored) Name() string { return "Scored" }

// SelectVictim implements Policy.
func (s *Scored) SelectVictim(entries []store.Snapshot, now time.Time) (model.EntryID, bool) {
	if len(entries) == 0 {
		return 0, false
	}
	if id, ok := expired(entries, s.floor); ok {
		return id, true
	}

	var maxAge time.Duration
	var maxCount uint64
	var maxCost time.Duration
	for i := range entries {
		e := &entries[i]
		maxAge = max(maxAge, age(now, e))
		maxCount = max(maxCount, e.AccessCount)
		maxCost = max(maxCost, e.Cost)
	}

	victim := &entries[0]
	victimScore := s.score(victim, now, maxAge, maxCount, maxCost)
	for i := 1; i < len(entries); i++ {
		e := &entries[i]
		sc := s.score(e, now, maxAge, maxCount, maxCost)
		if sc < victimScore || (sc == victimScore && tieBreak(e, victim)) {
			victim, victimScore = e, sc
		}
	}
	return victim.ID, true
}

func (s *Scored) score(e *store.Snapshot, now time.Time, maxAge time.Duration, maxCount uint64, maxCost time.Duration) float64 {
	recency := 1.0
	if maxAge > 0 {
		recency = 1 - float64(age(now, e))/float64(maxAge)
	}

	frequency := 0.0
	if maxCount > 0 {
		frequency = math.Log1p(float64(e.AccessCount)) / math.Log1p(float64(maxCount))
	}

	cost := 0.0
	if maxCost > 0 {
		cost = float64(e.Cost) / float64(maxCost)
	}

	return s.weights.Recency*recency +
		s.weights.Frequency*frequency +
		s.weights.Cost*cost +
		s.weights.Confidence*e.Confidence
}

func age(now time.Time, e *store.Snapshot) time.Duration {
	if d := now.Sub(e.LastAccessedAt); d > 0 {
		return d
	}
	return 0
}
