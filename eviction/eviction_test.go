package eviction

import (
	"testing"
	"time"

	"github.com/hupe1980/proximity/model"
	"github.com/hupe1980/proximity/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func snap(id model.EntryID, created, accessed time.Duration, count uint64, cost time.Duration, conf float64) store.Snapshot {
	return store.Snapshot{
		ID:             id,
		CreatedAt:      now.Add(-created),
		LastAccessedAt: now.Add(-accessed),
		AccessCount:    count,
		Cost:           cost,
		Confidence:     conf,
	}
}

func allPolicies(floor float64) []Policy {
	return []Policy{
		NewScored(floor, DefaultWeights),
		NewLRU(floor),
		NewLFU(floor),
		NewFIFO(floor),
	}
}

func TestEmpty(t *testing.T) {
	for _, p := range allPolicies(0.5) {
		t.Run(p.Name(), func(t *testing.T) {
			_, ok := p.SelectVictim(nil, now)
			assert.False(t, ok)
		})
	}
}

func TestConfidenceFirst(t *testing.T) {
	entries := []store.Snapshot{
		snap(1, time.Hour, time.Hour, 0, 0, 0.9),
		snap(2, time.Minute, time.Second, 100, time.Second, 0.3),
		snap(3, time.Minute, time.Second, 100, time.Second, 0.2),
	}

	for _, p := range allPolicies(0.5) {
		t.Run(p.Name(), func(t *testing.T) {
			id, ok := p.SelectVictim(entries, now)
			require.True(t, ok)
			assert.Equal(t, model.EntryID(3), id)
		})
	}
}

func TestExpiredTieBreak(t *testing.T) {
	entries := []store.Snapshot{
		snap(5, time.Hour, time.Minute, 3, 0, 0.1),
		snap(4, time.Hour, time.Minute, 2, 0, 0.1),
		snap(6, time.Hour, time.Hour, 2, 0, 0.1),
	}
	id, ok := NewScored(0.5, DefaultWeights).SelectVictim(entries, now)
	require.True(t, ok)
	assert.Equal(t, model.EntryID(6), id)
}

func TestScored(t *testing.T) {
	t.Run("PrefersEvictingColdCheapEntries", func(t *testing.T) {
		entries := []store.Snapshot{
			snap(1, time.Hour, time.Second, 50, 200*time.Millisecond, 1),
			snap(2, time.Hour, time.Hour, 0, time.Millisecond, 1),
			snap(3, time.Hour, time.Minute, 5, 100*time.Millisecond, 1),
		}
		id, ok := NewScored(0, DefaultWeights).SelectVictim(entries, now)
		require.True(t, ok)
		assert.Equal(t, model.EntryID(2), id)
	})

	t.Run("CostKeepsExpensiveEntries", func(t *testing.T) {
		w := Weights{Cost: 1}
		entries := []store.Snapshot{
			snap(1, 0, 0, 0, time.Second, 1),
			snap(2, 0, 0, 0, time.Millisecond, 1),
		}
		id, ok := NewScored(0, w).SelectVictim(entries, now)
		require.True(t, ok)
		assert.Equal(t, model.EntryID(2), id)
	})

	t.Run("TieBreakChain", func(t *testing.T) {
		// Zero weights make every score equal.
		p := NewScored(0, Weights{})

		entries := []store.Snapshot{
			snap(1, 0, time.Minute, 2, 0, 1),
			snap(2, 0, time.Minute, 1, 0, 1),
		}
		id, _ := p.SelectVictim(entries, now)
		assert.Equal(t, model.EntryID(2), id, "lowest access count")

		entries = []store.Snapshot{
			snap(1, 0, time.Minute, 1, 0, 1),
			snap(2, 0, time.Hour, 1, 0, 1),
		}
		id, _ = p.SelectVictim(entries, now)
		assert.Equal(t, model.EntryID(2), id, "oldest access")

		entries = []store.Snapshot{
			snap(9, 0, time.Minute, 1, 0, 1),
			snap(7, 0, time.Minute, 1, 0, 1),
		}
		id, _ = p.SelectVictim(entries, now)
		assert.Equal(t, model.EntryID(7), id, "smallest id")
	})

	t.Run("FutureAccessTimes", func(t *testing.T) {
		entries := []store.Snapshot{
			snap(1, 0, -time.Minute, 1, 0, 1),
			snap(2, 0, -time.Minute, 0, 0, 1),
		}
		id, ok := NewScored(0, DefaultWeights).SelectVictim(entries, now)
		require.True(t, ok)
		assert.Equal(t, model.EntryID(2), id)
	})
}

func TestOrderedPolicies(t *testing.T) {
	entries := []store.Snapshot{
		snap(1, 3*time.Hour, time.Second, 1, 0, 1), // oldest insert, recently used, rare
		snap(2, time.Hour, 2*time.Hour, 10, 0, 1),  // least recently used
		snap(3, 2*time.Hour, time.Minute, 0, 0, 1), // never hit
	}

	tests := []struct {
		policy Policy
		want   model.EntryID
	}{
		{NewLRU(0), 2},
		{NewLFU(0), 3},
		{NewFIFO(0), 1},
	}

	for _, tt := range tests {
		t.Run(tt.policy.Name(), func(t *testing.T) {
			id, ok := tt.policy.SelectVictim(entries, now)
			require.True(t, ok)
			assert.Equal(t, tt.want, id)
		})
	}
}

func TestNewAndParseKind(t *testing.T) {
	for s, want := range map[string]string{"": "Scored", "LRU": "LRU", "lfu": "LFU", "fifo": "FIFO", "scored": "Scored"} {
		k, err := ParseKind(s)
		require.NoError(t, err)
		p, err := New(k, 0.1, DefaultWeights)
		require.NoError(t, err)
		assert.Equal(t, want, p.Name())
	}

	_, err := ParseKind("arc")
	assert.Error(t, err)
	_, err = New(Kind("arc"), 0, DefaultWeights)
	assert.Error(t, err)
}
