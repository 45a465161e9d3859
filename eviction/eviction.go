// Package eviction selects victims when the cache is at capacity.
//
// Every policy is confidence-first: entries whose effective confidence is
// below the configured floor are evicted before anything else, lowest
// confidence first. Among the remaining entries each policy applies its own
// ordering; exact ties are broken by lowest AccessCount, then oldest
// LastAccessedAt, then smallest EntryID.
package eviction

import (
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/proximity/model"
	"github.com/hupe1980/proximity/store"
)

// Policy chooses a single victim among the given entries.
// It returns false only when entries is empty.
type Policy interface {
	Name() string
	SelectVictim(entries []store.Snapshot, now time.Time) (model.EntryID, bool)
}

// Kind identifies a built-in eviction strategy.
type Kind string

const (
	// KindScored weighs recency, frequency, recomputation cost and confidence.
	KindScored Kind = "scored"
	// KindLRU evicts the least recently used entry.
	KindLRU Kind = "lru"
	// KindLFU evicts the least frequently used entry.
	KindLFU Kind = "lfu"
	// KindFIFO evicts the oldest inserted entry.
	KindFIFO Kind = "fifo"
)

// ParseKind parses a policy name as used in configuration files.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return KindScored, nil
	case KindScored, KindLRU, KindLFU, KindFIFO:
		return k, nil
	default:
		return "", fmt.Errorf("unknown eviction policy: %q", s)
	}
}

// New returns the built-in policy of the given kind.
func New(kind Kind, floor float64, weights Weights) (Policy, error) {
	switch kind {
	case KindScored, "":
		return NewScored(floor, weights), nil
	case KindLRU:
		return NewLRU(floor), nil
	case KindLFU:
		return NewLFU(floor), nil
	case KindFIFO:
		return NewFIFO(floor), nil
	default:
		return nil, fmt.Errorf("unknown eviction policy: %q", kind)
	}
}

// tieBreak reports whether a should be evicted before b when their primary
// keys are equal.
func tieBreak(a, b *store.Snapshot) bool {
	if a.AccessCount != b.AccessCount {
		return a.AccessCount < b.AccessCount
	}
	if !a.LastAccessedAt.Equal(b.LastAccessedAt) {
		return a.LastAccessedAt.Before(b.LastAccessedAt)
	}
	return a.ID < b.ID
}

// expired picks the lowest-confidence entry below floor, if any.
func expired(entries []store.Snapshot, floor float64) (model.EntryID, bool) {
	var victim *store.Snapshot
	for i := range entries {
		e := &entries[i]
		if e.Confidence >= floor {
			continue
		}
		if victim == nil || e.Confidence < victim.Confidence ||
			(e.Confidence == victim.Confidence && tieBreak(e, victim)) {
			victim = e
		}
	}
	if victim == nil {
		return 0, false
	}
	return victim.ID, true
}

// ordered is a Policy defined by a "evict a before b" comparison.
type ordered struct {
	name   string
	floor  float64
	before func(a, b *store.Snapshot) bool
}

func (p *ordered) Name() string { return p.name }

func (p *ordered) SelectVictim(entries []store.Snapshot, _ time.Time) (model.EntryID, bool) {
	if id, ok := expired(entries, p.floor); ok {
		return id, true
	}
	var victim *store.Snapshot
	for i := range entries {
		e := &entries[i]
		if victim == nil || p.before(e, victim) {
			victim = e
		}
	}
	if victim == nil {
		return 0, false
	}
	return victim.ID, true
}

// NewLRU returns a least-recently-used policy.
func NewLRU(floor float64) Policy {
	return &ordered{name: "LRU", floor: floor, before: func(a, b *store.Snapshot) bool {
		if !a.LastAccessedAt.Equal(b.LastAccessedAt) {
			return a.LastAccessedAt.Before(b.LastAccessedAt)
		}
		return tieBreak(a, b)
	}}
}

// NewLFU returns a least-frequently-used policy.
func NewLFU(floor float64) Policy {
	return &ordered{name: "LFU", floor: floor, before: tieBreak}
}

// NewFIFO returns a first-in-first-out policy.
func NewFIFO(floor float64) Policy {
	return &ordered{name: "FIFO", floor: floor, before: func(a, b *store.Snapshot) bool {
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	}}
}
