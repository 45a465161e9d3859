package store

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/hupe1980/proximity/codec"
	"github.com/hupe1980/proximity/internal/resource"
	"github.com/hupe1980/proximity/model"
)

var (
	// ErrCapacityExceeded is returned by Put when the store is full.
	// The caller must evict first; the store never drops entries on its own.
	ErrCapacityExceeded = errors.New("store: capacity exceeded")

	// ErrInvalidRadius is returned for negative or NaN radii.
	ErrInvalidRadius = errors.New("store: radius must be >= 0")

	// ErrInvalidCapacity is returned for a non-positive capacity.
	ErrInvalidCapacity = errors.New("store: capacity must be > 0")

	// ErrEntryTooLarge is returned when a single entry exceeds the whole
	// memory limit. No amount of eviction makes room for it.
	ErrEntryTooLarge = errors.New("store: entry exceeds memory limit")
)

// Record describes a new entry.
type Record struct {
	Center     model.Vector
	Radius     float64
	Result     model.Result
	Cost       time.Duration
	Confidence float64
	CreatedAt  time.Time
}

// Options contains configuration options for the store.
type Options struct {
	// Capacity is the maximum number of live entries.
	Capacity int

	// Payload encodes results. Defaults to the binary codec without compression.
	Payload *codec.Payload

	// Resources accounts entry memory. Optional.
	Resources *resource.Controller
}

// DefaultOptions contains the default configuration options for the store.
var DefaultOptions = Options{
	Capacity: 1024,
}

// Store owns all cached entries.
type Store struct {
	opts    Options
	entries map[model.EntryID]*Entry
	nextID  model.EntryID
	bytes   int64
}

// New creates a new store.
func New(optFns ...func(o *Options)) (*Store, error) {
	opts := DefaultOptions

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	if opts.Payload == nil {
		opts.Payload = codec.NewPayload(nil, codec.CompressionNone)
	}

	return &Store{
		opts:    opts,
		entries: make(map[model.EntryID]*Entry, opts.Capacity),
		nextID:  1,
	}, nil
}

// Capacity returns the maximum number of entries.
func (s *Store) Capacity() int { return s.opts.Capacity }

// Len returns the number of live entries.
func (s *Store) Len() int { return len(s.entries) }

// Bytes returns the accounted size of all entries.
func (s *Store) Bytes() int64 { return s.bytes }

// Full reports whether a Put would fail with ErrCapacityExceeded.
func (s *Store) Full() bool { return len(s.entries) >= s.opts.Capacity }

// Encoded is a record whose result has already been encoded.
type Encoded struct {
	Record
	// Size is the accounted memory of the entry.
	Size int64

	payload []byte
}

// Encode validates r and encodes its result without storing it.
// It fails with ErrEntryTooLarge when the entry alone exceeds the memory limit.
func (s *Store) Encode(r Record) (Encoded, error) {
	if r.Radius < 0 || math.IsNaN(r.Radius) {
		return Encoded{}, ErrInvalidRadius
	}

	payload, err := s.opts.Payload.Encode(r.Result)
	if err != nil {
		return Encoded{}, err
	}

	size := entrySize(r.Center.Dim(), len(payload))
	if limit := s.opts.Resources.MemoryLimit(); limit > 0 && size > limit {
		return Encoded{}, fmt.Errorf("%w: %d > %d bytes", ErrEntryTooLarge, size, limit)
	}

	return Encoded{Record: r, Size: size, payload: payload}, nil
}

// Put encodes the record's result and stores a new entry.
// The new ID is strictly greater than every ID issued before.
func (s *Store) Put(r Record) (model.EntryID, error) {
	enc, err := s.Encode(r)
	if err != nil {
		return 0, err
	}
	return s.PutEncoded(enc)
}

// PutEncoded stores an entry produced by Encode.
func (s *Store) PutEncoded(enc Encoded) (model.EntryID, error) {
	if s.Full() {
		return 0, ErrCapacityExceeded
	}

	r, size, payload := enc.Record, enc.Size, enc.payload
	if err := s.opts.Resources.AcquireMemory(size); err != nil {
		return 0, fmt.Errorf("store: entry of %d bytes: %w", size, err)
	}

	id := s.nextID
	s.nextID++

	e := &Entry{
		ID:        id,
		Center:    r.Center,
		Radius:    r.Radius,
		CreatedAt: r.CreatedAt,
		Cost:      r.Cost,
		payload:   payload,
	}
	e.lastAccessed.Store(r.CreatedAt.UnixNano())
	e.confidence.Store(&confidenceState{value: clamp01(r.Confidence), at: r.CreatedAt})

	s.entries[id] = e
	s.bytes += size

	return id, nil
}

// Get returns the entry with the given ID.
func (s *Store) Get(id model.EntryID) (*Entry, bool) {
	e, ok := s.entries[id]
	return e, ok
}

// Payload returns a freshly decoded copy of the entry's result.
func (s *Store) Payload(id model.EntryID) (model.Result, bool, error) {
	e, ok := s.entries[id]
	if !ok {
		return model.Result{}, false, nil
	}
	r, err := s.opts.Payload.Decode(e.payload)
	if err != nil {
		return model.Result{}, true, err
	}
	return r, true, nil
}

// Touch records a hit.
func (s *Store) Touch(id model.EntryID, now time.Time) bool {
	e, ok := s.entries[id]
	if !ok {
		return false
	}
	e.accessCount.Add(1)
	e.lastAccessed.Store(now.UnixNano())
	return true
}

// SetConfidence materializes a new confidence value at the given instant.
func (s *Store) SetConfidence(id model.EntryID, value float64, at time.Time) bool {
	e, ok := s.entries[id]
	if !ok {
		return false
	}
	e.confidence.Store(&confidenceState{value: clamp01(value), at: at})
	return true
}

// Remove deletes an entry and releases its memory.
func (s *Store) Remove(id model.EntryID) bool {
	e, ok := s.entries[id]
	if !ok {
		return false
	}
	size := e.Size()
	delete(s.entries, id)
	s.bytes -= size
	s.opts.Resources.ReleaseMemory(size)
	return true
}

// IDs returns a snapshot of all entry IDs.
func (s *Store) IDs() *roaring64.Bitmap {
	bm := roaring64.New()
	for id := range s.entries {
		bm.Add(uint64(id))
	}
	return bm
}

// Snapshots returns metadata snapshots of all entries.
func (s *Store) Snapshots(now time.Time, decayRate float64) []Snapshot {
	out := make([]Snapshot, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.Snapshot(now, decayRate))
	}
	return out
}

// Range calls fn for every entry until fn returns false.
func (s *Store) Range(fn func(e *Entry) bool) {
	for _, e := range s.entries {
		if !fn(e) {
			return
		}
	}
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// LowerConfidence replaces the entry's confidence with value at the given
// instant, but only if value is below the effective confidence at that
// instant under decayRate. It reports whether the confidence was lowered.
func (s *Store) LowerConfidence(id model.EntryID, value float64, at time.Time, decayRate float64) bool {
	e, ok := s.entries[id]
	if !ok {
		return false
	}
	next := &confidenceState{value: clamp01(value), at: at}
	for {
		cur := e.confidence.Load()
		if next.value >= Decay(cur.value, decayRate, at.Sub(cur.at)) {
			return false
		}
		if e.confidence.CompareAndSwap(cur, next) {
			return true
		}
	}
}
