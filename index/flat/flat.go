// Package flat provides an exact, linear-scan proximity index.
//
// Flat is the reference implementation of index.Index: every query visits
// every center, so it is exact (ε = 0) and is used both as a fallback for
// small caches and as the oracle in tests of the approximate indexes.
package flat

import (
	"math"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/hupe1980/proximity/distance"
	"github.com/hupe1980/proximity/index"
	"github.com/hupe1980/proximity/model"
)

// Compile-time check to ensure Flat satisfies the index interface.
var _ index.Index = (*Flat)(nil)

// Options contains configuration options for the flat index.
type Options struct {
	// Dimension is the fixed vector dimensionality for this index.
	// It must be > 0 and is enforced for all inserts and queries.
	Dimension int

	// Metric is the distance metric. Cosine centers are stored normalized.
	Metric distance.Metric

	// InitialCapacity pre-sizes the internal arena.
	InitialCapacity int
}

// DefaultOptions contains the default configuration options for the flat index.
var DefaultOptions = Options{
	Dimension:       0,
	Metric:          distance.MetricL2,
	InitialCapacity: 64,
}

// Flat stores centers contiguously and answers queries by exhaustive scan.
type Flat struct {
	opts  Options
	ids   []model.EntryID
	data  []float32 // len(ids) * Dimension, row-major
	slots map[model.EntryID]int
}

// New creates a new instance of the flat index.
func New(optFns ...func(o *Options)) (*Flat, error) {
	opts := DefaultOptions

	for _, fn := range optFns {
		fn(&opts)
	}

	if err := index.ValidateBasicOptions(opts.Dimension, opts.Metric); err != nil {
		return nil, err
	}

	if opts.InitialCapacity < 0 {
		opts.InitialCapacity = 0
	}

	return &Flat{
		opts:  opts,
		ids:   make([]model.EntryID, 0, opts.InitialCapacity),
		data:  make([]float32, 0, opts.InitialCapacity*opts.Dimension),
		slots: make(map[model.EntryID]int, opts.InitialCapacity),
	}, nil
}

func (*Flat) Name() string { return "Flat" }

// Dimension returns the dimensionality of the index.
func (f *Flat) Dimension() int { return f.opts.Dimension }

// Metric returns the distance metric of the index.
func (f *Flat) Metric() distance.Metric { return f.opts.Metric }

// Len returns the number of centers.
func (f *Flat) Len() int { return len(f.ids) }

// Insert adds a center.
func (f *Flat) Insert(id model.EntryID, center model.Vector) error {
	if err := index.CheckDimension(f.opts.Dimension, center); err != nil {
		return err
	}
	if _, ok := f.slots[id]; ok {
		return &index.ErrDuplicateID{ID: id}
	}

	f.slots[id] = len(f.ids)
	f.ids = append(f.ids, id)
	f.data = append(f.data, f.opts.Metric.Embed(center.View())...)

	return nil
}

// Remove deletes a center by moving the last row into its slot.
func (f *Flat) Remove(id model.EntryID) bool {
	slot, ok := f.slots[id]
	if !ok {
		return false
	}

	dim := f.opts.Dimension
	last := len(f.ids) - 1

	if slot != last {
		movedID := f.ids[last]
		f.ids[slot] = movedID
		copy(f.data[slot*dim:(slot+1)*dim], f.data[last*dim:(last+1)*dim])
		f.slots[movedID] = slot
	}

	f.ids = f.ids[:last]
	f.data = f.data[:last*dim]
	delete(f.slots, id)

	return true
}

// Query returns the exact nearest center. Ties go to the smallest ID.
func (f *Flat) Query(v model.Vector) (index.Match, bool, error) {
	if err := index.CheckDimension(f.opts.Dimension, v); err != nil {
		return index.Match{}, false, err
	}
	if len(f.ids) == 0 {
		return index.Match{}, false, nil
	}

	q := f.opts.Metric.Embed(v.View())
	dim := f.opts.Dimension

	best := index.Match{Distance: math.Inf(1)}
	found := false

	for i, id := range f.ids {
		d := math.Sqrt(float64(distance.SquaredL2(q, f.data[i*dim:(i+1)*dim])))
		m := index.Match{ID: id, Distance: d}
		if !found || m.Less(best) {
			best = m
			found = true
		}
	}

	best.Distance = f.opts.Metric.FromEmbedded(best.Distance)

	return best, true, nil
}

// Within returns the IDs of all centers whose distance to v is at most radius.
func (f *Flat) Within(v model.Vector, radius float64) ([]model.EntryID, error) {
	if err := index.CheckDimension(f.opts.Dimension, v); err != nil {
		return nil, err
	}

	q := f.opts.Metric.Embed(v.View())
	dim := f.opts.Dimension
	limit := f.opts.Metric.ToEmbedded(radius)

	var out []model.EntryID
	for i, id := range f.ids {
		if math.Sqrt(float64(distance.SquaredL2(q, f.data[i*dim:(i+1)*dim]))) <= limit {
			out = append(out, id)
		}
	}

	return out, nil
}

// IDs returns a snapshot of all IDs.
func (f *Flat) IDs() *roaring64.Bitmap {
	bm := roaring64.New()
	for _, id := range f.ids {
		bm.Add(uint64(id))
	}
	return bm
}
