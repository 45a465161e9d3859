// Package lsh implements a locality-sensitive hashing proximity index.
//
// Cosine indexes use SimHash (random hyperplane signs); L2 indexes use
// p-stable projections floor((a·v + b) / W). Each of the L tables hashes a
// center into one bucket; a query inspects the union of its buckets and
// returns the closest candidate. When no bucket matches, the index falls
// back to a full scan, so Query reports ok == false only for an empty index.
//
// The (1+ε) guarantee of LSH is probabilistic: a near neighbor is found with
// high probability, not with certainty.
package lsh

import (
	"errors"
	"math"
	"math/rand"
	"slices"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/hupe1980/proximity/distance"
	"github.com/hupe1980/proximity/index"
	"github.com/hupe1980/proximity/model"
)

// Compile-time check to ensure LSH satisfies the index interface.
var _ index.Index = (*LSH)(nil)

// ErrInvalidParameters is returned for non-positive table, bit, or width settings.
var ErrInvalidParameters = errors.New("lsh: tables, bits and bucket width must be positive; bits must be <= 64")

// Options contains configuration options for the LSH index.
type Options struct {
	// Dimension is the fixed vector dimensionality for this index.
	Dimension int

	// Metric selects the hash family: SimHash for cosine, p-stable for L2.
	Metric distance.Metric

	// Tables is the number of independent hash tables (L).
	Tables int

	// Bits is the number of hash functions concatenated per table (K).
	Bits int

	// BucketWidth is the quantization width W of p-stable hashes.
	BucketWidth float64

	// Seed makes the hash functions reproducible.
	Seed int64
}

// DefaultOptions contains the default configuration options for the LSH index.
var DefaultOptions = Options{
	Metric:      distance.MetricL2,
	Tables:      8,
	Bits:        8,
	BucketWidth: 1.0,
	Seed:        1,
}

type table struct {
	planes  [][]float32 // Bits x Dimension
	offsets []float64   // p-stable only
	buckets map[uint64]*roaring64.Bitmap
}

// LSH is a multi-table locality-sensitive hashing index.
type LSH struct {
	opts   Options
	tables []table
	points map[model.EntryID][]float32
	keys   map[model.EntryID][]uint64
}

// New creates a new LSH index.
func New(optFns ...func(o *Options)) (*LSH, error) {
	opts := DefaultOptions

	for _, fn := range optFns {
		fn(&opts)
	}

	if err := index.ValidateBasicOptions(opts.Dimension, opts.Metric); err != nil {
		return nil, err
	}
	if opts.Tables <= 0 || opts.Bits <= 0 || opts.Bits > 64 || !(opts.BucketWidth > 0) {
		return nil, ErrInvalidParameters
	}

	rng := rand.New(rand.NewSource(opts.Seed)) //nolint:gosec // hash family sampling

	tables := make([]table, opts.Tables)
	for t := range tables {
		planes := make([][]float32, opts.Bits)
		offsets := make([]float64, opts.Bits)
		for b := range planes {
			p := make([]float32, opts.Dimension)
			for d := range p {
				p[d] = float32(rng.NormFloat64())
			}
			planes[b] = p
			offsets[b] = rng.Float64() * opts.BucketWidth
		}
		tables[t] = table{
			planes:  planes,
			offsets: offsets,
			buckets: make(map[uint64]*roaring64.Bitmap),
		}
	}

	return &LSH{
		opts:   opts,
		tables: tables,
		points: make(map[model.EntryID][]float32),
		keys:   make(map[model.EntryID][]uint64),
	}, nil
}

func (*LSH) Name() string { return "LSH" }

// Dimension returns the dimensionality of the index.
func (l *LSH) Dimension() int { return l.opts.Dimension }

// Metric returns the distance metric of the index.
func (l *LSH) Metric() distance.Metric { return l.opts.Metric }

// Len returns the number of indexed centers.
func (l *LSH) Len() int { return len(l.points) }

// IDs returns a snapshot of all IDs.
func (l *LSH) IDs() *roaring64.Bitmap {
	bm := roaring64.New()
	for id := range l.points {
		bm.Add(uint64(id))
	}
	return bm
}

// hash computes the bucket key of p in table t.
func (l *LSH) hash(t *table, p []float32) uint64 {
	if l.opts.Metric == distance.MetricCosine {
		var sig uint64
		for b, plane := range t.planes {
			if distance.Dot(plane, p) >= 0 {
				sig |= 1 << uint(b)
			}
		}
		return sig
	}

	// FNV-1a over the quantized projections.
	const (
		offset64 = 14695981039346656037
		prime64  = 1099511628211
	)
	h := uint64(offset64)
	for b, plane := range t.planes {
		q := int64(math.Floor((float64(distance.Dot(plane, p)) + t.offsets[b]) / l.opts.BucketWidth))
		h ^= uint64(q)
		h *= prime64
	}
	return h
}

// Insert adds a center to every table.
func (l *LSH) Insert(id model.EntryID, center model.Vector) error {
	if err := index.CheckDimension(l.opts.Dimension, center); err != nil {
		return err
	}
	if _, ok := l.points[id]; ok {
		return &index.ErrDuplicateID{ID: id}
	}

	p := l.opts.Metric.Embed(center.View())
	keys := make([]uint64, len(l.tables))

	for i := range l.tables {
		t := &l.tables[i]
		k := l.hash(t, p)
		bm, ok := t.buckets[k]
		if !ok {
			bm = roaring64.New()
			t.buckets[k] = bm
		}
		bm.Add(uint64(id))
		keys[i] = k
	}

	l.points[id] = p
	l.keys[id] = keys

	return nil
}

// Remove deletes a center from every table.
func (l *LSH) Remove(id model.EntryID) bool {
	keys, ok := l.keys[id]
	if !ok {
		return false
	}

	for i, k := range keys {
		t := &l.tables[i]
		if bm, ok := t.buckets[k]; ok {
			bm.Remove(uint64(id))
			if bm.IsEmpty() {
				delete(t.buckets, k)
			}
		}
	}

	delete(l.keys, id)
	delete(l.points, id)

	return true
}

// Query returns the closest center among the colliding buckets.
func (l *LSH) Query(v model.Vector) (index.Match, bool, error) {
	if err := index.CheckDimension(l.opts.Dimension, v); err != nil {
		return index.Match{}, false, err
	}
	if len(l.points) == 0 {
		return index.Match{}, false, nil
	}

	q := l.opts.Metric.Embed(v.View())

	candidates := roaring64.New()
	for i := range l.tables {
		t := &l.tables[i]
		if bm, ok := t.buckets[l.hash(t, q)]; ok {
			candidates.Or(bm)
		}
	}

	var best index.Match
	found := false
	consider := func(id model.EntryID) {
		m := index.Match{ID: id, Distance: math.Sqrt(float64(distance.SquaredL2(q, l.points[id])))}
		if !found || m.Less(best) {
			best = m
			found = true
		}
	}

	if candidates.IsEmpty() {
		for id := range l.points {
			consider(id)
		}
	} else {
		it := candidates.Iterator()
		for it.HasNext() {
			consider(model.EntryID(it.Next()))
		}
	}

	best.Distance = l.opts.Metric.FromEmbedded(best.Distance)
	return best, true, nil
}

// Within returns the IDs of all centers within radius of v. It scans every
// center, so the result is exact.
func (l *LSH) Within(v model.Vector, radius float64) ([]model.EntryID, error) {
	if err := index.CheckDimension(l.opts.Dimension, v); err != nil {
		return nil, err
	}

	q := l.opts.Metric.Embed(v.View())
	limit := l.opts.Metric.ToEmbedded(radius)

	var out []model.EntryID
	for id, p := range l.points {
		if math.Sqrt(float64(distance.SquaredL2(q, p))) <= limit {
			out = append(out, id)
		}
	}
	slices.Sort(out)

	return out, nil
}

// BucketCount returns the number of non-empty buckets across all tables.
func (l *LSH) BucketCount() int {
	n := 0
	for i := range l.tables {
		n += len(l.tables[i].buckets)
	}
	return n
}
