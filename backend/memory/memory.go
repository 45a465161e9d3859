// Package memory provides an exact, in-process nearest-neighbor searcher.
//
// It serves as the ground-truth backend in benchmarks and tests: every
// search scans the full dataset, optionally in parallel, and an artificial
// latency can be injected to model a remote vector database.
package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/hupe1980/proximity"
	"github.com/hupe1980/proximity/distance"
	"github.com/hupe1980/proximity/index"
	"github.com/hupe1980/proximity/internal/queue"
	"github.com/hupe1980/proximity/model"
	"golang.org/x/sync/errgroup"
)

// Compile-time check to ensure Searcher satisfies the proximity interface.
var _ proximity.Searcher = (*Searcher)(nil)

// Options contains configuration options for the memory searcher.
type Options struct {
	// K is the number of neighbors returned per search.
	K int
	// Metric is the distance metric.
	Metric distance.Metric
	// Latency is added to every search to simulate a remote backend.
	Latency time.Duration
	// Workers splits the scan across goroutines; <= 1 scans sequentially.
	Workers int
}

// DefaultOptions contains the default configuration options for the memory searcher.
var DefaultOptions = Options{
	K:       10,
	Metric:  distance.MetricL2,
	Latency: 0,
	Workers: 1,
}

// Searcher is an exact top-K searcher over an in-memory dataset.
type Searcher struct {
	opts Options
	dist distance.Func

	mu      sync.RWMutex
	dim     int
	vectors []model.Vector
}

// New creates a searcher over dataset. Item IDs are dataset positions.
func New(dataset []model.Vector, optFns ...func(o *Options)) (*Searcher, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	fn, err := distance.Provider(opts.Metric)
	if err != nil {
		return nil, err
	}
	if opts.K <= 0 {
		opts.K = DefaultOptions.K
	}

	s := &Searcher{opts: opts, dist: fn}
	for _, v := range dataset {
		if _, err := s.Add(v); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Len returns the number of items.
func (s *Searcher) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vectors)
}

// Add appends an item and returns its ID.
func (s *Searcher) Add(v model.Vector) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dim == 0 {
		s.dim = v.Dim()
	}
	if err := index.CheckDimension(s.dim, v); err != nil {
		return 0, err
	}
	s.vectors = append(s.vectors, v)
	return uint64(len(s.vectors) - 1), nil
}

// Update replaces the vector of an existing item. It reports whether the
// item exists.
func (s *Searcher) Update(id uint64, v model.Vector) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id >= uint64(len(s.vectors)) {
		return false, nil
	}
	if err := index.CheckDimension(s.dim, v); err != nil {
		return false, err
	}
	s.vectors[id] = v
	return true, nil
}

// Vector returns the vector of an item.
func (s *Searcher) Vector(id uint64) (model.Vector, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if id >= uint64(len(s.vectors)) {
		return model.Vector{}, false
	}
	return s.vectors[id], true
}

// Search implements proximity.Searcher.
func (s *Searcher) Search(ctx context.Context, q model.Vector) (model.Result, error) {
	if s.opts.Latency > 0 {
		t := time.NewTimer(s.opts.Latency)
		select {
		case <-ctx.Done():
			t.Stop()
			return model.Result{}, ctx.Err()
		case <-t.C:
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.vectors) > 0 {
		if err := index.CheckDimension(s.dim, q); err != nil {
			return model.Result{}, err
		}
	}

	workers := max(s.opts.Workers, 1)
	chunk := (len(s.vectors) + workers - 1) / workers
	if chunk == 0 {
		return model.Result{}, nil
	}

	partial := make([][]model.Neighbor, workers)

	g, gctx := errgroup.WithContext(ctx)
	for w := range workers {
		lo := w * chunk
		hi := min(lo+chunk, len(s.vectors))
		if lo >= hi {
			break
		}
		g.Go(func() error {
			top, err := s.scan(gctx, q, lo, hi)
			partial[w] = top
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return model.Result{}, err
	}

	return model.Result{Neighbors: topK(slices.Concat(partial...), s.opts.K)}, nil
}

// scan keeps the K best neighbors of [lo, hi) in a bounded heap whose top
// is the worst one kept.
func (s *Searcher) scan(ctx context.Context, q model.Vector, lo, hi int) ([]model.Neighbor, error) {
	k := s.opts.K
	kept := queue.New(k, func(a, b model.Neighbor) bool { return neighborLess(b, a) })

	for i := lo; i < hi; i++ {
		if (i-lo)&1023 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		n := model.Neighbor{ID: uint64(i), Distance: s.dist(q.View(), s.vectors[i].View())}
		if kept.Len() < k {
			kept.Push(n)
			continue
		}
		if worst, _ := kept.Peek(); neighborLess(n, worst) {
			kept.ReplaceTop(n)
		}
	}

	out := make([]model.Neighbor, kept.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i], _ = kept.Pop()
	}
	return out, nil
}

// neighborLess orders by distance, then ID.
func neighborLess(a, b model.Neighbor) bool {
	if a.Distance != b.Distance {
		return a.Distance < b.Distance
	}
	return a.ID < b.ID
}

func topK(ns []model.Neighbor, k int) []model.Neighbor {
	slices.SortFunc(ns, func(a, b model.Neighbor) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if len(ns) > k {
		ns = ns[:k]
	}
	return ns
}
