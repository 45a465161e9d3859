package proximity_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hupe1980/proximity"
	"github.com/hupe1980/proximity/eviction"
	"github.com/hupe1980/proximity/index"
	"github.com/hupe1980/proximity/model"
	"github.com/hupe1980/proximity/store"
	"github.com/hupe1980/proximity/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func vec(xs ...float32) model.Vector { return model.NewVector(xs) }

// echoBackend answers every query with a single neighbor whose ID encodes
// the query and counts its calls.
type echoBackend struct {
	calls atomic.Int64
	gate  chan struct{}
	err   error
}

func (b *echoBackend) Search(ctx context.Context, v model.Vector) (model.Result, error) {
	b.calls.Add(1)
	if b.gate != nil {
		select {
		case <-b.gate:
		case <-ctx.Done():
			return model.Result{}, ctx.Err()
		}
	}
	if b.err != nil {
		return model.Result{}, b.err
	}
	id := uint64(0)
	for _, x := range v.View() {
		id = id*31 + uint64(int64(x*100))
	}
	return model.Result{Neighbors: []model.Neighbor{{ID: id, Distance: 0}}}, nil
}

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newCache(t *testing.T, dim int, backend proximity.Searcher, opts ...proximity.Option) *proximity.Cache {
	t.Helper()
	c, err := proximity.New(dim, backend, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestNew(t *testing.T) {
	t.Run("nil searcher", func(t *testing.T) {
		_, err := proximity.New(2, nil)
		assert.ErrorIs(t, err, proximity.ErrNilSearcher)
	})

	t.Run("invalid capacity", func(t *testing.T) {
		_, err := proximity.New(2, &echoBackend{}, proximity.WithCapacity(0))
		var oe *proximity.ErrInvalidOption
		require.ErrorAs(t, err, &oe)
		assert.Equal(t, "capacity", oe.Name)
	})

	t.Run("invalid dimension", func(t *testing.T) {
		_, err := proximity.New(0, &echoBackend{})
		var de *proximity.ErrInvalidDimension
		require.ErrorAs(t, err, &de)
		assert.Equal(t, 0, de.Dimension)
	})

	t.Run("invalid radius", func(t *testing.T) {
		_, err := proximity.New(2, &echoBackend{}, proximity.WithRadius(-1))
		var oe *proximity.ErrInvalidOption
		assert.ErrorAs(t, err, &oe)
	})

	for _, kind := range []index.Kind{index.KindFlat, index.KindBallTree, index.KindLSH} {
		t.Run(kind.String(), func(t *testing.T) {
			c := newCache(t, 3, &echoBackend{}, proximity.WithIndex(kind, 0))
			assert.Equal(t, 3, c.Dimension())
			assert.Equal(t, 0, c.Len())
		})
	}
}

func TestEvictionScenario(t *testing.T) {
	for _, kind := range []eviction.Kind{eviction.KindLFU, eviction.KindScored} {
		t.Run(string(kind), func(t *testing.T) {
			ctx := context.Background()
			clock := newFakeClock()
			backend := &echoBackend{}

			c := newCache(t, 2, backend,
				proximity.WithCapacity(2),
				proximity.WithRadius(1.0),
				proximity.WithEviction(kind),
				proximity.WithClock(clock.Now),
			)

			_, hit, err := c.Answer(ctx, vec(0, 0))
			require.NoError(t, err)
			assert.False(t, hit)
			clock.Advance(time.Second)

			_, hit, err = c.Answer(ctx, vec(5, 5))
			require.NoError(t, err)
			assert.False(t, hit)
			assert.Equal(t, 2, c.Len())
			clock.Advance(time.Second)

			// (0.5, 0.5) is ~0.707 from (0, 0).
			res, hit, err := c.Answer(ctx, vec(0.5, 0.5))
			require.NoError(t, err)
			assert.True(t, hit)
			want, _ := backend.Search(ctx, vec(0, 0))
			assert.Equal(t, want, res)
			clock.Advance(time.Second)

			_, hit, err = c.Answer(ctx, vec(10, 10))
			require.NoError(t, err)
			assert.False(t, hit)
			assert.Equal(t, 2, c.Len())

			// (5, 5) had no hits and was evicted; (0, 0) survives.
			_, hit, err = c.Answer(ctx, vec(0, 0))
			require.NoError(t, err)
			assert.True(t, hit)

			st := c.Stats()
			assert.Equal(t, uint64(1), st.Evictions)
			assert.Equal(t, uint64(3), st.BackendCalls)
			require.NoError(t, c.CheckConsistency(ctx))
		})
	}
}

func TestHitRequiresRadius(t *testing.T) {
	ctx := context.Background()
	c := newCache(t, 2, &echoBackend{}, proximity.WithRadius(0.5), proximity.WithIndex(index.KindFlat, 0))

	_, hit, err := c.Answer(ctx, vec(0, 0))
	require.NoError(t, err)
	assert.False(t, hit)

	_, hit, err = c.Answer(ctx, vec(0.5, 0))
	require.NoError(t, err)
	assert.True(t, hit, "boundary is inclusive")

	_, hit, err = c.Answer(ctx, vec(0.6, 0))
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, c.Len())
}

func TestConcurrentIdenticalMisses(t *testing.T) {
	ctx := context.Background()
	backend := &echoBackend{gate: make(chan struct{})}
	c := newCache(t, 2, backend, proximity.WithRadius(0.1))

	const callers = 8

	var wg sync.WaitGroup
	results := make([]model.Result, callers)
	errs := make([]error, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _, errs[i] = c.Answer(ctx, vec(1, 1))
		}()
	}

	require.Eventually(t, func() bool { return backend.calls.Load() >= 1 }, time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(backend.gate)
	wg.Wait()

	for i := range callers {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0], results[i])
	}

	assert.Equal(t, int64(1), backend.calls.Load())
	assert.Equal(t, 1, c.Len())
	require.NoError(t, c.CheckConsistency(ctx))

	// Results are private copies.
	results[0].Neighbors[0].ID = 42
	assert.NotEqual(t, results[0], results[1])
}

func TestNearDuplicateMissesMerge(t *testing.T) {
	ctx := context.Background()
	backend := &echoBackend{gate: make(chan struct{})}
	c := newCache(t, 2, backend,
		proximity.WithRadius(0.5),
		proximity.WithIndex(index.KindFlat, 0),
	)

	queries := []model.Vector{vec(1, 1), vec(1.01, 1)}

	var wg sync.WaitGroup
	errs := make([]error, len(queries))
	for i, q := range queries {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, errs[i] = c.Answer(ctx, q)
		}()
	}

	require.Eventually(t, func() bool { return backend.calls.Load() == 2 }, time.Second, time.Millisecond)
	close(backend.gate)
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	st := c.Stats()
	assert.Equal(t, int64(2), backend.calls.Load())
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, uint64(2), st.Misses)
	assert.Equal(t, uint64(1), st.Merges)
	require.NoError(t, c.CheckConsistency(ctx))

	_, hit, err := c.Answer(ctx, vec(1.005, 1))
	require.NoError(t, err)
	assert.True(t, hit)
}

func TestPut(t *testing.T) {
	ctx := context.Background()
	backend := &echoBackend{}
	c := newCache(t, 2, backend, proximity.WithRadius(1))

	id, err := c.Put(ctx, vec(0, 0), model.Result{Neighbors: []model.Neighbor{{ID: 7}}}, 1)
	require.NoError(t, err)
	assert.Equal(t, model.EntryID(1), id)

	// Put never merges.
	_, err = c.Put(ctx, vec(0.1, 0), model.Result{}, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())

	_, err = c.Put(ctx, vec(3, 3), model.Result{}, -1)
	assert.ErrorIs(t, err, store.ErrInvalidRadius)
}

func TestCancellationStillInserts(t *testing.T) {
	backend := &echoBackend{gate: make(chan struct{})}
	c := newCache(t, 2, backend, proximity.WithRadius(0.1))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, _, err := c.Answer(ctx, vec(2, 2))
		done <- err
	}()

	require.Eventually(t, func() bool { return backend.calls.Load() == 1 }, time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	close(backend.gate)
	require.Eventually(t, func() bool { return c.Len() == 1 }, time.Second, time.Millisecond)

	_, hit, err := c.Answer(context.Background(), vec(2, 2))
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, int64(1), backend.calls.Load())
}

func TestBackendErrorReturnedUnmodified(t *testing.T) {
	errBoom := errors.New("boom")
	metrics := &proximity.BasicMetricsCollector{}
	c := newCache(t, 2, &echoBackend{err: errBoom}, proximity.WithMetricsCollector(metrics))

	_, hit, err := c.Answer(context.Background(), vec(1, 2))
	assert.False(t, hit)
	assert.Equal(t, errBoom, err)
	assert.Equal(t, 0, c.Len())

	st := c.Stats()
	assert.Equal(t, uint64(1), st.BackendErrors)
	assert.Equal(t, int64(1), metrics.GetStats().MissErrors)
}

func TestInvalidVectors(t *testing.T) {
	ctx := context.Background()
	backend := &echoBackend{}
	c := newCache(t, 3, backend)

	_, _, err := c.Answer(ctx, vec(1, 2))
	var dm *proximity.ErrDimensionMismatch
	require.ErrorAs(t, err, &dm)
	assert.Equal(t, 3, dm.Expected)
	assert.Equal(t, 2, dm.Actual)

	nan := float32(0)
	nan /= nan
	_, _, err = c.Answer(ctx, vec(1, nan, 3))
	assert.ErrorIs(t, err, proximity.ErrInvalidVector)

	_, err = c.Put(ctx, vec(1), model.Result{}, 1)
	assert.ErrorAs(t, err, &dm)

	assert.Equal(t, int64(0), backend.calls.Load())
}

func TestCapacityInvariant(t *testing.T) {
	ctx := context.Background()
	rng := testutil.NewRNG(7)

	for _, kind := range []index.Kind{index.KindFlat, index.KindBallTree, index.KindLSH} {
		t.Run(kind.String(), func(t *testing.T) {
			c := newCache(t, 8, &echoBackend{},
				proximity.WithCapacity(16),
				proximity.WithRadius(0.05),
				proximity.WithIndex(kind, 0.1),
				proximity.WithEviction(eviction.KindLRU),
			)

			for _, v := range rng.UniformVectors(200, 8) {
				_, _, err := c.Answer(ctx, v)
				require.NoError(t, err)
				require.LessOrEqual(t, c.Len(), 16)
			}

			require.NoError(t, c.CheckConsistency(ctx))
			st := c.Stats()
			assert.Equal(t, 16, st.Entries)
			assert.Equal(t, st.Misses-st.Merges-16, st.Evictions)
		})
	}
}

func TestConcurrentMixedWorkload(t *testing.T) {
	const (
		workers  = 8
		requests = 400
		capacity = 32
	)

	for _, kind := range []index.Kind{index.KindFlat, index.KindBallTree, index.KindLSH} {
		t.Run(kind.String(), func(t *testing.T) {
			ctx := context.Background()
			c := newCache(t, 4, &echoBackend{},
				proximity.WithCapacity(capacity),
				proximity.WithRadius(0.05),
				proximity.WithIndex(kind, 0.1),
				proximity.WithConfidence(0.5, 0.1),
				proximity.WithFeedback(0.2, 0, 0.9),
				proximity.WithSweepInterval(time.Millisecond),
			)

			hot := testutil.NewRNG(11).ClusteredVectors(64, 4, 8, 0.05)

			g, gctx := errgroup.WithContext(ctx)
			for w := range workers {
				g.Go(func() error {
					rng := testutil.NewRNG(int64(100 + w))
					for i := range requests {
						q := rng.Perturb(hot[rng.Intn(len(hot))], 0.01)
						if _, _, err := c.Answer(gctx, q); err != nil {
							return err
						}

						switch {
						case i%97 == 0:
							if _, err := c.Invalidate(gctx, func(s store.Snapshot) bool {
								return s.Center.At(0) > 0.5
							}); err != nil {
								return err
							}
						case i%53 == 0:
							if _, err := c.InvalidateRegion(gctx, q, 0.1); err != nil {
								return err
							}
						}
					}
					return nil
				})
			}
			require.NoError(t, g.Wait())

			require.NoError(t, c.CheckConsistency(ctx))
			assert.LessOrEqual(t, c.Len(), capacity)

			st := c.Stats()
			assert.Equal(t, uint64(workers*requests), st.Hits+st.Misses)
		})
	}
}

func TestMemoryLimit(t *testing.T) {
	ctx := context.Background()
	c := newCache(t, 4, &echoBackend{},
		proximity.WithCapacity(100),
		proximity.WithMemoryLimit(1000),
		proximity.WithIndex(index.KindFlat, 0),
	)

	rng := testutil.NewRNG(3)
	for _, v := range rng.UniformVectors(50, 4) {
		_, _, err := c.Answer(ctx, v)
		require.NoError(t, err)
	}

	st := c.Stats()
	assert.LessOrEqual(t, st.Bytes, int64(1000))
	assert.Greater(t, st.Evictions, uint64(0))
	require.NoError(t, c.CheckConsistency(ctx))
}

func TestOversizedAnswerIsNotCached(t *testing.T) {
	ctx := context.Background()

	big := make([]model.Neighbor, 500)
	for i := range big {
		big[i] = model.Neighbor{ID: uint64(i) + 1000, Distance: float32(i) + 0.5}
	}
	backend := proximity.SearcherFunc(func(_ context.Context, v model.Vector) (model.Result, error) {
		if v.At(0) > 50 {
			return model.Result{Neighbors: big}, nil
		}
		return model.Result{Neighbors: []model.Neighbor{{ID: 1}}}, nil
	})

	c := newCache(t, 2, backend,
		proximity.WithCapacity(100),
		proximity.WithRadius(0.1),
		proximity.WithMemoryLimit(2000),
		proximity.WithIndex(index.KindFlat, 0),
	)

	for i := 0; i < 5; i++ {
		_, _, err := c.Answer(ctx, vec(float32(i)*10, 0))
		require.NoError(t, err)
	}
	require.Equal(t, 5, c.Len())

	res, hit, err := c.Answer(ctx, vec(100, 100))
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Len(t, res.Neighbors, 500)

	st := c.Stats()
	assert.Equal(t, 5, c.Len())
	assert.Equal(t, uint64(0), st.Evictions)

	_, err = c.Put(ctx, vec(100, 100), model.Result{Neighbors: big}, 0.1)
	require.ErrorIs(t, err, proximity.ErrEntryTooLarge)
	assert.Equal(t, 5, c.Len())
	require.NoError(t, c.CheckConsistency(ctx))
}

func TestInvalidation(t *testing.T) {
	ctx := context.Background()
	c := newCache(t, 2, &echoBackend{}, proximity.WithRadius(0.5))

	for _, v := range []model.Vector{vec(0, 0), vec(0.2, 0), vec(5, 5), vec(9, 9)} {
		_, err := c.Put(ctx, v, model.Result{}, 0.5)
		require.NoError(t, err)
	}

	n, err := c.InvalidateRegion(ctx, vec(0, 0), 0.3)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, c.Len())

	n, err = c.Invalidate(ctx, func(s store.Snapshot) bool { return s.Center.At(0) > 8 })
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = c.InvalidateAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 0, c.Len())

	assert.Equal(t, uint64(4), c.Stats().Invalidations)
	require.NoError(t, c.CheckConsistency(ctx))
}

func TestAdaptiveRadiusShrinksAfterInvalidation(t *testing.T) {
	ctx := context.Background()
	backend := &echoBackend{}
	c := newCache(t, 2, backend,
		proximity.WithRadiusPolicy(proximity.NewAdaptiveRadius(1)),
		proximity.WithIndex(index.KindFlat, 0),
	)

	_, _, err := c.Answer(ctx, vec(0, 0))
	require.NoError(t, err)
	_, hit, err := c.Answer(ctx, vec(0.8, 0))
	require.NoError(t, err)
	assert.True(t, hit)

	_, err = c.InvalidateAll(ctx)
	require.NoError(t, err)

	// One recent invalidation nearby halves the radius.
	_, _, err = c.Answer(ctx, vec(0, 0))
	require.NoError(t, err)
	_, hit, err = c.Answer(ctx, vec(0.8, 0))
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestAnswerBatch(t *testing.T) {
	ctx := context.Background()
	backend := &echoBackend{}
	c := newCache(t, 2, backend, proximity.WithRadius(0.01), proximity.WithBatchConcurrency(3))

	vs := []model.Vector{vec(1, 0), vec(2, 0), vec(3, 0), vec(4, 0)}
	_, err := c.Put(ctx, vs[2], model.Result{Neighbors: []model.Neighbor{{ID: 99}}}, 0.01)
	require.NoError(t, err)

	results, hits, err := c.AnswerBatch(ctx, vs)
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.Equal(t, []bool{false, false, true, false}, hits)
	assert.Equal(t, uint64(99), results[2].Neighbors[0].ID)
	for _, i := range []int{0, 1, 3} {
		want, _ := backend.Search(ctx, vs[i])
		assert.Equal(t, want, results[i])
	}

	_, _, err = c.AnswerBatch(ctx, []model.Vector{vec(1, 1), vec(1)})
	var dm *proximity.ErrDimensionMismatch
	assert.ErrorAs(t, err, &dm)
}

func TestConfidenceDecayAndSweep(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c := newCache(t, 2, &echoBackend{},
		proximity.WithRadius(1),
		proximity.WithConfidence(0.1, 0.5),
		proximity.WithClock(clock.Now),
	)

	_, err := c.Put(ctx, vec(0, 0), model.Result{}, 1)
	require.NoError(t, err)
	_, err = c.Put(ctx, vec(9, 9), model.Result{}, 1)
	require.NoError(t, err)

	// exp(-0.5) ~ 0.61 is above the floor.
	clock.Advance(5 * time.Second)
	expired, err := c.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, expired)

	_, hit, err := c.Answer(ctx, vec(0.1, 0))
	require.NoError(t, err)
	assert.True(t, hit)

	// exp(-1) ~ 0.37 is below the floor: lookups miss and sweep expires.
	clock.Advance(5 * time.Second)
	_, hit, err = c.Answer(ctx, vec(0.1, 0))
	require.NoError(t, err)
	assert.False(t, hit)

	expired, err = c.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, expired)
	assert.Equal(t, 1, c.Len())

	st := c.Stats()
	assert.Equal(t, uint64(2), st.Expirations)
	require.NoError(t, c.CheckConsistency(ctx))
}

func TestFeedbackLowersConfidence(t *testing.T) {
	ctx := context.Background()
	metrics := &proximity.BasicMetricsCollector{}

	var calls atomic.Int64
	backend := proximity.SearcherFunc(func(_ context.Context, _ model.Vector) (model.Result, error) {
		if calls.Add(1) == 1 {
			return model.Result{Neighbors: []model.Neighbor{{ID: 1}, {ID: 2}}}, nil
		}
		return model.Result{Neighbors: []model.Neighbor{{ID: 3}, {ID: 4}}}, nil
	})

	c := newCache(t, 2, backend,
		proximity.WithRadius(0.5),
		proximity.WithConfidence(0, 0.5),
		proximity.WithFeedback(1, 0, 0.9),
		proximity.WithMetricsCollector(metrics),
	)

	_, hit, err := c.Answer(ctx, vec(1, 1))
	require.NoError(t, err)
	assert.False(t, hit)

	_, hit, err = c.Answer(ctx, vec(1, 1))
	require.NoError(t, err)
	assert.True(t, hit)

	require.Eventually(t, func() bool { return metrics.GetStats().RecallSamples == 1 }, 2*time.Second, time.Millisecond)
	assert.Equal(t, 0.0, metrics.GetStats().AvgRecall)

	// Zero recall dropped the entry below the floor.
	res, hit, err := c.Answer(ctx, vec(1, 1))
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, uint64(3), res.Neighbors[0].ID)

	st := c.Stats()
	assert.Equal(t, uint64(1), st.Expirations)
	assert.Equal(t, uint64(1), st.Window.RecallSamples)
	assert.Equal(t, 1, c.Len())
}

// brokenPolicy never selects a victim.
type brokenPolicy struct{}

func (brokenPolicy) Name() string { return "Broken" }

func (brokenPolicy) SelectVictim([]store.Snapshot, time.Time) (model.EntryID, bool) {
	return 0, false
}

func TestFaultIsSticky(t *testing.T) {
	ctx := context.Background()
	c := newCache(t, 2, &echoBackend{},
		proximity.WithCapacity(1),
		proximity.WithEvictionPolicy(brokenPolicy{}),
	)

	_, err := c.Put(ctx, vec(0, 0), model.Result{}, 0)
	require.NoError(t, err)

	_, _, err = c.Answer(ctx, vec(5, 5))
	require.ErrorIs(t, err, proximity.ErrInconsistentState)

	_, _, again := c.Answer(ctx, vec(0, 0))
	assert.Equal(t, err, again)
	assert.Equal(t, err, c.CheckConsistency(ctx))

	_, err2 := c.InvalidateAll(ctx)
	assert.ErrorIs(t, err2, proximity.ErrInconsistentState)
}

func TestClose(t *testing.T) {
	c, err := proximity.New(2, &echoBackend{},
		proximity.WithSweepInterval(time.Millisecond),
		proximity.WithFeedback(0.5, 10, 0.9),
		proximity.WithFeedbackWindow(time.Second, time.Millisecond),
	)
	require.NoError(t, err)

	_, _, err = c.Answer(context.Background(), vec(1, 1))
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	_, _, err = c.Answer(context.Background(), vec(1, 1))
	assert.ErrorIs(t, err, proximity.ErrClosed)

	_, err = c.Sweep(context.Background())
	assert.ErrorIs(t, err, proximity.ErrClosed)
}

func TestStatsHitRatio(t *testing.T) {
	ctx := context.Background()
	metrics := &proximity.BasicMetricsCollector{}
	c := newCache(t, 2, &echoBackend{}, proximity.WithRadius(1), proximity.WithMetricsCollector(metrics))

	for range 4 {
		_, _, err := c.Answer(ctx, vec(1, 1))
		require.NoError(t, err)
	}

	st := c.Stats()
	assert.Equal(t, uint64(3), st.Hits)
	assert.Equal(t, uint64(1), st.Misses)
	assert.InDelta(t, 0.75, st.HitRatio(), 1e-9)
	assert.Equal(t, 1.0, st.Params.RadiusScale)

	ms := metrics.GetStats()
	assert.Equal(t, int64(3), ms.HitCount)
	assert.Equal(t, int64(1), ms.MissCount)
	assert.Equal(t, int64(1), ms.Entries)
	assert.Greater(t, ms.Bytes, int64(0))
}
