package feedback

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hupe1980/proximity/distance"
	"github.com/hupe1980/proximity/internal/resource"
	"github.com/hupe1980/proximity/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func TestWindow(t *testing.T) {
	w := NewWindow(10*time.Second, 10)
	assert.Equal(t, 10*time.Second, w.Size())

	s := w.Snapshot(t0)
	assert.Zero(t, s.HitRatio())
	assert.Equal(t, 1.0, s.Recall)

	w.RecordHit(time.Millisecond, t0)
	w.RecordHit(3*time.Millisecond, t0.Add(time.Second))
	w.RecordMiss(100*time.Millisecond, t0.Add(2*time.Second))
	w.RecordRecall(0.5, t0.Add(2*time.Second))
	w.RecordRecall(1, t0.Add(3*time.Second))

	s = w.Snapshot(t0.Add(3 * time.Second))
	assert.Equal(t, uint64(2), s.Hits)
	assert.Equal(t, uint64(1), s.Misses)
	assert.InDelta(t, 2.0/3.0, s.HitRatio(), 1e-9)
	assert.Equal(t, 2*time.Millisecond, s.AvgHitLatency)
	assert.Equal(t, 100*time.Millisecond, s.AvgMissLatency)
	assert.Equal(t, uint64(2), s.RecallSamples)
	assert.InDelta(t, 0.75, s.Recall, 1e-9)

	// The first two seconds slide out of the window.
	s = w.Snapshot(t0.Add(12500 * time.Millisecond))
	assert.Equal(t, uint64(0), s.Hits)
	assert.Equal(t, uint64(1), s.Misses)

	// Reusing a bucket slot resets its counters.
	w.RecordHit(time.Millisecond, t0.Add(20*time.Second))
	s = w.Snapshot(t0.Add(20 * time.Second))
	assert.Equal(t, uint64(1), s.Hits)
	assert.Equal(t, uint64(0), s.Misses)
}

func TestInvalidationLog(t *testing.T) {
	l := NewInvalidationLog(distance.MetricL2, 3, time.Minute)

	l.Record(model.NewVector([]float32{0, 0}), t0)
	l.Record(model.NewVector([]float32{0.5, 0}), t0)
	l.Record(model.NewVector([]float32{10, 10}), t0)

	assert.Equal(t, 2, l.CountNear(model.NewVector([]float32{0, 0}), 1, t0))
	assert.Equal(t, 0, l.CountNear(model.NewVector([]float32{0, 0}), 1, t0.Add(2*time.Minute)))

	// The ring overwrites the oldest record.
	l.Record(model.NewVector([]float32{20, 20}), t0)
	assert.Equal(t, 1, l.CountNear(model.NewVector([]float32{0, 0}), 1, t0))
}

func TestSampler(t *testing.T) {
	truth := model.Result{Neighbors: []model.Neighbor{{ID: 1}, {ID: 2}, {ID: 3}, {ID: 4}}}
	served := model.Result{Neighbors: []model.Neighbor{{ID: 1}, {ID: 2}, {ID: 9}, {ID: 8}}}

	t.Run("ReportsRecall", func(t *testing.T) {
		w := NewWindow(time.Minute, 6)
		var got atomic.Value

		s := NewSampler(
			func(context.Context, model.Vector) (model.Result, error) { return truth, nil },
			nil, w,
			func(id model.EntryID, recall float64, _ time.Time) { got.Store(recall) },
			nil, func() time.Time { return t0 },
			func(o *SamplerOptions) { o.Rate = 1 },
		)

		require.True(t, s.Observe(7, model.NewVector([]float32{1}), served))
		s.Wait()

		assert.InDelta(t, 0.5, got.Load().(float64), 1e-9)
		snap := w.Snapshot(t0)
		assert.Equal(t, uint64(1), snap.RecallSamples)
		assert.InDelta(t, 0.5, snap.Recall, 1e-9)
	})

	t.Run("ZeroRateNeverSamples", func(t *testing.T) {
		var calls atomic.Int32
		s := NewSampler(
			func(context.Context, model.Vector) (model.Result, error) {
				calls.Add(1)
				return truth, nil
			},
			nil, nil, nil, nil, nil,
			func(o *SamplerOptions) { o.Rate = 0 },
		)
		for range 100 {
			assert.False(t, s.Observe(1, model.NewVector([]float32{1}), served))
		}
		s.Wait()
		assert.Zero(t, calls.Load())
	})

	t.Run("BoundedByBackgroundWorkers", func(t *testing.T) {
		release := make(chan struct{})
		rc := resource.NewController(resource.Config{MaxBackgroundWorkers: 1})
		s := NewSampler(
			func(context.Context, model.Vector) (model.Result, error) {
				<-release
				return truth, nil
			},
			rc, nil, nil, nil, nil,
			func(o *SamplerOptions) { o.Rate = 1 },
		)

		require.True(t, s.Observe(1, model.NewVector([]float32{1}), served))
		assert.False(t, s.Observe(2, model.NewVector([]float32{1}), served))
		close(release)
		s.Wait()
		assert.True(t, s.Observe(3, model.NewVector([]float32{1}), served))
		s.Wait()
	})

	t.Run("ClosedSamplerStartsNothing", func(t *testing.T) {
		var calls atomic.Int32
		s := NewSampler(
			func(context.Context, model.Vector) (model.Result, error) {
				calls.Add(1)
				return truth, nil
			},
			nil, nil, nil, nil, nil,
			func(o *SamplerOptions) { o.Rate = 1 },
		)

		require.True(t, s.Observe(1, model.NewVector([]float32{1}), served))
		s.Close()
		assert.Equal(t, int32(1), calls.Load())

		assert.False(t, s.Observe(2, model.NewVector([]float32{1}), served))
		s.Close()
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("ObserveRacingClose", func(t *testing.T) {
		var calls atomic.Int32
		s := NewSampler(
			func(context.Context, model.Vector) (model.Result, error) {
				calls.Add(1)
				return truth, nil
			},
			nil, nil, nil, nil, nil,
			func(o *SamplerOptions) { o.Rate = 1 },
		)

		var wg sync.WaitGroup
		var started atomic.Int32
		for i := range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := range 50 {
					if s.Observe(model.EntryID(i*50+j), model.NewVector([]float32{1}), served) {
						started.Add(1)
					}
				}
			}()
		}
		s.Close()
		wg.Wait()

		// Every accepted verification finished before Close returned.
		assert.Equal(t, started.Load(), calls.Load())
		assert.False(t, s.Observe(1, model.NewVector([]float32{1}), served))
	})

	t.Run("BackendErrorIsDropped", func(t *testing.T) {
		var called atomic.Bool
		s := NewSampler(
			func(context.Context, model.Vector) (model.Result, error) { return model.Result{}, errors.New("down") },
			nil, nil,
			func(model.EntryID, float64, time.Time) { called.Store(true) },
			nil, nil,
			func(o *SamplerOptions) { o.Rate = 1 },
		)
		require.True(t, s.Observe(1, model.NewVector([]float32{1}), served))
		s.Wait()
		assert.False(t, called.Load())
	})
}

func TestController(t *testing.T) {
	t.Run("IgnoresSparseSamples", func(t *testing.T) {
		c := NewController(nil)
		p := c.Apply(WindowSnapshot{Recall: 0, RecallSamples: 1})
		assert.Equal(t, Params{RadiusScale: 1, DecayRate: 0}, p)
	})

	t.Run("LowRecallNarrows", func(t *testing.T) {
		c := NewController(nil, func(o *ControllerOptions) { o.MinSamples = 1 })
		prev := c.Params()
		for range 50 {
			p := c.Apply(WindowSnapshot{Recall: 0.2, RecallSamples: 5})
			assert.LessOrEqual(t, p.RadiusScale, prev.RadiusScale)
			assert.GreaterOrEqual(t, p.DecayRate, prev.DecayRate)
			prev = p
		}
		assert.Equal(t, DefaultControllerOptions.MinScale, prev.RadiusScale)
		assert.Equal(t, DefaultControllerOptions.MaxDecayRate, prev.DecayRate)
	})

	t.Run("HighRecallWidens", func(t *testing.T) {
		c := NewController(nil, func(o *ControllerOptions) { o.MinSamples = 1 })
		for range 50 {
			c.Apply(WindowSnapshot{Recall: 1, RecallSamples: 5})
		}
		p := c.Params()
		assert.Equal(t, DefaultControllerOptions.MaxScale, p.RadiusScale)
		assert.Equal(t, DefaultControllerOptions.BaseDecayRate, p.DecayRate)
	})

	t.Run("LoopConsumesOffers", func(t *testing.T) {
		c := NewController(nil, func(o *ControllerOptions) {
			o.MinSamples = 1
			o.Buffer = 1
		})
		c.Start(t.Context())
		defer c.Stop()

		require.Eventually(t, func() bool {
			c.Offer(WindowSnapshot{Recall: 0, RecallSamples: 10})
			return c.Params().RadiusScale < 1
		}, time.Second, 5*time.Millisecond)

		c.Stop()
		c.Stop()
	})

	t.Run("OfferNeverBlocks", func(t *testing.T) {
		c := NewController(nil, func(o *ControllerOptions) { o.Buffer = 2 })
		assert.True(t, c.Offer(WindowSnapshot{}))
		assert.True(t, c.Offer(WindowSnapshot{}))
		assert.False(t, c.Offer(WindowSnapshot{}))
	})
}
