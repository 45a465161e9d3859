package proximity

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/proximity/codec"
	"github.com/hupe1980/proximity/eviction"
	"github.com/hupe1980/proximity/feedback"
	"github.com/hupe1980/proximity/index"
	"github.com/hupe1980/proximity/index/balltree"
	"github.com/hupe1980/proximity/index/flat"
	"github.com/hupe1980/proximity/index/lsh"
	"github.com/hupe1980/proximity/internal/resource"
	"github.com/hupe1980/proximity/model"
	"github.com/hupe1980/proximity/store"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Cache is an approximate query cache in front of a vector database.
//
// It is safe for concurrent use. Hits share a read lock; a miss calls the
// backend without holding any lock and takes the write lock only to re-check,
// evict and insert.
type Cache struct {
	opts      options
	dimension int
	backend   Searcher

	// mu guards the index/store pair.
	mu    sync.RWMutex
	idx   index.Index
	store *store.Store

	policy    eviction.Policy
	resources *resource.Controller
	flight    singleflight.Group

	window        *feedback.Window
	sampler       *feedback.Sampler
	controller    *feedback.Controller
	invalidations *feedback.InvalidationLog

	// decayRate changes only at sweep time, after all entries have been
	// materialized under the previous rate.
	decayRate atomic.Uint64

	tracer  trace.Tracer
	logger  *Logger
	metrics MetricsCollector

	fault  atomic.Pointer[error]
	closed atomic.Bool

	hits          atomic.Uint64
	misses        atomic.Uint64
	backendCalls  atomic.Uint64
	backendErrors atomic.Uint64
	merges        atomic.Uint64
	evictions     atomic.Uint64
	expirations   atomic.Uint64
	invalidated   atomic.Uint64

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New creates a cache for vectors of the given dimension in front of backend.
func New(dimension int, backend Searcher, optFns ...Option) (*Cache, error) {
	if backend == nil {
		return nil, ErrNilSearcher
	}

	opts := applyOptions(optFns)
	if err := opts.validate(); err != nil {
		return nil, err
	}

	idx, err := newIndex(dimension, &opts)
	if err != nil {
		return nil, translateError(err)
	}

	resources := resource.NewController(resource.Config{
		MemoryLimitBytes:     opts.memoryLimit,
		MaxInflightBackend:   opts.maxInflightBackend,
		MaxBackgroundWorkers: 2,
		SamplesPerSec:        opts.samplesPerSec,
	})

	st, err := store.New(func(o *store.Options) {
		o.Capacity = opts.capacity
		o.Payload = codec.NewPayload(opts.codec, opts.compression)
		o.Resources = resources
	})
	if err != nil {
		return nil, err
	}

	policy := opts.evictionPolicy
	if policy == nil {
		policy, err = eviction.New(opts.evictionKind, opts.confidenceFloor, opts.weights)
		if err != nil {
			return nil, &ErrInvalidOption{Name: "eviction", Reason: err.Error()}
		}
	}

	c := &Cache{
		opts:          opts,
		dimension:     dimension,
		backend:       backend,
		idx:           idx,
		store:         st,
		policy:        policy,
		resources:     resources,
		invalidations: feedback.NewInvalidationLog(opts.metric, opts.invalidationLog, opts.invalidationTTL),
		tracer:        newTracer(opts.tracerProvider),
		logger:        opts.logger,
		metrics:       opts.metrics,
	}
	c.decayRate.Store(math.Float64bits(opts.decayRate))

	if opts.feedback {
		c.window = feedback.NewWindow(opts.window, 12)
		c.controller = feedback.NewController(c.logger.Logger, func(o *feedback.ControllerOptions) {
			o.TargetRecall = opts.targetRecall
			o.BaseDecayRate = opts.decayRate
			o.MaxDecayRate = max(opts.decayRate*10, feedback.DefaultControllerOptions.MaxDecayRate)
		})
		c.sampler = feedback.NewSampler(backend.Search, resources, c.window, c.onRecall, c.logger.Logger, opts.clock,
			func(o *feedback.SamplerOptions) {
				o.Rate = opts.sampleRate
				o.Seed = opts.seed
				if opts.backendTimeout > 0 {
					o.Timeout = opts.backendTimeout
				}
			})
	}

	c.startBackground()

	return c, nil
}

func newIndex(dim int, o *options) (index.Index, error) {
	switch o.indexKind {
	case index.KindFlat:
		return flat.New(func(fo *flat.Options) {
			fo.Dimension = dim
			fo.Metric = o.metric
			fo.InitialCapacity = min(o.capacity, 4096)
		})
	case index.KindLSH:
		return lsh.New(func(lo *lsh.Options) {
			lo.Dimension = dim
			lo.Metric = o.metric
			lo.Tables = o.lshTables
			lo.Bits = o.lshBits
			lo.BucketWidth = o.bucketWidth
			lo.Seed = o.seed
		})
	case index.KindBallTree:
		return balltree.New(func(bo *balltree.Options) {
			bo.Dimension = dim
			bo.Metric = o.metric
			bo.Epsilon = o.epsilon
			bo.LeafSize = o.leafSize
			bo.Fanout = o.fanout
			bo.Seed = o.seed
		})
	default:
		return nil, &ErrInvalidOption{Name: "index", Reason: o.indexKind.String()}
	}
}

// Dimension returns the vector dimensionality of the cache.
func (c *Cache) Dimension() int { return c.dimension }

// Len returns the number of cached regions.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.store.Len()
}

// Answer returns the result for v, from cache if v falls within the radius
// of the nearest cached region, otherwise from the backend.
//
// hit reports whether the result was served from cache. Backend errors are
// returned unmodified.
func (c *Cache) Answer(ctx context.Context, v model.Vector) (model.Result, bool, error) {
	start := c.opts.clock()
	ctx, span := c.startSpan(ctx, "proximity.Answer", attribute.Int("proximity.dimension", v.Dim()))

	res, id, hit, err := c.answer(ctx, v, start)

	span.SetAttributes(attribute.Bool("proximity.hit", hit))
	endSpan(span, err)
	c.logger.LogAnswer(ctx, hit, id, c.opts.clock().Sub(start), err)

	return res, hit, err
}

func (c *Cache) answer(ctx context.Context, v model.Vector, start time.Time) (model.Result, model.EntryID, bool, error) {
	if err := c.usable(); err != nil {
		return model.Result{}, 0, false, err
	}
	if err := c.validate(v); err != nil {
		return model.Result{}, 0, false, err
	}

	res, id, hit, err := c.lookup(ctx, v, start)
	if err != nil {
		return model.Result{}, 0, false, err
	}

	if hit {
		now := c.opts.clock()
		latency := now.Sub(start)
		c.hits.Add(1)
		c.metrics.RecordHit(latency)
		if c.window != nil {
			c.window.RecordHit(latency, now)
		}
		if c.sampler != nil {
			c.sampler.Observe(id, v, res.Clone())
		}
		return res, id, true, nil
	}

	res, id, err = c.miss(ctx, v)

	now := c.opts.clock()
	latency := now.Sub(start)
	c.misses.Add(1)
	c.metrics.RecordMiss(latency, err)
	if c.window != nil {
		c.window.RecordMiss(latency, now)
	}

	return res, id, false, err
}

// lookup performs the read-locked index lookup and, on a hit, touches the
// entry and decodes a private copy of its payload.
func (c *Cache) lookup(ctx context.Context, v model.Vector, now time.Time) (model.Result, model.EntryID, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	m, ok, err := c.idx.Query(v)
	if err != nil {
		return model.Result{}, 0, false, translateError(err)
	}
	if !ok {
		return model.Result{}, 0, false, nil
	}

	e, found := c.store.Get(m.ID)
	if !found {
		return model.Result{}, 0, false, c.fail(ctx, "index entry %d has no store record", m.ID)
	}
	if m.Distance > e.Radius || e.Confidence(now, c.currentDecayRate()) < c.opts.confidenceFloor {
		return model.Result{}, 0, false, nil
	}

	res, _, err := c.store.Payload(m.ID)
	if err != nil {
		return model.Result{}, 0, false, c.fail(ctx, "entry %d payload: %v", m.ID, err)
	}
	c.store.Touch(m.ID, now)

	return res, m.ID, true, nil
}

type filled struct {
	result model.Result
	id     model.EntryID
}

// miss resolves v through the backend. Identical concurrent misses share one
// backend call; every caller waits on its own context and receives its own
// copy of the result.
func (c *Cache) miss(ctx context.Context, v model.Vector) (model.Result, model.EntryID, error) {
	ch := c.flight.DoChan(flightKey(v), func() (any, error) {
		return c.fill(context.WithoutCancel(ctx), v)
	})

	select {
	case <-ctx.Done():
		return model.Result{}, 0, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return model.Result{}, 0, r.Err
		}
		f := r.Val.(*filled)
		return f.result.Clone(), f.id, nil
	}
}

// fill runs the backend search and inserts the answer. It runs detached from
// the caller's cancellation so the insert is either fully applied or absent.
func (c *Cache) fill(ctx context.Context, v model.Vector) (*filled, error) {
	if c.opts.backendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.backendTimeout)
		defer cancel()
	}

	res, cost, err := c.search(ctx, v)
	if err != nil {
		return nil, err
	}

	now := c.opts.clock()
	id, _, err := c.insert(ctx, v, res, c.radiusFor(v, now), cost, true)
	switch {
	case err == nil:
	case errors.Is(err, ErrInconsistentState):
		return nil, err
	default:
		// The answer is authoritative even if it could not be cached.
		c.logger.WarnContext(ctx, "miss not cached", "error", err)
		id = 0
	}

	return &filled{result: res, id: id}, nil
}

func (c *Cache) search(ctx context.Context, v model.Vector) (model.Result, time.Duration, error) {
	ctx, span := c.startSpan(ctx, "proximity.backend.Search")

	if err := c.resources.AcquireBackend(ctx); err != nil {
		endSpan(span, err)
		return model.Result{}, 0, err
	}
	began := c.opts.clock()
	res, err := c.backend.Search(ctx, v)
	cost := c.opts.clock().Sub(began)
	c.resources.ReleaseBackend()

	c.backendCalls.Add(1)
	if err != nil {
		c.backendErrors.Add(1)
	}
	endSpan(span, err)

	return res, cost, err
}

func (c *Cache) radiusFor(v model.Vector, now time.Time) float64 {
	scale := 1.0
	if c.controller != nil {
		scale = c.controller.Params().RadiusScale
	}
	r := c.opts.radius.Radius(v, RadiusEnv{
		Now:   now,
		Scale: scale,
		RecentInvalidations: func(center model.Vector, radius float64) int {
			return c.invalidations.CountNear(center, radius, now)
		},
	})
	if r < 0 || math.IsNaN(r) {
		return 0
	}
	return r
}

// Put inserts a region with an explicit radius, e.g. to warm the cache.
// Unlike a miss, Put never merges with an existing region.
func (c *Cache) Put(ctx context.Context, v model.Vector, result model.Result, radius float64) (model.EntryID, error) {
	if err := c.usable(); err != nil {
		return 0, err
	}
	if err := c.validate(v); err != nil {
		return 0, err
	}
	if radius < 0 || math.IsNaN(radius) {
		return 0, store.ErrInvalidRadius
	}

	id, _, err := c.insert(ctx, v, result, radius, 0, false)
	return id, err
}

// insert re-checks the index (when merge is set), evicts until there is room
// and adds the entry to store and index as one unit.
func (c *Cache) insert(ctx context.Context, v model.Vector, res model.Result, radius float64, cost time.Duration, merge bool) (model.EntryID, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.usable(); err != nil {
		return 0, false, err
	}

	now := c.opts.clock()

	if merge {
		id, covered, err := c.coveringLocked(ctx, v, now)
		if err != nil {
			return 0, false, err
		}
		if covered {
			c.merges.Add(1)
			return id, true, nil
		}
	}

	enc, err := c.store.Encode(store.Record{
		Center:     v,
		Radius:     radius,
		Result:     res,
		Cost:       cost,
		Confidence: c.opts.initialConfidence,
		CreatedAt:  now,
	})
	if err != nil {
		return 0, false, err
	}

	for c.store.Full() {
		if err := c.evictLocked(ctx, now, RemovalCapacity); err != nil {
			return 0, false, err
		}
	}

	if limit := c.resources.MemoryLimit(); limit > 0 {
		for c.resources.MemoryUsage()+enc.Size > limit && c.store.Len() > 0 {
			if err := c.evictLocked(ctx, now, RemovalMemory); err != nil {
				return 0, false, err
			}
		}
	}

	id, err := c.store.PutEncoded(enc)
	if err != nil {
		return 0, false, err
	}

	if err := c.idx.Insert(id, v); err != nil {
		if !c.store.Remove(id) {
			return 0, false, c.fail(ctx, "rollback of entry %d failed", id)
		}
		err = translateError(err)
		if errors.Is(err, ErrInconsistentState) {
			return 0, false, c.fail(ctx, "index insert of entry %d: %v", id, err)
		}
		return 0, false, err
	}

	c.metrics.RecordSize(c.store.Len(), c.store.Bytes())
	return id, false, nil
}

// coveringLocked reports whether a live region already answers v. An expired
// region found on the way is removed.
func (c *Cache) coveringLocked(ctx context.Context, v model.Vector, now time.Time) (model.EntryID, bool, error) {
	m, ok, err := c.idx.Query(v)
	if err != nil {
		return 0, false, translateError(err)
	}
	if !ok {
		return 0, false, nil
	}

	e, found := c.store.Get(m.ID)
	if !found {
		return 0, false, c.fail(ctx, "index entry %d has no store record", m.ID)
	}
	if e.Confidence(now, c.currentDecayRate()) < c.opts.confidenceFloor {
		return 0, false, c.removeLocked(ctx, m.ID, RemovalExpired)
	}
	if m.Distance > e.Radius {
		return 0, false, nil
	}
	return m.ID, true, nil
}

// evictLocked removes exactly one victim chosen by the eviction policy.
func (c *Cache) evictLocked(ctx context.Context, now time.Time, reason RemovalReason) error {
	snaps := c.store.Snapshots(now, c.currentDecayRate())

	id, ok := c.policy.SelectVictim(snaps, now)
	if !ok {
		return c.fail(ctx, "eviction policy %s selected no victim among %d entries", c.policy.Name(), len(snaps))
	}

	for i := range snaps {
		if snaps[i].ID == id && snaps[i].Confidence < c.opts.confidenceFloor {
			reason = RemovalExpired
			break
		}
	}

	return c.removeLocked(ctx, id, reason)
}

// removeLocked deletes id from index and store as one unit.
func (c *Cache) removeLocked(ctx context.Context, id model.EntryID, reason RemovalReason) error {
	var center model.Vector
	if e, ok := c.store.Get(id); ok {
		center = e.Center
	}

	inIndex := c.idx.Remove(id)
	inStore := c.store.Remove(id)

	switch {
	case inIndex && inStore:
	case !inIndex && !inStore:
		return fmt.Errorf("proximity: unknown entry %d", uint64(id))
	default:
		return c.fail(ctx, "entry %d present in index=%t store=%t", id, inIndex, inStore)
	}

	switch reason {
	case RemovalExpired:
		c.expirations.Add(1)
	case RemovalInvalidated:
		c.invalidated.Add(1)
		c.invalidations.Record(center, c.opts.clock())
	default:
		c.evictions.Add(1)
	}

	c.metrics.RecordRemoval(reason)
	c.logger.LogEviction(ctx, id, reason)

	return nil
}

// Invalidate removes every entry for which pred returns true.
func (c *Cache) Invalidate(ctx context.Context, pred func(store.Snapshot) bool) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.usable(); err != nil {
		return 0, err
	}

	now := c.opts.clock()
	removed := 0
	for _, s := range c.store.Snapshots(now, c.currentDecayRate()) {
		if !pred(s) {
			continue
		}
		if err := c.removeLocked(ctx, s.ID, RemovalInvalidated); err != nil {
			return removed, err
		}
		removed++
	}

	c.afterInvalidate(ctx, "predicate", removed)
	return removed, nil
}

// InvalidateRegion removes every entry whose center lies within radius of center.
func (c *Cache) InvalidateRegion(ctx context.Context, center model.Vector, radius float64) (int, error) {
	if err := c.validate(center); err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.usable(); err != nil {
		return 0, err
	}

	ids, err := c.idx.Within(center, radius)
	if err != nil {
		return 0, translateError(err)
	}

	removed := 0
	for _, id := range ids {
		if err := c.removeLocked(ctx, id, RemovalInvalidated); err != nil {
			return removed, err
		}
		removed++
	}

	c.afterInvalidate(ctx, "region", removed)
	return removed, nil
}

// InvalidateAll removes every entry.
func (c *Cache) InvalidateAll(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.usable(); err != nil {
		return 0, err
	}

	removed := 0
	it := c.store.IDs().Iterator()
	for it.HasNext() {
		if err := c.removeLocked(ctx, model.EntryID(it.Next()), RemovalInvalidated); err != nil {
			return removed, err
		}
		removed++
	}

	c.afterInvalidate(ctx, "all", removed)
	return removed, nil
}

func (c *Cache) afterInvalidate(ctx context.Context, scope string, removed int) {
	c.metrics.RecordSize(c.store.Len(), c.store.Bytes())
	c.logger.LogInvalidate(ctx, scope, removed)
}

// Sweep removes entries whose effective confidence fell below the floor and
// materializes the decayed confidence of all others. It then adopts the
// decay rate published by the feedback controller, if any.
func (c *Cache) Sweep(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.usable(); err != nil {
		return 0, err
	}

	now := c.opts.clock()
	rate := c.currentDecayRate()

	var expired []model.EntryID
	c.store.Range(func(e *store.Entry) bool {
		conf := e.Confidence(now, rate)
		if conf < c.opts.confidenceFloor {
			expired = append(expired, e.ID)
		} else if rate > 0 {
			c.store.SetConfidence(e.ID, conf, now)
		}
		return true
	})

	for _, id := range expired {
		if err := c.removeLocked(ctx, id, RemovalExpired); err != nil {
			return 0, err
		}
	}

	if c.controller != nil {
		c.decayRate.Store(math.Float64bits(c.controller.Params().DecayRate))
	}

	c.metrics.RecordSize(c.store.Len(), c.store.Bytes())
	c.logger.LogExpire(ctx, len(expired), c.store.Len())

	return len(expired), nil
}

// onRecall lowers the confidence of a sampled entry to its measured recall.
func (c *Cache) onRecall(id model.EntryID, recall float64, at time.Time) {
	c.mu.RLock()
	lowered := c.store.LowerConfidence(id, recall, at, c.currentDecayRate())
	c.mu.RUnlock()

	if lowered {
		c.logger.Debug("confidence lowered by recall sample", "entry_id", uint64(id), "recall", recall)
	}
	c.metrics.RecordRecall(recall)
}

func (c *Cache) currentDecayRate() float64 {
	return math.Float64frombits(c.decayRate.Load())
}

// AnswerBatch answers many vectors concurrently. Results are positional; the
// first error cancels the remaining lookups.
func (c *Cache) AnswerBatch(ctx context.Context, vs []model.Vector) ([]model.Result, []bool, error) {
	results := make([]model.Result, len(vs))
	hits := make([]bool, len(vs))

	limit := c.opts.batchConcurrency
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, v := range vs {
		g.Go(func() error {
			r, hit, err := c.Answer(gctx, v)
			if err != nil {
				return err
			}
			results[i] = r
			hits[i] = hit
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return results, hits, nil
}

// Stats returns a point-in-time view of the cache.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	entries, bytes := c.store.Len(), c.store.Bytes()
	c.mu.RUnlock()

	s := Stats{
		Entries:       entries,
		Capacity:      c.opts.capacity,
		Bytes:         bytes,
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		BackendCalls:  c.backendCalls.Load(),
		BackendErrors: c.backendErrors.Load(),
		Merges:        c.merges.Load(),
		Evictions:     c.evictions.Load(),
		Expirations:   c.expirations.Load(),
		Invalidations: c.invalidated.Load(),
		Params:        feedback.Params{RadiusScale: 1, DecayRate: c.currentDecayRate()},
	}
	if c.window != nil {
		s.Window = c.window.Snapshot(c.opts.clock())
	}
	if c.controller != nil {
		s.Params.RadiusScale = c.controller.Params().RadiusScale
	}
	return s
}

// CheckConsistency verifies that index and store hold the same entry IDs
// and that the capacity bound holds. A violation faults the cache.
func (c *Cache) CheckConsistency(ctx context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if f := c.fault.Load(); f != nil {
		return *f
	}

	inIndex, inStore := c.idx.IDs(), c.store.IDs()
	if !inIndex.Equals(inStore) {
		return c.fail(ctx, "index holds %d ids, store holds %d ids", inIndex.GetCardinality(), inStore.GetCardinality())
	}
	if c.store.Len() > c.opts.capacity {
		return c.fail(ctx, "%d entries exceed capacity %d", c.store.Len(), c.opts.capacity)
	}
	return nil
}

// Close stops background work. Further calls return ErrClosed.
func (c *Cache) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		if c.cancel != nil {
			c.cancel()
		}
		c.wg.Wait()
		if c.controller != nil {
			c.controller.Stop()
		}
		if c.sampler != nil {
			c.sampler.Close()
		}
	})
	return nil
}

func (c *Cache) startBackground() {
	interval := c.opts.sweepInterval
	if c.controller != nil && c.opts.feedbackInterval > 0 && (interval <= 0 || c.opts.feedbackInterval < interval) {
		interval = c.opts.feedbackInterval
	}
	if interval <= 0 {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	if c.controller != nil {
		c.controller.Start(ctx)
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.tick(ctx)
			}
		}
	}()
}

func (c *Cache) tick(ctx context.Context) {
	if c.controller != nil && !c.controller.Offer(c.window.Snapshot(c.opts.clock())) {
		c.logger.DebugContext(ctx, "feedback snapshot dropped")
	}
	if _, err := c.Sweep(ctx); err != nil && !errors.Is(err, ErrClosed) {
		c.logger.WarnContext(ctx, "sweep failed", "error", err)
	}
}

func (c *Cache) usable() error {
	if c.closed.Load() {
		return ErrClosed
	}
	if f := c.fault.Load(); f != nil {
		return *f
	}
	return nil
}

// fail faults the cache. The first fault wins and is returned by every
// later call.
func (c *Cache) fail(ctx context.Context, format string, args ...any) error {
	err := fmt.Errorf("%w: "+format, append([]any{ErrInconsistentState}, args...)...)
	if c.fault.CompareAndSwap(nil, &err) {
		c.logger.LogFault(ctx, err)
		return err
	}
	return *c.fault.Load()
}

func (c *Cache) validate(v model.Vector) error {
	if err := index.CheckDimension(c.dimension, v); err != nil {
		return translateError(err)
	}
	for _, x := range v.View() {
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return ErrInvalidVector
		}
	}
	return nil
}

func flightKey(v model.Vector) string {
	b := make([]byte, 4*v.Dim())
	for i, x := range v.View() {
		binary.LittleEndian.PutUint32(b[4*i:], math.Float32bits(x))
	}
	return string(b)
}
