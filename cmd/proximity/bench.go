package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/proximity"
	"github.com/hupe1980/proximity/backend/memory"
	"github.com/hupe1980/proximity/backend/qdrant"
	"github.com/hupe1980/proximity/distance"
	"github.com/hupe1980/proximity/internal/config"
	"github.com/hupe1980/proximity/internal/dataset"
	"github.com/hupe1980/proximity/invalidation"
	"github.com/hupe1980/proximity/model"
	"github.com/hupe1980/proximity/observability"
	"github.com/hupe1980/proximity/testutil"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

// maxPool bounds the number of distinct hot points synthetic queries are
// drawn around.
const maxPool = 1024

type benchFlags struct {
	queries   int
	workers   int
	queryFile string
	noise     float64
	skew      float64
	clusters  int
	verify    float64
	json      bool
}

type report struct {
	Queries  int           `json:"queries"`
	Workers  int           `json:"workers"`
	Errors   int64         `json:"errors"`
	Duration time.Duration `json:"duration_ns"`
	QPS      float64       `json:"qps"`

	HitRatio      float64 `json:"hit_ratio"`
	Hits          uint64  `json:"hits"`
	Misses        uint64  `json:"misses"`
	BackendCalls  uint64  `json:"backend_calls"`
	Merges        uint64  `json:"merges"`
	Evictions     uint64  `json:"evictions"`
	Expirations   uint64  `json:"expirations"`
	Invalidations uint64  `json:"invalidations"`
	Entries       int     `json:"entries"`
	Bytes         int64   `json:"bytes"`

	Verified int     `json:"verified"`
	Recall   float64 `json:"recall"`

	P50 time.Duration `json:"p50_ns"`
	P95 time.Duration `json:"p95_ns"`
	P99 time.Duration `json:"p99_ns"`
}

func (r *report) write(w io.Writer, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}

	_, err := fmt.Fprintf(w, `queries        %d (%d workers, %d errors)
duration       %s (%.0f q/s)
hit ratio      %.4f (%d hits, %d misses)
backend calls  %d (%d merged)
removals       %d evicted, %d expired, %d invalidated
entries        %d (%d bytes)
recall         %.4f over %d verified
latency        p50 %s  p95 %s  p99 %s
`,
		r.Queries, r.Workers, r.Errors,
		r.Duration.Round(time.Millisecond), r.QPS,
		r.HitRatio, r.Hits, r.Misses,
		r.BackendCalls, r.Merges,
		r.Evictions, r.Expirations, r.Invalidations,
		r.Entries, r.Bytes,
		r.Recall, r.Verified,
		r.P50, r.P95, r.P99,
	)
	return err
}

func runBench(ctx context.Context, cfg *config.Config, flags benchFlags) (*report, error) {
	logger := cfg.Logger()

	opts, err := cfg.CacheOptions()
	if err != nil {
		return nil, err
	}

	if tc := cfg.Observability.Tracing; tc.Enabled {
		tp, err := observability.InitTracing(ctx, &observability.TracingConfig{
			ServiceName:    tc.ServiceName,
			ServiceVersion: version,
			Environment:    "bench",
			OTLPEndpoint:   tc.Endpoint,
			Insecure:       tc.Insecure,
			SampleRate:     tc.SampleRate,
		})
		if err != nil {
			return nil, err
		}
		defer func() { _ = tp.Shutdown(context.WithoutCancel(ctx)) }()
		opts = append(opts, proximity.WithTracerProvider(tp.Provider()))
	}

	reg := prometheus.NewRegistry()
	collector, err := observability.NewPrometheusCollector(reg, "bench")
	if err != nil {
		return nil, err
	}
	opts = append(opts, proximity.WithLogger(logger), proximity.WithMetricsCollector(collector))

	if addr := cfg.Observability.MetricsAddr; addr != "" {
		srv := &http.Server{Addr: addr, Handler: observability.Handler(reg), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "error", err)
			}
		}()
		defer func() { _ = srv.Shutdown(context.WithoutCancel(ctx)) }()
	}

	backend, data, closeBackend, err := openBackend(ctx, cfg, flags)
	if err != nil {
		return nil, err
	}
	defer closeBackend()

	cache, err := proximity.New(cfg.Cache.Dimension, backend, opts...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = cache.Close() }()

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer func() { _ = rdb.Close() }()

		sub := invalidation.NewSubscriber(rdb, cache, func(o *invalidation.SubscriberOptions) {
			o.Channel = cfg.Redis.Channel
			o.Logger = logger.Logger
		})
		if err := sub.Start(ctx); err != nil {
			return nil, err
		}
		defer func() { _ = sub.Close() }()
	}

	queries, err := loadQueries(ctx, cfg, flags, data)
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "bench started",
		"queries", len(queries),
		"workers", flags.workers,
		"backend", cfg.Backend.Kind,
		"index", cfg.Cache.Index.Kind,
	)

	return runWorkload(ctx, cache, backend, queries, flags)
}

// openBackend returns the searcher, its dataset when it is held in memory,
// and a close function.
func openBackend(ctx context.Context, cfg *config.Config, flags benchFlags) (proximity.Searcher, []model.Vector, func(), error) {
	metric, err := distance.ParseMetric(cfg.Cache.Metric)
	if err != nil {
		return nil, nil, nil, err
	}

	switch cfg.Backend.Kind {
	case "qdrant":
		s, err := qdrant.New(cfg.Backend.Qdrant.Addr, func(o *qdrant.Options) {
			o.Collection = cfg.Backend.Qdrant.Collection
			o.K = uint64(cfg.Backend.K)
			o.Metric = metric
		})
		if err != nil {
			return nil, nil, nil, err
		}
		return s, nil, func() { _ = s.Close() }, nil

	default:
		mc := cfg.Backend.Memory

		var data []model.Vector
		if mc.Dataset != "" {
			data, err = dataset.LoadURI(ctx, mc.Dataset, mc.Size)
			if err != nil {
				return nil, nil, nil, err
			}
		} else {
			data = testutil.NewRNG(cfg.Cache.Seed).ClusteredVectors(mc.Size, cfg.Cache.Dimension, max(flags.clusters, 1), 0.05)
		}
		if len(data) == 0 {
			return nil, nil, nil, errors.New("bench: empty dataset")
		}
		if data[0].Dim() != cfg.Cache.Dimension {
			return nil, nil, nil, fmt.Errorf("bench: dataset dimension %d, cache dimension %d", data[0].Dim(), cfg.Cache.Dimension)
		}

		s, err := memory.New(data, func(o *memory.Options) {
			o.K = cfg.Backend.K
			o.Metric = metric
			o.Latency = mc.Latency
			o.Workers = mc.Workers
		})
		if err != nil {
			return nil, nil, nil, err
		}
		return s, data, func() {}, nil
	}
}

// loadQueries reads the query file, or draws a skewed synthetic stream
// around hot points of the dataset.
func loadQueries(ctx context.Context, cfg *config.Config, flags benchFlags, data []model.Vector) ([]model.Vector, error) {
	if flags.queryFile != "" {
		return dataset.LoadURI(ctx, flags.queryFile, flags.queries)
	}

	rng := testutil.NewRNG(cfg.Cache.Seed + 1)

	pool := data
	if len(pool) == 0 {
		pool = rng.UnitVectors(maxPool, cfg.Cache.Dimension)
	}
	if len(pool) > maxPool {
		pool = pool[:maxPool]
	}

	queries := make([]model.Vector, flags.queries)
	for i := range queries {
		queries[i] = rng.Perturb(pool[rng.Zipf(len(pool), flags.skew)], float32(flags.noise))
	}
	return queries, nil
}

// runWorkload answers every query once through the cache.
func runWorkload(ctx context.Context, cache *proximity.Cache, backend proximity.Searcher, queries []model.Vector, flags benchFlags) (*report, error) {
	workers := max(flags.workers, 1)
	verifyEvery := 0
	if flags.verify > 0 {
		verifyEvery = max(int(1/min(flags.verify, 1)), 1)
	}

	var (
		next      atomic.Int64
		errCount  atomic.Int64
		mu        sync.Mutex
		latencies = make([]time.Duration, 0, len(queries))
		recallSum float64
		verified  int
	)

	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	for range workers {
		g.Go(func() error {
			local := make([]time.Duration, 0, len(queries)/workers+1)
			var lsum float64
			var lverified int

			for {
				i := int(next.Add(1) - 1)
				if i >= len(queries) {
					break
				}
				if err := gctx.Err(); err != nil {
					return err
				}

				t0 := time.Now()
				res, _, err := cache.Answer(gctx, queries[i])
				local = append(local, time.Since(t0))
				if err != nil {
					if errors.Is(err, proximity.ErrClosed) {
						return err
					}
					errCount.Add(1)
					continue
				}

				if verifyEvery > 0 && i%verifyEvery == 0 {
					truth, err := backend.Search(gctx, queries[i])
					if err == nil {
						lsum += res.Recall(truth)
						lverified++
					}
				}
			}

			mu.Lock()
			latencies = append(latencies, local...)
			recallSum += lsum
			verified += lverified
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	elapsed := time.Since(start)
	st := cache.Stats()

	rep := &report{
		Queries:       len(queries),
		Workers:       workers,
		Errors:        errCount.Load(),
		Duration:      elapsed,
		HitRatio:      st.HitRatio(),
		Hits:          st.Hits,
		Misses:        st.Misses,
		BackendCalls:  st.BackendCalls,
		Merges:        st.Merges,
		Evictions:     st.Evictions,
		Expirations:   st.Expirations,
		Invalidations: st.Invalidations,
		Entries:       st.Entries,
		Bytes:         st.Bytes,
		Verified:      verified,
	}
	if elapsed > 0 {
		rep.QPS = float64(len(queries)) / elapsed.Seconds()
	}
	if verified > 0 {
		rep.Recall = recallSum / float64(verified)
	}

	slices.Sort(latencies)
	rep.P50 = percentile(latencies, 0.50)
	rep.P95 = percentile(latencies, 0.95)
	rep.P99 = percentile(latencies, 0.99)

	return rep, nil
}

// percentile expects sorted input.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	i := int(p * float64(len(sorted)-1))
	return sorted[i]
}

type invalidateFlags struct {
	all    bool
	center []float32
	radius float64
}

func runInvalidate(ctx context.Context, cfg *config.Config, flags invalidateFlags) (int64, error) {
	if cfg.Redis.Addr == "" {
		return 0, errors.New("invalidate: redis.addr is not configured")
	}

	msg := invalidation.Message{Scope: invalidation.ScopeRegion, Center: flags.center, Radius: flags.radius}
	if flags.all {
		msg = invalidation.Message{Scope: invalidation.ScopeAll}
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	defer func() { _ = rdb.Close() }()

	return invalidation.NewPublisher(rdb, cfg.Redis.Channel).Publish(ctx, msg)
}
