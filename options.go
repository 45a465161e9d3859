package proximity

import (
	"log/slog"
	"math"
	"time"

	"github.com/hupe1980/proximity/codec"
	"github.com/hupe1980/proximity/distance"
	"github.com/hupe1980/proximity/eviction"
	"github.com/hupe1980/proximity/index"
	"go.opentelemetry.io/otel/trace"
)

type options struct {
	metric   distance.Metric
	capacity int

	indexKind   index.Kind
	epsilon     float64
	leafSize    int
	fanout      int
	lshTables   int
	lshBits     int
	bucketWidth float64
	seed        int64

	radius            RadiusPolicy
	initialConfidence float64
	confidenceFloor   float64
	decayRate         float64

	evictionKind   eviction.Kind
	evictionPolicy eviction.Policy
	weights        eviction.Weights

	codec       codec.Codec
	compression codec.Compression
	memoryLimit int64

	maxInflightBackend int64
	backendTimeout     time.Duration
	batchConcurrency   int

	feedback         bool
	sampleRate       float64
	samplesPerSec    float64
	targetRecall     float64
	window           time.Duration
	feedbackInterval time.Duration
	invalidationLog  int
	invalidationTTL  time.Duration
	sweepInterval    time.Duration

	logger         *Logger
	metrics        MetricsCollector
	tracerProvider trace.TracerProvider
	clock          func() time.Time
}

// Option configures a Cache.
type Option func(*options)

// WithMetric sets the distance metric (default L2).
func WithMetric(m distance.Metric) Option {
	return func(o *options) {
		o.metric = m
	}
}

// WithCapacity sets the maximum number of cached regions (default 1024).
func WithCapacity(capacity int) Option {
	return func(o *options) {
		o.capacity = capacity
	}
}

// WithIndex selects the proximity index implementation and its approximation
// factor ε. ε only applies to the ball tree; the flat index is always exact
// and LSH gives a probabilistic guarantee.
func WithIndex(kind index.Kind, epsilon float64) Option {
	return func(o *options) {
		o.indexKind = kind
		o.epsilon = epsilon
	}
}

// WithBallTree tunes the ball tree leaf size and split fanout.
func WithBallTree(leafSize, fanout int) Option {
	return func(o *options) {
		o.leafSize = leafSize
		o.fanout = fanout
	}
}

// WithLSH tunes the number of hash tables, hash bits per table and, for L2,
// the bucket width.
func WithLSH(tables, bits int, bucketWidth float64) Option {
	return func(o *options) {
		o.lshTables = tables
		o.lshBits = bits
		o.bucketWidth = bucketWidth
	}
}

// WithSeed makes randomized components (ball tree splits, LSH hash
// families, recall sampling) reproducible.
func WithSeed(seed int64) Option {
	return func(o *options) {
		o.seed = seed
	}
}

// WithRadius sets a fixed acceptance radius for new entries.
func WithRadius(r float64) Option {
	return func(o *options) {
		o.radius = FixedRadius(r)
	}
}

// WithRadiusPolicy sets a custom radius policy, e.g. an AdaptiveRadius.
func WithRadiusPolicy(p RadiusPolicy) Option {
	return func(o *options) {
		o.radius = p
	}
}

// WithConfidence configures confidence decay: new entries start at 1 and
// decay as exp(-decayRate * age_seconds); entries below floor are expired.
func WithConfidence(decayRate, floor float64) Option {
	return func(o *options) {
		o.decayRate = decayRate
		o.confidenceFloor = floor
	}
}

// WithEviction selects a built-in eviction strategy.
func WithEviction(kind eviction.Kind) Option {
	return func(o *options) {
		o.evictionKind = kind
	}
}

// WithEvictionWeights sets the keep-score weights of the scored policy.
func WithEvictionWeights(w eviction.Weights) Option {
	return func(o *options) {
		o.weights = w
	}
}

// WithEvictionPolicy installs a custom eviction policy.
func WithEvictionPolicy(p eviction.Policy) Option {
	return func(o *options) {
		o.evictionPolicy = p
	}
}

// WithPayloadCodec configures how cached results are encoded and compressed.
//
// If nil is passed, codec.Default is used.
func WithPayloadCodec(c codec.Codec, compression codec.Compression) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
		o.compression = compression
	}
}

// WithMemoryLimit bounds the accounted size of all entries in bytes.
// Entries are evicted, one at a time, until a new entry fits.
func WithMemoryLimit(bytes int64) Option {
	return func(o *options) {
		o.memoryLimit = bytes
	}
}

// WithBackend bounds concurrent backend searches and the duration of each.
// Zero means unlimited.
func WithBackend(maxInflight int64, timeout time.Duration) Option {
	return func(o *options) {
		o.maxInflightBackend = maxInflight
		o.backendTimeout = timeout
	}
}

// WithBatchConcurrency bounds the number of parallel lookups in AnswerBatch.
func WithBatchConcurrency(n int) Option {
	return func(o *options) {
		o.batchConcurrency = n
	}
}

// WithFeedback enables recall sampling and the adaptive controller.
//
// sampleRate is the fraction of hits re-checked against the backend,
// samplesPerSec caps the verification rate (0 = unlimited) and the
// controller tries to hold sampled recall at or above targetRecall.
func WithFeedback(sampleRate, samplesPerSec, targetRecall float64) Option {
	return func(o *options) {
		o.feedback = true
		o.sampleRate = sampleRate
		o.samplesPerSec = samplesPerSec
		o.targetRecall = targetRecall
	}
}

// WithFeedbackWindow sets the sliding window size and how often snapshots
// are handed to the adaptive controller.
func WithFeedbackWindow(window, interval time.Duration) Option {
	return func(o *options) {
		o.window = window
		o.feedbackInterval = interval
	}
}

// WithInvalidationLog sets how many recent invalidations are remembered and
// for how long; AdaptiveRadius consults this log.
func WithInvalidationLog(size int, ttl time.Duration) Option {
	return func(o *options) {
		o.invalidationLog = size
		o.invalidationTTL = ttl
	}
}

// WithSweepInterval periodically removes expired entries and materializes
// decayed confidence. Zero disables the background sweep.
func WithSweepInterval(d time.Duration) Option {
	return func(o *options) {
		o.sweepInterval = d
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &proximity.BasicMetricsCollector{}
//	cache, _ := proximity.New(128, backend, proximity.WithMetricsCollector(metrics))
//	// ... use cache ...
//	stats := metrics.GetStats()
//	fmt.Printf("Hits: %d, Misses: %d\n", stats.HitCount, stats.MissCount)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metrics = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := proximity.NewJSONLogger(slog.LevelInfo)
//	cache, _ := proximity.New(128, backend, proximity.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider.
// The global provider is used by default.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProvider = tp
	}
}

// WithClock replaces time.Now, mainly for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.clock = now
		}
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metric:            distance.MetricL2,
		capacity:          1024,
		indexKind:         index.KindBallTree,
		leafSize:          16,
		fanout:            2,
		lshTables:         8,
		lshBits:           8,
		bucketWidth:       1,
		seed:              1,
		radius:            FixedRadius(0),
		initialConfidence: 1,
		confidenceFloor:   0,
		decayRate:         0,
		evictionKind:      eviction.KindScored,
		weights:           eviction.DefaultWeights,
		codec:             codec.Default,
		compression:       codec.CompressionNone,
		sampleRate:        0.01,
		targetRecall:      0.9,
		window:            time.Minute,
		feedbackInterval:  5 * time.Second,
		invalidationLog:   256,
		invalidationTTL:   10 * time.Minute,
		logger:            NoopLogger(),
		metrics:           NoopMetricsCollector{},
		clock:             time.Now,
	}

	for _, fn := range optFns {
		fn(&o)
	}

	return o
}

func (o *options) validate() error {
	switch {
	case o.capacity <= 0:
		return &ErrInvalidOption{Name: "capacity", Reason: "must be > 0"}
	case !o.metric.Valid():
		return &ErrInvalidOption{Name: "metric", Reason: o.metric.String()}
	case o.epsilon < 0:
		return &ErrInvalidOption{Name: "epsilon", Reason: "must be >= 0"}
	case o.radius == nil:
		return &ErrInvalidOption{Name: "radius", Reason: "policy must not be nil"}
	case o.decayRate < 0:
		return &ErrInvalidOption{Name: "decay rate", Reason: "must be >= 0"}
	case o.confidenceFloor < 0 || o.confidenceFloor > 1:
		return &ErrInvalidOption{Name: "confidence floor", Reason: "must be in [0, 1]"}
	case o.sampleRate < 0 || o.sampleRate > 1:
		return &ErrInvalidOption{Name: "sample rate", Reason: "must be in [0, 1]"}
	}
	if r, ok := o.radius.(FixedRadius); ok && (r < 0 || math.IsNaN(float64(r))) {
		return &ErrInvalidOption{Name: "radius", Reason: "must be >= 0"}
	}
	return nil
}
