// Package config loads the proximity command configuration from a YAML
// file and PROXIMITY_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hupe1980/proximity"
	"github.com/hupe1980/proximity/codec"
	"github.com/hupe1980/proximity/distance"
	"github.com/hupe1980/proximity/eviction"
	"github.com/hupe1980/proximity/index"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides, e.g.
// PROXIMITY_CACHE_CAPACITY=4096.
const EnvPrefix = "PROXIMITY"

// Config holds all application configuration.
type Config struct {
	Cache         CacheConfig         `mapstructure:"cache"`
	Feedback      FeedbackConfig      `mapstructure:"feedback"`
	Backend       BackendConfig       `mapstructure:"backend"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type CacheConfig struct {
	Dimension int    `mapstructure:"dimension"`
	Metric    string `mapstructure:"metric"`
	Capacity  int    `mapstructure:"capacity"`
	Seed      int64  `mapstructure:"seed"`

	Index IndexConfig `mapstructure:"index"`

	Radius         float64 `mapstructure:"radius"`
	AdaptiveRadius bool    `mapstructure:"adaptive_radius"`

	DecayRate       float64 `mapstructure:"decay_rate"`
	ConfidenceFloor float64 `mapstructure:"confidence_floor"`

	Eviction    string `mapstructure:"eviction"`
	Codec       string `mapstructure:"codec"`
	Compression string `mapstructure:"compression"`
	MemoryLimit int64  `mapstructure:"memory_limit"`

	MaxInflightBackend int64         `mapstructure:"max_inflight_backend"`
	BackendTimeout     time.Duration `mapstructure:"backend_timeout"`
	BatchConcurrency   int           `mapstructure:"batch_concurrency"`
	SweepInterval      time.Duration `mapstructure:"sweep_interval"`
}

type IndexConfig struct {
	Kind        string  `mapstructure:"kind"`
	Epsilon     float64 `mapstructure:"epsilon"`
	LeafSize    int     `mapstructure:"leaf_size"`
	Fanout      int     `mapstructure:"fanout"`
	LSHTables   int     `mapstructure:"lsh_tables"`
	LSHBits     int     `mapstructure:"lsh_bits"`
	BucketWidth float64 `mapstructure:"bucket_width"`
}

type FeedbackConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	SampleRate    float64       `mapstructure:"sample_rate"`
	SamplesPerSec float64       `mapstructure:"samples_per_sec"`
	TargetRecall  float64       `mapstructure:"target_recall"`
	Window        time.Duration `mapstructure:"window"`
	Interval      time.Duration `mapstructure:"interval"`
}

type BackendConfig struct {
	// Kind is "memory" or "qdrant".
	Kind   string        `mapstructure:"kind"`
	K      int           `mapstructure:"k"`
	Memory MemoryBackend `mapstructure:"memory"`
	Qdrant QdrantBackend `mapstructure:"qdrant"`
}

type MemoryBackend struct {
	// Dataset is an .fvecs location (path, s3:// or minio:// URI). Empty
	// means a synthetic clustered dataset of Size vectors.
	Dataset string        `mapstructure:"dataset"`
	Size    int           `mapstructure:"size"`
	Latency time.Duration `mapstructure:"latency"`
	Workers int           `mapstructure:"workers"`
}

type QdrantBackend struct {
	Addr       string `mapstructure:"addr"`
	Collection string `mapstructure:"collection"`
}

// RedisConfig enables cross-process invalidation when Addr is set.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Channel  string `mapstructure:"channel"`
}

type ObservabilityConfig struct {
	Log         LogConfig     `mapstructure:"log"`
	MetricsAddr string        `mapstructure:"metrics_addr"`
	Tracing     TracingConfig `mapstructure:"tracing"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint"`
	Insecure    bool    `mapstructure:"insecure"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	ServiceName string  `mapstructure:"service_name"`
}

var defaults = map[string]any{
	"cache.dimension":            32,
	"cache.metric":               "l2",
	"cache.capacity":             1024,
	"cache.seed":                 1,
	"cache.index.kind":           "balltree",
	"cache.index.epsilon":        0.0,
	"cache.index.leaf_size":      16,
	"cache.index.fanout":         2,
	"cache.index.lsh_tables":     8,
	"cache.index.lsh_bits":       8,
	"cache.index.bucket_width":   1.0,
	"cache.radius":               0.5,
	"cache.adaptive_radius":      false,
	"cache.decay_rate":           0.0,
	"cache.confidence_floor":     0.0,
	"cache.eviction":             "scored",
	"cache.codec":                "binary",
	"cache.compression":          "none",
	"cache.memory_limit":         0,
	"cache.max_inflight_backend": 0,
	"cache.backend_timeout":      "0s",
	"cache.batch_concurrency":    0,
	"cache.sweep_interval":       "0s",

	"feedback.enabled":         false,
	"feedback.sample_rate":     0.01,
	"feedback.samples_per_sec": 0.0,
	"feedback.target_recall":   0.9,
	"feedback.window":          "1m",
	"feedback.interval":        "5s",

	"backend.kind":              "memory",
	"backend.k":                 10,
	"backend.memory.dataset":    "",
	"backend.memory.size":       10000,
	"backend.memory.latency":    "0s",
	"backend.memory.workers":    1,
	"backend.qdrant.addr":       "localhost:6334",
	"backend.qdrant.collection": "",

	"redis.addr":     "",
	"redis.password": "",
	"redis.db":       0,
	"redis.channel":  "proximity:invalidate",

	"observability.log.level":            "info",
	"observability.log.format":           "text",
	"observability.metrics_addr":         "",
	"observability.tracing.enabled":      false,
	"observability.tracing.endpoint":     "localhost:4317",
	"observability.tracing.insecure":     true,
	"observability.tracing.sample_rate":  1.0,
	"observability.tracing.service_name": "proximity",
}

// Load reads configuration from path (optional) and the environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the configuration for values the cache would reject.
func (c *Config) Validate() error {
	var errs []error

	if c.Cache.Dimension <= 0 {
		errs = append(errs, fmt.Errorf("cache.dimension must be positive, got %d", c.Cache.Dimension))
	}
	if c.Cache.Capacity <= 0 {
		errs = append(errs, fmt.Errorf("cache.capacity must be positive, got %d", c.Cache.Capacity))
	}
	if c.Cache.Radius < 0 {
		errs = append(errs, fmt.Errorf("cache.radius must be non-negative, got %g", c.Cache.Radius))
	}
	if c.Cache.ConfidenceFloor < 0 || c.Cache.ConfidenceFloor > 1 {
		errs = append(errs, fmt.Errorf("cache.confidence_floor must be in [0, 1], got %g", c.Cache.ConfidenceFloor))
	}
	if _, err := distance.ParseMetric(c.Cache.Metric); err != nil {
		errs = append(errs, err)
	}
	if _, err := index.ParseKind(c.Cache.Index.Kind); err != nil {
		errs = append(errs, err)
	}
	if _, err := eviction.ParseKind(c.Cache.Eviction); err != nil {
		errs = append(errs, err)
	}
	if _, ok := codec.ByName(c.Cache.Codec); !ok {
		errs = append(errs, fmt.Errorf("unsupported codec: %q", c.Cache.Codec))
	}
	if _, err := codec.ParseCompression(c.Cache.Compression); err != nil {
		errs = append(errs, err)
	}

	switch c.Backend.Kind {
	case "memory":
	case "qdrant":
		if c.Backend.Qdrant.Collection == "" {
			errs = append(errs, errors.New("backend.qdrant.collection is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported backend kind: %q", c.Backend.Kind))
	}
	if c.Backend.K <= 0 {
		errs = append(errs, fmt.Errorf("backend.k must be positive, got %d", c.Backend.K))
	}

	if c.Feedback.Enabled {
		if c.Feedback.SampleRate < 0 || c.Feedback.SampleRate > 1 {
			errs = append(errs, fmt.Errorf("feedback.sample_rate must be in [0, 1], got %g", c.Feedback.SampleRate))
		}
		if c.Feedback.TargetRecall <= 0 || c.Feedback.TargetRecall > 1 {
			errs = append(errs, fmt.Errorf("feedback.target_recall must be in (0, 1], got %g", c.Feedback.TargetRecall))
		}
	}

	if _, err := ParseLevel(c.Observability.Log.Level); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// ParseLevel parses a log level name.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("unsupported log level: %q", s)
	}
	return l, nil
}

// Logger builds the cache logger described by the log section.
func (c *Config) Logger() *proximity.Logger {
	level, err := ParseLevel(c.Observability.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	if strings.EqualFold(c.Observability.Log.Format, "json") {
		return proximity.NewJSONLogger(level)
	}
	return proximity.NewTextLogger(level)
}

// CacheOptions converts the cache and feedback sections into cache options.
// Observability options (logger, metrics, tracing) are added by the caller.
func (c *Config) CacheOptions() ([]proximity.Option, error) {
	metric, err := distance.ParseMetric(c.Cache.Metric)
	if err != nil {
		return nil, err
	}
	kind, err := index.ParseKind(c.Cache.Index.Kind)
	if err != nil {
		return nil, err
	}
	ev, err := eviction.ParseKind(c.Cache.Eviction)
	if err != nil {
		return nil, err
	}
	cd, ok := codec.ByName(c.Cache.Codec)
	if !ok {
		return nil, fmt.Errorf("unsupported codec: %q", c.Cache.Codec)
	}
	comp, err := codec.ParseCompression(c.Cache.Compression)
	if err != nil {
		return nil, err
	}

	opts := []proximity.Option{
		proximity.WithMetric(metric),
		proximity.WithCapacity(c.Cache.Capacity),
		proximity.WithIndex(kind, c.Cache.Index.Epsilon),
		proximity.WithBallTree(c.Cache.Index.LeafSize, c.Cache.Index.Fanout),
		proximity.WithLSH(c.Cache.Index.LSHTables, c.Cache.Index.LSHBits, c.Cache.Index.BucketWidth),
		proximity.WithSeed(c.Cache.Seed),
		proximity.WithConfidence(c.Cache.DecayRate, c.Cache.ConfidenceFloor),
		proximity.WithEviction(ev),
		proximity.WithPayloadCodec(cd, comp),
		proximity.WithMemoryLimit(c.Cache.MemoryLimit),
		proximity.WithBackend(c.Cache.MaxInflightBackend, c.Cache.BackendTimeout),
		proximity.WithBatchConcurrency(c.Cache.BatchConcurrency),
		proximity.WithSweepInterval(c.Cache.SweepInterval),
	}

	if c.Cache.AdaptiveRadius {
		opts = append(opts, proximity.WithRadiusPolicy(proximity.NewAdaptiveRadius(c.Cache.Radius)))
	} else {
		opts = append(opts, proximity.WithRadius(c.Cache.Radius))
	}

	if c.Feedback.Enabled {
		opts = append(opts,
			proximity.WithFeedback(c.Feedback.SampleRate, c.Feedback.SamplesPerSec, c.Feedback.TargetRecall),
			proximity.WithFeedbackWindow(c.Feedback.Window, c.Feedback.Interval),
		)
	}

	return opts, nil
}
