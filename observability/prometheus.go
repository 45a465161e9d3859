package observability

import (
	"net/http"
	"time"

	"github.com/hupe1980/proximity"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "proximity"

// Compile-time check to ensure PrometheusCollector satisfies the metrics interface.
var _ proximity.MetricsCollector = (*PrometheusCollector)(nil)

// PrometheusCollector exports cache metrics to Prometheus.
type PrometheusCollector struct {
	hits          prometheus.Counter
	misses        prometheus.Counter
	backendErrors prometheus.Counter
	removals      *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	recall        prometheus.Histogram
	entries       prometheus.Gauge
	bytes         prometheus.Gauge
}

// NewPrometheusCollector creates the cache metrics and registers them with
// reg. name is attached as the "cache" label so several caches can share a
// registry.
func NewPrometheusCollector(reg prometheus.Registerer, name string) (*PrometheusCollector, error) {
	labels := prometheus.Labels{"cache": name}

	m := &PrometheusCollector{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "hits_total",
			ConstLabels: labels,
			Help:        "Total number of lookups served from cache",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "misses_total",
			ConstLabels: labels,
			Help:        "Total number of lookups resolved by the backend",
		}),
		backendErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "miss_errors_total",
			ConstLabels: labels,
			Help:        "Total number of misses that returned an error",
		}),
		removals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "removals_total",
			ConstLabels: labels,
			Help:        "Total number of removed entries by reason",
		}, []string{"reason"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "answer_duration_seconds",
			ConstLabels: labels,
			Help:        "Latency of Answer calls by outcome",
			Buckets:     prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, []string{"outcome"}),
		recall: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "sampled_recall",
			ConstLabels: labels,
			Help:        "Recall of sampled cache hits against the backend",
			Buckets:     prometheus.LinearBuckets(0.1, 0.1, 10),
		}),
		entries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "entries",
			ConstLabels: labels,
			Help:        "Current number of cached regions",
		}),
		bytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "bytes",
			ConstLabels: labels,
			Help:        "Accounted size of all cached regions",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.hits, m.misses, m.backendErrors, m.removals, m.latency, m.recall, m.entries, m.bytes,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// RecordHit implements proximity.MetricsCollector.
func (m *PrometheusCollector) RecordHit(latency time.Duration) {
	m.hits.Inc()
	m.latency.WithLabelValues("hit").Observe(latency.Seconds())
}

// RecordMiss implements proximity.MetricsCollector.
func (m *PrometheusCollector) RecordMiss(latency time.Duration, err error) {
	m.misses.Inc()
	outcome := "miss"
	if err != nil {
		m.backendErrors.Inc()
		outcome = "error"
	}
	m.latency.WithLabelValues(outcome).Observe(latency.Seconds())
}

// RecordRemoval implements proximity.MetricsCollector.
func (m *PrometheusCollector) RecordRemoval(reason proximity.RemovalReason) {
	m.removals.WithLabelValues(string(reason)).Inc()
}

// RecordRecall implements proximity.MetricsCollector.
func (m *PrometheusCollector) RecordRecall(recall float64) {
	m.recall.Observe(recall)
}

// RecordSize implements proximity.MetricsCollector.
func (m *PrometheusCollector) RecordSize(entries int, bytes int64) {
	m.entries.Set(float64(entries))
	m.bytes.Set(float64(bytes))
}

// Handler returns an HTTP handler exposing the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
