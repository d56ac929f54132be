package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusMetrics implements Metrics backed by a Prometheus registry.
// Collectors are created lazily per metric name and label set.
type PrometheusMetrics struct {
	registry  *prometheus.Registry
	namespace string

	mu       sync.Mutex
	counters map[string]*prometheus.CounterVec
	gauges   map[string]*prometheus.GaugeVec
	timings  map[string]*prometheus.HistogramVec
}

// NewPrometheusMetrics creates a Prometheus-backed metrics collector.
func NewPrometheusMetrics(namespace string) *PrometheusMetrics {
	return &PrometheusMetrics{
		registry:  prometheus.NewRegistry(),
		namespace: namespace,
		counters:  make(map[string]*prometheus.CounterVec),
		gauges:    make(map[string]*prometheus.GaugeVec),
		timings:   make(map[string]*prometheus.HistogramVec),
	}
}

// Handler returns an HTTP handler exposing the registry in the
// Prometheus text format.
func (m *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Counter increments a counter metric.
func (m *PrometheusMetrics) Counter(name string, value int64, tags ...Tag) {
	m.mu.Lock()
	vec, ok := m.counters[name]
	if !ok {
		vec = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: m.namespace,
			Name:      name,
		}, tagKeys(tags))
		m.registry.MustRegister(vec)
		m.counters[name] = vec
	}
	m.mu.Unlock()

	vec.With(tagLabels(tags)).Add(float64(value))
}

// Gauge sets a gauge metric.
func (m *PrometheusMetrics) Gauge(name string, value float64, tags ...Tag) {
	m.mu.Lock()
	vec, ok := m.gauges[name]
	if !ok {
		vec = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: m.namespace,
			Name:      name,
		}, tagKeys(tags))
		m.registry.MustRegister(vec)
		m.gauges[name] = vec
	}
	m.mu.Unlock()

	vec.With(tagLabels(tags)).Set(value)
}

// Timing records a duration as a histogram observation in seconds.
func (m *PrometheusMetrics) Timing(name string, duration time.Duration, tags ...Tag) {
	m.mu.Lock()
	vec, ok := m.timings[name]
	if !ok {
		vec = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: m.namespace,
			Name:      name,
			Buckets:   prometheus.DefBuckets,
		}, tagKeys(tags))
		m.registry.MustRegister(vec)
		m.timings[name] = vec
	}
	m.mu.Unlock()

	vec.With(tagLabels(tags)).Observe(duration.Seconds())
}

func tagKeys(tags []Tag) []string {
	keys := make([]string, len(tags))
	for i, t := range tags {
		keys[i] = t.Key
	}
	return keys
}

func tagLabels(tags []Tag) prometheus.Labels {
	labels := make(prometheus.Labels, len(tags))
	for _, t := range tags {
		labels[t.Key] = t.Value
	}
	return labels
}
