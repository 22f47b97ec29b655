package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the service's collectors on a private registry. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	passes       *prometheus.CounterVec
	passDuration prometheus.Histogram
	reposFailed  prometheus.Counter
	postsUpdated prometheus.Counter
	running      prometheus.Gauge
	reaped       prometheus.Counter
	requests     *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		passes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gitsync_passes_total",
			Help: "Sync passes by outcome.",
		}, []string{"outcome"}),
		passDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gitsync_pass_duration_seconds",
			Help:    "Wall-clock duration of sync passes.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
		reposFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gitsync_repos_failed_total",
			Help: "Repository groups skipped because processing failed.",
		}),
		postsUpdated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gitsync_posts_updated_total",
			Help: "Change summaries written back to the record store.",
		}),
		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gitsync_sync_running",
			Help: "1 while a pass is executing.",
		}),
		reaped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gitsync_stale_processes_reaped_total",
			Help: "Stale git clone processes terminated before a pass.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gitsync_http_requests_total",
			Help: "Control surface requests by method and status code.",
		}, []string{"method", "code"}),
	}

	m.registry.MustRegister(
		m.passes, m.passDuration, m.reposFailed, m.postsUpdated, m.running, m.reaped, m.requests,
		prometheus.NewGoCollector(),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) PassStarted() {
	if m == nil {
		return
	}
	m.running.Set(1)
}

func (m *Metrics) PassFinished(outcome string, took time.Duration, reposFailed, postsUpdated int) {
	if m == nil {
		return
	}
	m.running.Set(0)
	m.passes.WithLabelValues(outcome).Inc()
	m.passDuration.Observe(took.Seconds())
	m.reposFailed.Add(float64(reposFailed))
	m.postsUpdated.Add(float64(postsUpdated))
}

func (m *Metrics) Reaped(n int) {
	if m == nil {
		return
	}
	m.reaped.Add(float64(n))
}

func (m *Metrics) Request(method string, code int) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, strconv.Itoa(code)).Inc()
}
