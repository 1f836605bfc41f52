// Package metrics holds the Prometheus collectors for chain calls, batch
// distribution, contract verification and the HTTP API. All collectors live
// on a private registry exposed through Handler.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "rewardbridge"

var (
	registry = prometheus.NewRegistry()

	chainOnce sync.Once
	chainReg  *ChainMetrics

	verifyOnce sync.Once
	verifyReg  *VerifyMetrics

	httpOnce sync.Once
	httpReg  *HTTPMetrics
)

// Registry returns the registry every collector in this package is registered on.
func Registry() *prometheus.Registry { return registry }

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ChainMetrics tracks token contract reads and writes.
type ChainMetrics struct {
	reads   *prometheus.CounterVec
	writes  *prometheus.CounterVec
	entries *prometheus.CounterVec
}

// Chain returns the lazily-initialised chain call collectors.
func Chain() *ChainMetrics {
	chainOnce.Do(func() {
		chainReg = &ChainMetrics{
			reads: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "chain",
				Name:      "reads_total",
				Help:      "Token contract read calls segmented by method and outcome.",
			}, []string{"method", "outcome"}),
			writes: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "chain",
				Name:      "writes_total",
				Help:      "Token contract write submissions segmented by method and outcome.",
			}, []string{"method", "outcome"}),
			entries: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "batch",
				Name:      "entries_total",
				Help:      "Batch reward entries segmented by result (processed or skip reason).",
			}, []string{"result"}),
		}
		registry.MustRegister(chainReg.reads, chainReg.writes, chainReg.entries)
	})
	return chainReg
}

func (m *ChainMetrics) ObserveRead(method string, err error) {
	m.reads.WithLabelValues(method, outcome(err)).Inc()
}

func (m *ChainMetrics) ObserveWrite(method string, err error) {
	m.writes.WithLabelValues(method, outcome(err)).Inc()
}

// ObserveBatchEntries adds n entries under the given result label.
func (m *ChainMetrics) ObserveBatchEntries(result string, n int) {
	if n <= 0 {
		return
	}
	m.entries.WithLabelValues(result).Add(float64(n))
}

// VerifyMetrics tracks explorer verification attempts.
type VerifyMetrics struct {
	attempts *prometheus.CounterVec
	runs     *prometheus.CounterVec
}

func Verify() *VerifyMetrics {
	verifyOnce.Do(func() {
		verifyReg = &VerifyMetrics{
			attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "verify",
				Name:      "attempts_total",
				Help:      "Contract verification attempts segmented by attempt outcome.",
			}, []string{"outcome"}),
			runs: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "verify",
				Name:      "runs_total",
				Help:      "Completed verification runs segmented by terminal outcome.",
			}, []string{"outcome"}),
		}
		registry.MustRegister(verifyReg.attempts, verifyReg.runs)
	})
	return verifyReg
}

func (m *VerifyMetrics) ObserveAttempt(outcome string) {
	m.attempts.WithLabelValues(outcome).Inc()
}

func (m *VerifyMetrics) ObserveRun(outcome string) {
	m.runs.WithLabelValues(outcome).Inc()
}

// HTTPMetrics tracks API requests.
type HTTPMetrics struct {
	requests  *prometheus.CounterVec
	durations *prometheus.HistogramVec
}

func HTTP() *HTTPMetrics {
	httpOnce.Do(func() {
		httpReg = &HTTPMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "HTTP requests processed by the API.",
			}, []string{"route", "method", "status"}),
			durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"route", "method"}),
		}
		registry.MustRegister(httpReg.requests, httpReg.durations)
	})
	return httpReg
}

func (m *HTTPMetrics) Observe(route, method, status string, seconds float64) {
	m.requests.WithLabelValues(route, method, status).Inc()
	m.durations.WithLabelValues(route, method).Observe(seconds)
}

// Requests exposes the request counter for tests.
func (m *HTTPMetrics) Requests() *prometheus.CounterVec { return m.requests }

// Writes exposes the write counter for tests.
func (m *ChainMetrics) Writes() *prometheus.CounterVec { return m.writes }

// Entries exposes the batch entry counter for tests.
func (m *ChainMetrics) Entries() *prometheus.CounterVec { return m.entries }

// Runs exposes the verification run counter for tests.
func (m *VerifyMetrics) Runs() *prometheus.CounterVec { return m.runs }
