// Package metrics publishes live run statistics.
//
// The [Collector] interface is what the runner talks to. The Prometheus
// implementation exposes per-outcome counters and a latency histogram that
// can be scraped through [Server] while a run is in progress.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "volley"

// Collector receives per-request observations from the runner.
// Implementations must be safe for concurrent use.
type Collector interface {
	// ObserveOutcome records one finished request. kind is "success",
	// "fail" or "error"; status is zero for errors.
	ObserveOutcome(kind string, status int, latency time.Duration)

	// SetRequested publishes the total number of requests in the run.
	SetRequested(n int)

	// TaskStarted and TaskFinished bracket one in-flight request.
	TaskStarted()
	TaskFinished()
}

// Nop discards every observation.
type Nop struct{}

// ObserveOutcome does nothing.
func (Nop) ObserveOutcome(string, int, time.Duration) {}

// SetRequested does nothing.
func (Nop) SetRequested(int) {}

// TaskStarted does nothing.
func (Nop) TaskStarted() {}

// TaskFinished does nothing.
func (Nop) TaskFinished() {}

// PrometheusCollector implements [Collector] with Prometheus metrics.
type PrometheusCollector struct {
	requests  *prometheus.CounterVec
	statuses  *prometheus.CounterVec
	duration  prometheus.Histogram
	requested prometheus.Gauge
	inFlight  prometheus.Gauge
}

// NewPrometheusCollector creates a collector and registers its metrics on r.
// It panics if the metrics are already registered on r.
func NewPrometheusCollector(r prometheus.Registerer) *PrometheusCollector {
	c := &PrometheusCollector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Processed requests by outcome",
		}, []string{"outcome"}),
		statuses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "responses_total",
			Help:      "Responses received by HTTP status code",
		}, []string{"code"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_milliseconds",
			Help:      "Request latency including body drain",
			Buckets:   timeBuckets(),
		}),
		requested: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "requested",
			Help:      "Requests scheduled for the current run",
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "in_flight",
			Help:      "Requests currently executing",
		}),
	}
	r.MustRegister(c.requests, c.statuses, c.duration, c.requested, c.inFlight)

	// pre-create outcome series so they export as zero before the first hit
	for _, kind := range []string{"success", "fail", "error"} {
		c.requests.WithLabelValues(kind)
	}
	return c
}

// timeBuckets returns millisecond buckets: 5ms steps below 100ms, 25ms below
// 1s, 100ms below 10s, then 1s steps up to a minute.
func timeBuckets() []float64 {
	bucket := float64(10)
	buckets := make([]float64, 0, 204)
	for i := 0; i < 204; i++ {
		buckets = append(buckets, bucket)
		switch {
		case bucket < 100:
			bucket += 5
		case bucket < 1000:
			bucket += 25
		case bucket < 10000:
			bucket += 100
		case bucket < 60000:
			bucket += 1000
		default:
			return buckets
		}
	}
	return buckets
}

// ObserveOutcome counts the outcome by kind, counts the status code when a
// response arrived, and records the latency in milliseconds.
func (c *PrometheusCollector) ObserveOutcome(kind string, status int, latency time.Duration) {
	c.requests.WithLabelValues(kind).Inc()
	if status > 0 {
		c.statuses.WithLabelValues(strconv.Itoa(status)).Inc()
	}
	c.duration.Observe(float64(latency.Milliseconds()))
}

// SetRequested sets the requested gauge for the current run.
func (c *PrometheusCollector) SetRequested(n int) {
	c.requested.Set(float64(n))
}

// TaskStarted increments the in-flight gauge.
func (c *PrometheusCollector) TaskStarted() {
	c.inFlight.Inc()
}

// TaskFinished decrements the in-flight gauge.
func (c *PrometheusCollector) TaskFinished() {
	c.inFlight.Dec()
}
