// Package metrics defines the Prometheus collectors for the speech job client
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the client
type Metrics struct {
	// Transport metrics
	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	TransportErrors *prometheus.CounterVec

	// Job metrics
	JobsSubmitted *prometheus.CounterVec
	PollAttempts  *prometheus.CounterVec
	JobsCompleted *prometheus.CounterVec
	JobWait       *prometheus.HistogramVec
}

// New creates all metrics and registers them with reg. A nil reg uses the
// default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "volcasr_requests_total",
			Help: "Total number of HTTP calls to the speech service",
		}, []string{"method", "path", "status"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "volcasr_request_duration_seconds",
			Help:    "Duration of HTTP calls to the speech service",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
		}, []string{"method", "path"}),
		TransportErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "volcasr_transport_errors_total",
			Help: "Total number of calls that failed before a response was read",
		}, []string{"method", "path"}),

		JobsSubmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "volcasr_jobs_submitted_total",
			Help: "Total number of jobs submitted",
		}, []string{"job_type"}),
		PollAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "volcasr_poll_attempts_total",
			Help: "Total number of result queries issued",
		}, []string{"job_type"}),
		JobsCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "volcasr_jobs_completed_total",
			Help: "Total number of jobs that reached a terminal result",
		}, []string{"job_type"}),
		JobWait: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "volcasr_job_wait_seconds",
			Help:    "Time spent waiting for a job result",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~68 minutes
		}, []string{"job_type"}),
	}
}

// StatusClass buckets an HTTP status code into "2xx", "4xx", etc.
func StatusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	case code >= 200:
		return "2xx"
	default:
		return "other"
	}
}
