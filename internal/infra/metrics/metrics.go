// Package metrics holds the Prometheus collectors recorded by a ddq run.
//
// A CLI process exits before anything could scrape it, so the registry is
// flushed to a node_exporter textfile with WriteTextfile when requested.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds every ddq collector. It is separate from the default
// registry so the textfile only carries ddq series.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	// AttemptsTotal tracks HTTP attempts by method and status class
	AttemptsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ddq_http_attempts_total",
			Help: "Total number of HTTP attempts sent to the API",
		},
		[]string{"method", "status_class"},
	)

	// RetriesTotal tracks scheduled retries by reason
	RetriesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ddq_http_retries_total",
			Help: "Total number of retries scheduled",
		},
		[]string{"reason"},
	)

	// RequestsTotal tracks terminal outcomes of logical requests
	RequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ddq_requests_total",
			Help: "Total number of logical requests by outcome",
		},
		[]string{"method", "outcome"},
	)

	// RequestDuration tracks wall time of logical requests including backoff
	RequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ddq_request_duration_seconds",
			Help:    "Logical request duration in seconds, retries included",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// BackoffSeconds tracks the total time spent sleeping between attempts
	BackoffSeconds = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "ddq_backoff_seconds_total",
			Help: "Total seconds spent waiting between attempts",
		},
	)
)

// StatusClass buckets a status code as "2xx", "4xx", ... or "error" when
// no response was received.
func StatusClass(status int) string {
	if status < 100 || status > 599 {
		return "error"
	}
	return fmt.Sprintf("%dxx", status/100)
}

// WriteTextfile writes the registry in the node_exporter textfile format.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, Registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
