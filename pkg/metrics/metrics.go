package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for provider calls and the
// sign-in harness
type Metrics struct {
	// Identity provider calls
	ProviderRequestsTotal   *prometheus.CounterVec
	ProviderRequestDuration *prometheus.HistogramVec
	ProviderErrors          *prometheus.CounterVec

	// Harness HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	SignInsTotal *prometheus.CounterVec
}

// New creates a new Metrics instance registered on the default registry
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a new Metrics instance with a custom registerer
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)

	return &Metrics{
		ProviderRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "azdoauth_provider_requests_total",
				Help: "Total number of requests sent to the identity provider",
			},
			[]string{"provider", "endpoint", "status"},
		),
		ProviderRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "azdoauth_provider_request_duration_seconds",
				Help:    "Identity provider request latencies in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider", "endpoint"},
		),
		ProviderErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "azdoauth_provider_errors_total",
				Help: "Total number of failed identity provider requests",
			},
			[]string{"provider", "endpoint", "error_type"},
		),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "azdoauth_http_requests_total",
				Help: "Total number of HTTP requests served",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "azdoauth_http_request_duration_seconds",
				Help:    "HTTP request latencies in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		SignInsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "azdoauth_signins_total",
				Help: "Total number of completed sign-in attempts by outcome",
			},
			[]string{"provider", "outcome"},
		),
	}
}
