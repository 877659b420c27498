// Package metrics provides Prometheus metrics for the HTTP server and for the
// recommendation and pricing paths. All collectors are registered with the
// default registry during package initialization and served on /metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Outcome label values of RecommendationsTotal
const (
	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found"
)

var (
	HTTPRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	HTTPRequestInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_request_in_flight",
			Help: "Current in-flight requests",
		},
	)

	RateLimiterBucketsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rate_limiter_buckets_total",
			Help: "Number of client buckets kept by the rate limiter after the last cleanup",
		},
	)

	RecommendationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendations_total",
			Help: "Similarity lookups by outcome",
		},
		[]string{"outcome"},
	)

	PriceQuotesGenerated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "price_quotes_generated_total",
			Help: "Synthetic price quotes generated",
		},
	)

	CatalogMedicines = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_medicines",
			Help: "Number of medicines in the loaded catalog",
		},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestTotals)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestInFlight)
	prometheus.MustRegister(RateLimiterBucketsTotal)
	prometheus.MustRegister(RecommendationsTotal)
	prometheus.MustRegister(PriceQuotesGenerated)
	prometheus.MustRegister(CatalogMedicines)
}
