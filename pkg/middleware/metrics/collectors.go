package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	responseTime = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "response_time",
			Help:    "http response time.",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		},
	)

	totalHttpRequestsToUri = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "total_http_requests_to_uri", Help: "http requests to uri"},
		[]string{"code", "uri", "method"},
	)

	totalHttpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "total_http_requests", Help: "http requests by code, and method"},
		[]string{"code", "method"},
	)

	invocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "invocations_total", Help: "workload invocations by outcome"},
		[]string{"workload", "outcome"},
	)

	invocationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "invocation_seconds",
			Help:    "time spent inside the bound handler, host overhead included.",
			Buckets: prometheus.ExponentialBuckets(0.00005, 4, 10),
		},
		[]string{"workload"},
	)
)

func init() {
	prometheus.MustRegister(
		responseTime,
		totalHttpRequestsToUri,
		totalHttpRequests,
		invocationsTotal,
		invocationSeconds,
	)
}
