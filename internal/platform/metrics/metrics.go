package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP-level metrics shared by every route. Domain packages register their own
// counters next to the service that increments them.
var (
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "agencyops_http_request_duration_seconds",
		Help:    "Latency of HTTP requests by route pattern, method and status",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method", "status"})

	StoreErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agencyops_store_errors_total",
		Help: "Store failures surfaced as internal errors, by operation",
	}, []string{"operation"})
)

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
