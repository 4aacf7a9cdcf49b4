// fedistash/metrics/metrics.go
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PostsIngested = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fedistash_posts_ingested_total",
			Help: "Total number of new posts persisted by timeline sync",
		},
	)
	SyncRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fedistash_sync_runs_total",
			Help: "Total number of sync invocations by outcome",
		},
		[]string{"outcome"},
	)
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fedistash_http_requests_total",
			Help: "Total number of HTTP requests served",
		},
		[]string{"method", "path", "code"},
	)
)

func init() {
	prometheus.MustRegister(PostsIngested, SyncRuns, HTTPRequests)
}

// Handler exposes the default registry for the /metrics route.
func Handler() http.Handler {
	return promhttp.Handler()
}
