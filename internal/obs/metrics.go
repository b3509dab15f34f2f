// Package obs exposes process metrics. Metric names are part of the
// operational contract; keep them stable.
package obs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PostingsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lca_postings_created_total",
		Help: "Postings accepted through intake.",
	})
	PostingsUpdated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lca_postings_updated_total",
		Help: "Posting updates committed.",
	})
	PostingsDeleted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lca_postings_deleted_total",
		Help: "Postings removed.",
	})
	AuditEntriesAppended = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audit_chain_entries_total",
		Help: "Audit chain entries appended.",
	})
	ChainVerificationFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audit_chain_verification_failures_total",
		Help: "Chain verifications that found a broken link.",
	})

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// Init registers all metrics with the default registry. Call once from main.
func Init() {
	prometheus.MustRegister(
		PostingsCreated,
		PostingsUpdated,
		PostingsDeleted,
		AuditEntriesAppended,
		ChainVerificationFailures,
		httpRequestDuration,
	)
}

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records per-route request latency.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		httpRequestDuration.
			WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
