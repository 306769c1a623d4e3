package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// Route surfaces, used to split dashboards by caller.
const (
	SurfaceExtension = "extension"
	SurfaceParent    = "parent"
	SurfaceAdmin     = "admin"
	SurfaceAuth      = "auth"
	SurfaceSystem    = "system"
)

// Labels use the registered route (c.FullPath()), never the raw URL, so
// child IDs and domains cannot become label values.
var (
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "Duration of HTTP requests in seconds.",
			// Extension calls sit on the page-load path; resolve the low end.
			Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"surface", "path"},
	)

	httpInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_inflight",
			Help: "Current number of in-flight HTTP requests.",
		},
	)

	httpErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_errors_total",
			Help: "Responses with status >= 400 by surface and status class.",
		},
		[]string{"surface", "class"},
	)

	// httpRejected counts requests turned away by middleware, by error code.
	httpRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_rejected_total",
			Help: "Requests rejected by middleware before reaching a handler.",
		},
		[]string{"code"},
	)

	httpRespSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "Size of HTTP responses in bytes.",
			Buckets: prometheus.ExponentialBuckets(128, 4, 8), // 128B..2MiB
		},
		[]string{"surface"},
	)
)

func init() {
	prometheus.MustRegister(httpReqs, httpLat, httpInflight, httpErrors, httpRespSize, httpRejected)
}

// Surface maps a registered route to the caller that uses it.
func Surface(route string) string {
	switch {
	case route == "":
		return SurfaceSystem
	case strings.Contains(route, "/admin/"):
		return SurfaceAdmin
	case strings.Contains(route, "/auth/"):
		return SurfaceAuth
	case strings.Contains(route, "/children/"):
		switch route[strings.LastIndex(route, "/")+1:] {
		case "check", "heartbeat", "status":
			return SurfaceExtension
		}
		return SurfaceParent
	}
	return SurfaceSystem
}

// Metrics instruments every request with Prometheus collectors. Mount
// promhttp.Handler() separately to expose them.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpInflight.Inc()
		defer httpInflight.Dec()

		c.Next()

		path := c.FullPath()
		surface := Surface(path)
		if path == "" {
			path = "unmatched"
		}
		code := c.Writer.Status()

		httpReqs.WithLabelValues(c.Request.Method, path, strconv.Itoa(code)).Inc()
		httpLat.WithLabelValues(surface, path).Observe(time.Since(start).Seconds())
		if code >= 400 {
			httpErrors.WithLabelValues(surface, strconv.Itoa(code/100)+"xx").Inc()
		}
		if size := c.Writer.Size(); size >= 0 {
			httpRespSize.WithLabelValues(surface).Observe(float64(size))
		}
	}
}
