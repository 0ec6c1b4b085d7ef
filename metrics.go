package folio

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	postMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "folio_post_mutations_total",
		Help: "Post repository mutations by operation and result.",
	}, []string{"op", "result"})

	storeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "folio_store_duration_seconds",
		Help:    "Duration of whole-collection store reads and writes.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op", "driver"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "folio_http_request_duration_seconds",
		Help:    "Duration of HTTP requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"path", "method", "status"})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "folio_http_requests_total",
		Help: "Total number of HTTP requests.",
	}, []string{"path", "method", "status"})
)

func observeStore(op, driver string, start time.Time) {
	storeDuration.WithLabelValues(op, driver).Observe(time.Since(start).Seconds())
}

func recordMutation(op string, err error) {
	result := "ok"
	switch {
	case err == nil:
	case IsUserError(err):
		result = "rejected"
	default:
		result = "error"
	}
	postMutations.WithLabelValues(op, result).Inc()
}

// metricsMiddleware records RED metrics keyed by the route pattern.
func metricsMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)

		status := c.Response().Status
		if he, ok := err.(*echo.HTTPError); ok {
			status = he.Code
		}
		path := c.Path()
		if path == "" {
			path = "unmatched"
		}
		code := strconv.Itoa(status)
		httpDuration.WithLabelValues(path, c.Request().Method, code).Observe(time.Since(start).Seconds())
		httpRequests.WithLabelValues(path, c.Request().Method, code).Inc()
		return err
	}
}
