package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	pingbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paymentwall_pingbacks_total",
			Help: "Total number of pingbacks by outcome",
		},
		[]string{"outcome"},
	)

	scheduledActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduled_actions_processed_total",
			Help: "Total number of due scheduled actions processed",
		},
		[]string{"hook", "status"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpRequestDuration)
	prometheus.MustRegister(pingbacksTotal)
	prometheus.MustRegister(scheduledActionsTotal)
}

// Middleware records request count and latency per route.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			path := c.Path()
			if path == "" {
				path = c.Request().URL.Path
			}

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			status := strconv.Itoa(c.Response().Status)
			httpRequestsTotal.WithLabelValues(c.Request().Method, path, status).Inc()
			httpRequestDuration.WithLabelValues(c.Request().Method, path).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}

func Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}

func RecordPingback(outcome string) {
	pingbacksTotal.WithLabelValues(outcome).Inc()
}

func RecordScheduledAction(hook, status string) {
	scheduledActionsTotal.WithLabelValues(hook, status).Inc()
}
