package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_http_requests_total",
			Help: "Total number of HTTP requests processed by the chat backend.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	wsActiveConnections = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "chat_ws_active_connections",
			Help: "Number of active websocket connections.",
		},
		[]string{"kind"},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_ws_events_total",
			Help: "Total number of websocket events.",
		},
		[]string{"kind", "event"},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
	cascadeRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_account_deletions_total",
			Help: "Account deletion runs by outcome.",
		},
		[]string{"status"},
	)
	cascadeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_account_deletion_duration_seconds",
			Help:    "Duration of account deletion runs in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)
	cascadeWarningsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_account_deletion_warnings_total",
			Help: "Non-fatal warnings reported during account deletion, by step.",
		},
		[]string{"step"},
	)
	cascadeRowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_account_deletion_rows_total",
			Help: "Rows removed by account deletion, by table.",
		},
		[]string{"table"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		wsActiveConnections,
		wsEventsTotal,
		amqpPublishErrorsTotal,
		cascadeRunsTotal,
		cascadeDuration,
		cascadeWarningsTotal,
		cascadeRowsTotal,
	)
}

func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func IncWSActive(kind string) {
	wsActiveConnections.WithLabelValues(kind).Inc()
}

func DecWSActive(kind string) {
	wsActiveConnections.WithLabelValues(kind).Dec()
}

func IncWSEvent(kind, event string) {
	wsEventsTotal.WithLabelValues(kind, event).Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}

// ObserveCascade records one account deletion run.
func ObserveCascade(status string, d time.Duration) {
	cascadeRunsTotal.WithLabelValues(status).Inc()
	cascadeDuration.WithLabelValues(status).Observe(d.Seconds())
}

func IncCascadeWarning(step string) {
	cascadeWarningsTotal.WithLabelValues(step).Inc()
}

func AddCascadeRows(table string, n int64) {
	cascadeRowsTotal.WithLabelValues(table).Add(float64(n))
}
