package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
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

	ordersCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Total number of orders persisted",
		},
		[]string{"payment_method"},
	)

	checkoutFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_failures_total",
			Help: "Checkout attempts recorded as failed orders",
		},
		[]string{"reason"},
	)

	checkoutRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_rejections_total",
			Help: "Checkout attempts rejected, by response status",
		},
		[]string{"status"},
	)

	notificationsSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Emails handed to the mail provider",
		},
		[]string{"type", "status"},
	)

	circuitStateChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_changes_total",
			Help: "Circuit breaker transitions",
		},
		[]string{"name", "to"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpRequestDuration)
	prometheus.MustRegister(ordersCreatedTotal)
	prometheus.MustRegister(checkoutFailuresTotal)
	prometheus.MustRegister(checkoutRejectionsTotal)
	prometheus.MustRegister(notificationsSentTotal)
	prometheus.MustRegister(circuitStateChanges)
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		duration := time.Since(start).Seconds()

		httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

func RecordOrderCreated(paymentMethod string) {
	ordersCreatedTotal.WithLabelValues(paymentMethod).Inc()
}

func RecordCheckoutFailure(reason string) {
	checkoutFailuresTotal.WithLabelValues(reason).Inc()
}

func RecordCheckoutRejection(status int) {
	checkoutRejectionsTotal.WithLabelValues(strconv.Itoa(status)).Inc()
}

func RecordCircuitStateChange(name, to string) {
	circuitStateChanges.WithLabelValues(name, to).Inc()
}

func RecordNotificationSent(notificationType, status string) {
	notificationsSentTotal.WithLabelValues(notificationType, status).Inc()
}
