// Package metrics provides Prometheus instrumentation for the invoicing service.
package metrics

import (
	"context"
	"database/sql"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "invoicer",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, path pattern, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency by method and path.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "invoicer",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// InvoicesCreatedTotal counts invoices created by the operator.
	InvoicesCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "invoicer",
		Name:      "invoices_created_total",
		Help:      "Total invoices created.",
	})

	// NumberGenerationExhaustedTotal counts uniqueness loops that ran out
	// of attempts.
	NumberGenerationExhaustedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "invoicer",
		Name:      "number_generation_exhausted_total",
		Help:      "Total invoice number generation attempts that exhausted the retry budget.",
	})

	// PaymentsConfirmedTotal counts successful payment confirmations.
	PaymentsConfirmedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "invoicer",
		Name:      "payments_confirmed_total",
		Help:      "Total successful payment confirmations.",
	})

	// PaymentsRejectedTotal counts rejected confirmations by reason.
	PaymentsRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "invoicer",
		Name:      "payments_rejected_total",
		Help:      "Total rejected payment confirmations by reason.",
	}, []string{"reason"})

	// ReceiptsServedTotal counts receipt fetches by result.
	ReceiptsServedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "invoicer",
		Name:      "receipts_served_total",
		Help:      "Total receipt lookups by result.",
	}, []string{"result"})

	// ReceiptTokensPurgedTotal counts expired receipt tokens removed,
	// either on read or by the background sweeper.
	ReceiptTokensPurgedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "invoicer",
		Name:      "receipt_tokens_purged_total",
		Help:      "Total expired receipt tokens purged.",
	})

	// EmailsSentTotal counts emails dispatched by result.
	EmailsSentTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "invoicer",
		Name:      "emails_sent_total",
		Help:      "Total email dispatch attempts by result.",
	}, []string{"result"})

	// LoginAttemptsTotal counts login attempts by result.
	LoginAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "invoicer",
		Name:      "login_attempts_total",
		Help:      "Total operator login attempts by result.",
	}, []string{"result"})

	// LiveInvoices tracks the current number of live (unpaid) invoices.
	LiveInvoices = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "invoicer",
		Name:      "live_invoices",
		Help:      "Number of currently live invoices.",
	})

	// DBOpenConnections tracks open database connections.
	DBOpenConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "invoicer", Name: "db_open_connections",
		Help: "Number of open database connections.",
	})
	// DBIdleConnections tracks idle database connections.
	DBIdleConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "invoicer", Name: "db_idle_connections",
		Help: "Number of idle database connections.",
	})
	// DBInUseConnections tracks in-use database connections.
	DBInUseConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "invoicer", Name: "db_in_use_connections",
		Help: "Number of in-use database connections.",
	})
	// GoroutineCount tracks the current number of goroutines.
	GoroutineCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "invoicer", Name: "goroutines",
		Help: "Current number of goroutines.",
	})
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		InvoicesCreatedTotal,
		NumberGenerationExhaustedTotal,
		PaymentsConfirmedTotal,
		PaymentsRejectedTotal,
		ReceiptsServedTotal,
		ReceiptTokensPurgedTotal,
		EmailsSentTotal,
		LoginAttemptsTotal,
		LiveInvoices,
		DBOpenConnections,
		DBIdleConnections,
		DBInUseConnections,
		GoroutineCount,
	)
}

// StartDBStatsCollector periodically samples sql.DBStats and runtime goroutine
// count into Prometheus gauges. Call in a goroutine; exits when ctx is done.
func StartDBStatsCollector(ctx context.Context, db *sql.DB, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := db.Stats()
			DBOpenConnections.Set(float64(stats.OpenConnections))
			DBIdleConnections.Set(float64(stats.Idle))
			DBInUseConnections.Set(float64(stats.InUse))
			GoroutineCount.Set(float64(runtime.NumGoroutine()))
		}
	}
}

// Middleware returns a gin middleware that records request metrics.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		timer := prometheus.NewTimer(HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(), // Uses route pattern, not actual path (avoids cardinality explosion)
		))

		c.Next()

		timer.ObserveDuration()
		HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			statusBucket(c.Writer.Status()),
		).Inc()
	}
}

// Handler returns the Prometheus metrics HTTP handler for /metrics endpoint.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// statusBucket groups HTTP status codes into buckets (2xx, 3xx, 4xx, 5xx).
func statusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
