package observability

import (
	"context"
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Authentication metrics. The reason label carries the internal
	// failure cause (malformed, signature, expired, missing_subject,
	// missing_header) that the HTTP response deliberately hides.
	AuthFailuresTotal *prometheus.CounterVec

	// Storage metrics
	StorageOperationsTotal   *prometheus.CounterVec
	StorageOperationDuration *prometheus.HistogramVec

	// Cache metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Database metrics
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge

	// Business metrics
	TasksTotal prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskdeck_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "taskdeck_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		AuthFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskdeck_auth_failures_total",
				Help: "Total number of rejected authentication attempts by internal reason",
			},
			[]string{"reason"},
		),
		StorageOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskdeck_storage_operations_total",
				Help: "Total number of storage operations",
			},
			[]string{"operation", "status"},
		),
		StorageOperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "taskdeck_storage_operation_duration_seconds",
				Help:    "Storage operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskdeck_cache_hits_total",
				Help: "Total number of cache hits",
			},
			[]string{"tier"},
		),
		CacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskdeck_cache_misses_total",
				Help: "Total number of cache misses",
			},
			[]string{"tier"},
		),
		DBConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "taskdeck_db_connections_active",
			Help: "Number of active database connections",
		}),
		DBConnectionsIdle: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "taskdeck_db_connections_idle",
			Help: "Number of idle database connections",
		}),
		TasksTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "taskdeck_tasks_total",
			Help: "Total number of tasks across all users",
		}),
		registry: registry,
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AuthFailuresTotal,
		m.StorageOperationsTotal,
		m.StorageOperationDuration,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
		m.TasksTotal,
	)

	return m
}

// Handler returns the HTTP handler serving the /metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware instruments HTTP requests with count and duration metrics.
// The path label uses the mux route template, not the raw URL, to keep
// cardinality bounded.
func (m *Metrics) Middleware(routeTemplate func(r *http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &metricsResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			path := routeTemplate(r)
			m.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rw.statusCode)).Inc()
			m.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		})
	}
}

type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *metricsResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// BusinessMetricsRefresher periodically refreshes gauges that are derived
// from database state rather than observed events.
type BusinessMetricsRefresher struct {
	metrics *Metrics
	db      *sql.DB
	logger  *Logger
	cron    *cron.Cron
}

// NewBusinessMetricsRefresher creates a refresher running on the given
// cron schedule (e.g. "@every 1m").
func NewBusinessMetricsRefresher(metrics *Metrics, db *sql.DB, logger *Logger) *BusinessMetricsRefresher {
	return &BusinessMetricsRefresher{
		metrics: metrics,
		db:      db,
		logger:  logger,
		cron:    cron.New(),
	}
}

// Start schedules the refresh job and starts the cron runner.
func (b *BusinessMetricsRefresher) Start(schedule string) error {
	if _, err := b.cron.AddFunc(schedule, b.refresh); err != nil {
		return err
	}
	b.cron.Start()
	return nil
}

// Stop stops the cron runner and waits for a running job to finish.
func (b *BusinessMetricsRefresher) Stop() {
	<-b.cron.Stop().Done()
}

func (b *BusinessMetricsRefresher) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var count int64
	if err := b.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tasks").Scan(&count); err != nil {
		b.logger.WithError(err).Warn("failed to refresh task count gauge")
	} else {
		b.metrics.TasksTotal.Set(float64(count))
	}

	stats := b.db.Stats()
	b.metrics.DBConnectionsActive.Set(float64(stats.InUse))
	b.metrics.DBConnectionsIdle.Set(float64(stats.Idle))
}
