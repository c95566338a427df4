package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/taskdeck/pkg/audit"
	"github.com/platinummonkey/taskdeck/pkg/auth"
	"github.com/platinummonkey/taskdeck/pkg/config"
	"github.com/platinummonkey/taskdeck/pkg/httputil"
	"github.com/platinummonkey/taskdeck/pkg/middleware"
	"github.com/platinummonkey/taskdeck/pkg/observability"
	"github.com/platinummonkey/taskdeck/pkg/storage"
	"github.com/platinummonkey/taskdeck/pkg/tasks"
)

const version = "1.0.0"

func main() {
	// Config errors are fatal before anything else starts. A missing or
	// weak JWT secret must never be papered over with a default.
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.WithField("version", version).Info("Starting taskdeck")

	ctx := context.Background()

	otelProviders, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		log.Fatalf("Failed to initialize OpenTelemetry: %v", err)
	}

	db, err := storage.OpenPostgres(cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to open postgres: %v", err)
	}

	if err := storage.EnsureSchema(ctx, db); err != nil {
		log.Fatalf("Failed to migrate database schema: %v", err)
	}

	redisClient, err := storage.OpenRedis(cfg.Storage)
	if err != nil {
		logger.WithError(err).Warn("Redis unavailable, running without cache tier")
		redisClient = nil
	}

	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(prometheus.NewRegistry())
	}

	verifier, err := auth.NewVerifier(cfg.JWT.Secret, cfg.JWT.Algorithm, cfg.JWT.MaxTokenTTL)
	if err != nil {
		log.Fatalf("Failed to create token verifier: %v", err)
	}

	auditor := buildAuditor(cfg, db, logger)

	var store tasks.Store = tasks.NewPostgresStore(db, metrics)
	if cfg.Storage.CacheEnabled {
		cached, err := tasks.NewCachedStore(store, redisClient, cfg.Storage, logger, metrics)
		if err != nil {
			log.Fatalf("Failed to create cache tier: %v", err)
		}
		store = cached
	}

	handlers := tasks.NewHandlers(store, logger, auditor)
	authMiddleware := middleware.NewAuthMiddleware(verifier, logger, metrics, auditor)
	health := observability.NewHealthChecker(db, redisClient)

	apiServer := buildAPIServer(cfg, logger, metrics, otelProviders, handlers, authMiddleware, health)
	healthServer := buildHealthServer(cfg, metrics, health)

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout, apiServer, healthServer)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error { return db.Close() })
	if redisClient != nil {
		shutdown.RegisterShutdownFunc(func(ctx context.Context) error { return redisClient.Close() })
	}
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error { return auditor.Close() })
	if otelProviders != nil {
		shutdown.RegisterShutdownFunc(otelProviders.Shutdown)
	}

	if metrics != nil {
		refresher := observability.NewBusinessMetricsRefresher(metrics, db, logger)
		if err := refresher.Start(cfg.Observability.MetricsRefreshSchedule); err != nil {
			log.Fatalf("Failed to start metrics refresher: %v", err)
		}
		shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
			refresher.Stop()
			return nil
		})
	}

	// A server error cancels gctx, which unblocks WaitForShutdown so the
	// other server drains and g.Wait surfaces the error.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("API server listening on %s", apiServer.Addr)
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logger.Infof("Health server listening on %s", healthServer.Addr)
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error { return shutdown.WaitForShutdown(gctx) })

	if err := g.Wait(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func buildAuditor(cfg *config.Config, db *sql.DB, logger *observability.Logger) audit.Logger {
	loggers := make([]audit.Logger, 0, 2)

	if cfg.Audit.FileEnabled {
		fileLogger, err := audit.NewFileLogger(cfg.Audit.FilePath)
		if err != nil {
			log.Fatalf("Failed to open audit log file: %v", err)
		}
		loggers = append(loggers, fileLogger)
	}

	if cfg.Audit.DBEnabled {
		loggers = append(loggers, audit.NewDBLogger(db, func(err error) {
			logger.WithError(err).Warn("failed to record audit event")
		}))
	}

	switch len(loggers) {
	case 0:
		return audit.NewNopLogger()
	case 1:
		return loggers[0]
	default:
		return audit.NewMultiLogger(loggers...)
	}
}

func buildAPIServer(
	cfg *config.Config,
	logger *observability.Logger,
	metrics *observability.Metrics,
	otelProviders *observability.OTelProviders,
	handlers *tasks.Handlers,
	authMiddleware *middleware.AuthMiddleware,
	health *observability.HealthChecker,
) *http.Server {
	router := mux.NewRouter()

	// Unprotected surface: probes and service info.
	router.HandleFunc("/healthz", health.Liveness).Methods(http.MethodGet)
	router.HandleFunc("/readyz", health.Readiness).Methods(http.MethodGet)
	router.HandleFunc("/", serviceInfo).Methods(http.MethodGet)

	// Everything under /api/v1 requires a verified token.
	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(authMiddleware.Handler)
	handlers.RegisterRoutes(api)

	if metrics != nil {
		router.Use(metrics.Middleware(routeTemplate))
	}

	var handler http.Handler = router
	handler = httputil.Chain(
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(logger),
		httputil.RecoveryMiddleware(logger),
		httputil.CORSMiddleware(cfg.Server.CORSAllowedOrigins),
		httputil.MaxBytesMiddleware(cfg.Server.MaxBodyBytes),
	)(handler)
	handler = otelProviders.WrapHandler(handler, "taskdeck-api")

	return &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
}

func buildHealthServer(cfg *config.Config, metrics *observability.Metrics, health *observability.HealthChecker) *http.Server {
	router := mux.NewRouter()
	router.HandleFunc("/healthz", health.Liveness).Methods(http.MethodGet)
	router.HandleFunc("/readyz", health.Readiness).Methods(http.MethodGet)
	if metrics != nil {
		router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	}

	return &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
}

func serviceInfo(w http.ResponseWriter, r *http.Request) {
	httputil.WriteSuccess(w, map[string]interface{}{
		"service": "taskdeck",
		"version": version,
		"endpoints": map[string]string{
			"tasks":   "/api/v1/tasks",
			"health":  "/healthz",
			"ready":   "/readyz",
			"metrics": "/metrics",
		},
	})
}

// routeTemplate resolves the matched mux route template for metric
// labels, keeping cardinality bounded regardless of path parameters.
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}
