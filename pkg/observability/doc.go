// Package observability provides structured logging, Prometheus metrics,
// health probes, OpenTelemetry setup and graceful shutdown for CareLink.
//
// # Structured Logging
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("user_id", id).Info("user created")
//
// Request-scoped loggers travel in the context:
//
//	observability.FromContext(ctx).Warn("permission denied")
//
// # Prometheus Metrics
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	router.Use(observability.HTTPMetricsMiddleware(metrics))
//
// Record methods on *Metrics are safe to call on a nil receiver, so
// components can take metrics as an optional dependency.
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(store, db, redisClient, version)
//	observability.RegisterHealthRoutes(healthMux, checker)
//
// # OpenTelemetry
//
//	providers, err := observability.InitOTel(ctx, cfg, logger)
//	defer observability.ShutdownOTel(ctx, providers, logger)
package observability
