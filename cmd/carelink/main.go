package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/platinummonkey/carelink/pkg/accounts"
	"github.com/platinummonkey/carelink/pkg/api"
	"github.com/platinummonkey/carelink/pkg/auth"
	"github.com/platinummonkey/carelink/pkg/config"
	"github.com/platinummonkey/carelink/pkg/issues"
	"github.com/platinummonkey/carelink/pkg/jobs"
	"github.com/platinummonkey/carelink/pkg/middleware"
	"github.com/platinummonkey/carelink/pkg/observability"
	"github.com/platinummonkey/carelink/pkg/rbac"
	"github.com/platinummonkey/carelink/pkg/records"
	"github.com/platinummonkey/carelink/pkg/storage"
	"github.com/platinummonkey/carelink/pkg/storage/memory"
	"github.com/platinummonkey/carelink/pkg/storage/postgres"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "carelink: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	ctx := context.Background()

	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
		SampleRatio:    cfg.Observability.OTelSampleRatio,

		Environment:     cfg.Observability.OTelEnvironment,
		StorageBackend:  cfg.Storage.Type,
		SentinelEnabled: cfg.Auth.SentinelEnabled(),
	}, logger)
	if err != nil {
		return fmt.Errorf("init otel: %w", err)
	}

	store, db, err := openStore(ctx, cfg.Storage, logger)
	if err != nil {
		return err
	}

	redisClient, err := postgres.NewRedisClient(ctx, cfg.Storage)
	if err != nil {
		// The limiter falls back to in-process buckets
		logger.WithError(err).Warn("Redis unavailable, using local rate limiting")
		redisClient = nil
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(registry)
	}

	if !cfg.Auth.SentinelEnabled() {
		logger.Warn("Super-admin credentials not configured; built-in admin login is disabled")
	}

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.TokenTTL)
	resolver := auth.NewResolver(store, tokens, auth.SentinelCredentials{
		Username: cfg.Auth.AdminUsername,
		Password: cfg.Auth.AdminPassword,
	}, auth.WithMetrics(metrics))
	gate := rbac.NewGate(store, rbac.WithMetrics(metrics))

	services := api.Services{
		Resolver: resolver,
		Gate:     gate,
		Accounts: accounts.NewService(store, gate, accounts.Options{
			BcryptCost:       cfg.Auth.BcryptCost,
			SentinelUsername: cfg.Auth.AdminUsername,
			Logger:           logger,
		}),
		Records: records.NewService(store, gate, records.Options{
			EnforceOwnership: cfg.Security.EnforceRecordOwnership,
			Logger:           logger,
		}),
		Issues: issues.NewService(store, gate, logger),
	}

	loginLimiter, apiLimiter := newLimiters(cfg.Security, redisClient)
	server := api.NewServer(services, api.Options{
		Logger:       logger,
		Metrics:      metrics,
		CORSOrigins:  cfg.Security.CORSOrigins,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		LoginLimiter: loginLimiter,
		APILimiter:   apiLimiter,
		TrustProxy:   cfg.Security.TrustProxy,
	})

	apiHandler := otelhttp.NewHandler(server.Handler(), "carelink",
		otelhttp.WithSpanNameFormatter(observability.HTTPSpanName))
	apiServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      apiHandler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, observability.NewHealthChecker(store, db, redisClient, cfg.Observability.OTelServiceVersion))
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(healthMux, registry)
	}
	healthServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler:      healthMux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout, apiServer, healthServer)

	if metrics != nil {
		refresher, err := jobs.NewGaugeRefresher(store, metrics, db, logger)
		if err != nil {
			return fmt.Errorf("create gauge refresher: %w", err)
		}
		if err := refresher.Start(cfg.Observability.GaugeRefreshSchedule); err != nil {
			return fmt.Errorf("start gauge refresher: %w", err)
		}
		shutdown.RegisterShutdownFunc(refresher.Stop)
	}

	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return observability.ShutdownOTel(ctx, providers, logger)
	})
	if redisClient != nil {
		shutdown.RegisterShutdownFunc(func(context.Context) error { return redisClient.Close() })
	}
	shutdown.RegisterShutdownFunc(func(context.Context) error { return store.Close() })

	serve := func(name string, srv *http.Server) {
		logger.Infof("%s listening on %s", name, srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Errorf("%s server failed", name)
			os.Exit(1)
		}
	}
	go serve("API", apiServer)
	go serve("Health", healthServer)

	return shutdown.WaitForShutdown(ctx)
}

// openStore returns the configured backend. db is nil for the memory store.
func openStore(ctx context.Context, cfg storage.Config, logger *observability.Logger) (storage.Store, *sql.DB, error) {
	switch cfg.Type {
	case "memory":
		logger.Warn("Using in-memory storage; data is lost on restart")
		return memory.NewStore(), nil, nil
	default:
		db, err := postgres.Open(ctx, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		if cfg.AutoMigrate {
			if err := postgres.RunMigrations(ctx, db, logger); err != nil {
				db.Close()
				return nil, nil, fmt.Errorf("run migrations: %w", err)
			}
		}
		logger.Info("Connected to PostgreSQL")
		return postgres.NewStore(db), db, nil
	}
}

// newLimiters builds the login and API limiters. Redis-backed limiters are
// shared across replicas; a zero rate disables the limiter.
func newLimiters(sec config.SecurityConfig, client *redis.Client) (login, apiLimiter middleware.Limiter) {
	build := func(rate, burst int, prefix string) middleware.Limiter {
		if rate <= 0 {
			return nil
		}
		rc := &middleware.RateLimitConfig{
			RequestsPerWindow: rate,
			WindowDuration:    time.Minute,
			BurstSize:         burst,
			MaxKeys:           10000,
		}
		if client != nil {
			return middleware.NewDistributedRateLimiter(client, rc, prefix)
		}
		return middleware.NewLocalRateLimiter(rc)
	}
	return build(sec.LoginRateLimit, sec.LoginRateBurst, "carelink:ratelimit:login"),
		build(sec.APIRateLimit, sec.APIRateBurst, "carelink:ratelimit:api")
}
