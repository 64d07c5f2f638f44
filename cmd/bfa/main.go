package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/pos-dashboard-bfa/internal/config"
	"github.com/boddenberg/pos-dashboard-bfa/internal/handler"
	"github.com/boddenberg/pos-dashboard-bfa/internal/infra/observability"
	"github.com/boddenberg/pos-dashboard-bfa/internal/infra/postgres"
	"github.com/boddenberg/pos-dashboard-bfa/internal/infra/rediscache"
	"github.com/boddenberg/pos-dashboard-bfa/internal/infra/resilience"
	"github.com/boddenberg/pos-dashboard-bfa/internal/infra/supabase"
	"github.com/boddenberg/pos-dashboard-bfa/internal/port"
	"github.com/boddenberg/pos-dashboard-bfa/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()
	loc := cfg.Location()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("fetch_timeout", cfg.FetchTimeout),
		zap.Duration("stale_after", cfg.StaleAfter),
		zap.Duration("auth_ready_timeout", cfg.AuthReadyTimeout),
		zap.Int("low_stock_default", cfg.LowStockDefaultThreshold),
		zap.String("store_timezone", loc.String()),
		zap.Bool("use_postgres", cfg.DatabaseURL != ""),
		zap.Bool("use_redis", cfg.RedisAddr != ""),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "pos-dashboard-bfa")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	cb := resilience.NewCircuitBreaker("supabase")

	// --- Data backends ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	var supabaseClient *supabase.Client
	if cfg.SupabaseURL != "" {
		supabaseClient = supabase.NewClient(
			httpClient,
			cfg.SupabaseURL,
			cfg.SupabaseAnonKey,
			cfg.SupabaseServiceKey,
			cb,
			resilienceCfg,
			logger,
		)
	}

	var (
		sources  port.SourceFactory
		settings port.SettingsStore
		deps     []handler.Dependency
	)

	switch {
	case cfg.DatabaseURL != "":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		store, err := postgres.New(ctx, cfg.DatabaseURL, loc)
		cancel()
		if err != nil {
			logger.Fatal("failed to connect to postgres", zap.Error(err))
		}
		defer store.Close()

		logger.Info("using Postgres as data backend")
		sources = store
		settings = store
		deps = append(deps, handler.Dependency{Name: "postgres", Ping: store.Ping})
	case supabaseClient != nil:
		logger.Info("using Supabase as data backend", zap.String("supabase_url", cfg.SupabaseURL))
		sources = supabase.NewSources(supabaseClient, loc)
		settings = supabaseClient
	default:
		logger.Fatal("no data backend configured: set DATABASE_URL or SUPABASE_URL")
	}

	if cfg.RedisAddr != "" {
		settingsCache := rediscache.NewSettingsCache(
			rediscache.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB),
			settings,
			cfg.SettingsCacheTTL,
			metrics,
			logger,
		)
		defer settingsCache.Close()

		logger.Info("settings cached in Redis", zap.String("redis_addr", cfg.RedisAddr))
		settings = settingsCache
		deps = append(deps, handler.Dependency{Name: "redis", Ping: settingsCache.Ping})
	}

	var authenticator port.Authenticator
	if supabaseClient != nil {
		authenticator = supabaseClient
	} else {
		logger.Warn("auth: Supabase not configured, /v1/auth/login unavailable")
	}
	if cfg.SupabaseJWTSecret == "" {
		logger.Warn("auth: SUPABASE_JWT_SECRET not set, every dashboard request will be rejected")
	}

	// --- Services ---
	clock := func() time.Time { return time.Now().In(loc) }

	registry := service.NewRegistry(
		service.RegistryConfig{
			Dashboard: service.DashboardConfig{
				StaleAfter:       cfg.StaleAfter,
				AuthReadyTimeout: cfg.AuthReadyTimeout,
				DefaultThreshold: cfg.LowStockDefaultThreshold,
			},
			FetchTimeout: cfg.FetchTimeout,
			IdleTTL:      cfg.DashboardIdleTTL,
		},
		sources,
		settings,
		clock,
		metrics,
		logger,
	)
	settingsSvc := service.NewSettings(settings, cfg.LowStockDefaultThreshold, logger)
	verifier := service.NewTokenVerifier(cfg.SupabaseJWTSecret, cfg.DefaultStoreID, clock)

	// --- Router ---
	router := handler.NewRouter(handler.Deps{
		Registry:     registry,
		Settings:     settingsSvc,
		Verifier:     verifier,
		Auth:         authenticator,
		Dependencies: deps,
		Metrics:      metrics,
	}, logger)

	// --- Server ---
	// WriteTimeout leaves room for a full fetch run plus the auth wait.
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.FetchTimeout + cfg.AuthReadyTimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
