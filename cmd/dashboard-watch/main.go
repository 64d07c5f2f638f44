// Command dashboard-watch signs in to Supabase and polls a store's
// dashboard snapshot, printing it as JSON on every tick.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/boddenberg/pos-dashboard-bfa/internal/config"
	"github.com/boddenberg/pos-dashboard-bfa/internal/domain"
	"github.com/boddenberg/pos-dashboard-bfa/internal/infra/observability"
	"github.com/boddenberg/pos-dashboard-bfa/internal/infra/resilience"
	"github.com/boddenberg/pos-dashboard-bfa/internal/infra/supabase"
	"github.com/boddenberg/pos-dashboard-bfa/internal/service"

	"go.uber.org/zap"
)

func main() {
	email := flag.String("email", os.Getenv("POS_EMAIL"), "Supabase account email")
	password := flag.String("password", os.Getenv("POS_PASSWORD"), "Supabase account password")
	interval := flag.Duration("interval", 30*time.Second, "Polling interval")
	force := flag.Bool("force", false, "Bypass the stale window on every poll")
	once := flag.Bool("once", false, "Print one snapshot and exit")
	flag.Parse()

	_ = config.LoadDotEnv(".env")
	cfg := config.Load()

	if strings.TrimSpace(*email) == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "--email and --password are required (or POS_EMAIL / POS_PASSWORD)")
		os.Exit(1)
	}
	if cfg.SupabaseURL == "" {
		fmt.Fprintln(os.Stderr, "SUPABASE_URL is not set")
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc := cfg.Location()
	metrics := observability.NewMetrics()
	client := supabase.NewClient(
		&http.Client{Timeout: cfg.HTTPTimeout},
		cfg.SupabaseURL,
		cfg.SupabaseAnonKey,
		cfg.SupabaseServiceKey,
		resilience.NewCircuitBreaker("supabase"),
		resilience.Config{
			MaxRetries:     cfg.MaxRetries,
			InitialBackoff: cfg.InitialBackoff,
			MaxConcurrency: cfg.MaxConcurrency,
		},
		logger,
	)

	tokens, err := client.SignIn(ctx, &domain.LoginRequest{Email: *email, Password: *password})
	if err != nil {
		fmt.Fprintf(os.Stderr, "sign in: %v\n", err)
		os.Exit(1)
	}
	session, err := service.ReadSession(tokens.AccessToken, cfg.DefaultStoreID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "session: %v\n", err)
		os.Exit(1)
	}

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
		supabase.NewSources(client, loc),
		client,
		func() time.Time { return time.Now().In(loc) },
		metrics,
		logger,
	)

	// The first poll may start before the session is published; it waits
	// on the auth context up to AUTH_READY_TIMEOUT.
	auth, dash := registry.Scope(session.StoreID)
	go auth.Resolve(session)

	logger.Info("watching dashboard",
		zap.String("store_id", session.StoreID),
		zap.Duration("interval", *interval),
		zap.Bool("force", *force),
	)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	poll := func() {
		snap, err := dash.Refresh(ctx, *force)
		switch {
		case errors.Is(err, context.Canceled):
			return
		case err != nil:
			logger.Warn("dashboard refresh failed", zap.Error(err))
		}
		if snap == nil {
			return
		}
		if encErr := enc.Encode(domain.DashboardResponse{
			Metrics:   &snap.Metrics,
			FetchedAt: snap.FetchedAt,
			Stale:     err != nil,
			Error:     errString(err),
		}); encErr != nil {
			logger.Warn("write dashboard snapshot", zap.Error(encErr))
		}
	}

	poll()
	if *once {
		return
	}

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			dash.Cancel()
			logger.Info("stopped")
			return
		case <-ticker.C:
			poll()
		}
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
