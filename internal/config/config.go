package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// HTTP client
	HTTPTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Dashboard pipeline
	FetchTimeout             time.Duration
	StaleAfter               time.Duration
	AuthReadyTimeout         time.Duration
	LowStockDefaultThreshold int
	DashboardIdleTTL         time.Duration
	StoreTimezone            string

	// Settings cache
	SettingsCacheTTL time.Duration

	// Observability
	OTLPEndpoint string

	// Supabase
	SupabaseURL        string
	SupabaseAnonKey    string
	SupabaseServiceKey string
	SupabaseJWTSecret  string

	// Postgres (takes precedence over Supabase for reads when set)
	DatabaseURL string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// DefaultStoreID scopes tokens that carry no store claim.
	DefaultStoreID string
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 2),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 50),

		FetchTimeout:             getEnvDuration("FETCH_TIMEOUT", 15*time.Second),
		StaleAfter:               getEnvDuration("DASHBOARD_STALE_AFTER", 2*time.Minute),
		AuthReadyTimeout:         getEnvDuration("AUTH_READY_TIMEOUT", 5*time.Second),
		LowStockDefaultThreshold: getEnvInt("LOW_STOCK_DEFAULT_THRESHOLD", 10),
		DashboardIdleTTL:         getEnvDuration("DASHBOARD_IDLE_TTL", 30*time.Minute),
		StoreTimezone:            getEnv("STORE_TIMEZONE", "Local"),

		SettingsCacheTTL: getEnvDuration("SETTINGS_CACHE_TTL", 5*time.Minute),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),

		SupabaseURL:        getEnv("SUPABASE_URL", ""),
		SupabaseAnonKey:    getEnv("SUPABASE_ANON_KEY", ""),
		SupabaseServiceKey: getEnv("SUPABASE_SERVICE_ROLE_KEY", ""),
		SupabaseJWTSecret:  getEnv("SUPABASE_JWT_SECRET", ""),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		DefaultStoreID: getEnv("DEFAULT_STORE_ID", ""),
	}
}

// Location resolves StoreTimezone, falling back to the process zone.
func (c *Config) Location() *time.Location {
	if c.StoreTimezone == "" || c.StoreTimezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.StoreTimezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
