package service

import (
	"sync"
	"time"

	"github.com/boddenberg/pos-dashboard-bfa/internal/domain"
	"github.com/boddenberg/pos-dashboard-bfa/internal/infra/cache"
	"github.com/boddenberg/pos-dashboard-bfa/internal/infra/observability"
	"github.com/boddenberg/pos-dashboard-bfa/internal/port"

	"go.uber.org/zap"
)

// DefaultIdleTTL is how long an unused store dashboard is kept.
const DefaultIdleTTL = 30 * time.Minute

// RegistryConfig tunes the dashboards a Registry creates.
type RegistryConfig struct {
	Dashboard    DashboardConfig
	FetchTimeout time.Duration
	IdleTTL      time.Duration
}

type scope struct {
	session   *SessionState
	dashboard *Dashboard
}

// Registry keeps one Dashboard per store and drops it after IdleTTL
// without use. Dropping a dashboard cancels its in-flight run.
type Registry struct {
	cfg      RegistryConfig
	sources  port.SourceFactory
	settings port.SettingsStore
	clock    port.Clock
	metrics  *observability.Metrics
	logger   *zap.Logger

	mu     sync.Mutex
	scopes *cache.InMemory[*scope]
}

// NewRegistry creates an empty registry.
func NewRegistry(
	cfg RegistryConfig,
	sources port.SourceFactory,
	settings port.SettingsStore,
	clock port.Clock,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Registry {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = DefaultIdleTTL
	}
	if clock == nil {
		clock = time.Now
	}
	r := &Registry{
		cfg:      cfg,
		sources:  sources,
		settings: settings,
		clock:    clock,
		metrics:  metrics,
		logger:   logger,
	}
	r.scopes = cache.New[*scope](cfg.IdleTTL, cache.WithEvict(func(storeID string, s *scope) {
		s.dashboard.Cancel()
		r.logger.Info("dashboard evicted after idle period", zap.String("store_id", storeID))
	}))
	return r
}

// ForSession returns the dashboard of the session's store, creating it on
// first use, and records the session as that store's auth context.
func (r *Registry) ForSession(session *domain.Session) *Dashboard {
	s := r.lookup(session.StoreID)
	s.session.Resolve(session)
	return s.dashboard
}

// Lookup returns the dashboard of storeID without touching its auth context.
func (r *Registry) Lookup(storeID string) (*Dashboard, bool) {
	s, ok := r.scopes.Get(storeID)
	if !ok {
		return nil, false
	}
	return s.dashboard, true
}

// Scope returns the auth context and dashboard of storeID, creating both if
// needed. The auth context stays unresolved until Resolve is called on it.
func (r *Registry) Scope(storeID string) (*SessionState, *Dashboard) {
	s := r.lookup(storeID)
	return s.session, s.dashboard
}

func (r *Registry) lookup(storeID string) *scope {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.scopes.Get(storeID); ok {
		r.scopes.Touch(storeID)
		return s
	}

	session := NewSessionState(r.clock)
	dashCfg := r.cfg.Dashboard
	dashCfg.StoreID = storeID

	fetcher := NewFetcher(r.sources.ForStore(storeID), session, r.cfg.FetchTimeout, r.metrics, r.logger)
	s := &scope{
		session:   session,
		dashboard: NewDashboard(dashCfg, fetcher, session, r.settings, r.clock, r.metrics, r.logger),
	}
	r.scopes.Set(storeID, s)
	r.logger.Debug("dashboard created", zap.String("store_id", storeID))
	return s
}
