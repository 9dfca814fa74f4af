package di

import (
	"context"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/wire"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/vertixec/THEARCHIVE/internal/aggregator"
	"github.com/vertixec/THEARCHIVE/internal/config"
	"github.com/vertixec/THEARCHIVE/internal/domain/catalog"
	"github.com/vertixec/THEARCHIVE/internal/interaction"
	"github.com/vertixec/THEARCHIVE/internal/interfaces/http/handlers"
	"github.com/vertixec/THEARCHIVE/internal/interfaces/http/router"
	"github.com/vertixec/THEARCHIVE/internal/likes"
	"github.com/vertixec/THEARCHIVE/internal/notify"
	"github.com/vertixec/THEARCHIVE/internal/observability"
	"github.com/vertixec/THEARCHIVE/internal/session"
	"github.com/vertixec/THEARCHIVE/internal/session/sqlite"
	"github.com/vertixec/THEARCHIVE/internal/store"
	"github.com/vertixec/THEARCHIVE/internal/store/memory"
	"github.com/vertixec/THEARCHIVE/internal/store/resilience"
	"github.com/vertixec/THEARCHIVE/internal/store/supabase"
	"github.com/vertixec/THEARCHIVE/internal/views"
)

// ============================================================================
// PROVIDER SETS
// ============================================================================

// SuperSet combines all provider sets for the complete client.
var SuperSet = wire.NewSet(
	ObservabilityProviders,
	StoreProviders,
	EngineProviders,
	InterfaceProviders,
	wire.Struct(new(Container), "*"),
)

// ObservabilityProviders provides logging, metrics and tracing.
var ObservabilityProviders = wire.NewSet(
	provideLogger,
	provideZap,
	provideMetrics,
	provideTracer,
)

// StoreProviders provides the auth collaborator and the decorated remote store.
var StoreProviders = wire.NewSet(
	provideCollections,
	provideTokenStore,
	provideAuth,
	provideRemoteStore,
	provideStoreStack,
	provideStore,
	provideHealth,
)

// EngineProviders provides the session, like index, aggregator, controller
// and seams.
var EngineProviders = wire.NewSet(
	provideSessions,
	provideIndex,
	provideAggregator,
	provideNotices,
	provideController,
	provideEngine,
	wire.Bind(new(interaction.LikeState), new(*likes.Index)),
	wire.Bind(new(interaction.IdentitySource), new(*session.Manager)),
	wire.Bind(new(interaction.Notifier), new(*notify.Queue)),
)

// InterfaceProviders provides the HTTP layer.
var InterfaceProviders = wire.NewSet(
	provideArchiveHandler,
	provideSessionHandler,
	provideHealthHandler,
	provideRouter,
)

// ============================================================================
// OBSERVABILITY
// ============================================================================

func provideLogger(cfg *config.Config) (*observability.Logger, func(), error) {
	logger, err := observability.NewLogger(string(cfg.Environment), cfg.Logging.Level)
	if err != nil {
		return nil, nil, err
	}
	return logger, func() { _ = logger.Sync() }, nil
}

func provideZap(logger *observability.Logger) *zap.Logger {
	return logger.Logger
}

// provideMetrics returns nil when metrics are disabled; every consumer
// accepts a nil collector.
func provideMetrics(cfg *config.Config) *observability.Collector {
	if !cfg.Metrics.Enabled {
		return nil
	}
	return observability.NewCollector(cfg.Metrics.Namespace)
}

func provideTracer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (trace.Tracer, func(), error) {
	if !cfg.Tracing.Enabled {
		return observability.Tracer(cfg.Tracing.ServiceName), func() {}, nil
	}
	tp, err := observability.InitTracing(ctx, cfg.Tracing.ServiceName, string(cfg.Environment), cfg.Tracing.Endpoint, cfg.Tracing.SampleRate)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Tracer shutdown failed", zap.Error(err))
		}
	}
	return tp.Tracer(), cleanup, nil
}

// ============================================================================
// STORE AND AUTH
// ============================================================================

func provideCollections(cfg *config.Config) catalog.Collections {
	return cfg.Collections()
}

func provideTokenStore(cfg *config.Config) (*sqlite.TokenStore, func(), error) {
	tokens, err := sqlite.Open(cfg.Session.StorePath)
	if err != nil {
		return nil, nil, err
	}
	return tokens, func() { _ = tokens.Close() }, nil
}

func provideAuth(cfg *config.Config, tokens *sqlite.TokenStore, logger *zap.Logger) (AuthService, error) {
	if cfg.Store.Backend == config.BackendMemory {
		return session.NewLocalAuth(tokens, logger), nil
	}
	auth, err := supabase.NewAuthFromConfig(supabaseConfig(cfg), tokens, logger)
	if err != nil {
		return nil, err
	}
	return auth, nil
}

// provideRemoteStore builds the undecorated store. The supabase store signs
// requests with the auth collaborator's access token.
func provideRemoteStore(cfg *config.Config, auth AuthService, collections catalog.Collections, logger *zap.Logger) store.Store {
	if cfg.Store.Backend == config.BackendMemory {
		return memory.NewCatalogStore(collections)
	}
	var tokens supabase.TokenSource
	if ts, ok := auth.(supabase.TokenSource); ok {
		tokens = ts
	}
	return supabase.NewStore(supabaseConfig(cfg), tokens, logger)
}

// storeStack is the decorated store plus the breaker health it exposes.
type storeStack struct {
	store  store.Store
	health views.Health
}

func provideStoreStack(
	cfg *config.Config,
	remote store.Store,
	metrics *observability.Collector,
	tracer trace.Tracer,
	logger *zap.Logger,
) storeStack {
	var s store.Store = resilience.NewInstrumentedStore(remote, metrics, tracer, logger)
	if !cfg.CircuitBreaker.Enabled {
		return storeStack{store: s}
	}
	breaker := resilience.NewBreakerStore(s, resilience.BreakerConfig{
		Name:             "remote-store",
		MaxRequests:      cfg.CircuitBreaker.MaxRequests,
		Interval:         cfg.CircuitBreaker.Interval,
		Timeout:          cfg.CircuitBreaker.Timeout,
		FailureThreshold: cfg.CircuitBreaker.FailureThreshold,
		MinRequests:      cfg.CircuitBreaker.MinRequests,
	}, logger, metrics)
	return storeStack{store: breaker, health: breaker}
}

func provideStore(stack storeStack) store.Store {
	return stack.store
}

func provideHealth(stack storeStack) views.Health {
	return stack.health
}

func supabaseConfig(cfg *config.Config) supabase.Config {
	return supabase.Config{
		URL:     cfg.Supabase.URL,
		AnonKey: cfg.Supabase.AnonKey,
		Schema:  cfg.Supabase.Schema,
	}
}

// ============================================================================
// ENGINE
// ============================================================================

func provideSessions(ctx context.Context, auth AuthService, logger *zap.Logger, metrics *observability.Collector) (*session.Manager, func()) {
	m := session.NewManager(ctx, auth, logger, metrics)
	return m, m.Close
}

func provideIndex(s store.Store, collections catalog.Collections, logger *zap.Logger, metrics *observability.Collector) *likes.Index {
	return likes.NewIndex(s, collections, logger, metrics)
}

func provideAggregator(s store.Store, collections catalog.Collections, logger *zap.Logger, metrics *observability.Collector) *aggregator.Aggregator {
	return aggregator.New(s, collections, logger, metrics)
}

func provideNotices(cfg *config.Config, logger *zap.Logger) *notify.Queue {
	return notify.NewQueue(cfg.Notices.TTL, logger)
}

func provideController(
	s store.Store,
	index interaction.LikeState,
	sessions interaction.IdentitySource,
	notices interaction.Notifier,
	collections catalog.Collections,
	logger *zap.Logger,
	metrics *observability.Collector,
) *interaction.Controller {
	return interaction.NewController(s, index, sessions, notices, collections, logger, metrics)
}

func provideEngine(
	cfg *config.Config,
	sessions *session.Manager,
	agg *aggregator.Aggregator,
	index *likes.Index,
	controller *interaction.Controller,
	health views.Health,
	logger *zap.Logger,
) (*views.Engine, func()) {
	engine := views.NewEngine(sessions, agg, index, controller, cfg.FacetTable(), health, logger)
	return engine, engine.Close
}

// ============================================================================
// HTTP
// ============================================================================

func provideArchiveHandler(cfg *config.Config, engine *views.Engine, notices *notify.Queue, logger *zap.Logger) *handlers.ArchiveHandler {
	return handlers.NewArchiveHandler(engine, notices, logger, cfg.Store.Timeout)
}

func provideSessionHandler(sessions *session.Manager, auth AuthService, notices *notify.Queue, logger *zap.Logger) *handlers.SessionHandler {
	return handlers.NewSessionHandler(sessions, auth, notices, logger)
}

func provideHealthHandler(sessions *session.Manager, health views.Health) *handlers.HealthHandler {
	return handlers.NewHealthHandler(sessions, health)
}

func provideRouter(
	cfg *config.Config,
	archive *handlers.ArchiveHandler,
	sessionHandler *handlers.SessionHandler,
	health *handlers.HealthHandler,
	sessions *session.Manager,
	notices *notify.Queue,
	metrics *observability.Collector,
	logger *zap.Logger,
) *chi.Mux {
	return router.New(router.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RequestTimeout: cfg.Server.WriteTimeout,
		Metrics:        metrics,
	}, router.Handlers{
		Archive: archive,
		Session: sessionHandler,
		Health:  health,
	}, sessions, notices, logger)
}
