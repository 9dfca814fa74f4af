// Package router assembles the local JSON API.
package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/vertixec/THEARCHIVE/internal/interfaces/http/handlers"
	"github.com/vertixec/THEARCHIVE/internal/interfaces/http/middleware"
	"github.com/vertixec/THEARCHIVE/internal/notify"
	"github.com/vertixec/THEARCHIVE/internal/observability"
)

// Options tunes the router.
type Options struct {
	AllowedOrigins []string
	RequestTimeout time.Duration
	// Metrics, when set, records requests and is served on /metrics.
	Metrics *observability.Collector
}

// Handlers groups the endpoint handlers.
type Handlers struct {
	Archive *handlers.ArchiveHandler
	Session *handlers.SessionHandler
	Health  *handlers.HealthHandler
}

// New builds the router. sessions gates the like routes.
func New(opts Options, h Handlers, sessions middleware.IdentitySource, notices *notify.Queue, logger *zap.Logger) *chi.Mux {
	logger = observability.OrNop(logger)
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logging(logger))
	if opts.Metrics != nil {
		r.Use(middleware.Metrics(opts.Metrics))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(chimiddleware.Timeout(opts.RequestTimeout))

	r.Get("/health", h.Health.Check)
	r.Get("/ready", h.Health.Ready)
	if opts.Metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Metrics.GetRegistry(), promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/session", func(r chi.Router) {
			r.Get("/", h.Session.Get)
			r.Post("/", h.Session.SignIn)
			r.Delete("/", h.Session.SignOut)
		})

		r.Get("/collections/{view}", h.Archive.ListCollection)
		r.Get("/favorites", h.Archive.ListFavorites)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSession(sessions, notices))
			r.Post("/likes/{type}/{id}/toggle", h.Archive.ToggleLike)
		})

		r.Get("/notices", h.Archive.ListNotices)
		r.Delete("/notices/{id}", h.Archive.DismissNotice)
	})

	return r
}

// Server wraps http.Server with the configured timeouts.
func Server(addr string, handler http.Handler, readTimeout, writeTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      writeTimeout,
	}
}
