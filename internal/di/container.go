// Package di wires the archive client with google/wire.
package di

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/vertixec/THEARCHIVE/internal/aggregator"
	"github.com/vertixec/THEARCHIVE/internal/config"
	"github.com/vertixec/THEARCHIVE/internal/interaction"
	"github.com/vertixec/THEARCHIVE/internal/interfaces/http/handlers"
	"github.com/vertixec/THEARCHIVE/internal/likes"
	"github.com/vertixec/THEARCHIVE/internal/notify"
	"github.com/vertixec/THEARCHIVE/internal/observability"
	"github.com/vertixec/THEARCHIVE/internal/session"
	"github.com/vertixec/THEARCHIVE/internal/store"
	"github.com/vertixec/THEARCHIVE/internal/views"
)

// AuthService is the auth collaborator: it resolves and follows the
// session and signs in and out.
type AuthService interface {
	session.AuthProvider
	handlers.Authenticator
}

// Container holds every wired component of a running client.
type Container struct {
	Config     *config.Config
	Logger     *observability.Logger
	Metrics    *observability.Collector
	Auth       AuthService
	Store      store.Store
	Health     views.Health
	Sessions   *session.Manager
	Index      *likes.Index
	Aggregator *aggregator.Aggregator
	Controller *interaction.Controller
	Notices    *notify.Queue
	Engine     *views.Engine
	Router     *chi.Mux
}

// ApplyConfig applies the settings that can change at runtime.
func (c *Container) ApplyConfig(cfg *config.Config) {
	c.Logger.SetLevel(cfg.Logging.Level)
	c.Engine.SetFacets(cfg.FacetTable())
	c.Logger.Debug("Runtime configuration applied", zap.String("log_level", cfg.Logging.Level))
}
