// Package views exposes the seams presentation code uses: a synced
// collection with its status, the filtered projection of it, and a like
// toggle per item. All join, optimistic and rollback behaviour stays behind
// these types.
package views

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/vertixec/THEARCHIVE/internal/aggregator"
	"github.com/vertixec/THEARCHIVE/internal/domain/catalog"
	"github.com/vertixec/THEARCHIVE/internal/filter"
	"github.com/vertixec/THEARCHIVE/internal/interaction"
	"github.com/vertixec/THEARCHIVE/internal/likes"
	"github.com/vertixec/THEARCHIVE/internal/observability"
	"github.com/vertixec/THEARCHIVE/internal/session"
)

// SyncStatus is the presentation-level state of a collection.
type SyncStatus string

const (
	StatusSyncing SyncStatus = "SYNCING"
	StatusOnline  SyncStatus = "ONLINE"
	StatusOffline SyncStatus = "OFFLINE"
	StatusError   SyncStatus = "ERROR"
)

// Sessions is the session state the seams follow; *session.Manager
// satisfies it.
type Sessions interface {
	Identity() *catalog.Identity
	Subscribe(fn func(session.State)) (unsubscribe func())
}

// Health reports whether the remote store is being short-circuited.
type Health interface {
	Open() bool
}

// Engine bundles the collaborators every seam needs.
type Engine struct {
	sessions   Sessions
	aggregator *aggregator.Aggregator
	index      *likes.Index
	controller *interaction.Controller
	health     Health
	logger     *zap.Logger

	mu     sync.RWMutex
	facets catalog.FacetTable

	unsubscribe func()
}

// NewEngine creates an Engine. health may be nil.
func NewEngine(
	sessions Sessions,
	agg *aggregator.Aggregator,
	index *likes.Index,
	controller *interaction.Controller,
	facets catalog.FacetTable,
	health Health,
	logger *zap.Logger,
) *Engine {
	if facets == nil {
		facets = catalog.DefaultFacets()
	}
	e := &Engine{
		sessions:   sessions,
		aggregator: agg,
		index:      index,
		controller: controller,
		facets:     facets,
		health:     health,
		logger:     observability.OrNop(logger),
	}
	e.unsubscribe = sessions.Subscribe(e.sessionChanged)
	return e
}

// Close stops following the session.
func (e *Engine) Close() {
	if e.unsubscribe != nil {
		e.unsubscribe()
	}
}

// sessionChanged drops cached like state belonging to anyone but the new
// identity. Signing out clears it without touching the store.
func (e *Engine) sessionChanged(s session.State) {
	if s.Loading {
		return
	}
	owner := e.index.Owner()
	if owner == "" {
		return
	}
	if s.Identity == nil || s.Identity.UserID != owner {
		e.index.Reset()
		e.logger.Debug("Like index cleared", zap.String("previous_owner", owner))
	}
}

// Facets returns the facet table in use.
func (e *Engine) Facets() catalog.FacetTable {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.facets
}

// SetFacets swaps the facet table, e.g. after a configuration reload.
// Filtered projections computed afterwards use the new table.
func (e *Engine) SetFacets(facets catalog.FacetTable) {
	if facets == nil {
		return
	}
	e.mu.Lock()
	e.facets = facets
	e.mu.Unlock()
	e.logger.Info("Facet table updated", zap.Int("types", len(facets)))
}

// UseFilteredView is the pure filter seam.
func UseFilteredView(items []catalog.Item, facets catalog.FacetTable, state filter.State) filter.Result {
	return filter.Apply(items, facets, state)
}

// LikeToggle is the per-item like seam.
type LikeToggle struct {
	controller *interaction.Controller
	key        catalog.ItemKey
}

// UseLikeToggle returns the like seam for key.
func (e *Engine) UseLikeToggle(key catalog.ItemKey) *LikeToggle {
	return &LikeToggle{controller: e.controller, key: key}
}

// Key is the item this seam toggles.
func (l *LikeToggle) Key() catalog.ItemKey { return l.key }

// IsLiked is false until the item's type has loaded.
func (l *LikeToggle) IsLiked() bool { return l.controller.IsLiked(l.key) }

// Pending reports whether a toggle is in flight.
func (l *LikeToggle) Pending() bool { return l.controller.Pending(l.key) }

// Begin starts a toggle without waiting for the remote write.
func (l *LikeToggle) Begin() (*interaction.Toggle, error) {
	return l.controller.Begin(l.key)
}

// Toggle flips the liked flag and waits for the remote write. It returns the
// flag left visible afterwards.
func (l *LikeToggle) Toggle(ctx context.Context) (bool, error) {
	return l.controller.Toggle(ctx, l.key)
}
