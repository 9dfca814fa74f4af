// Package interaction performs optimistic like/unlike toggles.
//
// Each toggle flips the local flag first, then writes the remote store, then
// either commits or restores the previous flag. A key with a pending toggle
// refuses another one until it settles.
package interaction

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/vertixec/THEARCHIVE/internal/domain/catalog"
	apperrors "github.com/vertixec/THEARCHIVE/internal/errors"
	"github.com/vertixec/THEARCHIVE/internal/notify"
	"github.com/vertixec/THEARCHIVE/internal/observability"
	"github.com/vertixec/THEARCHIVE/internal/store"
)

// IdentitySource yields the current identity; *session.Manager satisfies it.
type IdentitySource interface {
	Identity() *catalog.Identity
}

// LikeState is the local liked projection; *likes.Index satisfies it.
type LikeState interface {
	IsLiked(key catalog.ItemKey) bool
	Set(key catalog.ItemKey, liked bool)
	Pin(userID string, key catalog.ItemKey, liked bool)
	Unpin(key catalog.ItemKey)
}

// Notifier surfaces transient notices; *notify.Queue satisfies it.
type Notifier interface {
	Push(kind notify.Kind, message string) notify.Notice
}

// Controller runs toggles against the likes collection.
type Controller struct {
	writer      store.Writer
	likes       LikeState
	identity    IdentitySource
	notices     Notifier
	collections catalog.Collections
	logger      *zap.Logger
	metrics     *observability.Collector

	mu      sync.Mutex
	pending map[catalog.ItemKey]*Toggle
}

// NewController wires a Controller. notices and metrics may be nil.
func NewController(
	writer store.Writer,
	likes LikeState,
	identity IdentitySource,
	notices Notifier,
	collections catalog.Collections,
	logger *zap.Logger,
	metrics *observability.Collector,
) *Controller {
	return &Controller{
		writer:      writer,
		likes:       likes,
		identity:    identity,
		notices:     notices,
		collections: collections,
		logger:      observability.OrNop(logger),
		metrics:     metrics,
		pending:     make(map[catalog.ItemKey]*Toggle),
	}
}

// Begin moves a new toggle for key from Idle to Pending: the local flag is
// flipped and listeners are notified before this returns. It refuses with
// AuthRequired when signed out and with TogglePending when key already has
// a toggle in flight; neither refusal touches local or remote state.
func (c *Controller) Begin(key catalog.ItemKey) (*Toggle, error) {
	if !key.Type.Valid() || key.ID == "" {
		return nil, apperrors.Validation(apperrors.CodeUnknownItemType.String(), "invalid item key").
			WithResource(key.String()).
			Build()
	}

	identity := c.identity.Identity()
	if identity == nil {
		c.notify(notify.KindAuthRequired, notify.MessageAuthRequired)
		c.metrics.ToggleSettled("none", "auth_required")
		return nil, apperrors.AuthRequired(apperrors.CodeAuthRequired.String(), "sign in to like items").
			WithResource(key.String()).
			Build()
	}

	c.mu.Lock()
	if _, busy := c.pending[key]; busy {
		c.mu.Unlock()
		c.metrics.ToggleSettled("none", "ignored")
		return nil, apperrors.Pending(apperrors.CodeTogglePending.String(), "toggle already in flight").
			WithResource(key.String()).
			WithUserID(identity.UserID).
			Build()
	}
	from := c.likes.IsLiked(key)
	t := &Toggle{
		controller: c,
		key:        key,
		identity:   identity,
		from:       from,
		to:         !from,
		state:      StatePending,
		done:       make(chan struct{}),
	}
	c.pending[key] = t
	c.mu.Unlock()

	c.likes.Pin(identity.UserID, key, t.to)
	return t, nil
}

// Settle issues the remote mutation and moves t to Committed or RolledBack.
// "Already exists" and "nothing to delete" count as success. Any other
// failure restores the previous flag, raises a notice and is returned.
func (t *Toggle) Settle(ctx context.Context) error {
	c := t.controller
	if !t.claim() {
		return apperrors.Pending(apperrors.CodeToggleSettled.String(), "toggle already settled").
			WithResource(t.key.String()).
			Build()
	}

	err := c.mutate(ctx, t)
	c.likes.Unpin(t.key)
	if err == nil || apperrors.IsConflict(err) {
		t.transition(StateCommitted, nil)
		c.release(t)
		c.metrics.ToggleSettled(direction(t.to), "committed")
		return nil
	}

	// Revert only while the same user is signed in; after a sign-out the
	// index no longer belongs to them.
	if catalog.SameUser(c.identity.Identity(), t.identity) {
		c.likes.Set(t.key, t.from)
	}
	t.transition(StateRolledBack, err)
	c.release(t)

	c.logger.Warn("Like toggle rolled back",
		zap.String("item", t.key.String()),
		zap.String("user_id", t.identity.UserID),
		zap.Bool("target", t.to),
		zap.Error(err))
	c.metrics.ToggleSettled(direction(t.to), "rolled_back")
	c.notify(notify.KindSyncFailed, notify.MessageSyncFailed)
	return err
}

// Toggle is Begin followed by Settle. It returns the liked flag left
// visible afterwards.
func (c *Controller) Toggle(ctx context.Context, key catalog.ItemKey) (bool, error) {
	t, err := c.Begin(key)
	if err != nil {
		return c.likes.IsLiked(key), err
	}
	err = t.Settle(ctx)
	return t.Liked(), err
}

// Pending reports whether key has a toggle in flight.
func (c *Controller) Pending(key catalog.ItemKey) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.pending[key]
	return ok
}

// IsLiked reports the local liked flag.
func (c *Controller) IsLiked(key catalog.ItemKey) bool {
	return c.likes.IsLiked(key)
}

// mutate writes the toggle's target and classifies whatever the writer
// returned.
func (c *Controller) mutate(ctx context.Context, t *Toggle) error {
	if t.to {
		err := c.writer.Insert(ctx, c.collections.Likes, store.Row{
			catalog.LikeColumnUserID:   t.identity.UserID,
			catalog.LikeColumnItemID:   t.key.ID,
			catalog.LikeColumnItemType: t.key.Type.String(),
		})
		return apperrors.FromStoreError(err, "like", c.collections.Likes)
	}
	err := c.writer.Delete(ctx, c.collections.Likes, []store.Filter{
		store.Eq(catalog.LikeColumnUserID, t.identity.UserID),
		store.Eq(catalog.LikeColumnItemID, t.key.ID),
		store.Eq(catalog.LikeColumnItemType, t.key.Type.String()),
	})
	return apperrors.FromStoreError(err, "unlike", c.collections.Likes)
}

func (c *Controller) release(t *Toggle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending[t.key] == t {
		delete(c.pending, t.key)
	}
}

func (c *Controller) notify(kind notify.Kind, message string) {
	if c.notices != nil {
		c.notices.Push(kind, message)
	}
}

func direction(liked bool) string {
	if liked {
		return "like"
	}
	return "unlike"
}
