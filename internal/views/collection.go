package views

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/vertixec/THEARCHIVE/internal/aggregator"
	"github.com/vertixec/THEARCHIVE/internal/domain/catalog"
	apperrors "github.com/vertixec/THEARCHIVE/internal/errors"
	"github.com/vertixec/THEARCHIVE/internal/filter"
	"github.com/vertixec/THEARCHIVE/internal/likes"
	"github.com/vertixec/THEARCHIVE/internal/session"
)

// Collection is a mounted, self-refreshing view. It loads on creation and
// again whenever the signed-in user changes, until Close.
type Collection struct {
	engine *Engine
	spec   aggregator.SourceSpec
	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	mounted    bool
	generation uint64
	items      []catalog.Item
	hidden     map[catalog.ItemKey]bool
	status     SyncStatus
	err        error
	// userID is the user the latest load was issued for, "" when signed out.
	userID string

	first     chan struct{}
	firstOnce sync.Once
	unsubs    []func()
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// UseCollection mounts a collection for spec and starts loading it.
func (e *Engine) UseCollection(ctx context.Context, spec aggregator.SourceSpec) *Collection {
	ctx, cancel := context.WithCancel(ctx)
	c := &Collection{
		engine:  e,
		spec:    spec,
		ctx:     ctx,
		cancel:  cancel,
		mounted: true,
		hidden:  make(map[catalog.ItemKey]bool),
		status:  StatusSyncing,
		first:   make(chan struct{}),
	}

	if spec.Identity == nil {
		c.unsubs = append(c.unsubs, e.sessions.Subscribe(c.sessionChanged))
	}
	if spec.View == catalog.ViewFavorites {
		c.unsubs = append(c.unsubs, e.index.Subscribe(c.likeChanged))
	}

	c.Refresh()
	return c
}

// Items returns the loaded items in view order. Favorites that were
// unliked since the last load are left out.
func (c *Collection) Items() []catalog.Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]catalog.Item, 0, len(c.items))
	for _, item := range c.items {
		if c.hidden[item.Key()] {
			continue
		}
		out = append(out, item)
	}
	return out
}

// Status returns the sync status.
func (c *Collection) Status() SyncStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Err returns the failure behind an ERROR or OFFLINE status.
func (c *Collection) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Filtered applies state to the current items.
func (c *Collection) Filtered(state filter.State) filter.Result {
	return UseFilteredView(c.Items(), c.engine.Facets(), state)
}

// Wait blocks until the first load finished or ctx ends.
func (c *Collection) Wait(ctx context.Context) error {
	select {
	case <-c.first:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Refresh starts a new load; an older load still in flight is discarded
// when it completes.
func (c *Collection) Refresh() {
	c.mu.Lock()
	if !c.mounted {
		c.mu.Unlock()
		return
	}
	identity := c.spec.Identity
	if identity == nil {
		identity = c.engine.sessions.Identity()
	}
	c.generation++
	gen := c.generation
	c.status = StatusSyncing
	c.userID = ""
	if identity != nil {
		c.userID = identity.UserID
	}
	c.wg.Add(1)
	c.mu.Unlock()

	go c.load(gen, identity)
}

// Close unmounts the collection. Loads finishing afterwards change nothing.
func (c *Collection) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.mounted = false
		c.mu.Unlock()

		for _, unsubscribe := range c.unsubs {
			unsubscribe()
		}
		c.cancel()
		c.wg.Wait()
		c.markFirst()
	})
}

func (c *Collection) load(gen uint64, identity *catalog.Identity) {
	defer c.wg.Done()

	spec := c.spec
	spec.Identity = identity

	view, err := c.engine.aggregator.LoadCollection(c.ctx, spec)
	if err == nil {
		c.loadLikes(identity)
	}

	c.mu.Lock()
	if !c.mounted || gen != c.generation {
		c.mu.Unlock()
		return
	}
	if err != nil {
		c.items = nil
		c.err = err
		c.status = c.failureStatus(err)
	} else {
		c.items = view.Items
		c.err = nil
		c.status = StatusOnline
		c.hidden = make(map[catalog.ItemKey]bool)
	}
	status := c.status
	c.mu.Unlock()

	c.markFirst()
	if err != nil {
		c.engine.logger.Warn("Collection load failed",
			zap.String("view", string(c.spec.View)),
			zap.String("status", string(status)),
			zap.Error(err))
	}
}

// loadLikes fills the like index for what the view shows. Failures leave
// cards unliked, which is the safe default.
func (c *Collection) loadLikes(identity *catalog.Identity) {
	var err error
	if c.spec.View == catalog.ViewFavorites {
		err = c.engine.index.LoadAll(c.ctx, identity)
	} else if t, ok := c.spec.View.ItemType(); ok {
		_, err = c.engine.index.Load(c.ctx, identity, t)
	}
	if err != nil {
		c.engine.logger.Info("Like state unavailable", zap.String("view", string(c.spec.View)), zap.Error(err))
	}
}

func (c *Collection) failureStatus(err error) SyncStatus {
	if apperrors.HasCode(err, apperrors.CodeCircuitOpen) {
		return StatusOffline
	}
	if c.engine.health != nil && c.engine.health.Open() {
		return StatusOffline
	}
	return StatusError
}

func (c *Collection) sessionChanged(s session.State) {
	if s.Loading {
		return
	}
	next := ""
	if s.Identity != nil {
		next = s.Identity.UserID
	}

	c.mu.Lock()
	same := next == c.userID
	c.mu.Unlock()
	if !same {
		c.Refresh()
	}
}

func (c *Collection) likeChanged(change likes.Change) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.mounted {
		return
	}
	if change.Liked {
		delete(c.hidden, change.Key)
	} else {
		c.hidden[change.Key] = true
	}
}

func (c *Collection) markFirst() {
	c.firstOnce.Do(func() { close(c.first) })
}
