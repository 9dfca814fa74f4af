// Package session owns the process-wide authentication state.
//
// A Manager resolves the current identity once, then follows the auth
// collaborator's change notifications until it is closed. Consumers either
// poll Snapshot or Subscribe to changes; a nil identity means read-only mode.
package session

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/vertixec/THEARCHIVE/internal/domain/catalog"
	"github.com/vertixec/THEARCHIVE/internal/observability"
)

// AuthProvider is the external auth collaborator.
type AuthProvider interface {
	// CurrentIdentity resolves the session at startup. nil means signed out.
	CurrentIdentity(ctx context.Context) (*catalog.Identity, error)
	// OnChange registers fn for later identity changes and returns its
	// unsubscribe function.
	OnChange(fn func(*catalog.Identity)) (unsubscribe func())
}

// State is what consumers observe.
type State struct {
	Identity *catalog.Identity
	Loading  bool
}

// Authenticated reports whether the state carries an identity.
func (s State) Authenticated() bool {
	return s.Identity != nil
}

// Manager is the single owner of the current identity.
type Manager struct {
	provider AuthProvider
	logger   *zap.Logger
	metrics  *observability.Collector

	mu      sync.Mutex
	state   State
	mounted bool
	changed bool
	subs    map[int]func(State)
	nextID  int

	ready       chan struct{}
	readyOnce   sync.Once
	cancel      context.CancelFunc
	unsubscribe func()
	closeOnce   sync.Once
	wg          sync.WaitGroup
}

// NewManager starts resolving the current identity in the background and
// subscribes to changes for the Manager's lifetime. Call Close to stop.
func NewManager(ctx context.Context, provider AuthProvider, logger *zap.Logger, metrics *observability.Collector) *Manager {
	ctx, cancel := context.WithCancel(ctx)
	m := &Manager{
		provider: provider,
		logger:   observability.OrNop(logger),
		metrics:  metrics,
		state:    State{Loading: true},
		mounted:  true,
		subs:     make(map[int]func(State)),
		ready:    make(chan struct{}),
		cancel:   cancel,
	}

	// Subscribe before resolving so nothing that happens meanwhile is lost.
	m.unsubscribe = provider.OnChange(m.handleChange)

	m.wg.Add(1)
	go m.resolve(ctx)

	return m
}

// resolve is tracked by wg only until the state is settled; delivery runs
// after Done so a subscriber may call Close.
func (m *Manager) resolve(ctx context.Context) {
	ids, snapshot, ok := m.settle(ctx)
	m.wg.Done()
	if ok {
		m.deliver(ids, snapshot)
	}
}

func (m *Manager) settle(ctx context.Context) ([]int, State, bool) {
	identity, err := m.provider.CurrentIdentity(ctx)
	if err != nil {
		m.logger.Warn("Failed to resolve session; continuing signed out", zap.Error(err))
		identity = nil
	}

	m.mu.Lock()
	if !m.mounted {
		m.mu.Unlock()
		return nil, State{}, false
	}
	if m.changed {
		// A change notification already carried fresher state.
		m.mu.Unlock()
		return nil, State{}, false
	}
	m.state = State{Identity: identity}
	snapshot, ids := m.state, m.subscriberIDsLocked()
	m.mu.Unlock()

	m.markReady()
	m.logger.Debug("Session resolved", zap.Bool("authenticated", identity != nil))
	m.metrics.SessionChanged(identity != nil)
	return ids, snapshot, true
}

func (m *Manager) handleChange(identity *catalog.Identity) {
	m.mu.Lock()
	if !m.mounted {
		m.mu.Unlock()
		return
	}
	m.changed = true
	m.state = State{Identity: identity}
	snapshot, ids := m.state, m.subscriberIDsLocked()
	m.mu.Unlock()

	m.markReady()
	m.logger.Info("Session changed", zap.Bool("authenticated", identity != nil))
	m.metrics.SessionChanged(identity != nil)
	m.deliver(ids, snapshot)
}

// Snapshot returns the current state.
func (m *Manager) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Identity returns the current identity, nil when signed out or loading.
func (m *Manager) Identity() *catalog.Identity {
	return m.Snapshot().Identity
}

// Ready is closed once the first state is known.
func (m *Manager) Ready() <-chan struct{} {
	return m.ready
}

// Wait blocks until the first state is known or ctx ends.
func (m *Manager) Wait(ctx context.Context) (State, error) {
	select {
	case <-m.ready:
		return m.Snapshot(), nil
	case <-ctx.Done():
		return m.Snapshot(), ctx.Err()
	}
}

// Subscribe registers fn for every state change. fn runs on the goroutine
// that caused the change and must not block.
func (m *Manager) Subscribe(fn func(State)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
		})
	}
}

// Close stops following the auth collaborator. No subscriber call starts once
// Close has begun; a call already running may finish after it returns. Close
// may be called from a subscriber.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		m.mounted = false
		m.subs = make(map[int]func(State))
		m.mu.Unlock()

		m.cancel()
		if m.unsubscribe != nil {
			m.unsubscribe()
		}
		m.wg.Wait()
		m.markReady()
	})
}

func (m *Manager) markReady() {
	m.readyOnce.Do(func() { close(m.ready) })
}

func (m *Manager) subscriberIDsLocked() []int {
	out := make([]int, 0, len(m.subs))
	for id := range m.subs {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

// deliver calls each subscriber in ids that is still registered while the
// Manager is still mounted.
func (m *Manager) deliver(ids []int, s State) {
	for _, id := range ids {
		m.mu.Lock()
		mounted := m.mounted
		fn, ok := m.subs[id]
		m.mu.Unlock()
		if !mounted {
			return
		}
		if ok {
			fn(s)
		}
	}
}
