package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/vertixec/THEARCHIVE/internal/domain/catalog"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// stubProvider resolves CurrentIdentity only when release is closed.
type stubProvider struct {
	release  chan struct{}
	identity *catalog.Identity
	err      error

	mu        sync.Mutex
	listeners map[int]func(*catalog.Identity)
	next      int
	resolves  int
}

func newStubProvider(identity *catalog.Identity) *stubProvider {
	return &stubProvider{
		release:   make(chan struct{}),
		identity:  identity,
		listeners: make(map[int]func(*catalog.Identity)),
	}
}

func (p *stubProvider) CurrentIdentity(ctx context.Context) (*catalog.Identity, error) {
	p.mu.Lock()
	p.resolves++
	p.mu.Unlock()
	select {
	case <-p.release:
		return p.identity, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *stubProvider) OnChange(fn func(*catalog.Identity)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.next
	p.next++
	p.listeners[id] = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.listeners, id)
	}
}

func (p *stubProvider) emit(identity *catalog.Identity) {
	p.mu.Lock()
	fns := make([]func(*catalog.Identity), 0, len(p.listeners))
	for _, fn := range p.listeners {
		fns = append(fns, fn)
	}
	p.mu.Unlock()
	for _, fn := range fns {
		fn(identity)
	}
}

func (p *stubProvider) listenerCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.listeners)
}

func waitReady(t *testing.T, m *Manager) State {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s, err := m.Wait(ctx)
	require.NoError(t, err)
	return s
}

func TestManager_ResolvesInitialIdentity(t *testing.T) {
	alice := &catalog.Identity{UserID: "alice"}
	p := newStubProvider(alice)
	m := NewManager(context.Background(), p, nil, nil)
	defer m.Close()

	assert.True(t, m.Snapshot().Loading)
	assert.Nil(t, m.Identity())

	close(p.release)
	s := waitReady(t, m)
	assert.False(t, s.Loading)
	assert.Equal(t, "alice", s.Identity.UserID)
	assert.Equal(t, 1, p.resolves)
	assert.Equal(t, 1, p.listenerCount())
}

func TestManager_ResolutionErrorMeansSignedOut(t *testing.T) {
	p := newStubProvider(&catalog.Identity{UserID: "alice"})
	p.err = errors.New("storage unavailable")
	m := NewManager(context.Background(), p, nil, nil)
	defer m.Close()

	close(p.release)
	s := waitReady(t, m)
	assert.False(t, s.Loading)
	assert.False(t, s.Authenticated())
}

func TestManager_ChangeBeforeResolutionWins(t *testing.T) {
	p := newStubProvider(&catalog.Identity{UserID: "stale"})
	m := NewManager(context.Background(), p, nil, nil)
	defer m.Close()

	p.emit(&catalog.Identity{UserID: "fresh"})
	s := waitReady(t, m)
	assert.Equal(t, "fresh", s.Identity.UserID)

	close(p.release)
	m.wg.Wait()
	assert.Equal(t, "fresh", m.Identity().UserID)
}

func TestManager_SubscribersSeeChanges(t *testing.T) {
	p := newStubProvider(nil)
	m := NewManager(context.Background(), p, nil, nil)
	defer m.Close()

	var mu sync.Mutex
	var seen []State
	unsubscribe := m.Subscribe(func(s State) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	})

	close(p.release)
	waitReady(t, m)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 1
	}, time.Second, time.Millisecond)

	p.emit(&catalog.Identity{UserID: "bob"})
	p.emit(nil)
	unsubscribe()
	p.emit(&catalog.Identity{UserID: "carol"})

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 3)
	assert.Nil(t, seen[0].Identity)
	assert.Equal(t, "bob", seen[1].Identity.UserID)
	assert.Nil(t, seen[2].Identity)
}

func TestManager_CloseStopsEverything(t *testing.T) {
	p := newStubProvider(&catalog.Identity{UserID: "alice"})
	m := NewManager(context.Background(), p, nil, nil)

	calls := 0
	m.Subscribe(func(State) { calls++ })

	// Close while the initial resolution is still in flight.
	m.Close()
	m.Close()

	assert.Equal(t, 0, p.listenerCount())
	p.emit(&catalog.Identity{UserID: "late"})
	close(p.release)

	assert.Equal(t, 0, calls)
	assert.True(t, m.Snapshot().Loading)
	select {
	case <-m.Ready():
	default:
		t.Fatal("Ready must be closed after Close")
	}
}

func TestManager_NoSubscriberStartsAfterClose(t *testing.T) {
	p := newStubProvider(nil)
	close(p.release)
	m := NewManager(context.Background(), p, nil, nil)
	waitReady(t, m)

	entered := make(chan struct{})
	unblock := make(chan struct{})
	var mu sync.Mutex
	closed := false
	lateCalls := 0

	m.Subscribe(func(State) {
		close(entered)
		<-unblock
	})
	m.Subscribe(func(State) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			lateCalls++
		}
	})

	emitted := make(chan struct{})
	go func() {
		defer close(emitted)
		p.emit(&catalog.Identity{UserID: "u1"})
	}()
	<-entered

	m.Close()
	mu.Lock()
	closed = true
	mu.Unlock()

	close(unblock)
	<-emitted
	assert.Zero(t, lateCalls)
}

func TestManager_CloseFromSubscriber(t *testing.T) {
	p := newStubProvider(nil)
	close(p.release)
	m := NewManager(context.Background(), p, nil, nil)
	waitReady(t, m)

	calls := 0
	m.Subscribe(func(State) {
		calls++
		m.Close()
	})
	m.Subscribe(func(State) { calls++ })

	done := make(chan struct{})
	go func() {
		defer close(done)
		p.emit(&catalog.Identity{UserID: "u1"})
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close from a subscriber blocked")
	}
	assert.Equal(t, 1, calls)
	assert.Zero(t, p.listenerCount())
}

func TestManager_CloseFromSubscriberDuringResolution(t *testing.T) {
	p := newStubProvider(&catalog.Identity{UserID: "alice"})
	m := NewManager(context.Background(), p, nil, nil)

	closed := make(chan struct{})
	m.Subscribe(func(State) {
		m.Close()
		close(closed)
	})
	close(p.release)

	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close from the resolving subscriber blocked")
	}
	assert.Zero(t, p.listenerCount())
}
