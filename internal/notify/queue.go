// Package notify holds transient, user-visible notices.
package notify

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vertixec/THEARCHIVE/internal/observability"
)

// Kind classifies a notice.
type Kind string

const (
	KindAuthRequired Kind = "AUTH_REQUIRED"
	KindSyncFailed   Kind = "SYNC_FAILED"
	KindSuccess      Kind = "SUCCESS"
	KindInfo         Kind = "INFO"
)

// Standard messages.
const (
	MessageAuthRequired = "AUTHENTICATION REQUIRED"
	MessageSyncFailed   = "SYNC FAILED"
	MessageAccessGrant  = "ACCESS GRANTED"
	MessageSignedOut    = "SESSION TERMINATED"
)

// DefaultTTL is how long a notice stays visible, fade-out included.
const DefaultTTL = 2400 * time.Millisecond

// Notice is one transient message.
type Notice struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Queue stores notices until they expire.
type Queue struct {
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time

	mu        sync.Mutex
	notices   []Notice
	listeners map[int]func(Notice)
	nextID    int
}

// NewQueue creates a queue. ttl <= 0 uses DefaultTTL.
func NewQueue(ttl time.Duration, logger *zap.Logger) *Queue {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Queue{
		ttl:       ttl,
		logger:    observability.OrNop(logger),
		now:       time.Now,
		listeners: make(map[int]func(Notice)),
	}
}

// Push adds a notice. Messages are shown upper-cased.
func (q *Queue) Push(kind Kind, message string) Notice {
	now := q.now()
	n := Notice{
		ID:        uuid.NewString(),
		Kind:      kind,
		Message:   strings.ToUpper(message),
		CreatedAt: now,
		ExpiresAt: now.Add(q.ttl),
	}

	q.mu.Lock()
	q.pruneLocked(now)
	q.notices = append(q.notices, n)
	fns := make([]func(Notice), 0, len(q.listeners))
	for _, fn := range q.listeners {
		fns = append(fns, fn)
	}
	q.mu.Unlock()

	q.logger.Debug("Notice", zap.String("kind", string(kind)), zap.String("message", n.Message))
	for _, fn := range fns {
		fn(n)
	}
	return n
}

// Active returns unexpired notices, oldest first.
func (q *Queue) Active() []Notice {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pruneLocked(q.now())
	out := make([]Notice, len(q.notices))
	copy(out, q.notices)
	return out
}

// Dismiss removes a notice before it expires.
func (q *Queue) Dismiss(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, n := range q.notices {
		if n.ID == id {
			q.notices = append(q.notices[:i], q.notices[i+1:]...)
			return true
		}
	}
	return false
}

// Subscribe registers fn for every pushed notice.
func (q *Queue) Subscribe(fn func(Notice)) (unsubscribe func()) {
	q.mu.Lock()
	id := q.nextID
	q.nextID++
	q.listeners[id] = fn
	q.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			q.mu.Lock()
			delete(q.listeners, id)
			q.mu.Unlock()
		})
	}
}

func (q *Queue) pruneLocked(now time.Time) {
	kept := q.notices[:0]
	for _, n := range q.notices {
		if now.Before(n.ExpiresAt) {
			kept = append(kept, n)
		}
	}
	q.notices = kept
}
