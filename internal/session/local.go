package session

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vertixec/THEARCHIVE/internal/domain/catalog"
	apperrors "github.com/vertixec/THEARCHIVE/internal/errors"
	"github.com/vertixec/THEARCHIVE/internal/observability"
)

// Persister keeps the signed-in identity across runs; the sqlite
// TokenStore satisfies it.
type Persister interface {
	Load(ctx context.Context) (*catalog.Identity, error)
	Save(ctx context.Context, identity *catalog.Identity) error
	Clear(ctx context.Context) error
}

// LocalAuth is the offline auth collaborator used with the in-memory store.
// Any non-empty email and password sign in; the user id is derived from the
// email so it stays stable between runs.
type LocalAuth struct {
	persist Persister
	logger  *zap.Logger

	mu        sync.Mutex
	listeners map[int]func(*catalog.Identity)
	nextID    int
}

// NewLocalAuth creates a LocalAuth. persist may be nil.
func NewLocalAuth(persist Persister, logger *zap.Logger) *LocalAuth {
	return &LocalAuth{
		persist:   persist,
		logger:    observability.OrNop(logger),
		listeners: make(map[int]func(*catalog.Identity)),
	}
}

// CurrentIdentity returns the persisted identity, if any.
func (a *LocalAuth) CurrentIdentity(ctx context.Context) (*catalog.Identity, error) {
	if a.persist == nil {
		return nil, nil
	}
	return a.persist.Load(ctx)
}

// OnChange registers fn for sign-in and sign-out.
func (a *LocalAuth) OnChange(fn func(*catalog.Identity)) func() {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := a.nextID
	a.nextID++
	a.listeners[id] = fn
	return func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		delete(a.listeners, id)
	}
}

// SignIn signs in as email.
func (a *LocalAuth) SignIn(ctx context.Context, email, password string) (*catalog.Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apperrors.AuthRequired(apperrors.CodeInvalidCredentials.String(), "sign in failed").
			WithOperation("sign_in").
			Build()
	}

	identity := &catalog.Identity{
		UserID: uuid.NewSHA1(uuid.NameSpaceURL, []byte("archive-local:"+email)).String(),
		Email:  email,
	}
	if a.persist != nil {
		if err := a.persist.Save(ctx, identity); err != nil {
			return nil, apperrors.Wrap(err, "sign_in", "failed to persist session")
		}
	}
	a.logger.Info("Signed in locally", zap.String("user_id", identity.UserID))
	a.emit(identity)
	return identity, nil
}

// SignOut clears the persisted identity.
func (a *LocalAuth) SignOut(ctx context.Context) error {
	if a.persist != nil {
		if err := a.persist.Clear(ctx); err != nil {
			a.logger.Warn("Failed to clear persisted session", zap.Error(err))
		}
	}
	a.emit(nil)
	return nil
}

func (a *LocalAuth) emit(identity *catalog.Identity) {
	a.mu.Lock()
	fns := make([]func(*catalog.Identity), 0, len(a.listeners))
	for _, fn := range a.listeners {
		fns = append(fns, fn)
	}
	a.mu.Unlock()
	for _, fn := range fns {
		fn(identity)
	}
}
