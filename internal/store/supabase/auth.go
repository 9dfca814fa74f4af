package supabase

import (
	"context"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/supabase-community/gotrue-go"
	"github.com/supabase-community/gotrue-go/types"
	supa "github.com/supabase-community/supabase-go"
	"go.uber.org/zap"

	"github.com/vertixec/THEARCHIVE/internal/domain/catalog"
	apperrors "github.com/vertixec/THEARCHIVE/internal/errors"
	"github.com/vertixec/THEARCHIVE/internal/observability"
)

// TokenStore persists the session between process runs.
type TokenStore interface {
	Load(ctx context.Context) (*catalog.Identity, error)
	Save(ctx context.Context, identity *catalog.Identity) error
	Clear(ctx context.Context) error
}

// accessClaims are the claims we read from a Supabase access token.
type accessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// IdentityFromTokens decodes an access token without verifying its
// signature; the server verifies it on every request. The subject becomes
// the user id.
func IdentityFromTokens(accessToken, refreshToken string) (*catalog.Identity, error) {
	claims := &accessClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return nil, apperrors.AuthRequired(apperrors.CodeSessionExpired.String(), "stored access token is unreadable").
			WithCause(err).
			Build()
	}
	if claims.Subject == "" {
		return nil, apperrors.AuthRequired(apperrors.CodeSessionExpired.String(), "stored access token has no subject").Build()
	}

	identity := &catalog.Identity{
		UserID:       claims.Subject,
		Email:        claims.Email,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}
	if claims.ExpiresAt != nil {
		identity.ExpiresAt = claims.ExpiresAt.Time
	}
	return identity, nil
}

func identityFromSession(s types.Session) *catalog.Identity {
	identity := &catalog.Identity{
		UserID:       s.User.ID.String(),
		Email:        s.User.Email,
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
	}
	if s.ExpiresAt > 0 {
		identity.ExpiresAt = time.Unix(s.ExpiresAt, 0)
	} else if s.ExpiresIn > 0 {
		identity.ExpiresAt = time.Now().Add(time.Duration(s.ExpiresIn) * time.Second)
	}
	return identity
}

// ============================================================================
// AUTH COLLABORATOR
// ============================================================================

// Auth resolves and changes the current identity. It satisfies
// session.AuthProvider and TokenSource.
type Auth struct {
	client gotrue.Client
	tokens TokenStore
	logger *zap.Logger
	now    func() time.Time

	mu        sync.Mutex
	current   *catalog.Identity
	listeners map[int]func(*catalog.Identity)
	nextID    int
}

// NewAuth creates an Auth over a gotrue client. tokens may be nil, in which
// case sessions do not survive the process.
func NewAuth(client gotrue.Client, tokens TokenStore, logger *zap.Logger) *Auth {
	return &Auth{
		client:    client,
		tokens:    tokens,
		logger:    observability.OrNop(logger),
		now:       time.Now,
		listeners: make(map[int]func(*catalog.Identity)),
	}
}

// NewAuthFromConfig builds the gotrue client through supabase-go.
func NewAuthFromConfig(config Config, tokens TokenStore, logger *zap.Logger) (*Auth, error) {
	client, err := supa.NewClient(config.URL, config.AnonKey, nil)
	if err != nil {
		return nil, apperrors.Validation(apperrors.CodeInvalidConfig.String(), "cannot create supabase client").
			WithCause(err).
			Build()
	}
	return NewAuth(client.Auth, tokens, logger), nil
}

// AccessToken implements TokenSource.
func (a *Auth) AccessToken() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current == nil {
		return ""
	}
	return a.current.AccessToken
}

// CurrentIdentity restores the persisted session. An expired access token is
// refreshed once; if that fails the stored session is discarded and the
// result is unauthenticated rather than an error.
func (a *Auth) CurrentIdentity(ctx context.Context) (*catalog.Identity, error) {
	if a.tokens == nil {
		a.mu.Lock()
		defer a.mu.Unlock()
		return a.current, nil
	}

	stored, err := a.tokens.Load(ctx)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		a.setCurrent(nil)
		return nil, nil
	}

	identity, err := IdentityFromTokens(stored.AccessToken, stored.RefreshToken)
	if err != nil {
		a.logger.Warn("Discarding unreadable stored session", zap.Error(err))
		a.discard(ctx)
		return nil, nil
	}

	if identity.Expired(a.now()) {
		refreshed, err := a.refresh(ctx, identity.RefreshToken)
		if err != nil {
			a.logger.Info("Stored session expired and could not be refreshed",
				zap.String("user_id", identity.UserID),
				zap.Error(err))
			a.discard(ctx)
			return nil, nil
		}
		identity = refreshed
	}

	a.setCurrent(identity)
	return identity, nil
}

// OnChange registers fn for identity changes caused by sign-in, sign-out or
// refresh. The returned function unregisters it.
func (a *Auth) OnChange(fn func(*catalog.Identity)) func() {
	a.mu.Lock()
	id := a.nextID
	a.nextID++
	a.listeners[id] = fn
	a.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			a.mu.Lock()
			delete(a.listeners, id)
			a.mu.Unlock()
		})
	}
}

// SignIn exchanges email and password for a session.
func (a *Auth) SignIn(ctx context.Context, email, password string) (*catalog.Identity, error) {
	resp, err := await(ctx, func() (*types.TokenResponse, error) {
		return a.client.SignInWithEmailPassword(email, password)
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, apperrors.FromStoreError(err, "sign_in", "auth")
		}
		return nil, apperrors.AuthRequired(apperrors.CodeInvalidCredentials.String(), "sign in failed").
			WithOperation("sign_in").
			WithCause(err).
			Build()
	}

	identity := identityFromSession(resp.Session)
	if err := a.persist(ctx, identity); err != nil {
		return nil, err
	}
	a.logger.Info("Signed in", zap.String("user_id", identity.UserID))
	a.emit(identity)
	return identity, nil
}

// SignOut revokes the remote session (best effort) and clears local state.
func (a *Auth) SignOut(ctx context.Context) error {
	token := a.AccessToken()
	if token != "" {
		_, err := await(ctx, func() (struct{}, error) {
			return struct{}{}, a.client.WithToken(token).Logout()
		})
		if err != nil {
			a.logger.Warn("Remote sign out failed; clearing local session anyway", zap.Error(err))
		}
	}

	a.discard(ctx)
	a.logger.Info("Signed out")
	a.emit(nil)
	return nil
}

// Refresh renews the current session's tokens.
func (a *Auth) Refresh(ctx context.Context) (*catalog.Identity, error) {
	a.mu.Lock()
	current := a.current
	a.mu.Unlock()
	if current == nil || current.RefreshToken == "" {
		return nil, apperrors.AuthRequired(apperrors.CodeAuthRequired.String(), "no session to refresh").Build()
	}

	identity, err := a.refresh(ctx, current.RefreshToken)
	if err != nil {
		return nil, err
	}
	a.setCurrent(identity)
	a.emit(identity)
	return identity, nil
}

func (a *Auth) refresh(ctx context.Context, refreshToken string) (*catalog.Identity, error) {
	if refreshToken == "" {
		return nil, apperrors.AuthRequired(apperrors.CodeSessionExpired.String(), "session expired").Build()
	}
	resp, err := await(ctx, func() (*types.TokenResponse, error) {
		return a.client.RefreshToken(refreshToken)
	})
	if err != nil {
		return nil, apperrors.AuthRequired(apperrors.CodeSessionExpired.String(), "token refresh failed").
			WithOperation("refresh").
			WithCause(err).
			Build()
	}
	identity := identityFromSession(resp.Session)
	if err := a.persist(ctx, identity); err != nil {
		return nil, err
	}
	return identity, nil
}

func (a *Auth) persist(ctx context.Context, identity *catalog.Identity) error {
	if a.tokens != nil {
		if err := a.tokens.Save(ctx, identity); err != nil {
			return apperrors.Wrap(err, "persist_session", "failed to store session")
		}
	}
	a.setCurrent(identity)
	return nil
}

func (a *Auth) discard(ctx context.Context) {
	if a.tokens != nil {
		if err := a.tokens.Clear(ctx); err != nil {
			a.logger.Warn("Failed to clear stored session", zap.Error(err))
		}
	}
	a.setCurrent(nil)
}

func (a *Auth) setCurrent(identity *catalog.Identity) {
	a.mu.Lock()
	a.current = identity
	a.mu.Unlock()
}

func (a *Auth) emit(identity *catalog.Identity) {
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

// await runs a context-less client call and stops waiting when ctx ends.
func await[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type result struct {
		val T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn()
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		return r.val, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
