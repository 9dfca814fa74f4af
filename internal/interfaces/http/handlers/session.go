package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/vertixec/THEARCHIVE/internal/domain/catalog"
	"github.com/vertixec/THEARCHIVE/internal/interfaces/http/validation"
	"github.com/vertixec/THEARCHIVE/internal/notify"
	"github.com/vertixec/THEARCHIVE/internal/observability"
	"github.com/vertixec/THEARCHIVE/internal/session"
	"github.com/vertixec/THEARCHIVE/pkg/api"
)

// Authenticator signs the process in and out; *supabase.Auth satisfies it.
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (*catalog.Identity, error)
	SignOut(ctx context.Context) error
}

// SessionReader exposes the session state; *session.Manager satisfies it.
type SessionReader interface {
	Snapshot() session.State
}

// SessionHandler serves /api/v1/session.
type SessionHandler struct {
	sessions SessionReader
	auth     Authenticator
	notices  *notify.Queue
	logger   *zap.Logger
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(sessions SessionReader, auth Authenticator, notices *notify.Queue, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		auth:     auth,
		notices:  notices,
		logger:   observability.OrNop(logger),
	}
}

// Get handles GET /api/v1/session.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	api.Success(w, http.StatusOK, SessionResponse(h.sessions.Snapshot()))
}

// SignIn handles POST /api/v1/session.
func (h *SessionHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req api.SignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validation.GetValidator().Validate(req); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	identity, err := h.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	h.notices.Push(notify.KindSuccess, notify.MessageAccessGrant)

	api.Success(w, http.StatusOK, SessionResponse(session.State{Identity: identity}))
}

// SignOut handles DELETE /api/v1/session.
func (h *SessionHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.SignOut(r.Context()); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	h.notices.Push(notify.KindInfo, notify.MessageSignedOut)
	w.WriteHeader(http.StatusNoContent)
}

// SessionResponse projects the session state for clients.
func SessionResponse(s session.State) api.SessionResponse {
	resp := api.SessionResponse{
		Authenticated: s.Authenticated(),
		Loading:       s.Loading,
	}
	if s.Identity != nil {
		resp.UserID = s.Identity.UserID
		resp.Email = s.Identity.Email
		if !s.Identity.ExpiresAt.IsZero() {
			expires := s.Identity.ExpiresAt
			resp.ExpiresAt = &expires
		}
	}
	return resp
}
