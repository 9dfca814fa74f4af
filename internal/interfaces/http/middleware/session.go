package middleware

import (
	"net/http"

	"github.com/vertixec/THEARCHIVE/internal/domain/catalog"
	apperrors "github.com/vertixec/THEARCHIVE/internal/errors"
	"github.com/vertixec/THEARCHIVE/internal/notify"
	"github.com/vertixec/THEARCHIVE/pkg/api"
)

// IdentitySource yields the process-wide identity.
type IdentitySource interface {
	Identity() *catalog.Identity
}

// Notifier surfaces the sign-in prompt.
type Notifier interface {
	Push(kind notify.Kind, message string) notify.Notice
}

// RequireSession rejects requests made while nobody is signed in and raises
// the AUTHENTICATION REQUIRED notice. notices may be nil.
func RequireSession(sessions IdentitySource, notices Notifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if sessions.Identity() == nil {
				if notices != nil {
					notices.Push(notify.KindAuthRequired, notify.MessageAuthRequired)
				}
				api.ErrorWithCode(w, http.StatusUnauthorized, apperrors.CodeAuthRequired.String(), "Authentication required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
