// Package sqlite persists the signed-in session in a local SQLite file so a
// restarted process can resolve the same identity.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vertixec/THEARCHIVE/internal/domain/catalog"
	apperrors "github.com/vertixec/THEARCHIVE/internal/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS archive_session (
	slot          INTEGER PRIMARY KEY CHECK (slot = 1),
	user_id       TEXT NOT NULL,
	email         TEXT NOT NULL DEFAULT '',
	access_token  TEXT NOT NULL,
	refresh_token TEXT NOT NULL DEFAULT '',
	expires_at    INTEGER NOT NULL DEFAULT 0,
	updated_at    INTEGER NOT NULL
);`

// TokenStore keeps at most one session.
type TokenStore struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the session database at path.
func Open(path string) (*TokenStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, apperrors.Internal(apperrors.CodeInternalError.String(), "cannot create session directory").
				WithResource(path).
				WithCause(err).
				Build()
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	for _, pragma := range []string{"PRAGMA journal_mode = WAL", "PRAGMA busy_timeout = 5000"} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &TokenStore{db: db, now: time.Now}, nil
}

// Load returns the stored session, or nil when there is none.
func (s *TokenStore) Load(ctx context.Context) (*catalog.Identity, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, email, access_token, refresh_token, expires_at
		FROM archive_session WHERE slot = 1`)

	var (
		identity catalog.Identity
		expires  int64
	)
	err := row.Scan(&identity.UserID, &identity.Email, &identity.AccessToken, &identity.RefreshToken, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(err, "load_session", "failed to read stored session")
	}
	if expires > 0 {
		identity.ExpiresAt = time.Unix(expires, 0)
	}
	return &identity, nil
}

// Save replaces the stored session.
func (s *TokenStore) Save(ctx context.Context, identity *catalog.Identity) error {
	if identity == nil {
		return s.Clear(ctx)
	}
	var expires int64
	if !identity.ExpiresAt.IsZero() {
		expires = identity.ExpiresAt.Unix()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO archive_session (slot, user_id, email, access_token, refresh_token, expires_at, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(slot) DO UPDATE SET
			user_id = excluded.user_id,
			email = excluded.email,
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at`,
		identity.UserID, identity.Email, identity.AccessToken, identity.RefreshToken, expires, s.now().Unix())
	if err != nil {
		return apperrors.Wrap(err, "save_session", "failed to store session")
	}
	return nil
}

// Clear removes the stored session.
func (s *TokenStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM archive_session`); err != nil {
		return apperrors.Wrap(err, "clear_session", "failed to clear session")
	}
	return nil
}

// Close closes the database.
func (s *TokenStore) Close() error {
	return s.db.Close()
}
