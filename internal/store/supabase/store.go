// Package supabase implements the remote store and the auth collaborator on
// top of Supabase.
//
// Reads, inserts and deletes go through postgrest-go against the project's
// REST endpoint; authentication goes through gotrue-go as exposed by
// supabase-go. The postgrest client has no context support, so every call
// runs on its own goroutine and the caller's context only bounds how long we
// wait for it.
package supabase

import (
	"context"
	"sync"

	postgrest "github.com/supabase-community/postgrest-go"
	supa "github.com/supabase-community/supabase-go"
	"go.uber.org/zap"

	apperrors "github.com/vertixec/THEARCHIVE/internal/errors"
	"github.com/vertixec/THEARCHIVE/internal/observability"
	"github.com/vertixec/THEARCHIVE/internal/store"
)

// ============================================================================
// CONFIGURATION
// ============================================================================

// Config locates a Supabase project.
type Config struct {
	URL     string
	AnonKey string
	Schema  string
}

// TokenSource supplies the access token of the current session, or "" when
// unauthenticated. Requests then fall back to the anon key.
type TokenSource interface {
	AccessToken() string
}

// ============================================================================
// STORE
// ============================================================================

// Store is a store.Store backed by PostgREST.
type Store struct {
	config Config
	tokens TokenSource
	logger *zap.Logger

	mu     sync.Mutex
	client *postgrest.Client
	token  string
}

// NewStore creates a Store. tokens may be nil for anonymous access.
func NewStore(config Config, tokens TokenSource, logger *zap.Logger) *Store {
	if config.Schema == "" {
		config.Schema = "public"
	}
	return &Store{
		config: config,
		tokens: tokens,
		logger: observability.OrNop(logger),
	}
}

// restClient returns a client carrying the current bearer token. Clients are
// rebuilt on token change rather than mutated, since in-flight calls still
// hold the previous one.
func (s *Store) restClient() *postgrest.Client {
	token := ""
	if s.tokens != nil {
		token = s.tokens.AccessToken()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil && s.token == token {
		return s.client
	}

	bearer := token
	if bearer == "" {
		bearer = s.config.AnonKey
	}
	s.client = postgrest.NewClient(s.config.URL+supa.REST_URL, s.config.Schema, map[string]string{
		"apikey":        s.config.AnonKey,
		"Authorization": "Bearer " + bearer,
	})
	s.token = token
	return s.client
}

// Read implements store.Reader.
func (s *Store) Read(ctx context.Context, q store.Query) ([]store.Row, error) {
	for _, f := range q.Filters {
		// PostgREST rejects an empty in-list; nothing can match it anyway.
		if f.Op == store.OpIn && len(f.Values) == 0 {
			return []store.Row{}, nil
		}
	}

	var decoded []map[string]any
	err := s.call(ctx, "read", q.Collection, func() error {
		fb := s.restClient().From(q.Collection).Select("*", "", false)
		fb = applyFilters(fb, q.Filters)
		if q.Order != nil {
			fb = fb.Order(q.Order.Column, &postgrest.OrderOpts{Ascending: !q.Order.Descending})
		}
		_, err := fb.ExecuteTo(&decoded)
		return err
	})
	if err != nil {
		return nil, err
	}

	rows := make([]store.Row, 0, len(decoded))
	for _, r := range decoded {
		rows = append(rows, store.Row(r))
	}
	return rows, nil
}

// Insert implements store.Writer. A unique violation surfaces as Conflict.
func (s *Store) Insert(ctx context.Context, collection string, record store.Row) error {
	return s.call(ctx, "insert", collection, func() error {
		_, _, err := s.restClient().From(collection).
			Insert(map[string]any(record), false, "", "minimal", "").
			Execute()
		return err
	})
}

// Delete implements store.Writer. Deleting zero rows is not an error.
func (s *Store) Delete(ctx context.Context, collection string, filters []store.Filter) error {
	if len(filters) == 0 {
		return apperrors.Validation(apperrors.CodeInvalidInput.String(), "refusing unfiltered delete").
			WithResource(collection).
			Build()
	}
	return s.call(ctx, "delete", collection, func() error {
		fb := s.restClient().From(collection).Delete("minimal", "")
		_, _, err := applyFilters(fb, filters).Execute()
		return err
	})
}

// call runs fn on its own goroutine and classifies whatever it returns.
func (s *Store) call(ctx context.Context, operation, collection string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return apperrors.FromStoreError(err, operation, collection)
	}

	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		if err != nil {
			s.logger.Debug("PostgREST call failed",
				zap.String("operation", operation),
				zap.String("collection", collection),
				zap.Error(err))
		}
		return apperrors.FromStoreError(err, operation, collection)
	case <-ctx.Done():
		return apperrors.FromStoreError(ctx.Err(), operation, collection)
	}
}

func applyFilters(fb *postgrest.FilterBuilder, filters []store.Filter) *postgrest.FilterBuilder {
	for _, f := range filters {
		switch f.Op {
		case store.OpIn:
			fb = fb.In(f.Column, f.Values)
		default:
			if len(f.Values) > 0 {
				fb = fb.Eq(f.Column, f.Values[0])
			}
		}
	}
	return fb
}

var _ store.Store = (*Store)(nil)
