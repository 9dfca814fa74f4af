package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vertixec/THEARCHIVE/internal/domain/catalog"
	apperrors "github.com/vertixec/THEARCHIVE/internal/errors"
	"github.com/vertixec/THEARCHIVE/internal/store"
)

func TestStore_ReadFiltersAndOrders(t *testing.T) {
	s := New()
	s.Seed("prompts",
		store.Row{"id": "1", "created_at": "2025-01-01T00:00:00Z", "volume": "a"},
		store.Row{"id": "2", "created_at": "2025-01-03T00:00:00Z", "volume": "b"},
		store.Row{"id": "3", "created_at": "2025-01-02T00:00:00Z", "volume": "a"},
	)

	rows, err := s.Read(context.Background(), store.Query{
		Collection: "prompts",
		Order:      &store.Order{Column: "created_at", Descending: true},
	})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []any{"2", "3", "1"}, []any{rows[0]["id"], rows[1]["id"], rows[2]["id"]})

	rows, err = s.Read(context.Background(), store.Query{
		Collection: "prompts",
		Filters:    []store.Filter{store.In("id", []string{"1", "2"}), store.Eq("volume", "a")},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "1", rows[0]["id"])
}

func TestStore_UniqueConstraint(t *testing.T) {
	s := NewCatalogStore(catalog.DefaultCollections())
	like := store.Row{"user_id": "u", "item_id": "1", "item_type": "visual"}

	require.NoError(t, s.Insert(context.Background(), "user_likes", like))
	err := s.Insert(context.Background(), "user_likes", like)
	assert.True(t, apperrors.IsConflict(err))
	assert.Len(t, s.Rows("user_likes"), 1)

	other := store.Row{"user_id": "u", "item_id": "1", "item_type": "system"}
	require.NoError(t, s.Insert(context.Background(), "user_likes", other))
	assert.Len(t, s.Rows("user_likes"), 2)
}

func TestStore_DeleteZeroRowsSucceeds(t *testing.T) {
	s := New()
	err := s.Delete(context.Background(), "user_likes", []store.Filter{store.Eq("user_id", "nobody")})
	assert.NoError(t, err)
	assert.Equal(t, 1, s.Calls(OpDelete, "user_likes"))
}

func TestStore_FailFunc(t *testing.T) {
	s := New()
	boom := errors.New("boom")
	s.SetFailFunc(func(op, collection string) error {
		if op == OpRead {
			return boom
		}
		return nil
	})

	_, err := s.Read(context.Background(), store.Query{Collection: "prompts"})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, s.TotalCalls(OpRead))
}

func TestStore_HoldRespectsContext(t *testing.T) {
	s := New()
	s.Hold()
	defer s.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := s.Read(ctx, store.Query{Collection: "prompts"})
	assert.True(t, apperrors.IsTransport(err))
}
