package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vertixec/THEARCHIVE/internal/domain/catalog"
)

func openTestStore(t *testing.T) (*TokenStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "session.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func TestTokenStore_RoundTrip(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	require.NoError(t, s.Save(ctx, &catalog.Identity{
		UserID: "u1", Email: "a@example.com", AccessToken: "at", RefreshToken: "rt", ExpiresAt: exp,
	}))
	require.NoError(t, s.Save(ctx, &catalog.Identity{
		UserID: "u2", AccessToken: "at2", ExpiresAt: exp,
	}))

	got, err = s.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "u2", got.UserID)
	assert.Equal(t, "at2", got.AccessToken)
	assert.Equal(t, "", got.RefreshToken)
	assert.True(t, got.ExpiresAt.Equal(exp))

	require.NoError(t, s.Clear(ctx))
	got, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTokenStore_SurvivesReopen(t *testing.T) {
	s, path := openTestStore(t)
	require.NoError(t, s.Save(context.Background(), &catalog.Identity{UserID: "u1", AccessToken: "at"}))
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "u1", got.UserID)
	assert.True(t, got.ExpiresAt.IsZero())
}

func TestTokenStore_SaveNilClears(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, &catalog.Identity{UserID: "u1", AccessToken: "at"}))
	require.NoError(t, s.Save(ctx, nil))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}
