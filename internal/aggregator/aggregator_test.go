package aggregator

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vertixec/THEARCHIVE/internal/domain/catalog"
	apperrors "github.com/vertixec/THEARCHIVE/internal/errors"
	"github.com/vertixec/THEARCHIVE/internal/observability"
	"github.com/vertixec/THEARCHIVE/internal/store"
	"github.com/vertixec/THEARCHIVE/internal/store/memory"
)

var alice = &catalog.Identity{UserID: "alice"}

type fixture struct {
	store   *memory.Store
	agg     *Aggregator
	metrics *observability.Collector
	cols    catalog.Collections
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cols := catalog.DefaultCollections()
	s := memory.NewCatalogStore(cols)
	metrics := observability.NewCollector("archive_test")

	s.Seed("prompts",
		store.Row{"id": 1, "title": "Old", "created_at": "2025-01-01T00:00:00Z"},
		store.Row{"id": 2, "title": "New", "created_at": "2025-03-01T00:00:00Z"},
		store.Row{"id": 3, "title": "Mid", "created_at": "2025-02-01T00:00:00Z"},
	)
	s.Seed("workflows",
		store.Row{"id": "w1", "name": "Upscale", "created_at": "2025-01-05T00:00:00Z"},
	)
	s.Seed("functional_prompts",
		store.Row{"id": 1, "title": "Sys", "created_at": "2025-01-06T00:00:00Z"},
	)

	return &fixture{
		store:   s,
		agg:     New(s, cols, nil, metrics),
		metrics: metrics,
		cols:    cols,
	}
}

func (f *fixture) like(id string, t catalog.ItemType, at string) {
	f.store.Seed(f.cols.Likes, store.Row{
		catalog.LikeColumnUserID:    "alice",
		catalog.LikeColumnItemID:    id,
		catalog.LikeColumnItemType:  t.String(),
		catalog.LikeColumnCreatedAt: at,
	})
}

func titles(items []catalog.Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Field(catalog.FieldTitle)+it.Field(catalog.FieldName))
	}
	return out
}

func TestLoadCollection_CatalogueNewestFirst(t *testing.T) {
	f := newFixture(t)

	view, err := f.agg.LoadCollection(context.Background(), SourceSpec{View: catalog.ViewMain})
	require.NoError(t, err)
	assert.Equal(t, []string{"New", "Mid", "Old"}, titles(view.Items))
	for _, it := range view.Items {
		assert.Equal(t, catalog.ItemTypeVisual, it.Type)
	}
	assert.Equal(t, "2", view.Items[0].ID, "numeric ids are compared as strings")
	assert.Equal(t, 1, f.store.Calls(memory.OpRead, "prompts"))
}

func TestLoadCollection_FailureYieldsNoPartialList(t *testing.T) {
	f := newFixture(t)
	f.store.SetFailFunc(func(op, collection string) error {
		return apperrors.Transport(apperrors.CodeTransportFailed.String(), "unreachable").Build()
	})

	view, err := f.agg.LoadCollection(context.Background(), SourceSpec{View: catalog.ViewMain})
	assert.True(t, apperrors.IsTransport(err))
	assert.Nil(t, view.Items)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.CollectionLoads.WithLabelValues("main", "ERROR")))
}

func TestLoadFavorites_OrderedByLikeCreation(t *testing.T) {
	f := newFixture(t)
	// Liked Old, then the workflow, then New: none of the tables' own orders.
	f.like("1", catalog.ItemTypeVisual, "2025-04-01T00:00:00Z")
	f.like("w1", catalog.ItemTypeWorkflow, "2025-04-02T00:00:00Z")
	f.like("2", catalog.ItemTypeVisual, "2025-04-03T00:00:00Z")
	f.like("1", catalog.ItemTypeSystem, "2025-04-04T00:00:00Z")

	view, err := f.agg.LoadFavorites(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, []string{"Old", "Upscale", "New", "Sys"}, titles(view.Items))
	assert.Empty(t, view.Dangling)

	assert.Equal(t, 1, f.store.Calls(memory.OpRead, "prompts"), "one batched read per type")
	assert.Equal(t, 1, f.store.Calls(memory.OpRead, "workflows"))
	assert.Equal(t, 0, f.store.Calls(memory.OpRead, "community_visuals"), "no read for absent types")
}

func TestLoadFavorites_DropsDanglingLikes(t *testing.T) {
	f := newFixture(t)
	f.like("1", catalog.ItemTypeVisual, "2025-04-01T00:00:00Z")
	f.like("404", catalog.ItemTypeVisual, "2025-04-02T00:00:00Z")
	f.like("3", catalog.ItemTypeVisual, "2025-04-03T00:00:00Z")

	view, err := f.agg.LoadCollection(context.Background(), SourceSpec{View: catalog.ViewFavorites, Identity: alice})
	require.NoError(t, err)
	assert.Equal(t, []string{"Old", "Mid"}, titles(view.Items))
	assert.Equal(t, []catalog.ItemKey{{ID: "404", Type: catalog.ItemTypeVisual}}, view.Dangling)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.DanglingReferences.WithLabelValues("visual")))
}

func TestLoadFavorites_NoLikesNoItemReads(t *testing.T) {
	f := newFixture(t)

	view, err := f.agg.LoadFavorites(context.Background(), alice)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.NotNil(t, view.Items)
	assert.Equal(t, 1, f.store.TotalCalls(memory.OpRead), "only the likes read")
}

func TestLoadFavorites_NoIdentityNoReads(t *testing.T) {
	f := newFixture(t)

	view, err := f.agg.LoadCollection(context.Background(), SourceSpec{View: catalog.ViewFavorites})
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.Equal(t, 0, f.store.TotalCalls(memory.OpRead))
}

func TestLoadCollection_JoinsGivenLikes(t *testing.T) {
	f := newFixture(t)
	likes := []catalog.Like{
		{UserID: "alice", ItemID: "3", ItemType: catalog.ItemTypeVisual},
		{UserID: "alice", ItemID: "1", ItemType: catalog.ItemTypeVisual},
		{UserID: "alice", ItemID: "3", ItemType: catalog.ItemTypeVisual},
	}

	view, err := f.agg.LoadCollection(context.Background(), SourceSpec{View: catalog.ViewFavorites, Likes: likes})
	require.NoError(t, err)
	assert.Equal(t, []string{"Mid", "Old"}, titles(view.Items))
	assert.Equal(t, 0, f.store.Calls(memory.OpRead, f.cols.Likes))
}

func TestLoadFavorites_ItemReadFailureFailsView(t *testing.T) {
	f := newFixture(t)
	f.like("1", catalog.ItemTypeVisual, "2025-04-01T00:00:00Z")
	f.store.SetFailFunc(func(op, collection string) error {
		if collection == "prompts" {
			return apperrors.Transport(apperrors.CodeTransportFailed.String(), "unreachable").Build()
		}
		return nil
	})

	_, err := f.agg.LoadFavorites(context.Background(), alice)
	assert.True(t, apperrors.IsTransport(err))
}

func TestLoadFavorites_LogsDanglingReference(t *testing.T) {
	f := newFixture(t)
	core, logs := observer.New(zap.InfoLevel)
	f.agg = New(f.store, f.cols, zap.New(core), f.metrics)
	f.like("404", catalog.ItemTypeWorkflow, "2025-04-02T00:00:00Z")

	_, err := f.agg.LoadFavorites(context.Background(), alice)
	require.NoError(t, err)

	entries := logs.FilterMessage("Dropping like whose item no longer exists").All()
	require.Len(t, entries, 1)

	var logged error
	for _, field := range entries[0].Context {
		if field.Key == "error" {
			logged, _ = field.Interface.(error)
		}
	}
	require.Error(t, logged)
	assert.True(t, apperrors.IsDangling(logged))
	assert.True(t, apperrors.HasCode(logged, apperrors.CodeDanglingLike))
	assert.Equal(t, apperrors.SeverityLow, apperrors.GetSeverity(logged))
}
