// Package aggregator turns reads of one or more remote collections into a
// single ordered sequence of typed items.
//
// Catalogue views are one read of one collection, newest first. The
// favorites view is the identity's likes joined back onto one batched read
// per item type, ordered by when each like was made.
package aggregator

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vertixec/THEARCHIVE/internal/domain/catalog"
	apperrors "github.com/vertixec/THEARCHIVE/internal/errors"
	"github.com/vertixec/THEARCHIVE/internal/observability"
	"github.com/vertixec/THEARCHIVE/internal/store"
)

// SourceSpec describes what to load.
type SourceSpec struct {
	View catalog.ViewKind
	// Identity scopes the favorites view; nil yields an empty favorites view.
	Identity *catalog.Identity
	// Likes, when non-nil, are joined directly instead of being read for
	// Identity. They must already be in like order.
	Likes []catalog.Like
	// Filters narrow catalogue reads, e.g. published-only.
	Filters []store.Filter
}

// View is an aggregated, ordered item sequence.
type View struct {
	Kind  catalog.ViewKind `json:"view"`
	Items []catalog.Item   `json:"items"`
	// Dangling lists likes whose item no longer resolves. They are not in
	// Items.
	Dangling []catalog.ItemKey `json:"-"`
}

// Aggregator loads views from a store.Reader.
type Aggregator struct {
	reader      store.Reader
	collections catalog.Collections
	logger      *zap.Logger
	metrics     *observability.Collector
}

// New creates an Aggregator.
func New(reader store.Reader, collections catalog.Collections, logger *zap.Logger, metrics *observability.Collector) *Aggregator {
	return &Aggregator{
		reader:      reader,
		collections: collections,
		logger:      observability.OrNop(logger),
		metrics:     metrics,
	}
}

// LoadCollection loads the view described by spec. A failure never yields a
// partial list.
func (a *Aggregator) LoadCollection(ctx context.Context, spec SourceSpec) (View, error) {
	var (
		view View
		err  error
	)
	switch {
	case spec.View == catalog.ViewFavorites && spec.Likes != nil:
		view, err = a.join(ctx, spec.Likes)
	case spec.View == catalog.ViewFavorites:
		view, err = a.LoadFavorites(ctx, spec.Identity)
		return view, err
	default:
		view, err = a.loadCatalogue(ctx, spec)
	}
	a.record(spec.View, err)
	return view, err
}

// LoadFavorites reads the identity's likes in creation order and joins them.
// No identity means an empty view and no reads at all.
func (a *Aggregator) LoadFavorites(ctx context.Context, identity *catalog.Identity) (View, error) {
	if identity == nil {
		return View{Kind: catalog.ViewFavorites, Items: []catalog.Item{}}, nil
	}

	rows, err := a.reader.Read(ctx, store.Query{
		Collection: a.collections.Likes,
		Filters:    []store.Filter{store.Eq(catalog.LikeColumnUserID, identity.UserID)},
		Order:      &store.Order{Column: catalog.LikeColumnCreatedAt},
	})
	if err != nil {
		a.record(catalog.ViewFavorites, err)
		return View{}, apperrors.Wrap(err, "load_favorites", "failed to read likes")
	}

	likes := make([]catalog.Like, 0, len(rows))
	for _, row := range rows {
		like, ok := catalog.LikeFromRow(row)
		if !ok {
			a.logger.Warn("Skipping malformed like row", zap.Any("row", row))
			continue
		}
		likes = append(likes, like)
	}

	view, err := a.join(ctx, likes)
	a.record(catalog.ViewFavorites, err)
	return view, err
}

func (a *Aggregator) loadCatalogue(ctx context.Context, spec SourceSpec) (View, error) {
	t, ok := spec.View.ItemType()
	if !ok {
		return View{}, apperrors.Validation(apperrors.CodeUnknownView.String(), "view has no single collection").
			WithResource(string(spec.View)).
			Build()
	}
	collection, ok := a.collections.For(t)
	if !ok {
		return View{}, apperrors.Validation(apperrors.CodeUnknownItemType.String(), "no collection configured").
			WithResource(t.String()).
			Build()
	}

	rows, err := a.reader.Read(ctx, store.Query{
		Collection: collection,
		Filters:    spec.Filters,
		Order:      &store.Order{Column: catalog.FieldCreatedAt, Descending: true},
	})
	if err != nil {
		return View{}, apperrors.Wrap(err, "load_collection", "failed to read "+collection)
	}

	return View{Kind: spec.View, Items: a.decode(t, rows)}, nil
}

// join resolves likes to items with one concurrent read per type present.
func (a *Aggregator) join(ctx context.Context, likes []catalog.Like) (View, error) {
	view := View{Kind: catalog.ViewFavorites, Items: []catalog.Item{}}
	if len(likes) == 0 {
		return view, nil
	}

	groups := catalog.GroupByType(likes)
	resolved := make(map[catalog.ItemKey]catalog.Item)
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for t, ids := range groups {
		collection, ok := a.collections.For(t)
		if !ok || len(ids) == 0 {
			continue
		}
		g.Go(func() error {
			rows, err := a.reader.Read(gctx, store.Query{
				Collection: collection,
				Filters:    []store.Filter{store.In(catalog.FieldID, ids)},
			})
			if err != nil {
				return err
			}
			items := a.decode(t, rows)

			mu.Lock()
			defer mu.Unlock()
			for _, item := range items {
				resolved[item.Key()] = item
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return View{}, apperrors.Wrap(err, "load_favorites", "failed to resolve liked items")
	}

	seen := make(map[catalog.ItemKey]struct{}, len(likes))
	for _, like := range likes {
		key := like.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		item, ok := resolved[key]
		if !ok {
			dangling := apperrors.Dangling(apperrors.CodeDanglingLike.String(), "liked item no longer exists").
				WithOperation("load_favorites").
				WithResource(key.String()).
				WithUserID(like.UserID).
				Build()
			a.logger.Info("Dropping like whose item no longer exists",
				zap.String("item_id", key.ID),
				zap.String("item_type", key.Type.String()),
				zap.Error(dangling))
			a.metrics.DanglingDropped(key.Type.String())
			view.Dangling = append(view.Dangling, key)
			continue
		}
		view.Items = append(view.Items, item)
	}
	return view, nil
}

func (a *Aggregator) decode(t catalog.ItemType, rows []store.Row) []catalog.Item {
	items := make([]catalog.Item, 0, len(rows))
	for _, row := range rows {
		item, err := catalog.NewItem(t, row)
		if err != nil {
			a.logger.Warn("Skipping undecodable row",
				zap.String("item_type", t.String()),
				zap.Error(err))
			continue
		}
		items = append(items, item)
	}
	return items
}

func (a *Aggregator) record(view catalog.ViewKind, err error) {
	status := "ONLINE"
	if err != nil {
		status = "ERROR"
	}
	a.metrics.CollectionLoaded(string(view), status)
}
