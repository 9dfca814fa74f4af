package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/vertixec/THEARCHIVE/internal/aggregator"
	"github.com/vertixec/THEARCHIVE/internal/domain/catalog"
	apperrors "github.com/vertixec/THEARCHIVE/internal/errors"
	"github.com/vertixec/THEARCHIVE/internal/filter"
	"github.com/vertixec/THEARCHIVE/internal/interfaces/http/middleware"
	"github.com/vertixec/THEARCHIVE/internal/interfaces/http/validation"
	"github.com/vertixec/THEARCHIVE/internal/notify"
	"github.com/vertixec/THEARCHIVE/internal/observability"
	"github.com/vertixec/THEARCHIVE/internal/views"
	"github.com/vertixec/THEARCHIVE/pkg/api"
)

const defaultLoadWait = 15 * time.Second

type collectionParams struct {
	View   string `json:"view" validate:"required,view"`
	Filter string `json:"filter" validate:"max=100"`
	Query  string `json:"q" validate:"max=200"`
}

type toggleParams struct {
	ItemType string `json:"type" validate:"required,itemtype"`
	ID       string `json:"id" validate:"required,itemid"`
}

// ArchiveHandler serves collections, like toggles and notices.
type ArchiveHandler struct {
	engine   *views.Engine
	notices  *notify.Queue
	logger   *zap.Logger
	loadWait time.Duration
}

// NewArchiveHandler creates an ArchiveHandler. loadWait bounds how long a
// request waits for a collection's first load; <= 0 uses 15s.
func NewArchiveHandler(engine *views.Engine, notices *notify.Queue, logger *zap.Logger, loadWait time.Duration) *ArchiveHandler {
	if loadWait <= 0 {
		loadWait = defaultLoadWait
	}
	return &ArchiveHandler{
		engine:   engine,
		notices:  notices,
		logger:   observability.OrNop(logger),
		loadWait: loadWait,
	}
}

// ListCollection handles GET /api/v1/collections/{view}?filter=&q=
func (h *ArchiveHandler) ListCollection(w http.ResponseWriter, r *http.Request) {
	h.serveCollection(w, r, chi.URLParam(r, "view"))
}

// ListFavorites handles GET /api/v1/favorites?filter=&q=
func (h *ArchiveHandler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	h.serveCollection(w, r, string(catalog.ViewFavorites))
}

func (h *ArchiveHandler) serveCollection(w http.ResponseWriter, r *http.Request, view string) {
	params := collectionParams{
		View:   view,
		Filter: r.URL.Query().Get("filter"),
		Query:  r.URL.Query().Get("q"),
	}
	if err := validation.GetValidator().Validate(params); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	kind, err := catalog.ParseViewKind(params.View)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	c := h.engine.UseCollection(r.Context(), aggregator.SourceSpec{View: kind})
	defer c.Close()

	ctx, cancel := context.WithTimeout(r.Context(), h.loadWait)
	defer cancel()
	if err := c.Wait(ctx); err != nil {
		handleServiceError(w, r, h.logger, apperrors.FromStoreError(err, "load", params.View))
		return
	}
	if err := c.Err(); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	state := filter.State{TypeFilter: params.Filter, SearchQuery: params.Query}
	api.Success(w, http.StatusOK, BuildCollectionResponse(h.engine, kind, c, state))
}

// BuildCollectionResponse projects a loaded collection through state.
func BuildCollectionResponse(engine *views.Engine, kind catalog.ViewKind, c *views.Collection, state filter.State) api.CollectionResponse {
	result := c.Filtered(state)
	facets := engine.Facets()

	items := make([]api.ItemResponse, 0, len(result.Visible))
	for _, item := range result.Visible {
		toggle := engine.UseLikeToggle(item.Key())
		items = append(items, api.ItemResponse{
			ID:        item.ID,
			ItemType:  item.Type.String(),
			CreatedAt: item.CreatedAt,
			Fields:    item.Fields,
			Facet:     filter.FacetOf(item, facets),
			Labels:    api.CardLabels(catalog.LabelsFor(item)),
			Liked:     toggle.IsLiked(),
			Pending:   toggle.Pending(),
		})
	}

	selected := filter.Normalize(state.TypeFilter)
	if selected == "" {
		selected = filter.All
	}
	return api.CollectionResponse{
		View:     string(kind),
		Status:   string(c.Status()),
		AllLabel: kind.AllLabel(),
		Facets:   result.Facets,
		Filter:   selected,
		Query:    state.SearchQuery,
		Total:    len(c.Items()),
		Items:    items,
	}
}

// ToggleLike handles POST /api/v1/likes/{type}/{id}/toggle. The response
// carries the flag left visible after the remote write settled.
func (h *ArchiveHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	params := toggleParams{
		ItemType: chi.URLParam(r, "type"),
		ID:       chi.URLParam(r, "id"),
	}
	if err := validation.GetValidator().Validate(params); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	t, err := catalog.ParseItemType(params.ItemType)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	key := catalog.ItemKey{ID: params.ID, Type: t}

	toggle, err := h.engine.UseLikeToggle(key).Begin()
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	if err := toggle.Settle(r.Context()); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	api.Success(w, http.StatusOK, api.ToggleResponse{
		ID:       key.ID,
		ItemType: key.Type.String(),
		Liked:    toggle.Liked(),
		State:    toggle.State().String(),
	})
}

// ListNotices handles GET /api/v1/notices.
func (h *ArchiveHandler) ListNotices(w http.ResponseWriter, r *http.Request) {
	active := h.notices.Active()
	out := make([]api.Notice, 0, len(active))
	for _, n := range active {
		out = append(out, api.Notice{
			ID:        n.ID,
			Kind:      string(n.Kind),
			Message:   n.Message,
			ExpiresAt: n.ExpiresAt,
		})
	}
	api.Success(w, http.StatusOK, api.NoticesResponse{Notices: out})
}

// DismissNotice handles DELETE /api/v1/notices/{id}.
func (h *ArchiveHandler) DismissNotice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.notices.Dismiss(id) {
		handleServiceError(w, r, h.logger, apperrors.NotFound(apperrors.CodeNoticeNotFound.String(), "Notice not found").
			WithResource(id).
			WithRequestID(middleware.GetRequestID(r.Context())).
			Build())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
