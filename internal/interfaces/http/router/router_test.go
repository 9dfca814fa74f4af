package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/vertixec/THEARCHIVE/internal/aggregator"
	"github.com/vertixec/THEARCHIVE/internal/domain/catalog"
	apperrors "github.com/vertixec/THEARCHIVE/internal/errors"
	"github.com/vertixec/THEARCHIVE/internal/interaction"
	"github.com/vertixec/THEARCHIVE/internal/interfaces/http/handlers"
	"github.com/vertixec/THEARCHIVE/internal/likes"
	"github.com/vertixec/THEARCHIVE/internal/notify"
	"github.com/vertixec/THEARCHIVE/internal/observability"
	"github.com/vertixec/THEARCHIVE/internal/session"
	"github.com/vertixec/THEARCHIVE/internal/store"
	"github.com/vertixec/THEARCHIVE/internal/store/memory"
	"github.com/vertixec/THEARCHIVE/internal/views"
	"github.com/vertixec/THEARCHIVE/pkg/api"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeSessions doubles as session source and authenticator.
type fakeSessions struct {
	mu   sync.Mutex
	id   *catalog.Identity
	subs map[int]func(session.State)
	next int
}

func (f *fakeSessions) Identity() *catalog.Identity {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.id
}

func (f *fakeSessions) Snapshot() session.State {
	return session.State{Identity: f.Identity()}
}

func (f *fakeSessions) Subscribe(fn func(session.State)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.next
	f.next++
	f.subs[id] = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.subs, id)
	}
}

func (f *fakeSessions) set(id *catalog.Identity) {
	f.mu.Lock()
	f.id = id
	fns := make([]func(session.State), 0, len(f.subs))
	for _, fn := range f.subs {
		fns = append(fns, fn)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(session.State{Identity: id})
	}
}

func (f *fakeSessions) SignIn(_ context.Context, email, password string) (*catalog.Identity, error) {
	if password != "correct-horse" {
		return nil, apperrors.AuthRequired(apperrors.CodeInvalidCredentials.String(), "invalid credentials").Build()
	}
	id := &catalog.Identity{UserID: "alice", Email: email}
	f.set(id)
	return id, nil
}

func (f *fakeSessions) SignOut(context.Context) error {
	f.set(nil)
	return nil
}

type fixture struct {
	store    *memory.Store
	sessions *fakeSessions
	notices  *notify.Queue
	handler  http.Handler
	cols     catalog.Collections
}

func newFixture(t *testing.T, identity *catalog.Identity) *fixture {
	t.Helper()
	cols := catalog.DefaultCollections()
	s := memory.NewCatalogStore(cols)
	s.Seed("prompts",
		store.Row{"id": 1, "title": "Neon Harbor", "volume": "vol 2", "category": "city", "created_at": "2025-01-01T00:00:00Z"},
		store.Row{"id": 2, "title": "Desert Glass", "volume": "vol 1", "category": "dune", "created_at": "2025-01-02T00:00:00Z"},
	)
	s.Seed(cols.Likes,
		store.Row{"user_id": "alice", "item_id": "1", "item_type": "visual", "created_at": "2025-02-01T00:00:00Z"},
	)

	sessions := &fakeSessions{id: identity, subs: make(map[int]func(session.State))}
	notices := notify.NewQueue(time.Minute, nil)
	metrics := observability.NewCollector("archive_test")

	index := likes.NewIndex(s, cols, nil, metrics)
	agg := aggregator.New(s, cols, nil, metrics)
	ctrl := interaction.NewController(s, index, sessions, notices, cols, nil, metrics)
	engine := views.NewEngine(sessions, agg, index, ctrl, nil, nil, nil)
	t.Cleanup(engine.Close)

	h := Handlers{
		Archive: handlers.NewArchiveHandler(engine, notices, nil, time.Second),
		Session: handlers.NewSessionHandler(sessions, sessions, notices, nil),
		Health:  handlers.NewHealthHandler(sessions, nil),
	}
	return &fixture{
		store:    s,
		sessions: sessions,
		notices:  notices,
		handler:  New(Options{Metrics: metrics}, h, sessions, notices, nil),
		cols:     cols,
	}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

var alice = &catalog.Identity{UserID: "alice"}

func TestHealth(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(t, "GET", "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode[api.HealthResponse](t, w).Status)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	assert.Equal(t, http.StatusOK, f.do(t, "GET", "/ready", "").Code)
}

func TestListCollection(t *testing.T) {
	f := newFixture(t, alice)

	w := f.do(t, "GET", "/api/v1/collections/main", "")
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[api.CollectionResponse](t, w)

	assert.Equal(t, "ONLINE", resp.Status)
	assert.Equal(t, "ALL", resp.Filter)
	assert.Equal(t, []string{"VOL 1", "VOL 2"}, resp.Facets)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, "2", resp.Items[0].ID)
	assert.False(t, resp.Items[0].Liked)
	assert.Equal(t, "1", resp.Items[1].ID)
	assert.True(t, resp.Items[1].Liked)
	assert.Equal(t, api.CardLabels{Title: "city", Secondary: "vol 2", Bottom: "CATEGORY"}, resp.Items[1].Labels)
}

func TestListCollection_FilterAndSearch(t *testing.T) {
	f := newFixture(t, nil)

	resp := decode[api.CollectionResponse](t, f.do(t, "GET", "/api/v1/collections/main?filter=vol%201", ""))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "2", resp.Items[0].ID)
	assert.Equal(t, "VOL 1", resp.Filter)
	assert.Equal(t, 2, resp.Total)

	resp = decode[api.CollectionResponse](t, f.do(t, "GET", "/api/v1/collections/main?q=harbor", ""))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "1", resp.Items[0].ID)
}

func TestListCollection_UnknownView(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(t, "GET", "/api/v1/collections/archive", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_INPUT", decode[api.ErrorResponse](t, w).Code)
}

func TestListCollection_StoreFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.store.SetFailFunc(func(op, collection string) error {
		return apperrors.Transport(apperrors.CodeTransportFailed.String(), "unreachable").Build()
	})

	w := f.do(t, "GET", "/api/v1/collections/main", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "TRANSPORT_FAILED", decode[api.ErrorResponse](t, w).Code)
}

func TestFavorites(t *testing.T) {
	f := newFixture(t, alice)

	resp := decode[api.CollectionResponse](t, f.do(t, "GET", "/api/v1/favorites", ""))
	assert.Equal(t, "favorites", resp.View)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "1", resp.Items[0].ID)
	assert.True(t, resp.Items[0].Liked)
}

func TestToggleLike_SignedOut(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(t, "POST", "/api/v1/likes/visual/2/toggle", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 0, f.store.Calls(memory.OpInsert, f.cols.Likes))

	notices := decode[api.NoticesResponse](t, f.do(t, "GET", "/api/v1/notices", ""))
	require.Len(t, notices.Notices, 1)
	assert.Equal(t, notify.MessageAuthRequired, notices.Notices[0].Message)
}

func TestToggleLike_LikeThenUnlike(t *testing.T) {
	f := newFixture(t, alice)

	w := f.do(t, "POST", "/api/v1/likes/visual/2/toggle", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[api.ToggleResponse](t, w)
	assert.True(t, resp.Liked)
	assert.Equal(t, interaction.StateCommitted.String(), resp.State)
	assert.Len(t, f.store.Rows(f.cols.Likes), 2)

	resp = decode[api.ToggleResponse](t, f.do(t, "POST", "/api/v1/likes/visual/2/toggle", ""))
	assert.False(t, resp.Liked)
	assert.Len(t, f.store.Rows(f.cols.Likes), 1)
}

func TestToggleLike_RollbackReported(t *testing.T) {
	f := newFixture(t, alice)
	f.store.SetFailFunc(func(op, collection string) error {
		if op == memory.OpInsert {
			return errors.New("connection reset")
		}
		return nil
	})

	w := f.do(t, "POST", "/api/v1/likes/visual/2/toggle", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)

	notices := decode[api.NoticesResponse](t, f.do(t, "GET", "/api/v1/notices", ""))
	require.Len(t, notices.Notices, 1)
	assert.Equal(t, notify.MessageSyncFailed, notices.Notices[0].Message)

	id := notices.Notices[0].ID
	assert.Equal(t, http.StatusNoContent, f.do(t, "DELETE", "/api/v1/notices/"+id, "").Code)
	missing := f.do(t, "DELETE", "/api/v1/notices/"+id, "")
	assert.Equal(t, http.StatusNotFound, missing.Code)
	assert.Equal(t, apperrors.CodeNoticeNotFound.String(), decode[api.ErrorResponse](t, missing).Code)
}

func TestToggleLike_InvalidParams(t *testing.T) {
	f := newFixture(t, alice)

	assert.Equal(t, http.StatusBadRequest, f.do(t, "POST", "/api/v1/likes/video/2/toggle", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, "POST", "/api/v1/likes/visual/2;x/toggle", "").Code)
}

func TestSession_SignInAndOut(t *testing.T) {
	f := newFixture(t, nil)

	resp := decode[api.SessionResponse](t, f.do(t, "GET", "/api/v1/session", ""))
	assert.False(t, resp.Authenticated)

	w := f.do(t, "POST", "/api/v1/session", `{"email":"alice@example.com","password":"correct-horse"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp = decode[api.SessionResponse](t, w)
	assert.True(t, resp.Authenticated)
	assert.Equal(t, "alice", resp.UserID)

	assert.Equal(t, http.StatusNoContent, f.do(t, "DELETE", "/api/v1/session", "").Code)
	assert.Nil(t, f.sessions.Identity())

	messages := []string{}
	for _, n := range f.notices.Active() {
		messages = append(messages, n.Message)
	}
	assert.Equal(t, []string{notify.MessageAccessGrant, notify.MessageSignedOut}, messages)
}

func TestSession_SignInRejected(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(t, "POST", "/api/v1/session", `{"email":"not-an-email","password":"correct-horse"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[api.ErrorResponse](t, w).Error, "email")

	w = f.do(t, "POST", "/api/v1/session", `{"email":"alice@example.com","password":"wrong-horse"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", decode[api.ErrorResponse](t, w).Code)

	assert.Equal(t, http.StatusBadRequest, f.do(t, "POST", "/api/v1/session", `{`).Code)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, alice)
	f.do(t, "GET", "/api/v1/collections/main", "")

	w := f.do(t, "GET", "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "archive_test_collection_loads_total")
	assert.Contains(t, w.Body.String(), `route="/api/v1/collections/{view}"`)
}

func TestRoutesRegistered(t *testing.T) {
	f := newFixture(t, nil)
	mux, ok := f.handler.(*chi.Mux)
	require.True(t, ok)

	routes := map[string]bool{}
	require.NoError(t, chi.Walk(mux, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes[method+" "+route] = true
		return nil
	}))
	assert.True(t, routes["POST /api/v1/likes/{type}/{id}/toggle"])
	assert.True(t, routes["GET /api/v1/favorites"])
}
