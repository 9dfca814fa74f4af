// Package likes keeps the current identity's liked items, per item type.
//
// The index is a cache of the likes collection. It belongs to exactly one
// owner at a time: loading for a different identity drops everything, and a
// load that started before the switch never writes into the new owner's
// cache. Pinned keys hold the target of a toggle that has not settled yet;
// every load applied while a pin exists keeps the pinned flag.
package likes

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/vertixec/THEARCHIVE/internal/domain/catalog"
	apperrors "github.com/vertixec/THEARCHIVE/internal/errors"
	"github.com/vertixec/THEARCHIVE/internal/observability"
	"github.com/vertixec/THEARCHIVE/internal/store"
)

// Change is delivered to listeners when a key's liked flag is set locally.
type Change struct {
	Key   catalog.ItemKey
	Liked bool
}

type pin struct {
	userID string
	liked  bool
}

// Index is safe for concurrent use.
type Index struct {
	reader      store.Reader
	collections catalog.Collections
	logger      *zap.Logger
	metrics     *observability.Collector

	mu         sync.Mutex
	owner      string
	generation uint64
	loaded     map[catalog.ItemType]bool
	ids        map[catalog.ItemType]map[string]bool
	inflight   map[catalog.ItemType]int
	patches    map[catalog.ItemType]map[string]bool
	pins       map[catalog.ItemKey]pin
	listeners  map[int]func(Change)
	nextID     int
}

// NewIndex creates an empty index reading from the likes collection.
func NewIndex(reader store.Reader, collections catalog.Collections, logger *zap.Logger, metrics *observability.Collector) *Index {
	x := &Index{
		reader:      reader,
		collections: collections,
		logger:      observability.OrNop(logger),
		metrics:     metrics,
		listeners:   make(map[int]func(Change)),
		pins:        make(map[catalog.ItemKey]pin),
	}
	x.clearLocked()
	return x
}

// Load fetches the identity's liked ids of type t and returns them as a set.
// A nil identity clears the index and returns an empty set without a remote
// call. On failure the cache is left as it was.
func (x *Index) Load(ctx context.Context, identity *catalog.Identity, t catalog.ItemType) (map[string]bool, error) {
	if identity == nil {
		x.Reset()
		return map[string]bool{}, nil
	}
	if !t.Valid() {
		return nil, apperrors.Validation(apperrors.CodeUnknownItemType.String(), "unknown item type").
			WithResource(t.String()).
			Build()
	}

	gen := x.begin(identity.UserID, t)
	rows, err := x.reader.Read(ctx, store.Query{
		Collection: x.collections.Likes,
		Filters: []store.Filter{
			store.Eq(catalog.LikeColumnUserID, identity.UserID),
			store.Eq(catalog.LikeColumnItemType, t.String()),
		},
	})
	if err != nil {
		x.end(gen, t, nil)
		x.metrics.IndexLoaded(t.String(), "error")
		return nil, err
	}

	set := make(map[string]bool, len(rows))
	for _, row := range rows {
		if id := catalog.StringValue(row[catalog.LikeColumnItemID]); id != "" {
			set[id] = true
		}
	}

	if !x.end(gen, t, set) {
		x.logger.Debug("Discarding like load for previous owner",
			zap.String("item_type", t.String()))
		x.metrics.IndexLoaded(t.String(), "stale")
		return copySet(set), nil
	}
	x.metrics.IndexLoaded(t.String(), "ok")
	return x.Snapshot(t), nil
}

// LoadAll fills every type from one read of the identity's likes.
func (x *Index) LoadAll(ctx context.Context, identity *catalog.Identity) error {
	if identity == nil {
		x.Reset()
		return nil
	}

	gens := make(map[catalog.ItemType]uint64, len(catalog.ItemTypes))
	for _, t := range catalog.ItemTypes {
		gens[t] = x.begin(identity.UserID, t)
	}

	rows, err := x.reader.Read(ctx, store.Query{
		Collection: x.collections.Likes,
		Filters:    []store.Filter{store.Eq(catalog.LikeColumnUserID, identity.UserID)},
	})

	sets := make(map[catalog.ItemType]map[string]bool, len(catalog.ItemTypes))
	for _, t := range catalog.ItemTypes {
		sets[t] = map[string]bool{}
	}
	if err == nil {
		for _, row := range rows {
			if like, ok := catalog.LikeFromRow(row); ok {
				sets[like.ItemType][like.ItemID] = true
			}
		}
	}

	for _, t := range catalog.ItemTypes {
		if err != nil {
			x.end(gens[t], t, nil)
			continue
		}
		x.end(gens[t], t, sets[t])
	}
	if err != nil {
		x.metrics.IndexLoaded("all", "error")
		return err
	}
	x.metrics.IndexLoaded("all", "ok")
	return nil
}

// begin registers an in-flight load, switching owner if needed.
func (x *Index) begin(userID string, t catalog.ItemType) uint64 {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.owner != userID {
		x.clearLocked()
		x.generation++
		x.owner = userID
		for key, p := range x.pins {
			if p.userID != userID {
				delete(x.pins, key)
				continue
			}
			x.applyLocked(key, p.liked)
		}
	}
	x.inflight[t]++
	return x.generation
}

// end finishes a load. A nil set records a failure. It reports whether the
// result was applied.
func (x *Index) end(gen uint64, t catalog.ItemType, set map[string]bool) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	if gen != x.generation {
		return false
	}

	x.inflight[t]--
	patches := x.patches[t]
	if x.inflight[t] <= 0 {
		x.inflight[t] = 0
		delete(x.patches, t)
	}
	if set == nil {
		return false
	}

	fresh := copySet(set)
	// Local changes made while the read was in flight are newer than it.
	for id, liked := range patches {
		if liked {
			fresh[id] = true
		} else {
			delete(fresh, id)
		}
	}
	x.ids[t] = fresh
	x.loaded[t] = true
	for key, p := range x.pins {
		if key.Type == t && p.userID == x.owner {
			x.applyLocked(key, p.liked)
		}
	}
	return true
}

// IsLiked reports the local liked flag. It is false until the key's type has
// been loaded or the key was set locally.
func (x *Index) IsLiked(key catalog.ItemKey) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.ids[key.Type][key.ID]
}

// Loaded reports whether t has been loaded for the current owner.
func (x *Index) Loaded(t catalog.ItemType) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.loaded[t]
}

// Owner returns the user id the cache belongs to, "" when empty.
func (x *Index) Owner() string {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.owner
}

// Set patches the local flag for key and notifies listeners.
func (x *Index) Set(key catalog.ItemKey, liked bool) {
	x.mu.Lock()
	x.patchLocked(key, liked)
	fns := x.listenersLocked()
	x.mu.Unlock()

	x.emit(fns, Change{Key: key, Liked: liked})
}

// Pin sets the local flag for key and keeps it across loads until Unpin.
// The pin belongs to userID and is dropped when the index switches to
// another owner.
func (x *Index) Pin(userID string, key catalog.ItemKey, liked bool) {
	x.mu.Lock()
	x.pins[key] = pin{userID: userID, liked: liked}
	if x.owner == "" || x.owner == userID {
		x.patchLocked(key, liked)
	}
	fns := x.listenersLocked()
	x.mu.Unlock()

	x.emit(fns, Change{Key: key, Liked: liked})
}

// Unpin releases the pin on key. The local flag is left as it is, and loads
// still in flight keep treating it as a local change.
func (x *Index) Unpin(key catalog.ItemKey) {
	x.mu.Lock()
	defer x.mu.Unlock()
	p, ok := x.pins[key]
	if !ok {
		return
	}
	delete(x.pins, key)
	if p.userID == x.owner && x.inflight[key.Type] > 0 {
		if x.patches[key.Type] == nil {
			x.patches[key.Type] = make(map[string]bool)
		}
		x.patches[key.Type][key.ID] = p.liked
	}
}

func (x *Index) patchLocked(key catalog.ItemKey, liked bool) {
	x.applyLocked(key, liked)
	if x.inflight[key.Type] > 0 {
		if x.patches[key.Type] == nil {
			x.patches[key.Type] = make(map[string]bool)
		}
		x.patches[key.Type][key.ID] = liked
	}
}

func (x *Index) applyLocked(key catalog.ItemKey, liked bool) {
	set, ok := x.ids[key.Type]
	if !ok {
		set = make(map[string]bool)
		x.ids[key.Type] = set
	}
	if liked {
		set[key.ID] = true
	} else {
		delete(set, key.ID)
	}
}

func (x *Index) emit(fns []func(Change), change Change) {
	for _, fn := range fns {
		fn(change)
	}
}

// Reset empties the index and drops every pin. It performs no remote call.
func (x *Index) Reset() {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.clearLocked()
	x.pins = make(map[catalog.ItemKey]pin)
	x.generation++
	x.owner = ""
}

// Snapshot returns a copy of the liked ids of type t.
func (x *Index) Snapshot(t catalog.ItemType) map[string]bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	return copySet(x.ids[t])
}

// Subscribe registers fn for local changes.
func (x *Index) Subscribe(fn func(Change)) (unsubscribe func()) {
	x.mu.Lock()
	id := x.nextID
	x.nextID++
	x.listeners[id] = fn
	x.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			x.mu.Lock()
			delete(x.listeners, id)
			x.mu.Unlock()
		})
	}
}

func (x *Index) clearLocked() {
	x.loaded = make(map[catalog.ItemType]bool)
	x.ids = make(map[catalog.ItemType]map[string]bool)
	x.inflight = make(map[catalog.ItemType]int)
	x.patches = make(map[catalog.ItemType]map[string]bool)
}

func (x *Index) listenersLocked() []func(Change) {
	out := make([]func(Change), 0, len(x.listeners))
	for _, fn := range x.listeners {
		out = append(out, fn)
	}
	return out
}

func copySet(in map[string]bool) map[string]bool {
	out := make(map[string]bool, len(in))
	for k, v := range in {
		if v {
			out[k] = true
		}
	}
	return out
}
