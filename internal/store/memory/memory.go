// Package memory is an in-process Store used by tests and the offline demo.
// It enforces declared unique constraints the same way the remote database
// does and lets tests inject failures and count calls.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vertixec/THEARCHIVE/internal/domain/catalog"
	apperrors "github.com/vertixec/THEARCHIVE/internal/errors"
	"github.com/vertixec/THEARCHIVE/internal/store"
)

// Operation names passed to failure hooks.
const (
	OpRead   = "read"
	OpInsert = "insert"
	OpDelete = "delete"
)

// timestampLayout has a fixed fraction width so generated timestamps sort
// lexicographically.
const timestampLayout = "2006-01-02T15:04:05.000000Z07:00"

// FailFunc decides whether a call fails. Returning a non-nil error aborts the
// call with that error.
type FailFunc func(op, collection string) error

type record struct {
	seq int
	row store.Row
}

// Store is a mutex-guarded map of collections.
type Store struct {
	mu          sync.Mutex
	collections map[string][]record
	unique      map[string][][]string
	seq         int
	calls       map[string]int
	fail        FailFunc
	gate        chan struct{}
	now         func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{
		collections: make(map[string][]record),
		unique:      make(map[string][][]string),
		calls:       make(map[string]int),
		now:         time.Now,
	}
}

// NewCatalogStore creates a store with the likes uniqueness constraint of
// the archive schema already declared.
func NewCatalogStore(c catalog.Collections) *Store {
	s := New()
	s.AddUnique(c.Likes, catalog.LikeColumnUserID, catalog.LikeColumnItemID, catalog.LikeColumnItemType)
	return s
}

// AddUnique declares a unique constraint over columns of collection.
func (s *Store) AddUnique(collection string, columns ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unique[collection] = append(s.unique[collection], columns)
}

// Seed appends rows without checking constraints. Rows without created_at
// get a strictly increasing timestamp so ordering is deterministic.
func (s *Store) Seed(collection string, rows ...store.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		s.appendLocked(collection, r.Clone())
	}
}

// SetFailFunc installs a failure hook; nil removes it.
func (s *Store) SetFailFunc(fn FailFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = fn
}

// Hold makes every subsequent call block until Release is called or the
// call's context ends. It simulates network latency in tests.
func (s *Store) Hold() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gate == nil {
		s.gate = make(chan struct{})
	}
}

// Release unblocks calls parked by Hold.
func (s *Store) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gate != nil {
		close(s.gate)
		s.gate = nil
	}
}

// Calls returns how many calls of op reached collection.
func (s *Store) Calls(op, collection string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op+":"+collection]
}

// TotalCalls returns how many calls of op were made on any collection.
func (s *Store) TotalCalls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for k, n := range s.calls {
		if strings.HasPrefix(k, op+":") {
			total += n
		}
	}
	return total
}

// Rows returns a copy of every row of collection in insertion order.
func (s *Store) Rows(collection string) []store.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.Row, 0, len(s.collections[collection]))
	for _, rec := range s.collections[collection] {
		out = append(out, rec.row.Clone())
	}
	return out
}

// Read implements store.Reader.
func (s *Store) Read(ctx context.Context, q store.Query) ([]store.Row, error) {
	if err := s.enter(ctx, OpRead, q.Collection); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]record, 0)
	for _, rec := range s.collections[q.Collection] {
		if matches(rec.row, q.Filters) {
			matched = append(matched, rec)
		}
	}

	if q.Order != nil {
		col, desc := q.Order.Column, q.Order.Descending
		sort.SliceStable(matched, func(i, j int) bool {
			a := catalog.StringValue(matched[i].row[col])
			b := catalog.StringValue(matched[j].row[col])
			if a == b {
				if desc {
					return matched[i].seq > matched[j].seq
				}
				return matched[i].seq < matched[j].seq
			}
			if desc {
				return a > b
			}
			return a < b
		})
	}

	rows := make([]store.Row, 0, len(matched))
	for _, rec := range matched {
		rows = append(rows, rec.row.Clone())
	}
	return rows, nil
}

// Insert implements store.Writer.
func (s *Store) Insert(ctx context.Context, collection string, r store.Row) error {
	if err := s.enter(ctx, OpInsert, collection); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, columns := range s.unique[collection] {
		for _, rec := range s.collections[collection] {
			if sameColumns(rec.row, r, columns) {
				return apperrors.Conflict(apperrors.CodeLikeAlreadyExists.String(), "duplicate key value violates unique constraint").
					WithResource(collection).
					WithOperation(OpInsert).
					Build()
			}
		}
	}
	s.appendLocked(collection, r.Clone())
	return nil
}

// Delete implements store.Writer. Deleting nothing is not an error.
func (s *Store) Delete(ctx context.Context, collection string, filters []store.Filter) error {
	if err := s.enter(ctx, OpDelete, collection); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.collections[collection][:0]
	for _, rec := range s.collections[collection] {
		if !matches(rec.row, filters) {
			kept = append(kept, rec)
		}
	}
	s.collections[collection] = kept
	return nil
}

func (s *Store) enter(ctx context.Context, op, collection string) error {
	s.mu.Lock()
	s.calls[op+":"+collection]++
	gate := s.gate
	fail := s.fail
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return apperrors.Transport(apperrors.CodeCanceled.String(), "request canceled").
				WithResource(collection).
				WithCause(ctx.Err()).
				Build()
		}
	}
	if err := ctx.Err(); err != nil {
		return apperrors.Transport(apperrors.CodeCanceled.String(), "request canceled").
			WithResource(collection).
			WithCause(err).
			Build()
	}
	if fail != nil {
		if err := fail(op, collection); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) appendLocked(collection string, r store.Row) {
	s.seq++
	if _, ok := r[catalog.FieldID]; !ok {
		r[catalog.FieldID] = uuid.New().String()
	}
	if _, ok := r[catalog.FieldCreatedAt]; !ok {
		r[catalog.FieldCreatedAt] = s.now().UTC().Add(time.Duration(s.seq) * time.Microsecond).Format(timestampLayout)
	}
	s.collections[collection] = append(s.collections[collection], record{seq: s.seq, row: r})
}

func matches(r store.Row, filters []store.Filter) bool {
	for _, f := range filters {
		v := catalog.StringValue(r[f.Column])
		found := false
		for _, want := range f.Values {
			if v == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func sameColumns(a, b store.Row, columns []string) bool {
	for _, c := range columns {
		if catalog.StringValue(a[c]) != catalog.StringValue(b[c]) {
			return false
		}
	}
	return true
}

var _ store.Store = (*Store)(nil)
