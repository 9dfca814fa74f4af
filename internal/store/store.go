// Package store defines the contract the core relies on from the remote
// keyed store. Implementations convert their own failures into
// internal/errors kinds: duplicates on insert are Conflict, everything that
// went wrong on the wire is Transport.
package store

import (
	"context"
)

// Row is one decoded remote record.
type Row map[string]any

// Clone returns a shallow copy of r.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Op is a filter operator.
type Op string

const (
	OpEq Op = "eq"
	OpIn Op = "in"
)

// Filter is an equality predicate on one column. OpIn matches any of Values.
type Filter struct {
	Column string
	Op     Op
	Values []string
}

// Eq builds a column = value filter.
func Eq(column, value string) Filter {
	return Filter{Column: column, Op: OpEq, Values: []string{value}}
}

// In builds a column in (values...) filter.
func In(column string, values []string) Filter {
	return Filter{Column: column, Op: OpIn, Values: values}
}

// Order sorts by a timestamp column.
type Order struct {
	Column     string
	Descending bool
}

// Query describes a filtered read of one collection.
type Query struct {
	Collection string
	Filters    []Filter
	Order      *Order
}

// Reader reads rows.
type Reader interface {
	Read(ctx context.Context, q Query) ([]Row, error)
}

// Writer mutates rows.
//
// Insert must fail with a Conflict error when a uniqueness constraint is
// violated. Delete must succeed when no row matches.
type Writer interface {
	Insert(ctx context.Context, collection string, record Row) error
	Delete(ctx context.Context, collection string, filters []Filter) error
}

// Store is the full remote store capability.
type Store interface {
	Reader
	Writer
}
