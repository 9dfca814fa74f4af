// Package filter derives facets from items and selects the visible subset
// for a type filter and a free-text query. Everything here is pure.
package filter

import (
	"sort"
	"strings"

	"github.com/vertixec/THEARCHIVE/internal/domain/catalog"
)

// All matches every item regardless of facet.
const All = "ALL"

// searchSeparator joins search fields so a query cannot match across the
// boundary of two fields.
const searchSeparator = "\x1f"

// State is the ephemeral filter input.
type State struct {
	TypeFilter  string `json:"filter"`
	SearchQuery string `json:"q"`
}

// Result is the visible subset plus the selectable facets.
type Result struct {
	Visible []catalog.Item `json:"items"`
	Facets  []string       `json:"facets"`
}

// Normalize trims and upper-cases a facet value.
func Normalize(value string) string {
	return strings.ToUpper(strings.TrimSpace(value))
}

// FacetOf returns the item's normalized facet value under table.
func FacetOf(item catalog.Item, table catalog.FacetTable) string {
	spec := table.Spec(item.Type)
	if v := Normalize(item.Field(spec.Field)); v != "" {
		return v
	}
	return Normalize(spec.Default)
}

// Facets returns the deduplicated, sorted facet values present in items.
// All is not included; it is always implicitly available.
func Facets(items []catalog.Item, table catalog.FacetTable) []string {
	seen := make(map[string]struct{})
	facets := make([]string, 0)
	for _, item := range items {
		f := FacetOf(item, table)
		if f == "" {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		facets = append(facets, f)
	}
	sort.Strings(facets)
	return facets
}

// MatchesFacet reports whether item passes the type filter. An empty filter
// is treated as All.
func MatchesFacet(item catalog.Item, table catalog.FacetTable, typeFilter string) bool {
	selected := Normalize(typeFilter)
	if selected == "" || selected == All {
		return true
	}
	return FacetOf(item, table) == selected
}

// MatchesSearch reports whether query is a case-insensitive substring of the
// item's text fields taken together. A match never spans the end of one field
// and the start of the next. Only the empty query matches everything.
func MatchesSearch(item catalog.Item, query string) bool {
	if query == "" {
		return true
	}
	return strings.Contains(searchText(item), strings.ToLower(query))
}

func searchText(item catalog.Item) string {
	parts := make([]string, 0, len(catalog.SearchFields))
	for _, field := range catalog.SearchFields {
		if v := item.Field(field); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.ToLower(strings.Join(parts, searchSeparator))
}

// Apply returns the items passing both predicates, in input order, and the
// facets of the whole input.
func Apply(items []catalog.Item, table catalog.FacetTable, state State) Result {
	visible := make([]catalog.Item, 0, len(items))
	for _, item := range items {
		if MatchesFacet(item, table, state.TypeFilter) && MatchesSearch(item, state.SearchQuery) {
			visible = append(visible, item)
		}
	}
	return Result{
		Visible: visible,
		Facets:  Facets(items, table),
	}
}
