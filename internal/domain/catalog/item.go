// Package catalog holds the archive's domain model: the closed set of item
// types, the items fetched for them, likes and the session identity.
package catalog

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/vertixec/THEARCHIVE/internal/errors"
)

// ItemType is the discriminant of the Item tagged union.
type ItemType string

const (
	ItemTypeVisual    ItemType = "visual"
	ItemTypeSystem    ItemType = "system"
	ItemTypeCommunity ItemType = "community"
	ItemTypeWorkflow  ItemType = "workflow"
)

// ItemTypes lists every variant in a stable order.
var ItemTypes = []ItemType{ItemTypeVisual, ItemTypeSystem, ItemTypeCommunity, ItemTypeWorkflow}

// ParseItemType validates a raw discriminant.
func ParseItemType(raw string) (ItemType, error) {
	t := ItemType(strings.ToLower(strings.TrimSpace(raw)))
	if !t.Valid() {
		return "", apperrors.Validation(apperrors.CodeUnknownItemType.String(), "unknown item type").
			WithDetails(raw).
			Build()
	}
	return t, nil
}

// Valid reports whether t is one of the four variants.
func (t ItemType) Valid() bool {
	switch t {
	case ItemTypeVisual, ItemTypeSystem, ItemTypeCommunity, ItemTypeWorkflow:
		return true
	}
	return false
}

func (t ItemType) String() string { return string(t) }

// ItemKey identifies an item. Ids are only unique within a type.
type ItemKey struct {
	ID   string   `json:"id"`
	Type ItemType `json:"type"`
}

func (k ItemKey) String() string {
	return fmt.Sprintf("%s-%s", k.Type, k.ID)
}

// Text-bearing payload fields. The core only reads them for facets and search.
const (
	FieldPromptText = "prompt_text"
	FieldTitle      = "title"
	FieldModel      = "model"
	FieldCategory   = "category"
	FieldVolume     = "volume"
	FieldPromptType = "prompt_type"
	FieldAuthor     = "author"
	FieldName       = "name"
	FieldImageURL   = "image_url"
	FieldLink       = "link"

	FieldID         = "id"
	FieldCreatedAt  = "created_at"
	FieldIsFeatured = "is_featured"
)

// Item is a read-only projection of one remote row, tagged with its type at
// fetch time.
type Item struct {
	ID        string            `json:"id"`
	Type      ItemType          `json:"itemType"`
	CreatedAt time.Time         `json:"createdAt"`
	Fields    map[string]string `json:"fields"`
	Featured  bool              `json:"featured,omitempty"`
}

// Key returns the item's (id, type) identity.
func (i Item) Key() ItemKey {
	return ItemKey{ID: i.ID, Type: i.Type}
}

// Field returns a payload field or "".
func (i Item) Field(name string) string {
	if i.Fields == nil {
		return ""
	}
	return i.Fields[name]
}

// NewItem normalizes a raw row into an Item of type t. Ids may arrive as
// numbers or strings; both are compared as strings.
func NewItem(t ItemType, row map[string]any) (Item, error) {
	id := StringValue(row[FieldID])
	if id == "" {
		return Item{}, apperrors.Transport(apperrors.CodeDecodeFailed.String(), "row has no id").
			WithResource(t.String()).
			Build()
	}

	item := Item{
		ID:     id,
		Type:   t,
		Fields: make(map[string]string, len(row)),
	}
	for k, v := range row {
		switch k {
		case FieldID:
			continue
		case FieldCreatedAt:
			item.CreatedAt = parseTimestamp(StringValue(v))
		case FieldIsFeatured:
			item.Featured, _ = v.(bool)
		default:
			if s := StringValue(v); s != "" {
				item.Fields[k] = s
			}
		}
	}
	return item, nil
}

// StringValue renders scalar JSON values as strings; anything else is "".
func StringValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	case fmt.Stringer:
		return val.String()
	default:
		return ""
	}
}

func parseTimestamp(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02 15:04:05.999999-07"} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts
		}
	}
	return time.Time{}
}
