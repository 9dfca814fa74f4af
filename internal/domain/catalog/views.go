package catalog

import (
	apperrors "github.com/vertixec/THEARCHIVE/internal/errors"
)

// ============================================================================
// COLLECTION AND VIEW TABLES
// ============================================================================

// ViewKind names one browsable view of the archive.
type ViewKind string

const (
	ViewMain      ViewKind = "main"
	ViewSystems   ViewKind = "systems"
	ViewCommunity ViewKind = "community"
	ViewWorkflows ViewKind = "workflows"
	ViewFavorites ViewKind = "favorites"
)

// ParseViewKind validates a raw view name.
func ParseViewKind(raw string) (ViewKind, error) {
	v := ViewKind(raw)
	if _, ok := viewTypes[v]; ok || v == ViewFavorites {
		return v, nil
	}
	return "", apperrors.Validation(apperrors.CodeUnknownView.String(), "unknown view").
		WithDetails(raw).
		Build()
}

var viewTypes = map[ViewKind]ItemType{
	ViewMain:      ItemTypeVisual,
	ViewSystems:   ItemTypeSystem,
	ViewCommunity: ItemTypeCommunity,
	ViewWorkflows: ItemTypeWorkflow,
}

// ItemType returns the single item type a catalogue view shows. Favorites
// mixes types and returns ok=false.
func (v ViewKind) ItemType() (ItemType, bool) {
	t, ok := viewTypes[v]
	return t, ok
}

// AllLabel is the caption of the implicit ALL facet for the view.
func (v ViewKind) AllLabel() string {
	switch v {
	case ViewMain:
		return "ALL ASSETS"
	case ViewSystems:
		return "ALL SYSTEMS"
	case ViewCommunity:
		return "ALL COMMUNITY"
	default:
		return "ALL RECORDS"
	}
}

// Collections maps each item type to the remote collection holding it, plus
// the likes collection.
type Collections struct {
	ByType map[ItemType]string
	Likes  string
}

// DefaultCollections returns the production table names.
func DefaultCollections() Collections {
	return Collections{
		ByType: map[ItemType]string{
			ItemTypeVisual:    "prompts",
			ItemTypeSystem:    "functional_prompts",
			ItemTypeCommunity: "community_visuals",
			ItemTypeWorkflow:  "workflows",
		},
		Likes: "user_likes",
	}
}

// For returns the collection for t.
func (c Collections) For(t ItemType) (string, bool) {
	name, ok := c.ByType[t]
	return name, ok && name != ""
}

// FacetSpec declares which payload field an item type is filtered by and the
// value used when the field is empty.
type FacetSpec struct {
	Field   string `yaml:"field" json:"field"`
	Default string `yaml:"default" json:"default"`
}

// FacetTable is the closed per-type facet declaration.
type FacetTable map[ItemType]FacetSpec

// DefaultFacets returns the facet table the catalogue ships with.
func DefaultFacets() FacetTable {
	return FacetTable{
		ItemTypeVisual:    {Field: FieldVolume, Default: "GENERAL"},
		ItemTypeSystem:    {Field: FieldPromptType, Default: "GENERAL"},
		ItemTypeCommunity: {Field: FieldAuthor, Default: "GENERAL"},
		ItemTypeWorkflow:  {Field: FieldCategory, Default: "WORKFLOW"},
	}
}

// Spec returns the facet declaration for t, falling back to GENERAL on
// volume for undeclared types.
func (ft FacetTable) Spec(t ItemType) FacetSpec {
	if spec, ok := ft[t]; ok {
		return spec
	}
	return FacetSpec{Field: FieldVolume, Default: "GENERAL"}
}

// SearchFields are concatenated for free-text search, in this order.
var SearchFields = []string{
	FieldPromptText,
	FieldTitle,
	FieldModel,
	FieldCategory,
	FieldVolume,
	FieldPromptType,
	FieldAuthor,
	FieldName,
}

// CardLabels is the per-type caption projection used by card renderers.
type CardLabels struct {
	Title     string `json:"title"`
	Secondary string `json:"secondary"`
	Bottom    string `json:"bottom"`
}

// LabelsFor derives the card captions of an item.
func LabelsFor(item Item) CardLabels {
	switch item.Type {
	case ItemTypeVisual:
		return CardLabels{
			Title:     orDefault(item.Field(FieldCategory), "ASSET"),
			Secondary: orDefault(item.Field(FieldVolume), "VOL"),
			Bottom:    "CATEGORY",
		}
	case ItemTypeSystem:
		return CardLabels{
			Title:     orDefault(item.Field(FieldTitle), "SYSTEM"),
			Secondary: orDefault(item.Field(FieldPromptType), "TYPE"),
			Bottom:    "IDENTIFIER",
		}
	case ItemTypeCommunity:
		secondary := "MEMBER"
		if item.Featured {
			secondary = "FEATURED"
		}
		return CardLabels{
			Title:     orDefault(item.Field(FieldAuthor), "COMMUNITY"),
			Secondary: secondary,
			Bottom:    "AUTHOR",
		}
	case ItemTypeWorkflow:
		return CardLabels{
			Title:     orDefault(item.Field(FieldTitle), "WORKFLOW"),
			Secondary: orDefault(item.Field(FieldCategory), "WORKFLOW"),
			Bottom:    "CATEGORY",
		}
	}
	return CardLabels{Title: "ASSET", Secondary: "VOL", Bottom: "CATEGORY"}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
