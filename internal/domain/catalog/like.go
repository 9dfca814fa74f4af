package catalog

import "time"

// Like marks that a user liked an item. At most one row exists per
// (UserID, ItemID, ItemType).
type Like struct {
	UserID    string    `json:"userId"`
	ItemID    string    `json:"itemId"`
	ItemType  ItemType  `json:"itemType"`
	CreatedAt time.Time `json:"createdAt"`
}

// Key returns the liked item's identity.
func (l Like) Key() ItemKey {
	return ItemKey{ID: l.ItemID, Type: l.ItemType}
}

// Like table columns.
const (
	LikeColumnUserID    = "user_id"
	LikeColumnItemID    = "item_id"
	LikeColumnItemType  = "item_type"
	LikeColumnCreatedAt = "created_at"
)

// LikeFromRow decodes a like row. ok is false when the row is malformed or
// names an unknown item type.
func LikeFromRow(row map[string]any) (Like, bool) {
	t, err := ParseItemType(StringValue(row[LikeColumnItemType]))
	if err != nil {
		return Like{}, false
	}
	like := Like{
		UserID:    StringValue(row[LikeColumnUserID]),
		ItemID:    StringValue(row[LikeColumnItemID]),
		ItemType:  t,
		CreatedAt: parseTimestamp(StringValue(row[LikeColumnCreatedAt])),
	}
	if like.UserID == "" || like.ItemID == "" {
		return Like{}, false
	}
	return like, true
}

// GroupByType buckets item ids by type, preserving like order inside each
// bucket and dropping duplicate ids.
func GroupByType(likes []Like) map[ItemType][]string {
	groups := make(map[ItemType][]string)
	seen := make(map[ItemKey]struct{}, len(likes))
	for _, l := range likes {
		if _, dup := seen[l.Key()]; dup {
			continue
		}
		seen[l.Key()] = struct{}{}
		groups[l.ItemType] = append(groups[l.ItemType], l.ItemID)
	}
	return groups
}
