package domain

import (
	"sort"
	"strings"
	"time"

	apperrors "github.com/devops-golf-s17/wishlists/pkg/errors"
)

// Wishlist is a named collection of items owned by a user. ID is zero until
// the repository assigns one on first save.
type Wishlist struct {
	ID      int64
	UserID  string
	Name    string
	Created time.Time
	Deleted bool
	Items   map[string]Item
}

// Item is an entry in a wishlist. Its ID is chosen by the client and is
// unique within the owning wishlist only.
type Item struct {
	ID          string `json:"item_id"`
	Description string `json:"description"`
}

// NewWishlist returns an unsaved wishlist created at now.
func NewWishlist(name, userID string, now time.Time) *Wishlist {
	return &Wishlist{
		UserID:  userID,
		Name:    name,
		Created: now.UTC().Round(0),
		Items:   make(map[string]Item),
	}
}

// ValidateName rejects blank wishlist names.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return apperrors.InvalidInput("name is required")
	}
	return nil
}

// ClearItemsSegment is the path segment of the clear-items route. It cannot be
// used as an item id.
const ClearItemsSegment = "clear"

// ValidateItemID rejects item ids that cannot be addressed as a single path
// segment under /wishlists/{id}/items.
func ValidateItemID(itemID string) error {
	switch {
	case strings.TrimSpace(itemID) == "":
		return apperrors.InvalidInput("item_id is required")
	case strings.Contains(itemID, "/"):
		return apperrors.InvalidInput("item_id must not contain '/'")
	case itemID == ClearItemsSegment:
		return apperrors.InvalidInput("item_id '" + ClearItemsSegment + "' is reserved")
	}
	return nil
}

// AddItem adds a new item. Re-adding an existing item id is not permitted and
// leaves the stored item untouched.
func (w *Wishlist) AddItem(itemID, description string) (Item, error) {
	if err := ValidateItemID(itemID); err != nil {
		return Item{}, err
	}
	if w.Items == nil {
		w.Items = make(map[string]Item)
	}
	if _, ok := w.Items[itemID]; ok {
		return Item{}, apperrors.OperationNotPermitted("item '" + itemID + "' already exists in the wishlist")
	}

	item := Item{ID: itemID, Description: description}
	w.Items[itemID] = item
	return item, nil
}

// FindItem returns the item with itemID.
func (w *Wishlist) FindItem(itemID string) (Item, error) {
	item, ok := w.Items[itemID]
	if !ok {
		return Item{}, apperrors.ItemNotFound(itemID)
	}
	return item, nil
}

// UpdateItem replaces the description of an existing item.
func (w *Wishlist) UpdateItem(itemID, description string) (Item, error) {
	item, err := w.FindItem(itemID)
	if err != nil {
		return Item{}, err
	}
	item.Description = description
	w.Items[itemID] = item
	return item, nil
}

// RemoveItem deletes an existing item.
func (w *Wishlist) RemoveItem(itemID string) error {
	if _, err := w.FindItem(itemID); err != nil {
		return err
	}
	delete(w.Items, itemID)
	return nil
}

// ClearItems empties the wishlist. Other fields are untouched.
func (w *Wishlist) ClearItems() {
	w.Items = make(map[string]Item)
}

// ListItems returns the items ordered by item id.
func (w *Wishlist) ListItems() []Item {
	items := make([]Item, 0, len(w.Items))
	for _, item := range w.Items {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items
}

// ItemsContaining returns, ordered by item id, the items whose description
// contains query. Matching is case-sensitive; an empty query matches all.
func (w *Wishlist) ItemsContaining(query string) []Item {
	var hits []Item
	for _, item := range w.ListItems() {
		if strings.Contains(item.Description, query) {
			hits = append(hits, item)
		}
	}
	return hits
}

// SoftDelete marks the wishlist deleted. Calling it again has no effect.
func (w *Wishlist) SoftDelete() {
	w.Deleted = true
}
