package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/devops-golf-s17/wishlists/internal/domain"
)

// AddItemInput holds the parameters for adding an item to a wishlist.
type AddItemInput struct {
	ItemID      string `json:"item_id" validate:"required,notblank,max=255,excludes=/,ne=clear"`
	Description string `json:"description" validate:"max=2048"`
}

// AddItem adds an item to the wishlist. An item id already present is
// rejected with OperationNotPermitted and the stored item is left as is.
func (s *WishlistService) AddItem(ctx context.Context, wishlistID int64, input AddItemInput) (domain.Item, error) {
	var item domain.Item
	_, err := s.repo.Update(ctx, wishlistID, func(w *domain.Wishlist) error {
		var err error
		item, err = w.AddItem(input.ItemID, input.Description)
		return err
	})
	if err != nil {
		return domain.Item{}, fmt.Errorf("add item: %w", err)
	}

	s.publish(ctx, "item.added", wishlistID, s.events.PublishItemAdded(ctx, wishlistID, item))

	s.logger.InfoContext(ctx, "item added to wishlist",
		slog.Int64("wishlist_id", wishlistID),
		slog.String("item_id", item.ID),
	)
	return item, nil
}

// GetItem returns one item of the wishlist.
func (s *WishlistService) GetItem(ctx context.Context, wishlistID int64, itemID string) (domain.Item, error) {
	w, err := s.Get(ctx, wishlistID)
	if err != nil {
		return domain.Item{}, err
	}
	return w.FindItem(itemID)
}

// ListItems returns the wishlist's items ordered by item id.
func (s *WishlistService) ListItems(ctx context.Context, wishlistID int64) ([]domain.Item, error) {
	w, err := s.Get(ctx, wishlistID)
	if err != nil {
		return nil, err
	}
	return w.ListItems(), nil
}

// UpdateItem replaces the description of an existing item.
func (s *WishlistService) UpdateItem(ctx context.Context, wishlistID int64, itemID, description string) (domain.Item, error) {
	var item domain.Item
	_, err := s.repo.Update(ctx, wishlistID, func(w *domain.Wishlist) error {
		var err error
		item, err = w.UpdateItem(itemID, description)
		return err
	})
	if err != nil {
		return domain.Item{}, fmt.Errorf("update item: %w", err)
	}

	s.publish(ctx, "item.updated", wishlistID, s.events.PublishItemUpdated(ctx, wishlistID, item))

	s.logger.InfoContext(ctx, "wishlist item updated",
		slog.Int64("wishlist_id", wishlistID),
		slog.String("item_id", itemID),
	)
	return item, nil
}

// RemoveItem deletes one item from the wishlist.
func (s *WishlistService) RemoveItem(ctx context.Context, wishlistID int64, itemID string) error {
	_, err := s.repo.Update(ctx, wishlistID, func(w *domain.Wishlist) error {
		return w.RemoveItem(itemID)
	})
	if err != nil {
		return fmt.Errorf("remove item: %w", err)
	}

	s.publish(ctx, "item.removed", wishlistID, s.events.PublishItemRemoved(ctx, wishlistID, itemID))

	s.logger.InfoContext(ctx, "item removed from wishlist",
		slog.Int64("wishlist_id", wishlistID),
		slog.String("item_id", itemID),
	)
	return nil
}

// ClearItems removes every item and returns the emptied wishlist.
func (s *WishlistService) ClearItems(ctx context.Context, wishlistID int64) (*domain.Wishlist, error) {
	var removed int
	w, err := s.repo.Update(ctx, wishlistID, func(w *domain.Wishlist) error {
		removed = len(w.Items)
		w.ClearItems()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("clear items: %w", err)
	}

	s.publish(ctx, "items.cleared", wishlistID, s.events.PublishItemsCleared(ctx, wishlistID, removed))

	s.logger.InfoContext(ctx, "wishlist items cleared",
		slog.Int64("wishlist_id", wishlistID),
		slog.Int("removed", removed),
	)
	return w, nil
}
