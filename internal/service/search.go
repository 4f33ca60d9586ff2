package service

import (
	"context"

	"github.com/devops-golf-s17/wishlists/internal/domain"
)

// SearchHit is an item matched by Search together with its wishlist id.
type SearchHit struct {
	WishlistID int64       `json:"wishlist_id"`
	Item       domain.Item `json:"item"`
}

// Search returns items whose description contains query, case-sensitively,
// across non-deleted wishlists. A non-empty userID restricts the scan to
// that user's wishlists. Hits are ordered by wishlist id then item id.
func (s *WishlistService) Search(ctx context.Context, query, userID string) ([]SearchHit, error) {
	wishlists, err := s.List(ctx, false)
	if err != nil {
		return nil, err
	}

	hits := make([]SearchHit, 0)
	for _, w := range wishlists {
		if userID != "" && w.UserID != userID {
			continue
		}
		for _, item := range w.ItemsContaining(query) {
			hits = append(hits, SearchHit{WishlistID: w.ID, Item: item})
		}
	}
	return hits, nil
}
