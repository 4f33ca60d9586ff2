package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/devops-golf-s17/wishlists/internal/domain"
	"github.com/devops-golf-s17/wishlists/internal/repository"
)

// CreateWishlistInput holds the parameters for creating a wishlist.
type CreateWishlistInput struct {
	Name   string `json:"name" validate:"required,notblank,max=255"`
	UserID string `json:"user_id" validate:"max=255"`
}

// EventPublisher is the set of domain events the service emits.
// *event.Producer implements it.
type EventPublisher interface {
	PublishWishlistCreated(ctx context.Context, w *domain.Wishlist) error
	PublishWishlistUpdated(ctx context.Context, w *domain.Wishlist) error
	PublishWishlistDeleted(ctx context.Context, wishlistID int64, hard bool) error
	PublishItemAdded(ctx context.Context, wishlistID int64, item domain.Item) error
	PublishItemUpdated(ctx context.Context, wishlistID int64, item domain.Item) error
	PublishItemRemoved(ctx context.Context, wishlistID int64, itemID string) error
	PublishItemsCleared(ctx context.Context, wishlistID int64, removed int) error
}

// WishlistService implements the business logic for wishlists and their items.
type WishlistService struct {
	repo   repository.WishlistRepository
	events EventPublisher
	logger *slog.Logger
	now    func() time.Time
}

// NewWishlistService creates a new wishlist service.
func NewWishlistService(repo repository.WishlistRepository, events EventPublisher, logger *slog.Logger) *WishlistService {
	return &WishlistService{
		repo:   repo,
		events: events,
		logger: logger,
		now:    time.Now,
	}
}

// Create validates the name, assigns an id and persists a new wishlist.
func (s *WishlistService) Create(ctx context.Context, input CreateWishlistInput) (*domain.Wishlist, error) {
	if err := domain.ValidateName(input.Name); err != nil {
		return nil, err
	}

	w := domain.NewWishlist(input.Name, input.UserID, s.now())
	if err := s.repo.Create(ctx, w); err != nil {
		return nil, fmt.Errorf("create wishlist: %w", err)
	}

	s.publish(ctx, "wishlist.created", w.ID, s.events.PublishWishlistCreated(ctx, w))

	s.logger.InfoContext(ctx, "wishlist created",
		slog.Int64("wishlist_id", w.ID),
		slog.String("user_id", w.UserID),
	)
	return w, nil
}

// Get returns a wishlist by id. Soft-deleted wishlists are still returned.
func (s *WishlistService) Get(ctx context.Context, id int64) (*domain.Wishlist, error) {
	w, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get wishlist: %w", err)
	}
	return w, nil
}

// List returns wishlists ordered by id, skipping soft-deleted ones unless
// includeDeleted is set.
func (s *WishlistService) List(ctx context.Context, includeDeleted bool) ([]*domain.Wishlist, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list wishlists: %w", err)
	}
	if includeDeleted {
		return all, nil
	}

	out := make([]*domain.Wishlist, 0, len(all))
	for _, w := range all {
		if !w.Deleted {
			out = append(out, w)
		}
	}
	return out, nil
}

// Update applies patch to the wishlist. The patch is validated before the
// stored record is touched.
func (s *WishlistService) Update(ctx context.Context, id int64, patch domain.WishlistPatch) (*domain.Wishlist, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return s.Get(ctx, id)
	}

	w, err := s.repo.Update(ctx, id, func(w *domain.Wishlist) error {
		return w.Apply(patch)
	})
	if err != nil {
		return nil, fmt.Errorf("update wishlist: %w", err)
	}

	s.publish(ctx, "wishlist.updated", id, s.events.PublishWishlistUpdated(ctx, w))

	s.logger.InfoContext(ctx, "wishlist updated", slog.Int64("wishlist_id", id))
	return w, nil
}

// SoftDelete flags the wishlist as deleted. Deleting an already deleted
// wishlist succeeds and changes nothing.
func (s *WishlistService) SoftDelete(ctx context.Context, id int64) error {
	var changed bool
	_, err := s.repo.Update(ctx, id, func(w *domain.Wishlist) error {
		changed = !w.Deleted
		w.SoftDelete()
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete wishlist: %w", err)
	}
	if !changed {
		return nil
	}

	s.publish(ctx, "wishlist.deleted", id, s.events.PublishWishlistDeleted(ctx, id, false))

	s.logger.InfoContext(ctx, "wishlist deleted", slog.Int64("wishlist_id", id))
	return nil
}

// Remove erases the wishlist record. Its id is never reassigned.
func (s *WishlistService) Remove(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("remove wishlist: %w", err)
	}

	s.publish(ctx, "wishlist.deleted", id, s.events.PublishWishlistDeleted(ctx, id, true))

	s.logger.InfoContext(ctx, "wishlist removed", slog.Int64("wishlist_id", id))
	return nil
}

// publish logs a failed event publication. Events never fail the request.
func (s *WishlistService) publish(ctx context.Context, eventType string, wishlistID int64, err error) {
	if err == nil {
		return
	}
	s.logger.ErrorContext(ctx, "failed to publish "+eventType+" event",
		slog.Int64("wishlist_id", wishlistID),
		slog.String("error", err.Error()),
	)
}
