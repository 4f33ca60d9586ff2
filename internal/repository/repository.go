package repository

import (
	"context"
	"errors"

	"github.com/devops-golf-s17/wishlists/internal/domain"
	apperrors "github.com/devops-golf-s17/wishlists/pkg/errors"
)

// Sequencer hands out wishlist ids. Every id is strictly greater than all
// ids returned before it, across concurrent callers and restarts.
type Sequencer interface {
	NextID(ctx context.Context) (int64, error)
}

// UpdateFunc mutates a freshly loaded wishlist. Returning an error aborts the
// update and nothing is written.
type UpdateFunc func(w *domain.Wishlist) error

// WishlistRepository defines the persistence operations for wishlists.
type WishlistRepository interface {
	Sequencer

	// Create stores a new wishlist, assigning w.ID from the sequencer when
	// it is zero.
	Create(ctx context.Context, w *domain.Wishlist) error

	// Get returns the wishlist with id, deleted or not.
	Get(ctx context.Context, id int64) (*domain.Wishlist, error)

	// List returns every stored wishlist ordered by id.
	List(ctx context.Context) ([]*domain.Wishlist, error)

	// Update runs fn against the current stored value and writes the result.
	// Concurrent updates of the same wishlist are serialized.
	Update(ctx context.Context, id int64, fn UpdateFunc) (*domain.Wishlist, error)

	// Delete erases the record. The id is never handed out again.
	Delete(ctx context.Context, id int64) error

	// Ping checks connectivity to the backing store.
	Ping(ctx context.Context) error
}

// IsStorageFailure reports whether err came from the storage layer rather
// than from the domain (not found, validation, conflicts).
func IsStorageFailure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, apperrors.ErrServiceUnavail) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var appErr *apperrors.AppError
	return !errors.As(err, &appErr)
}
