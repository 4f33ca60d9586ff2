package repository

import (
	"context"
	"errors"

	"github.com/devops-golf-s17/wishlists/internal/domain"
	"github.com/devops-golf-s17/wishlists/pkg/database"
	apperrors "github.com/devops-golf-s17/wishlists/pkg/errors"
)

// Guarded routes every call of an underlying repository through a circuit
// breaker. While the breaker is open calls fail with StorageUnavailable
// without reaching the store.
type Guarded struct {
	next    WishlistRepository
	breaker *database.Breaker
}

var _ WishlistRepository = (*Guarded)(nil)

// NewGuarded wraps next with breaker. The breaker should be built with
// IsStorageFailure as its failure predicate.
func NewGuarded(next WishlistRepository, breaker *database.Breaker) *Guarded {
	return &Guarded{next: next, breaker: breaker}
}

func (g *Guarded) NextID(ctx context.Context) (int64, error) {
	return guard(g.breaker, func() (int64, error) { return g.next.NextID(ctx) })
}

func (g *Guarded) Create(ctx context.Context, w *domain.Wishlist) error {
	_, err := guard(g.breaker, func() (struct{}, error) { return struct{}{}, g.next.Create(ctx, w) })
	return err
}

func (g *Guarded) Get(ctx context.Context, id int64) (*domain.Wishlist, error) {
	return guard(g.breaker, func() (*domain.Wishlist, error) { return g.next.Get(ctx, id) })
}

func (g *Guarded) List(ctx context.Context) ([]*domain.Wishlist, error) {
	return guard(g.breaker, func() ([]*domain.Wishlist, error) { return g.next.List(ctx) })
}

func (g *Guarded) Update(ctx context.Context, id int64, fn UpdateFunc) (*domain.Wishlist, error) {
	return guard(g.breaker, func() (*domain.Wishlist, error) { return g.next.Update(ctx, id, fn) })
}

func (g *Guarded) Delete(ctx context.Context, id int64) error {
	_, err := guard(g.breaker, func() (struct{}, error) { return struct{}{}, g.next.Delete(ctx, id) })
	return err
}

// Ping bypasses the breaker so readiness reflects the store itself.
func (g *Guarded) Ping(ctx context.Context) error {
	return g.next.Ping(ctx)
}

func guard[T any](b *database.Breaker, fn func() (T, error)) (T, error) {
	v, err := database.Execute(b, fn)
	if errors.Is(err, database.ErrBreakerOpen) {
		return v, apperrors.StorageUnavailable(err)
	}
	return v, err
}
