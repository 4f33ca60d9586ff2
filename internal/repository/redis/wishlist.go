package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/redis/go-redis/v9"

	"github.com/devops-golf-s17/wishlists/internal/domain"
	"github.com/devops-golf-s17/wishlists/internal/repository"
	"github.com/devops-golf-s17/wishlists/pkg/database"
	apperrors "github.com/devops-golf-s17/wishlists/pkg/errors"
)

const (
	keyPrefix = "wishlist:"
	// IndexKey holds the id counter. It never matches keyPrefix+"*".
	IndexKey = "wishlists:index"

	maxUpdateAttempts  = 20
	updateRetryInitial = 2 * time.Millisecond
	updateRetryMax     = 100 * time.Millisecond
	scanBatch          = 100
)

func wishlistKey(id int64) string {
	return keyPrefix + strconv.FormatInt(id, 10)
}

// WishlistRepository implements repository.WishlistRepository using Redis.
// Each wishlist is one JSON string value.
type WishlistRepository struct {
	client redis.UniversalClient
}

var _ repository.WishlistRepository = (*WishlistRepository)(nil)

// NewWishlistRepository creates a new Redis-backed wishlist repository.
func NewWishlistRepository(client redis.UniversalClient) *WishlistRepository {
	return &WishlistRepository{client: client}
}

// NextID increments the id counter.
func (r *WishlistRepository) NextID(ctx context.Context) (id int64, err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemRedis, "NextWishlistID", "INCR "+IndexKey)
	defer func() { end(err) }()

	id, err = r.client.Incr(ctx, IndexKey).Result()
	if err != nil {
		return 0, unavailable("incr index", err)
	}
	return id, nil
}

// Create stores w under a new key. SETNX guarantees an existing record is
// never overwritten.
func (r *WishlistRepository) Create(ctx context.Context, w *domain.Wishlist) (err error) {
	if w.ID == 0 {
		if w.ID, err = r.NextID(ctx); err != nil {
			return err
		}
	}

	key := wishlistKey(w.ID)
	ctx, end := database.TraceQuery(ctx, database.SystemRedis, "CreateWishlist", "SETNX "+key)
	defer func() { end(err) }()

	data, err := domain.Marshal(w)
	if err != nil {
		return apperrors.Internal(err)
	}

	created, err := r.client.SetNX(ctx, key, data, 0).Result()
	if err != nil {
		return unavailable("setnx wishlist", err)
	}
	if !created {
		return apperrors.Conflict(fmt.Sprintf("wishlist %d already exists", w.ID))
	}
	return nil
}

// Get retrieves a wishlist by id.
func (r *WishlistRepository) Get(ctx context.Context, id int64) (w *domain.Wishlist, err error) {
	key := wishlistKey(id)
	ctx, end := database.TraceQuery(ctx, database.SystemRedis, "GetWishlist", "GET "+key)
	defer func() { end(err) }()

	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, notFound(id)
		}
		return nil, unavailable("get wishlist", err)
	}

	return decode(data)
}

// List scans every wishlist key and loads the records in batches.
func (r *WishlistRepository) List(ctx context.Context) (out []*domain.Wishlist, err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemRedis, "ListWishlists", "SCAN "+keyPrefix+"*")
	defer func() { end(err) }()

	out = make([]*domain.Wishlist, 0)
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, keyPrefix+"*", scanBatch).Result()
		if err != nil {
			return nil, unavailable("scan wishlists", err)
		}

		if len(keys) > 0 {
			values, err := r.client.MGet(ctx, keys...).Result()
			if err != nil {
				return nil, unavailable("mget wishlists", err)
			}
			for _, v := range values {
				s, ok := v.(string)
				if !ok {
					// Deleted between SCAN and MGET.
					continue
				}
				w, err := decode([]byte(s))
				if err != nil {
					return nil, err
				}
				out = append(out, w)
			}
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Update applies fn under WATCH so that a concurrent writer forces a retry
// instead of a lost update.
func (r *WishlistRepository) Update(ctx context.Context, id int64, fn repository.UpdateFunc) (w *domain.Wishlist, err error) {
	key := wishlistKey(id)
	ctx, end := database.TraceQuery(ctx, database.SystemRedis, "UpdateWishlist", "WATCH "+key)
	defer func() { end(err) }()

	var updated *domain.Wishlist
	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return notFound(id)
			}
			return err
		}

		current, err := decode(data)
		if err != nil {
			return err
		}
		if err := fn(current); err != nil {
			return err
		}
		current.ID = id

		out, err := domain.Marshal(current)
		if err != nil {
			return apperrors.Internal(err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, 0)
			return nil
		})
		if err != nil {
			return err
		}
		updated = current
		return nil
	}

	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		werr := r.client.Watch(ctx, txf, key)
		if werr == nil || errors.Is(werr, redis.TxFailedErr) {
			return struct{}{}, werr
		}
		return struct{}{}, backoff.Permanent(werr)
	}, backoff.WithBackOff(updateBackOff()), backoff.WithMaxTries(maxUpdateAttempts))
	if err == nil {
		return updated, nil
	}

	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		err = permanent.Err
	}
	if errors.Is(err, redis.TxFailedErr) {
		return nil, apperrors.Conflict(fmt.Sprintf("wishlist %d was modified concurrently, please retry", id))
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return nil, err
	}
	return nil, unavailable("update wishlist", err)
}

// updateBackOff returns the jittered exponential wait between WATCH attempts.
func updateBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = updateRetryInitial
	b.MaxInterval = updateRetryMax
	return b
}

// Delete removes the record. The counter is left alone.
func (r *WishlistRepository) Delete(ctx context.Context, id int64) (err error) {
	key := wishlistKey(id)
	ctx, end := database.TraceQuery(ctx, database.SystemRedis, "DeleteWishlist", "DEL "+key)
	defer func() { end(err) }()

	n, err := r.client.Del(ctx, key).Result()
	if err != nil {
		return unavailable("del wishlist", err)
	}
	if n == 0 {
		return notFound(id)
	}
	return nil
}

// Ping checks that Redis answers.
func (r *WishlistRepository) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

func decode(data []byte) (*domain.Wishlist, error) {
	w, err := domain.Unmarshal(data)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return w, nil
}

func notFound(id int64) error {
	return apperrors.NotFound("wishlist", strconv.FormatInt(id, 10))
}

func unavailable(op string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return apperrors.StorageUnavailable(fmt.Errorf("redis %s: %w", op, err))
}
