package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devops-golf-s17/wishlists/internal/domain"
	apperrors "github.com/devops-golf-s17/wishlists/pkg/errors"
)

func setupTestRedis(t *testing.T) (*WishlistRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	return NewWishlistRepository(client), mr
}

func sampleWishlist(name string) *domain.Wishlist {
	w := domain.NewWishlist(name, "u1", time.Now())
	_, _ = w.AddItem("item1", "test item 1")
	return w
}

// ---------------------------------------------------------------------------
// NextID / Create
// ---------------------------------------------------------------------------

func TestWishlistRepository_NextID_Increments(t *testing.T) {
	repo, mr := setupTestRedis(t)
	ctx := context.Background()

	first, err := repo.NextID(ctx)
	require.NoError(t, err)
	second, err := repo.NextID(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(1), first)
	assert.Equal(t, int64(2), second)

	v, err := mr.Get(IndexKey)
	require.NoError(t, err)
	assert.Equal(t, "2", v)
}

func TestWishlistRepository_Create_AssignsIDAndStoresRecord(t *testing.T) {
	repo, mr := setupTestRedis(t)

	w := sampleWishlist("wl1")
	require.NoError(t, repo.Create(context.Background(), w))
	assert.Equal(t, int64(1), w.ID)

	raw, err := mr.Get("wishlist:1")
	require.NoError(t, err)
	got, err := domain.Unmarshal([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, w, got)
}

func TestWishlistRepository_Create_ExistingIDConflicts(t *testing.T) {
	repo, _ := setupTestRedis(t)
	ctx := context.Background()

	w := sampleWishlist("wl1")
	require.NoError(t, repo.Create(ctx, w))

	dup := sampleWishlist("other")
	dup.ID = w.ID
	err := repo.Create(ctx, dup)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	got, err := repo.Get(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, "wl1", got.Name)
}

func TestWishlistRepository_Create_ConcurrentIDsDistinct(t *testing.T) {
	repo, _ := setupTestRedis(t)
	ctx := context.Background()

	const n = 50
	ids := make([]int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w := sampleWishlist("wl")
			if err := repo.Create(ctx, w); err == nil {
				ids[i] = w.ID
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[int64]bool, n)
	for _, id := range ids {
		require.NotZero(t, id)
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, n)
}

func TestWishlistRepository_IDsNotReusedAfterDelete(t *testing.T) {
	repo, _ := setupTestRedis(t)
	ctx := context.Background()

	w1 := sampleWishlist("a")
	require.NoError(t, repo.Create(ctx, w1))
	require.NoError(t, repo.Delete(ctx, w1.ID))

	w2 := sampleWishlist("b")
	require.NoError(t, repo.Create(ctx, w2))
	assert.Greater(t, w2.ID, w1.ID)
}

// ---------------------------------------------------------------------------
// Get / List
// ---------------------------------------------------------------------------

func TestWishlistRepository_Get_NotFound(t *testing.T) {
	repo, _ := setupTestRedis(t)

	_, err := repo.Get(context.Background(), 42)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestWishlistRepository_Get_CorruptRecord(t *testing.T) {
	repo, mr := setupTestRedis(t)
	require.NoError(t, mr.Set("wishlist:5", "{not json"))

	_, err := repo.Get(context.Background(), 5)
	assert.ErrorIs(t, err, apperrors.ErrInternal)
}

func TestWishlistRepository_List_OrderedAndSkipsIndex(t *testing.T) {
	repo, _ := setupTestRedis(t)
	ctx := context.Background()

	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, repo.Create(ctx, sampleWishlist(name)))
	}

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	for i, w := range list {
		assert.Equal(t, int64(i+1), w.ID)
	}
}

func TestWishlistRepository_List_Empty(t *testing.T) {
	repo, _ := setupTestRedis(t)

	list, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

// ---------------------------------------------------------------------------
// Update
// ---------------------------------------------------------------------------

func TestWishlistRepository_Update_Persists(t *testing.T) {
	repo, _ := setupTestRedis(t)
	ctx := context.Background()

	w := sampleWishlist("wl1")
	require.NoError(t, repo.Create(ctx, w))

	updated, err := repo.Update(ctx, w.ID, func(cur *domain.Wishlist) error {
		_, err := cur.AddItem("item2", "test item 2")
		return err
	})
	require.NoError(t, err)
	assert.Len(t, updated.Items, 2)

	got, err := repo.Get(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, updated, got)
}

func TestWishlistRepository_Update_FnErrorWritesNothing(t *testing.T) {
	repo, _ := setupTestRedis(t)
	ctx := context.Background()

	w := sampleWishlist("wl1")
	require.NoError(t, repo.Create(ctx, w))

	_, err := repo.Update(ctx, w.ID, func(cur *domain.Wishlist) error {
		cur.Name = "changed"
		return cur.RemoveItem("missing")
	})
	assert.ErrorIs(t, err, apperrors.ErrItemNotFound)

	got, err := repo.Get(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, "wl1", got.Name)
}

func TestWishlistRepository_Update_NotFound(t *testing.T) {
	repo, _ := setupTestRedis(t)

	_, err := repo.Update(context.Background(), 7, func(*domain.Wishlist) error { return nil })
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestWishlistRepository_Update_IDCannotChange(t *testing.T) {
	repo, _ := setupTestRedis(t)
	ctx := context.Background()

	w := sampleWishlist("wl1")
	require.NoError(t, repo.Create(ctx, w))

	updated, err := repo.Update(ctx, w.ID, func(cur *domain.Wishlist) error {
		cur.ID = 999
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, w.ID, updated.ID)
}

func TestWishlistRepository_Update_ConcurrentNoLostWrites(t *testing.T) {
	repo, _ := setupTestRedis(t)
	ctx := context.Background()

	w := domain.NewWishlist("wl", "u1", time.Now())
	require.NoError(t, repo.Create(ctx, w))

	const n = 5
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = repo.Update(ctx, w.ID, func(cur *domain.Wishlist) error {
				_, err := cur.AddItem(string(rune('a'+i)), "x")
				return err
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, apperrors.ErrConflict)
		}
	}

	got, err := repo.Get(ctx, w.ID)
	require.NoError(t, err)
	assert.Len(t, got.Items, succeeded)
}

func TestWishlistRepository_Update_ContendedWritersAllSucceed(t *testing.T) {
	repo, _ := setupTestRedis(t)
	ctx := context.Background()

	w := domain.NewWishlist("wl", "u1", time.Now())
	require.NoError(t, repo.Create(ctx, w))

	const n = 64
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = repo.Update(ctx, w.ID, func(cur *domain.Wishlist) error {
				_, err := cur.AddItem(fmt.Sprintf("sku-%02d", i), "x")
				return err
			})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "writer %d", i)
	}

	got, err := repo.Get(ctx, w.ID)
	require.NoError(t, err)
	assert.Len(t, got.Items, n)
}

func TestWishlistRepository_Update_CanceledContext(t *testing.T) {
	repo, _ := setupTestRedis(t)

	w := domain.NewWishlist("wl", "u1", time.Now())
	require.NoError(t, repo.Create(context.Background(), w))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.Update(ctx, w.ID, func(cur *domain.Wishlist) error { return nil })
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperrors.ErrConflict)
}

// ---------------------------------------------------------------------------
// Delete / Ping
// ---------------------------------------------------------------------------

func TestWishlistRepository_Delete(t *testing.T) {
	repo, mr := setupTestRedis(t)
	ctx := context.Background()

	w := sampleWishlist("wl1")
	require.NoError(t, repo.Create(ctx, w))

	require.NoError(t, repo.Delete(ctx, w.ID))
	assert.False(t, mr.Exists("wishlist:1"))
	assert.ErrorIs(t, repo.Delete(ctx, w.ID), apperrors.ErrNotFound)
}

func TestWishlistRepository_ServerDown_StorageUnavailable(t *testing.T) {
	repo, mr := setupTestRedis(t)
	mr.Close()
	ctx := context.Background()

	_, err := repo.Get(ctx, 1)
	assert.ErrorIs(t, err, apperrors.ErrServiceUnavail)

	_, err = repo.NextID(ctx)
	assert.ErrorIs(t, err, apperrors.ErrServiceUnavail)

	assert.ErrorIs(t, repo.Ping(ctx), apperrors.ErrServiceUnavail)
	assert.ErrorIs(t, repo.Create(ctx, sampleWishlist("x")), apperrors.ErrServiceUnavail)

	var appErr *apperrors.AppError
	require.True(t, errors.As(repo.Ping(ctx), &appErr))
	assert.Equal(t, "STORAGE_UNAVAILABLE", appErr.Code)
}
