package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/devops-golf-s17/wishlists/internal/domain"
	"github.com/devops-golf-s17/wishlists/internal/repository"
	"github.com/devops-golf-s17/wishlists/pkg/database"
	apperrors "github.com/devops-golf-s17/wishlists/pkg/errors"
)

// DBTX is satisfied by *pgxpool.Pool and by pgxmock pools.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
}

const (
	nextIDQuery = `SELECT nextval('wishlist_id_seq')`
	insertQuery = `INSERT INTO wishlists (id, record) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`
	getQuery    = `SELECT record FROM wishlists WHERE id = $1`
	listQuery   = `SELECT record FROM wishlists ORDER BY id`
	lockQuery   = `SELECT record FROM wishlists WHERE id = $1 FOR UPDATE`
	updateQuery = `UPDATE wishlists SET record = $2, updated_at = NOW() WHERE id = $1`
	deleteQuery = `DELETE FROM wishlists WHERE id = $1`
)

// WishlistRepository implements repository.WishlistRepository using
// PostgreSQL. The wishlist is stored whole in a JSONB column.
type WishlistRepository struct {
	db DBTX
}

var _ repository.WishlistRepository = (*WishlistRepository)(nil)

// NewWishlistRepository creates a new PostgreSQL-backed wishlist repository.
func NewWishlistRepository(db DBTX) *WishlistRepository {
	return &WishlistRepository{db: db}
}

// NextID draws the next value from wishlist_id_seq.
func (r *WishlistRepository) NextID(ctx context.Context) (id int64, err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, "NextWishlistID", nextIDQuery)
	defer func() { end(err) }()

	if err = r.db.QueryRow(ctx, nextIDQuery).Scan(&id); err != nil {
		return 0, storageErr("next wishlist id", err)
	}
	return id, nil
}

// Create inserts w, assigning its id first when it has none.
func (r *WishlistRepository) Create(ctx context.Context, w *domain.Wishlist) (err error) {
	if w.ID == 0 {
		if w.ID, err = r.NextID(ctx); err != nil {
			return err
		}
	}

	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, "CreateWishlist", insertQuery)
	defer func() { end(err) }()

	data, err := domain.Marshal(w)
	if err != nil {
		return apperrors.Internal(err)
	}

	tag, err := r.db.Exec(ctx, insertQuery, w.ID, string(data))
	if err != nil {
		return storageErr("insert wishlist", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.Conflict(fmt.Sprintf("wishlist %d already exists", w.ID))
	}
	return nil
}

// Get retrieves a wishlist by id.
func (r *WishlistRepository) Get(ctx context.Context, id int64) (w *domain.Wishlist, err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, "GetWishlist", getQuery)
	defer func() { end(err) }()

	var data []byte
	if err = r.db.QueryRow(ctx, getQuery, id).Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound(id)
		}
		return nil, storageErr("get wishlist", err)
	}
	return decode(data)
}

// List returns all wishlists ordered by id.
func (r *WishlistRepository) List(ctx context.Context) (out []*domain.Wishlist, err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, "ListWishlists", listQuery)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, listQuery)
	if err != nil {
		return nil, storageErr("list wishlists", err)
	}
	defer rows.Close()

	out = make([]*domain.Wishlist, 0)
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, storageErr("scan wishlist", err)
		}
		w, err := decode(data)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate wishlists", err)
	}
	return out, nil
}

// Update locks the row, applies fn and writes the result in one transaction.
func (r *WishlistRepository) Update(ctx context.Context, id int64, fn repository.UpdateFunc) (w *domain.Wishlist, err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, "UpdateWishlist", lockQuery)
	defer func() { end(err) }()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, storageErr("begin update", err)
	}

	w, err = r.updateInTx(ctx, tx, id, fn)
	if err != nil {
		_ = tx.Rollback(ctx)
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, storageErr("commit update", err)
	}
	return w, nil
}

func (r *WishlistRepository) updateInTx(ctx context.Context, tx pgx.Tx, id int64, fn repository.UpdateFunc) (*domain.Wishlist, error) {
	var data []byte
	if err := tx.QueryRow(ctx, lockQuery, id).Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound(id)
		}
		return nil, storageErr("lock wishlist", err)
	}

	w, err := decode(data)
	if err != nil {
		return nil, err
	}
	if err := fn(w); err != nil {
		return nil, err
	}
	w.ID = id

	out, err := domain.Marshal(w)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if _, err := tx.Exec(ctx, updateQuery, id, string(out)); err != nil {
		return nil, storageErr("update wishlist", err)
	}
	return w, nil
}

// Delete removes the row. The sequence is not touched.
func (r *WishlistRepository) Delete(ctx context.Context, id int64) (err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, "DeleteWishlist", deleteQuery)
	defer func() { end(err) }()

	tag, err := r.db.Exec(ctx, deleteQuery, id)
	if err != nil {
		return storageErr("delete wishlist", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound(id)
	}
	return nil
}

// Ping checks database connectivity.
func (r *WishlistRepository) Ping(ctx context.Context) error {
	if err := r.db.Ping(ctx); err != nil {
		return apperrors.StorageUnavailable(fmt.Errorf("postgres ping: %w", err))
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

// storageErr classifies a driver error: transport failures become
// StorageUnavailable, anything else stays an internal error.
func storageErr(op string, err error) error {
	if database.IsConnectionError(err) {
		return apperrors.StorageUnavailable(fmt.Errorf("postgres %s: %w", op, err))
	}
	return fmt.Errorf("postgres %s: %w", op, err)
}
