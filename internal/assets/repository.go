package assets

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/assettrack/internal/platform/db"
	"github.com/odyssey-erp/assettrack/internal/shared"
)

// Repository defines asset persistence.
type Repository interface {
	List(ctx context.Context, filters ListFilters) ([]Asset, int, error)
	Get(ctx context.Context, id uuid.UUID) (Asset, error)
	Create(ctx context.Context, asset Asset) (Asset, error)
	// Update overwrites the editable fields provided the stored status still
	// equals expected; otherwise it returns shared.ErrStatusConflict.
	Update(ctx context.Context, asset Asset, expected Status) (Asset, error)
	// Delete removes an asset unless a Pending or Approved request references
	// it, in which case shared.ErrAssetInUse is returned.
	Delete(ctx context.Context, id uuid.UUID) error
	// CompareAndSetStatus moves the asset from expected to next atomically.
	CompareAndSetStatus(ctx context.Context, id uuid.UUID, expected, next Status) error
}

type pgRepository struct {
	pool *pgxpool.Pool
	psql sq.StatementBuilderType
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool, psql: sq.StatementBuilder.PlaceholderFormat(sq.Dollar)}
}

const assetColumns = `a.id, a.name, a.description, a.purchase_date, a.warranty_date, a.status,
a.location_id, a.category_id, a.supplier_id,
COALESCE(l.name, ''), COALESCE(c.name, ''), COALESCE(s.name, ''),
a.added_date, a.updated_at`

func (r *pgRepository) selectAssets() sq.SelectBuilder {
	return r.psql.Select(assetColumns).
		From("assets a").
		LeftJoin("locations l ON l.id = a.location_id").
		LeftJoin("categories c ON c.id = a.category_id").
		LeftJoin("suppliers s ON s.id = a.supplier_id")
}

func applyFilters(b sq.SelectBuilder, f ListFilters) sq.SelectBuilder {
	if f.Status != "" {
		b = b.Where(sq.Eq{"a.status": string(f.Status)})
	}
	if f.LocationID != nil {
		b = b.Where(sq.Eq{"a.location_id": *f.LocationID})
	}
	if f.CategoryID != nil {
		b = b.Where(sq.Eq{"a.category_id": *f.CategoryID})
	}
	if f.SupplierID != nil {
		b = b.Where(sq.Eq{"a.supplier_id": *f.SupplierID})
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		like := "%" + search + "%"
		b = b.Where(sq.Or{sq.ILike{"a.name": like}, sq.ILike{"a.description": like}})
	}
	return b
}

func (r *pgRepository) List(ctx context.Context, f ListFilters) ([]Asset, int, error) {
	countSQL, countArgs, err := applyFilters(r.psql.Select("COUNT(*)").From("assets a"), f).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("assets: build count: %w", err)
	}
	b := applyFilters(r.selectAssets(), f).OrderBy("a.added_date DESC", "a.id")
	if f.PerPage > 0 {
		b = b.Limit(uint64(f.PerPage)).Offset(f.Offset())
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("assets: build list: %w", err)
	}

	var total int
	items := make([]Asset, 0)
	err = db.WithTx(ctx, r.pool, db.Snapshot, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
			return db.MapError(err, "assets: count")
		}
		rows, err := tx.Query(ctx, query, args...)
		if err != nil {
			return db.MapError(err, "assets: list")
		}
		defer rows.Close()
		for rows.Next() {
			a, err := scanAsset(rows)
			if err != nil {
				return db.MapError(err, "assets: scan")
			}
			items = append(items, a)
		}
		return db.MapError(rows.Err(), "assets: list")
	})
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *pgRepository) Get(ctx context.Context, id uuid.UUID) (Asset, error) {
	query, args, err := r.selectAssets().Where(sq.Eq{"a.id": id}).ToSql()
	if err != nil {
		return Asset{}, fmt.Errorf("assets: build get: %w", err)
	}
	a, err := scanAsset(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return Asset{}, db.MapError(err, "assets: get")
	}
	return a, nil
}

func (r *pgRepository) Create(ctx context.Context, a Asset) (Asset, error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Status == "" {
		a.Status = StatusAvailable
	}
	const q = `INSERT INTO assets (id, name, description, purchase_date, warranty_date, status, location_id, category_id, supplier_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.pool.Exec(ctx, q, a.ID, a.Name, a.Description, a.PurchaseDate, a.WarrantyDate,
		string(a.Status), a.LocationID, a.CategoryID, a.SupplierID)
	if err != nil {
		return Asset{}, db.MapError(err, "assets: create")
	}
	return r.Get(ctx, a.ID)
}

func (r *pgRepository) Update(ctx context.Context, a Asset, expected Status) (Asset, error) {
	const q = `WITH updated AS (
    UPDATE assets
    SET name = $3, description = $4, purchase_date = $5, warranty_date = $6, status = $7,
        location_id = $8, category_id = $9, supplier_id = $10, updated_at = NOW(),
        claimed_at = CASE WHEN status = $7 THEN claimed_at END
    WHERE id = $1 AND status = $2
    RETURNING id
)
SELECT (SELECT COUNT(*) FROM updated), EXISTS (SELECT 1 FROM assets WHERE id = $1)`
	var updated int
	var exists bool
	err := r.pool.QueryRow(ctx, q, a.ID, string(expected), a.Name, a.Description, a.PurchaseDate,
		a.WarrantyDate, string(a.Status), a.LocationID, a.CategoryID, a.SupplierID).Scan(&updated, &exists)
	if err != nil {
		return Asset{}, db.MapError(err, "assets: update")
	}
	switch {
	case updated == 1:
		return r.Get(ctx, a.ID)
	case !exists:
		return Asset{}, fmt.Errorf("assets: update: %w", shared.ErrNotFound)
	default:
		return Asset{}, fmt.Errorf("assets: update: %w", shared.ErrStatusConflict)
	}
}

func (r *pgRepository) Delete(ctx context.Context, id uuid.UUID) error {
	// The row lock orders this delete against request inserts, which take
	// FOR SHARE on the asset before writing.
	return db.WithTx(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var locked uuid.UUID
		if err := tx.QueryRow(ctx, `SELECT id FROM assets WHERE id = $1 FOR UPDATE`, id).Scan(&locked); err != nil {
			return db.MapError(err, "assets: delete")
		}
		var open bool
		const inUse = `SELECT EXISTS (
    SELECT 1 FROM requests WHERE asset_id = $1 AND status IN ('Pending', 'Approved')
)`
		if err := tx.QueryRow(ctx, inUse, id).Scan(&open); err != nil {
			return db.MapError(err, "assets: delete")
		}
		if open {
			return fmt.Errorf("assets: delete: %w", shared.ErrAssetInUse)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM requests WHERE asset_id = $1 AND status = 'Rejected'`, id); err != nil {
			return db.MapError(err, "assets: delete rejected requests")
		}
		if _, err := tx.Exec(ctx, `DELETE FROM assets WHERE id = $1`, id); err != nil {
			return db.MapError(err, "assets: delete")
		}
		return nil
	})
}

func (r *pgRepository) CompareAndSetStatus(ctx context.Context, id uuid.UUID, expected, next Status) error {
	const q = `WITH updated AS (
    UPDATE assets
    SET status = $3, updated_at = NOW(),
        claimed_at = CASE WHEN $3 = 'Assigned' THEN NOW() END
    WHERE id = $1 AND status = $2
    RETURNING id
)
SELECT (SELECT COUNT(*) FROM updated), EXISTS (SELECT 1 FROM assets WHERE id = $1)`
	var updated int
	var exists bool
	if err := r.pool.QueryRow(ctx, q, id, string(expected), string(next)).Scan(&updated, &exists); err != nil {
		return db.MapError(err, "assets: compare and set status")
	}
	switch {
	case updated == 1:
		return nil
	case !exists:
		return fmt.Errorf("assets: compare and set status: %w", shared.ErrNotFound)
	default:
		return fmt.Errorf("assets: compare and set status: %w", shared.ErrStatusConflict)
	}
}

func scanAsset(row pgx.Row) (Asset, error) {
	var a Asset
	var status string
	err := row.Scan(&a.ID, &a.Name, &a.Description, &a.PurchaseDate, &a.WarrantyDate, &status,
		&a.LocationID, &a.CategoryID, &a.SupplierID,
		&a.LocationName, &a.CategoryName, &a.SupplierName,
		&a.AddedDate, &a.UpdatedAt)
	if err != nil {
		return Asset{}, err
	}
	a.Status = Status(status)
	return a, nil
}
