package masterdata

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/assettrack/internal/platform/db"
)

// repo implements Repository interface
type repo struct {
	db   *pgxpool.Pool
	psql sq.StatementBuilderType
}

// NewRepository creates a new master data repository
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repo{db: pool, psql: sq.StatementBuilder.PlaceholderFormat(sq.Dollar)}
}

// Location operations
func (r *repo) ListLocations(ctx context.Context, filters ListFilters) ([]Location, int, error) {
	var out []Location
	total, err := r.list(ctx, "locations", []string{"id", "name", "created_at"}, filters, func(row pgx.Rows) error {
		var l Location
		if err := row.Scan(&l.ID, &l.Name, &l.CreatedAt); err != nil {
			return err
		}
		out = append(out, l)
		return nil
	})
	return out, total, err
}

func (r *repo) CreateLocation(ctx context.Context, location Location) (Location, error) {
	location.ID = uuid.New()
	err := r.db.QueryRow(ctx, `INSERT INTO locations (id, name) VALUES ($1, $2) RETURNING created_at`,
		location.ID, location.Name).Scan(&location.CreatedAt)
	if err != nil {
		return Location{}, db.MapError(err, "masterdata: create location")
	}
	return location, nil
}

// Category operations
func (r *repo) ListCategories(ctx context.Context, filters ListFilters) ([]Category, int, error) {
	var out []Category
	total, err := r.list(ctx, "categories", []string{"id", "name", "created_at"}, filters, func(row pgx.Rows) error {
		var c Category
		if err := row.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return err
		}
		out = append(out, c)
		return nil
	})
	return out, total, err
}

func (r *repo) CreateCategory(ctx context.Context, category Category) (Category, error) {
	category.ID = uuid.New()
	err := r.db.QueryRow(ctx, `INSERT INTO categories (id, name) VALUES ($1, $2) RETURNING created_at`,
		category.ID, category.Name).Scan(&category.CreatedAt)
	if err != nil {
		return Category{}, db.MapError(err, "masterdata: create category")
	}
	return category, nil
}

// Supplier operations
func (r *repo) ListSuppliers(ctx context.Context, filters ListFilters) ([]Supplier, int, error) {
	cols := []string{"id", "name", "contact_person", "email", "phone", "address", "created_at"}
	var out []Supplier
	total, err := r.list(ctx, "suppliers", cols, filters, func(row pgx.Rows) error {
		var s Supplier
		if err := row.Scan(&s.ID, &s.Name, &s.ContactPerson, &s.Email, &s.Phone, &s.Address, &s.CreatedAt); err != nil {
			return err
		}
		out = append(out, s)
		return nil
	})
	return out, total, err
}

func (r *repo) CreateSupplier(ctx context.Context, supplier Supplier) (Supplier, error) {
	const q = `INSERT INTO suppliers (id, name, contact_person, email, phone, address)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING created_at`
	supplier.ID = uuid.New()
	err := r.db.QueryRow(ctx, q, supplier.ID, supplier.Name, supplier.ContactPerson,
		supplier.Email, supplier.Phone, supplier.Address).Scan(&supplier.CreatedAt)
	if err != nil {
		return Supplier{}, db.MapError(err, "masterdata: create supplier")
	}
	return supplier, nil
}

// list runs the shared name-search listing for one lookup table.
func (r *repo) list(ctx context.Context, table string, cols []string, filters ListFilters, scan func(pgx.Rows) error) (int, error) {
	where := sq.And{}
	if s := strings.TrimSpace(filters.Search); s != "" {
		where = append(where, sq.ILike{"name": "%" + s + "%"})
	}

	countQ, countArgs, err := r.psql.Select("COUNT(*)").From(table).Where(where).ToSql()
	if err != nil {
		return 0, fmt.Errorf("masterdata: build count %s: %w", table, err)
	}
	var total int
	if err := r.db.QueryRow(ctx, countQ, countArgs...).Scan(&total); err != nil {
		return 0, db.MapError(err, "masterdata: count "+table)
	}

	b := r.psql.Select(cols...).From(table).Where(where).OrderBy("name", "id")
	if filters.PerPage > 0 {
		b = b.Limit(uint64(filters.PerPage)).Offset(filters.Offset())
	}
	query, args, err := b.ToSql()
	if err != nil {
		return 0, fmt.Errorf("masterdata: build list %s: %w", table, err)
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return 0, db.MapError(err, "masterdata: list "+table)
	}
	defer rows.Close()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return 0, db.MapError(err, "masterdata: scan "+table)
		}
	}
	if err := rows.Err(); err != nil {
		return 0, db.MapError(err, "masterdata: list "+table)
	}
	return total, nil
}
