package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/assettrack/internal/platform/db"
	"github.com/odyssey-erp/assettrack/internal/rbac"
	"github.com/odyssey-erp/assettrack/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	List(ctx context.Context, f ListFilters) ([]User, int, error)
	Get(ctx context.Context, id uuid.UUID) (User, error)
	Create(ctx context.Context, u User, passwordHash string) (User, error)
	// Update replaces the profile. A nil passwordHash keeps the current one.
	Update(ctx context.Context, u User, passwordHash *string) (User, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
	psql sq.StatementBuilderType
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, psql: sq.StatementBuilder.PlaceholderFormat(sq.Dollar)}
}

const userColumns = "id, name, email, role, created_at, updated_at"

// List returns users ordered by name.
func (r *Repository) List(ctx context.Context, f ListFilters) ([]User, int, error) {
	where := sq.And{}
	if f.Role != "" {
		where = append(where, sq.Eq{"role": string(f.Role)})
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		pattern := "%" + s + "%"
		where = append(where, sq.Or{sq.ILike{"name": pattern}, sq.ILike{"email": pattern}})
	}

	countQ, countArgs, err := r.psql.Select("COUNT(*)").From("users").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("users: build count: %w", err)
	}
	var total int
	if err := r.pool.QueryRow(ctx, countQ, countArgs...).Scan(&total); err != nil {
		return nil, 0, db.MapError(err, "users: count")
	}

	b := r.psql.Select(userColumns).From("users").Where(where).OrderBy("lower(name)", "id")
	if f.PerPage > 0 {
		b = b.Limit(uint64(f.PerPage)).Offset(f.Offset())
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("users: build list: %w", err)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, db.MapError(err, "users: list")
	}
	defer rows.Close()

	users := make([]User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, db.MapError(err, "users: scan")
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, db.MapError(err, "users: list")
	}
	return users, total, nil
}

// Get fetches one user.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return User{}, db.MapError(err, "users: get")
	}
	return u, nil
}

// Create inserts an account.
func (r *Repository) Create(ctx context.Context, u User, passwordHash string) (User, error) {
	const q = `INSERT INTO users (id, name, email, password_hash, role)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + userColumns
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	out, err := scanUser(r.pool.QueryRow(ctx, q, u.ID, u.Name, u.Email, passwordHash, string(u.Role)))
	if err != nil {
		return User{}, emailTaken(db.MapError(err, "users: create"))
	}
	return out, nil
}

// Update edits an account in place.
func (r *Repository) Update(ctx context.Context, u User, passwordHash *string) (User, error) {
	b := r.psql.Update("users").
		Set("name", u.Name).
		Set("email", u.Email).
		Set("role", string(u.Role)).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": u.ID}).
		Suffix("RETURNING " + userColumns)
	if passwordHash != nil {
		b = b.Set("password_hash", *passwordHash)
	}
	query, args, err := b.ToSql()
	if err != nil {
		return User{}, fmt.Errorf("users: build update: %w", err)
	}
	out, err := scanUser(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return User{}, emailTaken(db.MapError(err, "users: update"))
	}
	return out, nil
}

// Delete removes an account. Requests it filed keep their user id.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return db.MapError(err, "users: delete")
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("users: delete: %w", shared.ErrNotFound)
	}
	return nil
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	var role string
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &role, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return User{}, err
	}
	u.Role = rbac.Role(role)
	return u, nil
}

func emailTaken(err error) error {
	if errors.Is(err, shared.ErrDuplicate) {
		return ErrEmailTaken
	}
	return err
}
