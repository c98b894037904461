package auth

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/assettrack/internal/platform/db"
	"github.com/odyssey-erp/assettrack/internal/shared"
)

// Repository defines persistence operations for auth module.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (User, error)
	Create(ctx context.Context, user User) (User, error)
	SetResetToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error
	// ResetPassword swaps the password of the user holding an unexpired
	// tokenHash and clears the token. Returns shared.ErrNotFound otherwise.
	ResetPassword(ctx context.Context, tokenHash, passwordHash string, now time.Time) error
	ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// FindByEmail fetches a user by email, case-insensitively.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (User, error) {
	const q = `SELECT id, name, email, password_hash, role, created_at, updated_at
FROM users WHERE lower(email) = lower($1)`
	var u User
	err := r.pool.QueryRow(ctx, q, strings.TrimSpace(email)).
		Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return User{}, db.MapError(err, "auth: find user")
	}
	return u, nil
}

// Create inserts a new account.
func (r *PGRepository) Create(ctx context.Context, user User) (User, error) {
	const q = `INSERT INTO users (id, name, email, password_hash, role)
VALUES ($1, $2, $3, $4, $5)
RETURNING created_at, updated_at`
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	err := r.pool.QueryRow(ctx, q, user.ID, user.Name, user.Email, user.PasswordHash, string(user.Role)).
		Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return User{}, db.MapError(err, "auth: create user")
	}
	return user, nil
}

// SetResetToken stores the hashed reset token, replacing any earlier one.
func (r *PGRepository) SetResetToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	const q = `UPDATE users SET reset_token_hash = $2, reset_expires_at = $3, updated_at = NOW() WHERE id = $1`
	tag, err := r.pool.Exec(ctx, q, userID, tokenHash, expiresAt)
	if err != nil {
		return db.MapError(err, "auth: set reset token")
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ResetPassword implements Repository.
func (r *PGRepository) ResetPassword(ctx context.Context, tokenHash, passwordHash string, now time.Time) error {
	const q = `UPDATE users
SET password_hash = $2, reset_token_hash = NULL, reset_expires_at = NULL, updated_at = NOW()
WHERE reset_token_hash = $1 AND reset_expires_at > $3`
	tag, err := r.pool.Exec(ctx, q, tokenHash, passwordHash, now)
	if err != nil {
		return db.MapError(err, "auth: reset password")
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ClearExpiredResetTokens drops reset tokens whose expiry has passed.
func (r *PGRepository) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	const q = `UPDATE users SET reset_token_hash = NULL, reset_expires_at = NULL
WHERE reset_token_hash IS NOT NULL AND reset_expires_at <= $1`
	tag, err := r.pool.Exec(ctx, q, now)
	if err != nil {
		return 0, db.MapError(err, "auth: clear reset tokens")
	}
	return tag.RowsAffected(), nil
}

var _ Repository = (*PGRepository)(nil)
