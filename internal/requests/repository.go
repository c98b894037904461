package requests

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/assettrack/internal/platform/db"
	"github.com/odyssey-erp/assettrack/internal/shared"
)

// Store persists requests.
type Store interface {
	// Create records a Pending request. The PostgreSQL store refuses with
	// shared.ErrAssetUnavailable unless the asset is Available at write time.
	Create(ctx context.Context, userID, assetID uuid.UUID, at time.Time) (Request, error)
	Get(ctx context.Context, id uuid.UUID) (Request, error)
	// CompareAndSetStatus moves the request from expected to next in one
	// conditional write and returns the updated record. It fails with
	// shared.ErrNotFound or shared.ErrStatusConflict.
	CompareAndSetStatus(ctx context.Context, id uuid.UUID, expected, next Status, decidedBy uuid.UUID, at time.Time) (Request, error)
	// List returns a point-in-time snapshot ordered by request date.
	List(ctx context.Context, f Filter) ([]ListItem, error)
}

// Orphan is an asset marked Assigned that no Approved request accounts for.
type Orphan struct {
	AssetID   uuid.UUID `json:"assetId"`
	AssetName string    `json:"assetName"`
	// PendingRequests lists pending requests on the asset, oldest first.
	PendingRequests []uuid.UUID `json:"pendingRequests"`
}

// PGRepository implements Store on PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
	psql sq.StatementBuilderType
}

// NewRepository constructs a PostgreSQL backed store.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool, psql: sq.StatementBuilder.PlaceholderFormat(sq.Dollar)}
}

const requestColumns = `id, user_id, asset_id, request_date, status, decided_by, decided_at`

// Create inserts a Pending request only while the asset is Available. The
// share lock makes a concurrent approval or delete of the asset either
// finish first, leaving no row to insert against, or wait for this insert.
func (r *PGRepository) Create(ctx context.Context, userID, assetID uuid.UUID, at time.Time) (Request, error) {
	const q = `WITH asset AS (
    SELECT id FROM assets WHERE id = $3 AND status = 'Available' FOR SHARE
)
INSERT INTO requests (id, user_id, asset_id, request_date, status)
SELECT $1, $2, asset.id, $4, 'Pending' FROM asset
RETURNING ` + requestColumns
	req, err := scanRequest(r.pool.QueryRow(ctx, q, uuid.New(), userID, assetID, at))
	if errors.Is(err, pgx.ErrNoRows) {
		return Request{}, fmt.Errorf("requests: create: asset %s: %w", assetID, shared.ErrAssetUnavailable)
	}
	if err != nil {
		return Request{}, db.MapError(err, "requests: create")
	}
	return req, nil
}

func (r *PGRepository) Get(ctx context.Context, id uuid.UUID) (Request, error) {
	req, err := scanRequest(r.pool.QueryRow(ctx, `SELECT `+requestColumns+` FROM requests WHERE id = $1`, id))
	if err != nil {
		return Request{}, db.MapError(err, "requests: get")
	}
	return req, nil
}

func (r *PGRepository) CompareAndSetStatus(ctx context.Context, id uuid.UUID, expected, next Status, decidedBy uuid.UUID, at time.Time) (Request, error) {
	const q = `UPDATE requests SET status = $3, decided_by = $4, decided_at = $5
WHERE id = $1 AND status = $2
RETURNING ` + requestColumns
	req, err := scanRequest(r.pool.QueryRow(ctx, q, id, string(expected), string(next), decidedBy, at))
	if err == nil {
		return req, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Request{}, db.MapError(err, "requests: compare and set status")
	}
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM requests WHERE id = $1)`, id).Scan(&exists); err != nil {
		return Request{}, db.MapError(err, "requests: compare and set status")
	}
	if !exists {
		return Request{}, fmt.Errorf("requests: compare and set status: %w", shared.ErrNotFound)
	}
	return Request{}, fmt.Errorf("requests: compare and set status: %w", shared.ErrStatusConflict)
}

func (r *PGRepository) List(ctx context.Context, f Filter) ([]ListItem, error) {
	b := r.psql.Select(
		"rq.id", "rq.user_id", "rq.asset_id", "rq.request_date", "rq.status", "rq.decided_by", "rq.decided_at",
		"COALESCE(a.name, '')", "COALESCE(u.name, '')", "COALESCE(u.email, '')",
	).
		From("requests rq").
		LeftJoin("assets a ON a.id = rq.asset_id").
		LeftJoin("users u ON u.id = rq.user_id").
		OrderBy("rq.request_date ASC", "rq.seq ASC")
	if f.UserID != nil {
		b = b.Where(sq.Eq{"rq.user_id": *f.UserID})
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("requests: build list: %w", err)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, db.MapError(err, "requests: list")
	}
	defer rows.Close()

	items := make([]ListItem, 0)
	for rows.Next() {
		var it ListItem
		var status string
		if err := rows.Scan(&it.ID, &it.UserID, &it.AssetID, &it.RequestDate, &status, &it.DecidedBy, &it.DecidedAt,
			&it.AssetName, &it.UserName, &it.UserEmail); err != nil {
			return nil, db.MapError(err, "requests: scan")
		}
		it.Status = Status(status)
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, db.MapError(err, "requests: list")
	}
	return items, nil
}

// ListOrphanedAssignments finds assets an approval claimed that no Approved
// request accounts for. Assets an admin set to Assigned directly carry no
// claim and are not reported.
func (r *PGRepository) ListOrphanedAssignments(ctx context.Context) ([]Orphan, error) {
	const q = `SELECT a.id, a.name,
       COALESCE(array_agg(p.id ORDER BY p.request_date, p.seq) FILTER (WHERE p.id IS NOT NULL), '{}')
FROM assets a
LEFT JOIN requests p ON p.asset_id = a.id AND p.status = 'Pending'
WHERE a.status = 'Assigned'
  AND a.claimed_at IS NOT NULL
  AND NOT EXISTS (SELECT 1 FROM requests rq WHERE rq.asset_id = a.id AND rq.status = 'Approved')
GROUP BY a.id, a.name
ORDER BY a.name`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, db.MapError(err, "requests: list orphaned assignments")
	}
	defer rows.Close()

	var out []Orphan
	for rows.Next() {
		var o Orphan
		if err := rows.Scan(&o.AssetID, &o.AssetName, &o.PendingRequests); err != nil {
			return nil, db.MapError(err, "requests: scan orphan")
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, db.MapError(err, "requests: list orphaned assignments")
	}
	return out, nil
}

func scanRequest(row pgx.Row) (Request, error) {
	var req Request
	var status string
	if err := row.Scan(&req.ID, &req.UserID, &req.AssetID, &req.RequestDate, &status, &req.DecidedBy, &req.DecidedAt); err != nil {
		return Request{}, err
	}
	req.Status = Status(status)
	return req, nil
}

var _ Store = (*PGRepository)(nil)
