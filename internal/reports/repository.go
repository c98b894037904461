package reports

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/assettrack/internal/platform/db"
)

// Source computes report content from live data.
type Source interface {
	AssetUsage(ctx context.Context) (AssetUsage, error)
	RequestHistory(ctx context.Context) ([]HistoryEntry, error)
}

// Store persists generated reports.
type Store interface {
	Save(ctx context.Context, r Report) (Report, error)
	// List returns reports newest first.
	List(ctx context.Context) ([]Report, error)
}

// Repository implements Source and Store on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// AssetUsage counts assets per status in one pass.
func (r *Repository) AssetUsage(ctx context.Context) (AssetUsage, error) {
	const q = `SELECT
  COUNT(*),
  COUNT(*) FILTER (WHERE status = 'Available'),
  COUNT(*) FILTER (WHERE status = 'Assigned'),
  COUNT(*) FILTER (WHERE status = 'Under Maintenance')
FROM assets`
	var u AssetUsage
	if err := r.pool.QueryRow(ctx, q).Scan(&u.TotalAssets, &u.Available, &u.Assigned, &u.UnderMaintenance); err != nil {
		return AssetUsage{}, db.MapError(err, "reports: asset usage")
	}
	return u, nil
}

// RequestHistory lists every request with the names it references.
func (r *Repository) RequestHistory(ctx context.Context) ([]HistoryEntry, error) {
	const q = `SELECT COALESCE(u.name, $1), COALESCE(a.name, $1), rq.status, rq.request_date
FROM requests rq
LEFT JOIN users u ON u.id = rq.user_id
LEFT JOIN assets a ON a.id = rq.asset_id
ORDER BY rq.request_date, rq.seq`
	rows, err := r.pool.Query(ctx, q, UnknownName)
	if err != nil {
		return nil, db.MapError(err, "reports: request history")
	}
	defer rows.Close()

	entries := make([]HistoryEntry, 0)
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.User, &e.Asset, &e.Status, &e.RequestDate); err != nil {
			return nil, db.MapError(err, "reports: scan history")
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, db.MapError(err, "reports: request history")
	}
	return entries, nil
}

// Save stores a generated report.
func (r *Repository) Save(ctx context.Context, rep Report) (Report, error) {
	const q = `INSERT INTO reports (id, report_type, generated_by, generated_date, content)
VALUES ($1, $2, $3, $4, $5)`
	if rep.ID == uuid.Nil {
		rep.ID = uuid.New()
	}
	if _, err := r.pool.Exec(ctx, q, rep.ID, string(rep.Type), rep.GeneratedBy, rep.GeneratedDate, []byte(rep.Content)); err != nil {
		return Report{}, db.MapError(err, "reports: save")
	}
	return rep, nil
}

// List implements Store.
func (r *Repository) List(ctx context.Context) ([]Report, error) {
	const q = `SELECT r.id, r.report_type, r.generated_by, COALESCE(u.name, $1), r.generated_date, r.content
FROM reports r
LEFT JOIN users u ON u.id = r.generated_by
ORDER BY r.generated_date DESC, r.id`
	rows, err := r.pool.Query(ctx, q, UnknownName)
	if err != nil {
		return nil, db.MapError(err, "reports: list")
	}
	defer rows.Close()

	out := make([]Report, 0)
	for rows.Next() {
		var rep Report
		var typ string
		var content []byte
		if err := rows.Scan(&rep.ID, &typ, &rep.GeneratedBy, &rep.GeneratedByName, &rep.GeneratedDate, &content); err != nil {
			return nil, db.MapError(err, "reports: scan")
		}
		rep.Type = Type(typ)
		rep.Content = json.RawMessage(content)
		out = append(out, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, db.MapError(err, "reports: list")
	}
	return out, nil
}

var (
	_ Source = (*Repository)(nil)
	_ Store  = (*Repository)(nil)
)
