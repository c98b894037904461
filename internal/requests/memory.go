package requests

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/assettrack/internal/shared"
)

// MemoryStore is an in-process Store. A single mutex serialises every
// operation so CompareAndSetStatus keeps its atomicity under concurrency.
type MemoryStore struct {
	mu   sync.Mutex
	seq  int64
	rows map[uuid.UUID]memoryRow
	// casFailures makes the next n CompareAndSetStatus calls fail with
	// shared.ErrStoreUnavailable without writing.
	casFailures int
	// beforeCAS runs, outside the lock, before each CompareAndSetStatus.
	beforeCAS func(id uuid.UUID, next Status)
}

type memoryRow struct {
	req Request
	seq int64
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[uuid.UUID]memoryRow)}
}

// FailNextCAS makes the next n conditional writes fail as if the store were down.
func (m *MemoryStore) FailNextCAS(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.casFailures = n
}

// BeforeCAS installs a hook run before each conditional write.
func (m *MemoryStore) BeforeCAS(fn func(id uuid.UUID, next Status)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.beforeCAS = fn
}

func (m *MemoryStore) Create(ctx context.Context, userID, assetID uuid.UUID, at time.Time) (Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	req := Request{ID: uuid.New(), UserID: userID, AssetID: assetID, RequestDate: at, Status: StatusPending}
	m.rows[req.ID] = memoryRow{req: req, seq: m.seq}
	return req, nil
}

func (m *MemoryStore) Get(ctx context.Context, id uuid.UUID) (Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return Request{}, fmt.Errorf("requests: get: %w", shared.ErrNotFound)
	}
	return row.req, nil
}

func (m *MemoryStore) CompareAndSetStatus(ctx context.Context, id uuid.UUID, expected, next Status, decidedBy uuid.UUID, at time.Time) (Request, error) {
	m.mu.Lock()
	hook := m.beforeCAS
	m.mu.Unlock()
	if hook != nil {
		hook(id, next)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return Request{}, err
	}
	if m.casFailures > 0 {
		m.casFailures--
		return Request{}, fmt.Errorf("requests: compare and set status: %w", shared.ErrStoreUnavailable)
	}
	row, ok := m.rows[id]
	if !ok {
		return Request{}, fmt.Errorf("requests: compare and set status: %w", shared.ErrNotFound)
	}
	if row.req.Status != expected {
		return Request{}, fmt.Errorf("requests: compare and set status: %w", shared.ErrStatusConflict)
	}
	row.req.Status = next
	by, when := decidedBy, at
	row.req.DecidedBy, row.req.DecidedAt = &by, &when
	m.rows[id] = row
	return row.req, nil
}

func (m *MemoryStore) List(ctx context.Context, f Filter) ([]ListItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := make([]memoryRow, 0, len(m.rows))
	for _, row := range m.rows {
		if f.UserID != nil && row.req.UserID != *f.UserID {
			continue
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].req.RequestDate.Equal(rows[j].req.RequestDate) {
			return rows[i].req.RequestDate.Before(rows[j].req.RequestDate)
		}
		return rows[i].seq < rows[j].seq
	})
	items := make([]ListItem, len(rows))
	for i, row := range rows {
		items[i] = ListItem{Request: row.req}
	}
	return items, nil
}

// HasOpen reports whether a Pending or Approved request references assetID.
func (m *MemoryStore) HasOpen(assetID uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.req.AssetID == assetID && (row.req.Status == StatusPending || row.req.Status == StatusApproved) {
			return true
		}
	}
	return false
}

var _ Store = (*MemoryStore)(nil)
