package assets

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/assettrack/internal/shared"
)

// MemoryRepository is an in-process Repository used by tests and local
// tooling. All operations hold a single mutex, so CompareAndSetStatus has
// the same atomicity as the SQL implementation.
type MemoryRepository struct {
	mu     sync.Mutex
	assets map[uuid.UUID]Asset
	// InUse reports whether open requests reference the asset. Nil means never.
	InUse func(id uuid.UUID) bool
	// Fail, when set, is returned by every call. Used to simulate outages.
	Fail error
}

// NewMemoryRepository returns an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{assets: make(map[uuid.UUID]Asset)}
}

func (m *MemoryRepository) List(ctx context.Context, f ListFilters) ([]Asset, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return nil, 0, m.Fail
	}
	items := make([]Asset, 0, len(m.assets))
	for _, a := range m.assets {
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		if f.LocationID != nil && (a.LocationID == nil || *a.LocationID != *f.LocationID) {
			continue
		}
		if f.CategoryID != nil && (a.CategoryID == nil || *a.CategoryID != *f.CategoryID) {
			continue
		}
		if f.SupplierID != nil && (a.SupplierID == nil || *a.SupplierID != *f.SupplierID) {
			continue
		}
		if s := strings.ToLower(strings.TrimSpace(f.Search)); s != "" &&
			!strings.Contains(strings.ToLower(a.Name), s) && !strings.Contains(strings.ToLower(a.Description), s) {
			continue
		}
		items = append(items, a)
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].AddedDate.Equal(items[j].AddedDate) {
			return items[i].AddedDate.After(items[j].AddedDate)
		}
		return items[i].ID.String() < items[j].ID.String()
	})
	total := len(items)
	if f.PerPage > 0 {
		start := int(f.Offset())
		if start > total {
			start = total
		}
		end := start + f.PerPage
		if end > total {
			end = total
		}
		items = items[start:end]
	}
	return items, total, nil
}

func (m *MemoryRepository) Get(ctx context.Context, id uuid.UUID) (Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return Asset{}, m.Fail
	}
	a, ok := m.assets[id]
	if !ok {
		return Asset{}, fmt.Errorf("assets: get: %w", shared.ErrNotFound)
	}
	return a, nil
}

func (m *MemoryRepository) Create(ctx context.Context, a Asset) (Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return Asset{}, m.Fail
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Status == "" {
		a.Status = StatusAvailable
	}
	if !a.Status.Valid() {
		return Asset{}, fmt.Errorf("assets: create: %w", shared.ErrValidation)
	}
	now := time.Now().UTC()
	a.AddedDate, a.UpdatedAt = now, now
	m.assets[a.ID] = a
	return a, nil
}

func (m *MemoryRepository) Update(ctx context.Context, a Asset, expected Status) (Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return Asset{}, m.Fail
	}
	cur, ok := m.assets[a.ID]
	if !ok {
		return Asset{}, fmt.Errorf("assets: update: %w", shared.ErrNotFound)
	}
	if cur.Status != expected {
		return Asset{}, fmt.Errorf("assets: update: %w", shared.ErrStatusConflict)
	}
	if !a.Status.Valid() {
		return Asset{}, fmt.Errorf("assets: update: %w", shared.ErrValidation)
	}
	a.AddedDate = cur.AddedDate
	a.UpdatedAt = time.Now().UTC()
	m.assets[a.ID] = a
	return a, nil
}

func (m *MemoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	if _, ok := m.assets[id]; !ok {
		return fmt.Errorf("assets: delete: %w", shared.ErrNotFound)
	}
	if m.InUse != nil && m.InUse(id) {
		return fmt.Errorf("assets: delete: %w", shared.ErrAssetInUse)
	}
	delete(m.assets, id)
	return nil
}

func (m *MemoryRepository) CompareAndSetStatus(ctx context.Context, id uuid.UUID, expected, next Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	a, ok := m.assets[id]
	if !ok {
		return fmt.Errorf("assets: compare and set status: %w", shared.ErrNotFound)
	}
	if a.Status != expected {
		return fmt.Errorf("assets: compare and set status: %w", shared.ErrStatusConflict)
	}
	a.Status = next
	a.UpdatedAt = time.Now().UTC()
	m.assets[id] = a
	return nil
}

// Status returns the current status of id, or "" when missing.
func (m *MemoryRepository) Status(id uuid.UUID) Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.assets[id].Status
}

var _ Repository = (*MemoryRepository)(nil)
