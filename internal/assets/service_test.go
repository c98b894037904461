package assets

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/assettrack/internal/shared"
)

type countingInvalidator struct{ n atomic.Int32 }

func (c *countingInvalidator) Invalidate(ctx context.Context) error {
	c.n.Add(1)
	return nil
}

func TestServiceCreateUpdateDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	inv := &countingInvalidator{}
	svc := NewService(repo, inv, nil)

	created, err := svc.Create(ctx, Input{Name: "Laptop", PurchaseDate: "2024-01-15"})
	require.NoError(t, err)
	require.Equal(t, StatusAvailable, created.Status)
	require.Equal(t, 2024, created.PurchaseDate.Year())

	updated, err := svc.Update(ctx, created.ID, Input{Name: "Laptop 14", PurchaseDate: "2024-01-15", Status: "under maintenance"})
	require.NoError(t, err)
	require.Equal(t, StatusUnderMaintenance, updated.Status)
	require.Equal(t, "Laptop 14", updated.Name)

	// Omitted status keeps the current one.
	updated, err = svc.Update(ctx, created.ID, Input{Name: "Laptop 14", PurchaseDate: "2024-01-15"})
	require.NoError(t, err)
	require.Equal(t, StatusUnderMaintenance, updated.Status)

	require.NoError(t, svc.Delete(ctx, created.ID))
	_, err = svc.Get(ctx, created.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.EqualValues(t, 4, inv.n.Load())
}

func TestServiceRejectsInvalidInput(t *testing.T) {
	svc := NewService(NewMemoryRepository(), nil, nil)
	_, err := svc.Create(context.Background(), Input{Name: "Monitor", PurchaseDate: "yesterday"})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(context.Background(), Input{Name: "Monitor", PurchaseDate: "2024-01-01", Status: "Lost"})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestDeleteBlockedByOpenRequests(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	svc := NewService(repo, nil, nil)
	a, err := svc.Create(ctx, Input{Name: "Phone", PurchaseDate: "2024-03-01"})
	require.NoError(t, err)

	repo.InUse = func(id uuid.UUID) bool { return id == a.ID }
	require.ErrorIs(t, svc.Delete(ctx, a.ID), shared.ErrAssetInUse)

	repo.InUse = nil
	require.NoError(t, svc.Delete(ctx, a.ID))
	require.ErrorIs(t, svc.Delete(ctx, a.ID), shared.ErrNotFound)
}

func TestCompareAndSetStatusSingleWinner(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	a, err := repo.Create(ctx, Asset{Name: "Projector"})
	require.NoError(t, err)

	var wins atomic.Int32
	var mu sync.Mutex
	var conflicts int
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < 16; i++ {
		g.Go(func() error {
			err := repo.CompareAndSetStatus(gctx, a.ID, StatusAvailable, StatusAssigned)
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, shared.ErrStatusConflict):
				mu.Lock()
				conflicts++
				mu.Unlock()
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	require.EqualValues(t, 1, wins.Load())
	require.Equal(t, 15, conflicts)
	require.Equal(t, StatusAssigned, repo.Status(a.ID))

	require.ErrorIs(t, repo.CompareAndSetStatus(ctx, uuid.New(), StatusAvailable, StatusAssigned), shared.ErrNotFound)
}

func TestUpdateConflictsWithConcurrentStatusChange(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	a, err := repo.Create(ctx, Asset{Name: "Tablet"})
	require.NoError(t, err)
	require.NoError(t, repo.CompareAndSetStatus(ctx, a.ID, StatusAvailable, StatusAssigned))

	a.Status = StatusAvailable
	_, err = repo.Update(ctx, a, StatusAvailable)
	require.ErrorIs(t, err, shared.ErrStatusConflict)
}

func TestParseStatus(t *testing.T) {
	cases := map[string]Status{
		"":                  StatusAvailable,
		"available":         StatusAvailable,
		"ASSIGNED":          StatusAssigned,
		"Under Maintenance": StatusUnderMaintenance,
	}
	for raw, want := range cases {
		got, err := ParseStatus(raw)
		require.NoError(t, err, raw)
		require.Equal(t, want, got)
	}
	_, err := ParseStatus("Retired")
	require.ErrorIs(t, err, shared.ErrValidation)
}
