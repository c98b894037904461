package assets_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/assettrack/internal/assets"
	"github.com/odyssey-erp/assettrack/internal/platform/db/dbtest"
	"github.com/odyssey-erp/assettrack/internal/shared"
)

func TestPGRepositoryCompareAndSet(t *testing.T) {
	pool := dbtest.Pool(t)
	repo := assets.NewRepository(pool)
	ctx := context.Background()

	a, err := repo.Create(ctx, assets.Asset{Name: "Laptop", PurchaseDate: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	require.Equal(t, assets.StatusAvailable, a.Status)

	var wins atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			err := repo.CompareAndSetStatus(gctx, a.ID, assets.StatusAvailable, assets.StatusAssigned)
			if err == nil {
				wins.Add(1)
				return nil
			}
			if errors.Is(err, shared.ErrStatusConflict) {
				return nil
			}
			return err
		})
	}
	require.NoError(t, g.Wait())
	require.EqualValues(t, 1, wins.Load())

	got, err := repo.Get(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, assets.StatusAssigned, got.Status)

	err = repo.CompareAndSetStatus(ctx, uuid.New(), assets.StatusAvailable, assets.StatusAssigned)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestPGRepositoryDeleteGuard(t *testing.T) {
	pool := dbtest.Pool(t)
	repo := assets.NewRepository(pool)
	ctx := context.Background()

	a, err := repo.Create(ctx, assets.Asset{Name: "Monitor", PurchaseDate: time.Now().UTC()})
	require.NoError(t, err)

	_, err = pool.Exec(ctx, `INSERT INTO requests (id, user_id, asset_id, request_date) VALUES ($1, $2, $3, NOW())`,
		uuid.New(), uuid.New(), a.ID)
	require.NoError(t, err)

	require.ErrorIs(t, repo.Delete(ctx, a.ID), shared.ErrAssetInUse)

	_, err = pool.Exec(ctx, `UPDATE requests SET status = 'Rejected' WHERE asset_id = $1`, a.ID)
	require.NoError(t, err)
	require.NoError(t, repo.Delete(ctx, a.ID))
	require.ErrorIs(t, repo.Delete(ctx, a.ID), shared.ErrNotFound)

	var left int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM requests WHERE asset_id = $1`, a.ID).Scan(&left))
	require.Zero(t, left)
}

func TestPGRepositoryDeleteWaitsForInFlightRequest(t *testing.T) {
	pool := dbtest.Pool(t)
	repo := assets.NewRepository(pool)
	ctx := context.Background()

	a, err := repo.Create(ctx, assets.Asset{Name: "Dock", PurchaseDate: time.Now().UTC()})
	require.NoError(t, err)

	// A request insert that has locked the asset but not committed.
	tx, err := pool.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback(ctx) }()
	var locked uuid.UUID
	require.NoError(t, tx.QueryRow(ctx, `SELECT id FROM assets WHERE id = $1 FOR SHARE`, a.ID).Scan(&locked))
	reqID := uuid.New()
	_, err = tx.Exec(ctx, `INSERT INTO requests (id, user_id, asset_id, request_date) VALUES ($1, $2, $3, NOW())`,
		reqID, uuid.New(), a.ID)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- repo.Delete(ctx, a.ID) }()
	select {
	case err := <-done:
		t.Fatalf("delete finished while the asset was locked: %v", err)
	case <-time.After(200 * time.Millisecond):
	}
	require.NoError(t, tx.Commit(ctx))

	select {
	case err := <-done:
		require.ErrorIs(t, err, shared.ErrAssetInUse)
	case <-time.After(5 * time.Second):
		t.Fatal("delete did not resume after the request committed")
	}
	var status string
	require.NoError(t, pool.QueryRow(ctx, `SELECT status FROM requests WHERE id = $1`, reqID).Scan(&status))
	require.Equal(t, "Pending", status)
}

func TestPGRepositoryListFilters(t *testing.T) {
	pool := dbtest.Pool(t)
	repo := assets.NewRepository(pool)
	ctx := context.Background()

	for _, name := range []string{"Dell Laptop", "HP Laptop", "Desk Phone"} {
		_, err := repo.Create(ctx, assets.Asset{Name: name, PurchaseDate: time.Now().UTC()})
		require.NoError(t, err)
	}
	items, total, err := repo.List(ctx, assets.ListFilters{Search: "laptop"})
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.Len(t, items, 2)

	items, total, err = repo.List(ctx, assets.ListFilters{PageRequest: shared.PageRequest{Page: 2, PerPage: 2}})
	require.NoError(t, err)
	require.Equal(t, 3, total)
	require.Len(t, items, 1)
}
