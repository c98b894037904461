package users_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/assettrack/internal/platform/db/dbtest"
	"github.com/odyssey-erp/assettrack/internal/rbac"
	"github.com/odyssey-erp/assettrack/internal/shared"
	"github.com/odyssey-erp/assettrack/internal/users"
)

func TestRepositoryRoundTrip(t *testing.T) {
	pool := dbtest.Pool(t)
	repo := users.NewRepository(pool)
	ctx := context.Background()

	a, err := repo.Create(ctx, users.User{Name: "Ari", Email: "ari@example.com", Role: rbac.RoleAdmin}, "hash-a")
	require.NoError(t, err)
	_, err = repo.Create(ctx, users.User{Name: "Bo", Email: "bo@example.com", Role: rbac.RoleUser}, "hash-b")
	require.NoError(t, err)

	_, err = repo.Create(ctx, users.User{Name: "Dup", Email: "ARI@example.com", Role: rbac.RoleUser}, "x")
	require.ErrorIs(t, err, users.ErrEmailTaken)
	require.ErrorIs(t, err, shared.ErrDuplicate)

	list, total, err := repo.List(ctx, users.ListFilters{Search: "bo"})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, "Bo", list[0].Name)

	list, total, err = repo.List(ctx, users.ListFilters{PageRequest: shared.PageRequest{Page: 2, PerPage: 1}})
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.Len(t, list, 1)
	require.Equal(t, "Bo", list[0].Name)

	a.Name = "Ari K"
	updated, err := repo.Update(ctx, a, nil)
	require.NoError(t, err)
	require.Equal(t, "Ari K", updated.Name)

	var hash string
	require.NoError(t, pool.QueryRow(ctx, `SELECT password_hash FROM users WHERE id = $1`, a.ID).Scan(&hash))
	require.Equal(t, "hash-a", hash)

	require.NoError(t, repo.Delete(ctx, a.ID))
	require.ErrorIs(t, repo.Delete(ctx, a.ID), shared.ErrNotFound)
	_, err = repo.Get(ctx, a.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}
