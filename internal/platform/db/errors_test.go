package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/assettrack/internal/shared"
)

func TestMapError(t *testing.T) {
	cases := []struct {
		name string
		in   error
		want error
	}{
		{name: "no rows", in: pgx.ErrNoRows, want: shared.ErrNotFound},
		{name: "unique", in: &pgconn.PgError{Code: "23505"}, want: shared.ErrDuplicate},
		{name: "foreign key", in: &pgconn.PgError{Code: "23503"}, want: shared.ErrNotFound},
		{name: "check", in: &pgconn.PgError{Code: "23514"}, want: shared.ErrValidation},
		{name: "connection", in: errors.New("dial tcp: connection refused"), want: shared.ErrStoreUnavailable},
		{name: "deadline", in: context.DeadlineExceeded, want: context.DeadlineExceeded},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := MapError(tc.in, "asset")
			require.ErrorIs(t, err, tc.want)
		})
	}
	require.NoError(t, MapError(nil, "asset"))
}

func TestMapErrorKeepsCause(t *testing.T) {
	cause := errors.New("broken pipe")
	err := MapError(cause, "request")
	require.ErrorIs(t, err, shared.ErrStoreUnavailable)
	require.ErrorIs(t, err, cause)
	require.False(t, errors.Is(MapError(context.Canceled, "request"), shared.ErrStoreUnavailable))
}
