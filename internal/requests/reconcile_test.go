package requests

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/assettrack/internal/shared"
)

type stubLister struct {
	orphans []Orphan
	err     error
}

func (s stubLister) ListOrphanedAssignments(context.Context) ([]Orphan, error) {
	return s.orphans, s.err
}

type gaugeRecorder struct{ last int }

func (g *gaugeRecorder) SetOrphanedAssignments(n int) { g.last = n }

func TestReconcilerReportsOrphans(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))
	gauge := &gaugeRecorder{last: -1}
	pending := uuid.New()
	lister := stubLister{orphans: []Orphan{{AssetID: uuid.New(), AssetName: "Laptop", PendingRequests: []uuid.UUID{pending}}}}

	found, err := NewReconciler(lister, gauge, logger).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, 1, gauge.last)
	require.Contains(t, logs.String(), "asset assigned without approved request")
	require.Contains(t, logs.String(), pending.String())

	_, err = NewReconciler(stubLister{}, gauge, logger).Run(context.Background())
	require.NoError(t, err)
	require.Zero(t, gauge.last)
}

func TestReconcilerPropagatesStoreErrors(t *testing.T) {
	gauge := &gaugeRecorder{last: 7}
	_, err := NewReconciler(stubLister{err: shared.ErrStoreUnavailable}, gauge, nil).Run(context.Background())
	require.True(t, errors.Is(err, shared.ErrStoreUnavailable))
	require.Equal(t, 7, gauge.last, "gauge keeps the last known value on failure")
}
