package requests

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// OrphanLister finds Assigned assets that no Approved request accounts for.
type OrphanLister interface {
	ListOrphanedAssignments(ctx context.Context) ([]Orphan, error)
}

// OrphanGauge receives the size of the last reconciliation result.
type OrphanGauge interface {
	SetOrphanedAssignments(n int)
}

// Reconciler reports assets left Assigned by an approval whose request write
// never landed. It only reports; an operator decides which pending request
// (if any) the assignment belongs to.
type Reconciler struct {
	lister OrphanLister
	gauge  OrphanGauge
	logger *slog.Logger
}

// NewReconciler constructs a Reconciler. gauge may be nil.
func NewReconciler(lister OrphanLister, gauge OrphanGauge, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{lister: lister, gauge: gauge, logger: logger}
}

// Run performs one pass and returns what it found.
func (r *Reconciler) Run(ctx context.Context) ([]Orphan, error) {
	orphans, err := r.lister.ListOrphanedAssignments(ctx)
	if err != nil {
		return nil, err
	}
	if r.gauge != nil {
		r.gauge.SetOrphanedAssignments(len(orphans))
	}
	for _, o := range orphans {
		r.logger.Warn("asset assigned without approved request",
			slog.String("asset_id", o.AssetID.String()),
			slog.String("asset_name", o.AssetName),
			slog.String("pending_requests", joinIDs(o.PendingRequests)))
	}
	if len(orphans) == 0 {
		r.logger.Debug("reconcile: no orphaned assignments")
	}
	return orphans, nil
}

func joinIDs(ids []uuid.UUID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, ",")
}
