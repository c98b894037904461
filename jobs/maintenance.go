package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/assettrack/internal/jobs"
	"github.com/odyssey-erp/assettrack/internal/requests"
)

// ResetTokenCleaner clears expired reset tokens.
type ResetTokenCleaner interface {
	CleanupResetTokens(ctx context.Context) (int64, error)
}

// CleanupResetTokensJob clears expired password reset tokens.
type CleanupResetTokensJob struct {
	Cleaner ResetTokenCleaner
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewCleanupResetTokensJob initialises the cleanup handler.
func NewCleanupResetTokensJob(cleaner ResetTokenCleaner, logger *slog.Logger, metrics *jobmetrics.Metrics) *CleanupResetTokensJob {
	return &CleanupResetTokensJob{Cleaner: cleaner, Logger: logger, Metrics: metrics}
}

// NewCleanupResetTokensTask builds the payload-less cleanup task.
func NewCleanupResetTokensTask() *asynq.Task {
	return asynq.NewTask(TaskCleanupResetTokens, nil)
}

// Handle executes one cleanup pass.
func (j *CleanupResetTokensJob) Handle(ctx context.Context, _ *asynq.Task) (err error) {
	if j == nil || j.Cleaner == nil {
		return errors.New("cleanup reset tokens: handler not configured")
	}
	tracker := j.Metrics.Track(TaskCleanupResetTokens)
	defer func() { err = tracker.End(err) }()

	n, err := j.Cleaner.CleanupResetTokens(ctx)
	if err != nil {
		logger(j.Logger).Error("cleanup reset tokens failed", slog.Any("error", err))
		return err
	}
	j.Metrics.AddClearedResetTokens(n)
	logger(j.Logger).Info("cleared expired reset tokens", slog.Int64("count", n))
	return nil
}

// OrphanReconciler runs one reconciliation pass.
type OrphanReconciler interface {
	Run(ctx context.Context) ([]requests.Orphan, error)
}

// ReconcileAssignmentsJob finds assets left Assigned by an approval whose
// request write never landed.
type ReconcileAssignmentsJob struct {
	Reconciler OrphanReconciler
	Logger     *slog.Logger
	Metrics    *jobmetrics.Metrics
}

// NewReconcileAssignmentsJob initialises the reconcile handler.
func NewReconcileAssignmentsJob(r OrphanReconciler, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReconcileAssignmentsJob {
	return &ReconcileAssignmentsJob{Reconciler: r, Logger: logger, Metrics: metrics}
}

// NewReconcileAssignmentsTask builds the payload-less reconcile task.
func NewReconcileAssignmentsTask() *asynq.Task {
	return asynq.NewTask(TaskReconcileAssignments, nil)
}

// Handle executes one reconciliation pass.
func (j *ReconcileAssignmentsJob) Handle(ctx context.Context, _ *asynq.Task) (err error) {
	if j == nil || j.Reconciler == nil {
		return errors.New("reconcile assignments: handler not configured")
	}
	tracker := j.Metrics.Track(TaskReconcileAssignments)
	defer func() { err = tracker.End(err) }()

	orphans, err := j.Reconciler.Run(ctx)
	if err != nil {
		logger(j.Logger).Error("reconcile assignments failed", slog.Any("error", err))
		return err
	}
	logger(j.Logger).Info("reconcile assignments completed", slog.Int("orphans", len(orphans)))
	return nil
}

func logger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
