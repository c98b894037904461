package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/assettrack/internal/auth"
	jobmetrics "github.com/odyssey-erp/assettrack/internal/jobs"
	"github.com/odyssey-erp/assettrack/internal/requests"
	"github.com/odyssey-erp/assettrack/internal/shared"
)

type fakeEnqueuer struct {
	tasks []*asynq.Task
	opts  [][]asynq.Option
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	f.opts = append(f.opts, opts)
	return &asynq.TaskInfo{ID: "1", Queue: QueueDefault, Type: task.Type()}, nil
}

func (f *fakeEnqueuer) Close() error { return nil }

func TestSendPasswordResetEnqueuesMail(t *testing.T) {
	enq := &fakeEnqueuer{}
	client := NewClientWith(enq)

	err := client.SendPasswordReset(context.Background(), auth.ResetMail{
		To:        "dana@example.com",
		Name:      "Dana <script>",
		URL:       "https://assets.example.com/reset-password/abc123",
		ExpiresAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, enq.tasks, 1)
	require.Equal(t, TaskTypeSendEmail, enq.tasks[0].Type())

	var payload SendEmailPayload
	require.NoError(t, json.Unmarshal(enq.tasks[0].Payload(), &payload))
	require.Equal(t, "dana@example.com", payload.To)
	require.Contains(t, payload.Body, `href="https://assets.example.com/reset-password/abc123"`)
	require.Contains(t, payload.Body, "2024-05-01 10:00 UTC")
	require.NotContains(t, payload.Body, "<script>", "names are escaped")

	enq.err = errors.New("redis down")
	require.Error(t, client.SendPasswordReset(context.Background(), auth.ResetMail{To: "x@example.com"}))
}

func TestEmailSenderDelivers(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	var gotAuth smtp.Auth
	send := func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotAuth, gotFrom, gotTo, gotMsg = addr, a, from, to, msg
		return nil
	}
	sender := NewEmailSender(SMTPConfig{Host: "mail.local", Port: 1025, From: "noreply@example.com"}, send, nil)

	task, err := NewSendEmailTask(SendEmailPayload{To: "dana@example.com", Subject: "Reset your password", Body: "<p>hi</p>"})
	require.NoError(t, err)
	require.NoError(t, sender.Handle(context.Background(), task))

	require.Equal(t, "mail.local:1025", gotAddr)
	require.Nil(t, gotAuth)
	require.Equal(t, "noreply@example.com", gotFrom)
	require.Equal(t, []string{"dana@example.com"}, gotTo)
	msg := string(gotMsg)
	require.Contains(t, msg, "Subject: Reset your password\r\n")
	require.Contains(t, msg, "Content-Type: text/html; charset=UTF-8\r\n\r\n<p>hi</p>")
}

func TestEmailSenderErrors(t *testing.T) {
	failing := func(string, smtp.Auth, string, []string, []byte) error { return errors.New("421 busy") }
	sender := NewEmailSender(SMTPConfig{Host: "mail.local", Port: 25}, failing, nil)

	err := sender.Handle(context.Background(), asynq.NewTask(TaskTypeSendEmail, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)

	task, err := NewSendEmailTask(SendEmailPayload{To: "a@b.co"})
	require.NoError(t, err)
	err = sender.Handle(context.Background(), task)
	require.Error(t, err)
	require.NotErrorIs(t, err, asynq.SkipRetry, "transport failures are retried")

	unconfigured := NewEmailSender(SMTPConfig{}, failing, nil)
	require.NoError(t, unconfigured.Handle(context.Background(), task))

	_, err = NewSendEmailTask(SendEmailPayload{})
	require.Error(t, err)
}

type cleanerFunc func(ctx context.Context) (int64, error)

func (f cleanerFunc) CleanupResetTokens(ctx context.Context) (int64, error) { return f(ctx) }

type reconcilerFunc func(ctx context.Context) ([]requests.Orphan, error)

func (f reconcilerFunc) Run(ctx context.Context) ([]requests.Orphan, error) { return f(ctx) }

func TestMaintenanceJobsRecordMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(reg)

	cleanup := NewCleanupResetTokensJob(cleanerFunc(func(context.Context) (int64, error) { return 3, nil }), nil, metrics)
	require.NoError(t, cleanup.Handle(context.Background(), NewCleanupResetTokensTask()))

	failing := NewReconcileAssignmentsJob(reconcilerFunc(func(context.Context) ([]requests.Orphan, error) {
		return nil, shared.ErrStoreUnavailable
	}), nil, metrics)
	require.ErrorIs(t, failing.Handle(context.Background(), NewReconcileAssignmentsTask()), shared.ErrStoreUnavailable)

	ok := NewReconcileAssignmentsJob(reconcilerFunc(func(context.Context) ([]requests.Orphan, error) {
		return []requests.Orphan{{AssetName: "Laptop"}}, nil
	}), nil, metrics)
	require.NoError(t, ok.Handle(context.Background(), NewReconcileAssignmentsTask()))

	expected := `
# HELP assettrack_jobs_total Total job executions partitioned by job name and status.
# TYPE assettrack_jobs_total counter
assettrack_jobs_total{job="auth:cleanup_reset_tokens",status="success"} 1
assettrack_jobs_total{job="requests:reconcile",status="failure"} 1
assettrack_jobs_total{job="requests:reconcile",status="success"} 1
# HELP assettrack_reset_tokens_cleared_total Expired password reset tokens cleared by the cleanup job.
# TYPE assettrack_reset_tokens_cleared_total counter
assettrack_reset_tokens_cleared_total 3
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"assettrack_jobs_total", "assettrack_reset_tokens_cleared_total"))

	var unconfigured *CleanupResetTokensJob
	require.Error(t, unconfigured.Handle(context.Background(), NewCleanupResetTokensTask()))
}

func TestHealthWithoutInspector(t *testing.T) {
	r := chi.NewRouter()
	r.Route("/jobs", NewHandler(nil, nil).MountRoutes)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"queue":"default","pending":0,"active":0,"scheduled":0,"retry":0,"failed":0}`, rr.Body.String())
}
