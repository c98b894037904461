package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/smtp"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/assettrack/internal/auth"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
	// TaskCleanupResetTokens clears expired password reset tokens.
	TaskCleanupResetTokens = "auth:cleanup_reset_tokens"
	// TaskReconcileAssignments reports assets assigned without an approved request.
	TaskReconcileAssignments = "requests:reconcile"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	if strings.TrimSpace(payload.To) == "" {
		return nil, errors.New("jobs: email recipient required")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

var resetTemplate = template.Must(template.New("reset").Parse(`<p>Hello {{.Name}},</p>
<p>We received a request to reset your password. Follow the link below to choose a new one:</p>
<p><a href="{{.URL}}">{{.URL}}</a></p>
<p>The link expires at {{.ExpiresAt.Format "2006-01-02 15:04 MST"}}. If you did not ask for this, ignore this email.</p>
`))

// RenderPasswordReset builds the reset email for mail.
func RenderPasswordReset(mail auth.ResetMail) (SendEmailPayload, error) {
	var buf bytes.Buffer
	if err := resetTemplate.Execute(&buf, mail); err != nil {
		return SendEmailPayload{}, fmt.Errorf("jobs: render reset mail: %w", err)
	}
	return SendEmailPayload{To: mail.To, Subject: "Reset your password", Body: buf.String()}, nil
}

// SMTPConfig points the mail sender at a relay.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SendFunc matches smtp.SendMail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailSender delivers TaskTypeSendEmail tasks over SMTP.
type EmailSender struct {
	cfg    SMTPConfig
	send   SendFunc
	logger *slog.Logger
	now    func() time.Time
}

// NewEmailSender constructs the SMTP handler. A nil send uses smtp.SendMail.
func NewEmailSender(cfg SMTPConfig, send SendFunc, logger *slog.Logger) *EmailSender {
	if send == nil {
		send = smtp.SendMail
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EmailSender{cfg: cfg, send: send, logger: logger, now: time.Now}
}

// Handle processes TaskTypeSendEmail tasks.
func (s *EmailSender) Handle(ctx context.Context, t *asynq.Task) error {
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("jobs: decode email payload: %v: %w", err, asynq.SkipRetry)
	}
	if s.cfg.Host == "" {
		s.logger.Warn("smtp not configured, dropping email", slog.String("to", payload.To), slog.String("subject", payload.Subject))
		return nil
	}
	var a smtp.Auth
	if s.cfg.Username != "" {
		a = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	if err := s.send(addr, a, s.cfg.From, []string{payload.To}, s.message(payload)); err != nil {
		return fmt.Errorf("jobs: send email: %w", err)
	}
	s.logger.Info("email sent", slog.String("to", payload.To), slog.String("subject", payload.Subject))
	return nil
}

func (s *EmailSender) message(p SendEmailPayload) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", p.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", p.Subject)
	fmt.Fprintf(&b, "Date: %s\r\n", s.now().UTC().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
	b.WriteString(p.Body)
	return []byte(b.String())
}
