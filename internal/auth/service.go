package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/assettrack/internal/rbac"
	"github.com/odyssey-erp/assettrack/internal/shared"
)

// Mailer delivers password reset links.
type Mailer interface {
	SendPasswordReset(ctx context.Context, mail ResetMail) error
}

// Config tunes the credential flows.
type Config struct {
	ResetTokenTTL time.Duration
	FrontendURL   string
	// AllowAdminSignup lets self-registration request the Admin role.
	AllowAdminSignup bool
	HashCost         int
}

// Service wraps authentication business rules.
type Service struct {
	repo    Repository
	tokens  *TokenIssuer
	revoked RevocationList
	mailer  Mailer
	cfg     Config
	logger  *slog.Logger
	now     func() time.Time
}

// NewService constructs a new Service.
func NewService(repo Repository, tokens *TokenIssuer, revoked RevocationList, mailer Mailer, cfg Config, logger *slog.Logger) *Service {
	if cfg.ResetTokenTTL <= 0 {
		cfg.ResetTokenTTL = time.Hour
	}
	if cfg.HashCost == 0 {
		cfg.HashCost = bcrypt.DefaultCost
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:    repo,
		tokens:  tokens,
		revoked: revoked,
		mailer:  mailer,
		cfg:     cfg,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Register creates an account and signs a token for it.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Token, error) {
	role, err := rbac.ParseRole(in.Role)
	if err != nil {
		return Token{}, err
	}
	if role == rbac.RoleAdmin && !s.cfg.AllowAdminSignup {
		return Token{}, fmt.Errorf("auth: admin self-registration disabled: %w", shared.ErrForbidden)
	}
	hash, err := HashPassword(in.Password, s.cfg.HashCost)
	if err != nil {
		return Token{}, err
	}
	user, err := s.repo.Create(ctx, User{
		Name:         strings.TrimSpace(in.Name),
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash: hash,
		Role:         role,
	})
	if err != nil {
		if errors.Is(err, shared.ErrDuplicate) {
			return Token{}, ErrEmailTaken
		}
		return Token{}, err
	}
	s.logger.Info("user registered", slog.String("user_id", user.ID.String()), slog.String("role", string(user.Role)))
	return s.tokens.Issue(user)
}

// Login validates email/password credentials and signs a token.
func (s *Service) Login(ctx context.Context, in LoginInput) (Token, error) {
	user, err := s.repo.FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Token{}, shared.ErrInvalidCredentials
		}
		return Token{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return Token{}, shared.ErrInvalidCredentials
	}
	return s.tokens.Issue(user)
}

// Logout revokes the token the principal was authenticated with.
func (s *Service) Logout(ctx context.Context, p rbac.Principal) error {
	if s.revoked == nil || p.TokenID == "" {
		return nil
	}
	return s.revoked.Revoke(ctx, p.TokenID, p.ExpiresAt)
}

// ForgotPassword stores a fresh reset token for the account and mails the
// reset link. Only the SHA-256 of the token is persisted.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	token, hash, err := newResetToken()
	if err != nil {
		return err
	}
	expiresAt := s.now().Add(s.cfg.ResetTokenTTL)
	if err := s.repo.SetResetToken(ctx, user.ID, hash, expiresAt); err != nil {
		return err
	}
	mail := ResetMail{
		To:        user.Email,
		Name:      user.Name,
		URL:       strings.TrimRight(s.cfg.FrontendURL, "/") + "/reset-password/" + token,
		ExpiresAt: expiresAt,
	}
	if err := s.mailer.SendPasswordReset(ctx, mail); err != nil {
		return fmt.Errorf("auth: queue reset mail: %w", err)
	}
	return nil
}

// ResetPassword sets a new password for the holder of an unexpired token.
func (s *Service) ResetPassword(ctx context.Context, token, password string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return shared.ErrInvalidResetToken
	}
	if len(password) < MinPasswordLen || len(password) > MaxPasswordBytes {
		return fmt.Errorf("%w: password must be 8 to 72 bytes", shared.ErrValidation)
	}
	hash, err := HashPassword(password, s.cfg.HashCost)
	if err != nil {
		return err
	}
	err = s.repo.ResetPassword(ctx, hashResetToken(token), hash, s.now())
	if errors.Is(err, shared.ErrNotFound) {
		return shared.ErrInvalidResetToken
	}
	return err
}

// CleanupResetTokens clears expired reset tokens.
func (s *Service) CleanupResetTokens(ctx context.Context) (int64, error) {
	return s.repo.ClearExpiredResetTokens(ctx, s.now())
}

// HashPassword bcrypt-hashes a password. Inputs bcrypt cannot take are
// reported as validation errors.
func HashPassword(password string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", fmt.Errorf("%w: password must not exceed %d bytes", shared.ErrValidation, MaxPasswordBytes)
	}
	if err != nil {
		return "", fmt.Errorf("auth: hash password: %w", err)
	}
	return string(b), nil
}

func newResetToken() (token, hash string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("auth: generate reset token: %w", err)
	}
	token = hex.EncodeToString(buf)
	return token, hashResetToken(token), nil
}

func hashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
