package users

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/assettrack/internal/auth"
	"github.com/odyssey-erp/assettrack/internal/rbac"
)

// Service handles user business logic.
type Service struct {
	repo     RepositoryPort
	hashCost int
	logger   *slog.Logger
}

// NewService builds Service instance. A zero hashCost uses bcrypt.DefaultCost.
func NewService(repo RepositoryPort, hashCost int, logger *slog.Logger) *Service {
	if hashCost == 0 {
		hashCost = bcrypt.DefaultCost
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, hashCost: hashCost, logger: logger}
}

// List returns users matching the filters and the unpaged total.
func (s *Service) List(ctx context.Context, f ListFilters) ([]User, int, error) {
	return s.repo.List(ctx, f)
}

// Get returns a single user.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (User, error) {
	return s.repo.Get(ctx, id)
}

// Create adds an account with a hashed password.
func (s *Service) Create(ctx context.Context, in CreateInput) (User, error) {
	role, err := rbac.ParseRole(in.Role)
	if err != nil {
		return User{}, err
	}
	hash, err := s.hash(in.Password)
	if err != nil {
		return User{}, err
	}
	u, err := s.repo.Create(ctx, User{Name: strings.TrimSpace(in.Name), Email: normalizeEmail(in.Email), Role: role}, hash)
	if err != nil {
		return User{}, err
	}
	s.logger.Info("user created", slog.String("user_id", u.ID.String()), slog.String("role", string(u.Role)))
	return u, nil
}

// Update edits an account, replacing the password only when one is given.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (User, error) {
	role, err := rbac.ParseRole(in.Role)
	if err != nil {
		return User{}, err
	}
	var hash *string
	if in.Password != "" {
		h, err := s.hash(in.Password)
		if err != nil {
			return User{}, err
		}
		hash = &h
	}
	return s.repo.Update(ctx, User{ID: id, Name: strings.TrimSpace(in.Name), Email: normalizeEmail(in.Email), Role: role}, hash)
}

// Delete removes an account.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("user deleted", slog.String("user_id", id.String()))
	return nil
}

func (s *Service) hash(password string) (string, error) {
	return auth.HashPassword(password, s.hashCost)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
