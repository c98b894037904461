package auth

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/assettrack/internal/rbac"
	"github.com/odyssey-erp/assettrack/internal/shared"
)

// Password bounds. bcrypt reads at most 72 bytes.
const (
	MinPasswordLen   = 8
	MaxPasswordBytes = 72
)

// User represents an account as seen by the credential flows.
type User struct {
	ID           uuid.UUID
	Name         string
	Email        string
	PasswordHash string
	Role         rbac.Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Token is a signed bearer credential.
type Token struct {
	Value     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// RegisterInput carries a self-registration.
type RegisterInput struct {
	Name     string `json:"name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role"`
}

// LoginInput carries credentials.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ResetMail is what the mailer needs to deliver a password reset link.
type ResetMail struct {
	To        string
	Name      string
	URL       string
	ExpiresAt time.Time
}

var (
	// ErrEmailTaken is returned when registering an email that already exists.
	ErrEmailTaken = fmt.Errorf("auth: user already exists: %w", shared.ErrDuplicate)
	// ErrInvalidToken is returned for malformed, expired or revoked bearer tokens.
	ErrInvalidToken = fmt.Errorf("auth: invalid token: %w", shared.ErrUnauthorized)
)
