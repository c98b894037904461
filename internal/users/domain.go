package users

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/assettrack/internal/rbac"
	"github.com/odyssey-erp/assettrack/internal/shared"
)

// User represents a user account for management. The password hash never
// leaves the repository.
type User struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      rbac.Role `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CreateInput carries the fields of a new account.
type CreateInput struct {
	Name     string `json:"name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role"`
}

// UpdateInput edits an account. An empty Password keeps the current one.
type UpdateInput struct {
	Name     string `json:"name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"omitempty,min=8,max=72"`
	Role     string `json:"role"`
}

// ListFilters narrows the user listing.
type ListFilters struct {
	Role   rbac.Role
	Search string
	shared.PageRequest
}

// ErrEmailTaken is returned when another account already uses the email.
var ErrEmailTaken = fmt.Errorf("users: email already registered: %w", shared.ErrDuplicate)
