package rbac

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/assettrack/internal/shared"
)

// Role is the coarse caller role carried by every credential.
type Role string

const (
	// RoleAdmin manages the catalog and decides requests.
	RoleAdmin Role = "Admin"
	// RoleUser is an employee borrowing assets.
	RoleUser Role = "User"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// ParseRole normalises a role name. An empty value yields RoleUser, matching
// the default applied when accounts are created without a role.
func ParseRole(raw string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return RoleUser, nil
	case "admin":
		return RoleAdmin, nil
	case "user":
		return RoleUser, nil
	default:
		return "", fmt.Errorf("rbac: unknown role %q: %w", raw, shared.ErrValidation)
	}
}

// Principal describes the authenticated actor resolved from a credential.
type Principal struct {
	UserID    uuid.UUID
	Role      Role
	TokenID   string
	ExpiresAt time.Time
}
