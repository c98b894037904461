package masterdata

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/assettrack/internal/shared"
)

// ListFilters represents standard list page filters
type ListFilters struct {
	Search string
	shared.PageRequest
}

// Location is where an asset physically lives.
type Location struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name" validate:"required,max=120"`
	CreatedAt time.Time `json:"createdAt"`
}

// Category groups assets by kind.
type Category struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name" validate:"required,max=120"`
	CreatedAt time.Time `json:"createdAt"`
}

// Supplier represents a supplier entity
type Supplier struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name" validate:"required,max=160"`
	ContactPerson string    `json:"contactPerson" validate:"max=120"`
	Email         string    `json:"email" validate:"omitempty,email"`
	Phone         string    `json:"phone" validate:"max=40"`
	Address       string    `json:"address" validate:"max=400"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Repository interface for master data operations
type Repository interface {
	ListLocations(ctx context.Context, filters ListFilters) ([]Location, int, error)
	CreateLocation(ctx context.Context, location Location) (Location, error)

	ListCategories(ctx context.Context, filters ListFilters) ([]Category, int, error)
	CreateCategory(ctx context.Context, category Category) (Category, error)

	ListSuppliers(ctx context.Context, filters ListFilters) ([]Supplier, int, error)
	CreateSupplier(ctx context.Context, supplier Supplier) (Supplier, error)
}

// Service interface for master data business logic
type Service interface {
	ListLocations(ctx context.Context, filters ListFilters) ([]Location, int, error)
	CreateLocation(ctx context.Context, location Location) (Location, error)

	ListCategories(ctx context.Context, filters ListFilters) ([]Category, int, error)
	CreateCategory(ctx context.Context, category Category) (Category, error)

	ListSuppliers(ctx context.Context, filters ListFilters) ([]Supplier, int, error)
	CreateSupplier(ctx context.Context, supplier Supplier) (Supplier, error)
}
