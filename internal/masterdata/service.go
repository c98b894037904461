package masterdata

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/unicode/norm"

	"github.com/odyssey-erp/assettrack/internal/platform/httpx"
)

// service implements Service interface
type service struct {
	repo     Repository
	validate *validator.Validate
}

// NewService creates a new master data service
func NewService(repo Repository) Service {
	return &service{repo: repo, validate: validator.New()}
}

// Location operations
func (s *service) ListLocations(ctx context.Context, filters ListFilters) ([]Location, int, error) {
	return s.repo.ListLocations(ctx, filters)
}

func (s *service) CreateLocation(ctx context.Context, location Location) (Location, error) {
	location.Name = normalizeName(location.Name)
	if err := httpx.Validate(s.validate, location); err != nil {
		return Location{}, err
	}
	return s.repo.CreateLocation(ctx, location)
}

// Category operations
func (s *service) ListCategories(ctx context.Context, filters ListFilters) ([]Category, int, error) {
	return s.repo.ListCategories(ctx, filters)
}

func (s *service) CreateCategory(ctx context.Context, category Category) (Category, error) {
	category.Name = normalizeName(category.Name)
	if err := httpx.Validate(s.validate, category); err != nil {
		return Category{}, err
	}
	return s.repo.CreateCategory(ctx, category)
}

// Supplier operations
func (s *service) ListSuppliers(ctx context.Context, filters ListFilters) ([]Supplier, int, error) {
	return s.repo.ListSuppliers(ctx, filters)
}

func (s *service) CreateSupplier(ctx context.Context, supplier Supplier) (Supplier, error) {
	supplier.Name = normalizeName(supplier.Name)
	supplier.Email = strings.TrimSpace(supplier.Email)
	if err := httpx.Validate(s.validate, supplier); err != nil {
		return Supplier{}, err
	}
	return s.repo.CreateSupplier(ctx, supplier)
}

// normalizeName composes unicode and collapses whitespace so names that
// render identically hit the same unique index.
func normalizeName(raw string) string {
	return strings.Join(strings.Fields(norm.NFC.String(raw)), " ")
}
