package assets

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/assettrack/internal/shared"
)

// Status is the availability state of an asset.
type Status string

const (
	StatusAvailable        Status = "Available"
	StatusAssigned         Status = "Assigned"
	StatusUnderMaintenance Status = "Under Maintenance"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusAvailable, StatusAssigned, StatusUnderMaintenance:
		return true
	}
	return false
}

// ParseStatus accepts a status name case-insensitively. Empty input yields
// StatusAvailable.
func ParseStatus(raw string) (Status, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return StatusAvailable, nil
	}
	for _, s := range []Status{StatusAvailable, StatusAssigned, StatusUnderMaintenance} {
		if strings.EqualFold(trimmed, string(s)) {
			return s, nil
		}
	}
	return "", fmt.Errorf("assets: unknown status %q: %w", raw, shared.ErrValidation)
}

// Asset is a physical item that can be lent out.
type Asset struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	PurchaseDate time.Time  `json:"purchaseDate"`
	WarrantyDate *time.Time `json:"warrantyDate,omitempty"`
	Status       Status     `json:"status"`
	LocationID   *uuid.UUID `json:"locationId,omitempty"`
	CategoryID   *uuid.UUID `json:"categoryId,omitempty"`
	SupplierID   *uuid.UUID `json:"supplierId,omitempty"`
	LocationName string     `json:"location,omitempty"`
	CategoryName string     `json:"category,omitempty"`
	SupplierName string     `json:"supplier,omitempty"`
	AddedDate    time.Time  `json:"addedDate"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// ListFilters narrows asset listings.
type ListFilters struct {
	Status     Status
	LocationID *uuid.UUID
	CategoryID *uuid.UUID
	SupplierID *uuid.UUID
	Search     string
	shared.PageRequest
}

// Input is the payload accepted for create and full update.
type Input struct {
	Name         string     `json:"name" validate:"required,max=200"`
	Description  string     `json:"description" validate:"max=2000"`
	PurchaseDate string     `json:"purchaseDate" validate:"required"`
	WarrantyDate string     `json:"warrantyDate"`
	Status       string     `json:"status"`
	LocationID   *uuid.UUID `json:"location"`
	CategoryID   *uuid.UUID `json:"category"`
	SupplierID   *uuid.UUID `json:"supplier"`
}

// ToAsset converts the input into an asset, parsing dates and status.
func (in Input) ToAsset() (Asset, error) {
	purchase, err := parseDate(in.PurchaseDate)
	if err != nil {
		return Asset{}, fmt.Errorf("assets: purchaseDate: %w", err)
	}
	var warranty *time.Time
	if strings.TrimSpace(in.WarrantyDate) != "" {
		w, err := parseDate(in.WarrantyDate)
		if err != nil {
			return Asset{}, fmt.Errorf("assets: warrantyDate: %w", err)
		}
		warranty = &w
	}
	status, err := ParseStatus(in.Status)
	if err != nil {
		return Asset{}, err
	}
	return Asset{
		Name:         strings.TrimSpace(in.Name),
		Description:  strings.TrimSpace(in.Description),
		PurchaseDate: purchase,
		WarrantyDate: warranty,
		Status:       status,
		LocationID:   in.LocationID,
		CategoryID:   in.CategoryID,
		SupplierID:   in.SupplierID,
	}, nil
}

var dateLayouts = []string{"2006-01-02", time.RFC3339, time.RFC3339Nano}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: invalid date %q", shared.ErrValidation, raw)
}
