package reports

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/assettrack/internal/shared"
)

// Type names a report kind.
type Type string

const (
	TypeAssetUsage     Type = "asset-usage"
	TypeRequestHistory Type = "request-history"
)

// ParseType validates a report type name.
func ParseType(raw string) (Type, error) {
	switch t := Type(strings.ToLower(strings.TrimSpace(raw))); t {
	case TypeAssetUsage, TypeRequestHistory:
		return t, nil
	}
	return "", fmt.Errorf("reports: unknown report type %q: %w", raw, shared.ErrValidation)
}

// AssetUsage counts assets by status.
type AssetUsage struct {
	TotalAssets      int `json:"totalAssets"`
	Available        int `json:"available"`
	Assigned         int `json:"assigned"`
	UnderMaintenance int `json:"underMaintenance"`
}

// HistoryEntry is one row of the request history. User and Asset read
// "Unknown" when the referenced record was deleted.
type HistoryEntry struct {
	User        string    `json:"user"`
	Asset       string    `json:"asset"`
	Status      string    `json:"status"`
	RequestDate time.Time `json:"requestDate"`
}

// UnknownName stands in for a deleted user or asset.
const UnknownName = "Unknown"

// Report is a persisted snapshot.
type Report struct {
	ID              uuid.UUID       `json:"id"`
	Type            Type            `json:"reportType"`
	GeneratedBy     uuid.UUID       `json:"generatedBy"`
	GeneratedByName string          `json:"generatedByName,omitempty"`
	GeneratedDate   time.Time       `json:"generatedDate"`
	Content         json.RawMessage `json:"content"`
}
