package requests

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/assettrack/internal/shared"
)

// Status is the lifecycle state of a request.
type Status string

const (
	StatusPending  Status = "Pending"
	StatusApproved Status = "Approved"
	StatusRejected Status = "Rejected"
)

// Terminal reports whether no further transition is allowed from s.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Decision is an administrator's verdict on a pending request.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// ParseDecision accepts either the verb (approve, reject) or the target
// status name (Approved, Rejected).
func ParseDecision(raw string) (Decision, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "approve", "approved":
		return DecisionApprove, nil
	case "reject", "rejected":
		return DecisionReject, nil
	}
	return "", fmt.Errorf("requests: unknown decision %q: %w", raw, shared.ErrValidation)
}

// Target returns the status a successful decision moves the request to.
func (d Decision) Target() Status {
	if d == DecisionApprove {
		return StatusApproved
	}
	return StatusRejected
}

// Request is an employee's claim on an asset.
type Request struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"userId"`
	AssetID     uuid.UUID  `json:"assetId"`
	RequestDate time.Time  `json:"requestDate"`
	Status      Status     `json:"status"`
	DecidedBy   *uuid.UUID `json:"decidedBy,omitempty"`
	DecidedAt   *time.Time `json:"decidedAt,omitempty"`
}

// ListItem is a request with the names of what it references. Names are
// empty when the referenced record no longer exists.
type ListItem struct {
	Request
	AssetName string `json:"assetName"`
	UserName  string `json:"userName"`
	UserEmail string `json:"userEmail"`
}

// Filter scopes a listing. A nil UserID lists every request.
type Filter struct {
	UserID *uuid.UUID
}

// All lists every request.
func All() Filter { return Filter{} }

// ByUser lists the requests owned by userID.
func ByUser(userID uuid.UUID) Filter { return Filter{UserID: &userID} }
