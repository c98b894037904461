// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/odyssey-erp/assettrack/internal/shared"
)

type problemKind struct {
	err    error
	status int
	title  string
	kind   string
}

// Ordered from most to least specific: wrapped errors may match several.
var problemKinds = []problemKind{
	{shared.ErrAssetNoLongerAvailable, http.StatusConflict, "Asset No Longer Available", "asset_no_longer_available"},
	{shared.ErrAssetUnavailable, http.StatusConflict, "Asset Unavailable", "asset_unavailable"},
	{shared.ErrInvalidTransition, http.StatusConflict, "Invalid Transition", "invalid_transition"},
	{shared.ErrAssetInUse, http.StatusConflict, "Asset In Use", "asset_in_use"},
	{shared.ErrStatusConflict, http.StatusConflict, "Conflict", "conflict"},
	{shared.ErrDuplicate, http.StatusConflict, "Duplicate", "duplicate"},
	{shared.ErrInvalidCredentials, http.StatusBadRequest, "Invalid Credentials", "invalid_credentials"},
	{shared.ErrInvalidResetToken, http.StatusBadRequest, "Invalid Reset Token", "invalid_reset_token"},
	{shared.ErrValidation, http.StatusBadRequest, "Validation Failed", "validation"},
	{shared.ErrNotFound, http.StatusNotFound, "Not Found", "not_found"},
	{shared.ErrForbidden, http.StatusForbidden, "Forbidden", "forbidden"},
	{shared.ErrUnauthorized, http.StatusUnauthorized, "Unauthorized", "unauthorized"},
	{shared.ErrStoreUnavailable, http.StatusServiceUnavailable, "Store Unavailable", "store_unavailable"},
}

// StatusFor returns the HTTP status code an error maps to.
func StatusFor(err error) int {
	for _, pk := range problemKinds {
		if errors.Is(err, pk.err) {
			return pk.status
		}
	}
	return http.StatusInternalServerError
}

// RespondError maps domain errors to HTTP responses using RFC7807.
// Store failures and unknown errors never leak their detail.
func RespondError(w http.ResponseWriter, err error) {
	for _, pk := range problemKinds {
		if !errors.Is(err, pk.err) {
			continue
		}
		detail := err.Error()
		if pk.err == shared.ErrStoreUnavailable {
			detail = ""
		}
		writeProblem(w, ProblemDetail{Type: pk.kind, Title: pk.title, Status: pk.status, Detail: detail})
		return
	}
	Problem(w, http.StatusInternalServerError, "Internal Error", "")
}
