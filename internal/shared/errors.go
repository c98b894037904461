package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrForbidden indicates the caller role does not permit the operation.
	ErrForbidden = errors.New("forbidden")
	// ErrUnauthorized indicates a missing or invalid credential.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("validation failed")
	// ErrDuplicate indicates a unique constraint hit.
	ErrDuplicate = errors.New("duplicate entry")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidResetToken indicates an unknown or expired password reset token.
	ErrInvalidResetToken = errors.New("password reset token is invalid or has expired")

	// ErrAssetUnavailable is returned when a request targets an asset that is
	// missing or not Available.
	ErrAssetUnavailable = errors.New("asset not available")
	// ErrInvalidTransition is returned when deciding a request that is no longer Pending.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrAssetNoLongerAvailable is returned when an approval lost the asset compare-and-set.
	ErrAssetNoLongerAvailable = errors.New("asset no longer available")
	// ErrAssetInUse is returned when deleting an asset still referenced by open requests.
	ErrAssetInUse = errors.New("asset referenced by pending or approved requests")
	// ErrStatusConflict is returned by conditional writes whose expected status did not match.
	ErrStatusConflict = errors.New("status conflict")
	// ErrStoreUnavailable marks transient persistence failures.
	ErrStoreUnavailable = errors.New("store unavailable")
)
