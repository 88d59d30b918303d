// Package common defines the sentinel errors shared across the server
// layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Validation errors. Deterministic on the same input; the corrective
	// action is a corrected request, not a retry.
	ErrorValidation             = errors.New("validation error")
	ErrorUsernameTaken          = errors.New("username already exists")
	ErrorWeakPassword           = errors.New("password does not meet complexity requirements")
	ErrorPasswordChangeRequired = errors.New("password change required")
	ErrorEmptySearch            = errors.New("at least one search filter must be provided")

	// ErrorBlobPending reports a partial failure: the record ledger is
	// committed but the replay file write has not completed yet. The
	// background sweep keeps retrying it.
	ErrorBlobPending = errors.New("record committed but replay file write pending")
)
