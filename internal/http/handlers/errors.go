// Package handlers – HTTP error codes.
//
// Stable machine-readable codes supplementing HTTP statuses. Generic codes
// mirror status semantics; domain codes name the business rule that fired.
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Domain-specific:
	ErrCodeAlreadySubmitted = "already_submitted"
	ErrCodeMissingAnswer    = "missing_answer"
	ErrCodeEmailTaken       = "email_taken"
	ErrCodeBadCredentials   = "bad_credentials"
	ErrCodeUnsupportedFile  = "unsupported_file"
	ErrCodeFileTooLarge     = "file_too_large"
	ErrCodeSignInRequired   = "sign_in_required"
	ErrCodeSendInFlight     = "send_in_flight"
	ErrCodeServiceDegraded  = "service_degraded"
)
