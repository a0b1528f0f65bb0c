// Package errors provides custom error types for the paisa core.
// All service-layer errors should use AppError so callers (HTTP handlers,
// the sync worker) can branch on stable codes without string matching.
package errors

import "net/http"

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// Validation errors. Reported to the originating input channel; a candidate
// that fails validation is never stored or enqueued for sync.
var (
	ErrMalformedAmount      = &AppError{Code: "MALFORMED_AMOUNT", Message: "Amount is not a positive number within the allowed range", StatusCode: http.StatusBadRequest}
	ErrMissingRequiredField = &AppError{Code: "MISSING_REQUIRED_FIELD", Message: "Amount and transaction type are required", StatusCode: http.StatusBadRequest}
	ErrInvalidTimestamp     = &AppError{Code: "INVALID_TIMESTAMP", Message: "Transaction date/time is unparsable or too far in the future", StatusCode: http.StatusBadRequest}
)

// Local store errors. Programmer-facing misuse; fatal to the calling
// operation only.
var (
	ErrDuplicateID         = &AppError{Code: "DUPLICATE_ID", Message: "A transaction with this ID already exists", StatusCode: http.StatusConflict}
	ErrTransactionNotFound = &AppError{Code: "NOT_FOUND", Message: "Transaction not found", StatusCode: http.StatusNotFound}
)

// Sync errors. Recoverable: the worker backs off or quarantines, it never
// drops queued data or halts.
var (
	ErrTransportFailure     = &AppError{Code: "TRANSPORT_FAILURE", Message: "Remote peer is unreachable", StatusCode: http.StatusBadGateway}
	ErrIntegrityViolation   = &AppError{Code: "INTEGRITY_VIOLATION", Message: "Synced data failed fingerprint verification", StatusCode: http.StatusConflict}
	ErrConflictUnresolvable = &AppError{Code: "CONFLICT_UNRESOLVABLE", Message: "Conflict resolution produced no winner", StatusCode: http.StatusInternalServerError}
)

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)
