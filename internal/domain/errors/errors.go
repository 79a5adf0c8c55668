package errors

import (
	"net/http"

	"familydir/internal/errors"
)

// AppError defines the interface for application-specific errors
type AppError interface {
	error
	HTTPCode() int     // HTTP status code
	ErrorCode() string // Business error code
	Message() string   // User-friendly error message
	Details() string   // Detailed error information (optional)
}

// BaseError is a basic error structure that implements the AppError interface
type BaseError struct {
	httpCode  int
	errorCode string
	message   string
	details   string
}

// NewBaseError creates a new base error
func NewBaseError(httpCode int, errorCode, message, details string) *BaseError {
	return &BaseError{
		httpCode:  httpCode,
		errorCode: errorCode,
		message:   message,
		details:   details,
	}
}

// Error implements the error interface
func (e *BaseError) Error() string {
	return e.message
}

// WrapMessage wraps the error with additional context message
func (e *BaseError) WrapMessage(message string) error {
	return errors.Wrap(e, message)
}

// HTTPCode returns the HTTP status code
func (e *BaseError) HTTPCode() int {
	return e.httpCode
}

// ErrorCode returns the business error code
func (e *BaseError) ErrorCode() string {
	return e.errorCode
}

// Message returns the user-friendly error message
func (e *BaseError) Message() string {
	return e.message
}

// Details returns detailed error information
func (e *BaseError) Details() string {
	return e.details
}

// WithDetails adds detailed error information
func (e *BaseError) WithDetails(details string) *BaseError {
	return &BaseError{
		httpCode:  e.httpCode,
		errorCode: e.errorCode,
		message:   e.message,
		details:   details,
	}
}

// Is matches any BaseError carrying the same error code, so detailed copies still match
// their sentinel.
func (e *BaseError) Is(target error) bool {
	t, ok := target.(*BaseError)

	return ok && t.errorCode == e.errorCode
}

// Predefined error types
var (
	// Member-related errors
	ErrMemberNotFound = NewBaseError(
		http.StatusNotFound,
		"MEMBER_NOT_FOUND",
		"Member not found",
		"",
	)

	ErrInvalidMemberID = NewBaseError(
		http.StatusNotFound,
		"INVALID_MEMBER_ID",
		"Invalid member ID",
		"",
	)

	ErrRelatedMemberNotFound = NewBaseError(
		http.StatusBadRequest,
		"RELATED_MEMBER_NOT_FOUND",
		"Referenced member does not exist",
		"",
	)

	ErrSelfReference = NewBaseError(
		http.StatusBadRequest,
		"SELF_REFERENCE",
		"A member cannot be linked to itself",
		"",
	)

	// Validation-related errors
	ErrValidationFailed = NewBaseError(
		http.StatusBadRequest,
		"VALIDATION_FAILED",
		"Input validation failed",
		"",
	)

	ErrInvalidDate = NewBaseError(
		http.StatusBadRequest,
		"INVALID_DATE",
		"Invalid date format, expected DD/MM/YYYY",
		"",
	)

	ErrInvalidCoordinates = NewBaseError(
		http.StatusBadRequest,
		"INVALID_COORDINATES",
		"Latitude and longitude are required",
		"",
	)

	// Authentication-related errors
	ErrInvalidCredentials = NewBaseError(
		http.StatusUnauthorized,
		"INVALID_CREDENTIALS",
		"Invalid username or password",
		"",
	)

	ErrUnauthorized = NewBaseError(
		http.StatusUnauthorized,
		"UNAUTHORIZED",
		"Missing or invalid access token",
		"",
	)

	ErrAuthDisabled = NewBaseError(
		http.StatusNotFound,
		"AUTH_DISABLED",
		"Login is not enabled",
		"",
	)

	// Transaction-related errors
	ErrTransactionFailed = NewBaseError(
		http.StatusInternalServerError,
		"TRANSACTION_FAILED",
		"Database transaction failed",
		"",
	)

	// General errors
	ErrInternalError = NewBaseError(
		http.StatusInternalServerError,
		"INTERNAL_ERROR",
		"Internal server error",
		"",
	)
)

// DatabaseExecuteError represents a database execution error, implementing the AppError interface
type DatabaseExecuteError struct {
	err     error
	details string
}

// NewDatabaseExecuteError creates a database-related error
func NewDatabaseExecuteError(err error, details string) AppError {
	return &DatabaseExecuteError{
		err:     err,
		details: details,
	}
}

// Error implements the error interface
func (e *DatabaseExecuteError) Error() string {
	return errors.Wrap(e.err, "database execution failed").Error()
}

// HTTPCode returns the HTTP status code
func (e *DatabaseExecuteError) HTTPCode() int {
	return http.StatusInternalServerError
}

// ErrorCode returns the business error code
func (e *DatabaseExecuteError) ErrorCode() string {
	return "DATABASE_EXECUTE_FAILED"
}

// Message returns the user-friendly error message
func (e *DatabaseExecuteError) Message() string {
	return "Database execution failed"
}

// Details returns detailed error information
func (e *DatabaseExecuteError) Details() string {
	return e.details
}

// AdapterError reports a failure of an external collaborator (image store, geocoder, distance
// lookup). The adapter message is surfaced to the client unchanged.
type AdapterError struct {
	adapter string
	err     error
}

// NewAdapterError wraps err as a failure of the named adapter.
func NewAdapterError(adapter string, err error) *AdapterError {
	return &AdapterError{adapter: adapter, err: err}
}

// Error implements the error interface
func (e *AdapterError) Error() string {
	return e.adapter + ": " + e.err.Error()
}

// Unwrap exposes the adapter failure to errors.Is/As
func (e *AdapterError) Unwrap() error {
	return e.err
}

// Adapter names the failing collaborator
func (e *AdapterError) Adapter() string {
	return e.adapter
}

// HTTPCode returns the HTTP status code
func (e *AdapterError) HTTPCode() int {
	return http.StatusInternalServerError
}

// ErrorCode returns the business error code
func (e *AdapterError) ErrorCode() string {
	return "ADAPTER_FAILED"
}

// Message returns the adapter message
func (e *AdapterError) Message() string {
	return e.err.Error()
}

// Details returns detailed error information
func (e *AdapterError) Details() string {
	return e.adapter
}
