package model

import (
	"errors"
	"net/http"
)

// ErrorCode classifies a failure per the taxonomy in spec §7.
type ErrorCode string

const (
	ErrCodeValidation      ErrorCode = "validation"
	ErrCodeAuthRequired    ErrorCode = "auth_required"
	ErrCodeConflict        ErrorCode = "conflict"
	ErrCodeNotFound        ErrorCode = "not_found"
	ErrCodeUnsafeTarget    ErrorCode = "unsafe_target"
	ErrCodeExternalFailure ErrorCode = "external_failure"
	ErrCodeTransient       ErrorCode = "transient"
)

// httpStatus maps each ErrorCode to its default HTTP status. UnsafeTarget
// is deliberately surfaced as Validation (400) externally per spec §7: the
// client never learns that a URL was rejected specifically for SSRF reasons.
var httpStatus = map[ErrorCode]int{
	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeAuthRequired:    http.StatusUnauthorized,
	ErrCodeConflict:        http.StatusConflict,
	ErrCodeNotFound:        http.StatusNotFound,
	ErrCodeUnsafeTarget:    http.StatusBadRequest,
	ErrCodeExternalFailure: http.StatusBadGateway,
	ErrCodeTransient:       http.StatusServiceUnavailable,
}

// AppError is a typed application error carrying an ErrorCode and, for
// Conflict errors, the existing record the caller collided with.
type AppError struct {
	Code    ErrorCode
	Message string
	Details any
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// HTTPStatus returns the status code this error should surface as.
func (e *AppError) HTTPStatus() int {
	if s, ok := httpStatus[e.Code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// NewValidationError builds a Validation AppError.
func NewValidationError(message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message}
}

// NewUnsafeTargetError builds an UnsafeTarget AppError. The internal reason
// is kept in Err and never serialized to the client: HTTPStatus maps the
// code to 400 and NewAPIError writes it out as a Validation error with a
// generic message.
func NewUnsafeTargetError(reason string, cause error) *AppError {
	return &AppError{Code: ErrCodeUnsafeTarget, Message: "unsafe target: " + reason, Err: cause}
}

// NewConflictError builds a Conflict AppError, optionally carrying the
// existing record that caused the conflict (e.g. a duplicate LibraryEntry).
func NewConflictError(message string, existing any) *AppError {
	return &AppError{Code: ErrCodeConflict, Message: message, Details: existing}
}

// NewNotFoundError builds a NotFound AppError.
func NewNotFoundError(message string) *AppError {
	return &AppError{Code: ErrCodeNotFound, Message: message}
}

// NewAuthRequiredError builds an AuthRequired AppError.
func NewAuthRequiredError(message string) *AppError {
	return &AppError{Code: ErrCodeAuthRequired, Message: message}
}

// NewExternalFailureError builds an ExternalFailure AppError.
func NewExternalFailureError(message string, cause error) *AppError {
	return &AppError{Code: ErrCodeExternalFailure, Message: message, Err: cause}
}

// NewTransientError builds a Transient AppError.
func NewTransientError(message string, cause error) *AppError {
	return &AppError{Code: ErrCodeTransient, Message: message, Err: cause}
}

// AsAppError extracts an *AppError from err's chain, if present.
func AsAppError(err error) (*AppError, bool) {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
