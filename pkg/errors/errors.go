package errors

import (
	"errors"
	"fmt"
)

// ErrorType classifies application errors by how callers must react.
type ErrorType string

const (
	// ErrorTypeDecline marks an expected, non-exceptional refusal (budget
	// exceeded, voting not open, duplicate submission). Surfaced to the
	// view as a structured result, never as a raised error.
	ErrorTypeDecline ErrorType = "decline"

	// ErrorTypeTransient marks a network or service failure. Logged at the
	// action boundary and surfaced as a failed result without corrupting
	// store state.
	ErrorTypeTransient ErrorType = "transient"

	// ErrorTypeSecurity marks authorization failures, missing profiles and
	// suspected stale sessions. Always resolved by forcing a sign-out.
	ErrorTypeSecurity ErrorType = "security"

	// ErrorTypeEnrichment marks best-effort join/metadata failures that are
	// swallowed with a warning and never block the primary operation.
	ErrorTypeEnrichment ErrorType = "enrichment"

	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeInternal   ErrorType = "internal"
)

// AppError represents a structured application error.
type AppError struct {
	Type     ErrorType              `json:"type"`
	Message  string                 `json:"message"`
	Internal error                  `json:"-"`
	Details  map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Internal.Error())
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error.
func (e *AppError) Unwrap() error {
	return e.Internal
}

// NewDeclineError creates a new decline error.
func NewDeclineError(message string) *AppError {
	return &AppError{Type: ErrorTypeDecline, Message: message}
}

// NewTransientError creates a new transient service error.
func NewTransientError(message string, internal error) *AppError {
	return &AppError{Type: ErrorTypeTransient, Message: message, Internal: internal}
}

// NewSecurityError creates a new security-relevant error.
func NewSecurityError(message string, internal error) *AppError {
	return &AppError{Type: ErrorTypeSecurity, Message: message, Internal: internal}
}

// NewEnrichmentError creates a new best-effort enrichment error.
func NewEnrichmentError(message string, internal error) *AppError {
	return &AppError{Type: ErrorTypeEnrichment, Message: message, Internal: internal}
}

// NewValidationError creates a new validation error.
func NewValidationError(message string, details map[string]interface{}) *AppError {
	return &AppError{Type: ErrorTypeValidation, Message: message, Details: details}
}

// NewNotFoundError creates a new not found error.
func NewNotFoundError(message string) *AppError {
	return &AppError{Type: ErrorTypeNotFound, Message: message}
}

// NewInternalError creates a new internal error.
func NewInternalError(message string, internal error) *AppError {
	return &AppError{Type: ErrorTypeInternal, Message: message, Internal: internal}
}

// TypeOf returns the ErrorType of err, or ErrorTypeInternal for plain errors.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeInternal
}

// IsSecurity reports whether err must be resolved by forcing a sign-out.
func IsSecurity(err error) bool {
	return TypeOf(err) == ErrorTypeSecurity
}

// IsNotFound reports whether err means the record does not exist.
func IsNotFound(err error) bool {
	return TypeOf(err) == ErrorTypeNotFound
}

// IsDecline reports whether err is an expected refusal.
func IsDecline(err error) bool {
	return TypeOf(err) == ErrorTypeDecline
}
