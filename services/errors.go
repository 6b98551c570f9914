package services

import (
	"errors"
	"fmt"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	// ErrorTypeValidation marks Schema Gate rejections. Caller-fixable,
	// never retried automatically.
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeRange marks invalid report/read ranges. Caller-fixable.
	ErrorTypeRange ErrorType = "range"
	// ErrorTypeNotFound marks lookups of artifacts that do not exist.
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeDurability marks failed persistence writes during append.
	// Retryable by the caller; no state change occurred.
	ErrorTypeDurability ErrorType = "durability"
	// ErrorTypeIntegrity marks hash/linkage mismatches. Fatal to trust in
	// the chain from the divergent point onward.
	ErrorTypeIntegrity ErrorType = "integrity"
	// ErrorTypeSigning marks key or signature failures. Fatal to the
	// specific report request; never downgraded to an unsigned artifact.
	ErrorTypeSigning ErrorType = "signing"
	// ErrorTypeInternal marks unexpected operational failures.
	ErrorTypeInternal ErrorType = "internal"
)

// DomainError represents a structured error with additional context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// Domain error variables

var (
	// Validation errors
	ErrPayloadRejected  = NewDomainError(ErrorTypeValidation, "payload rejected by schema gate", nil)
	ErrUnknownKind      = NewDomainError(ErrorTypeValidation, "unknown payload kind", nil)
	ErrInvalidInput     = NewDomainError(ErrorTypeValidation, "invalid input", nil)

	// Range errors
	ErrInvalidRange   = NewDomainError(ErrorTypeRange, "invalid chain range", nil)
	ErrRangeOutOfBounds = NewDomainError(ErrorTypeRange, "range outside chain bounds", nil)

	// Not found errors
	ErrChainEmpty     = NewDomainError(ErrorTypeNotFound, "audit chain is empty", nil)
	ErrReportNotFound = NewDomainError(ErrorTypeNotFound, "signed report not found", nil)

	// Durability errors
	ErrAppendNotDurable = NewDomainError(ErrorTypeDurability, "append was not durably persisted", nil)

	// Integrity errors
	ErrChainTampered = NewDomainError(ErrorTypeIntegrity, "chain integrity violation detected", nil)

	// Signing errors
	ErrSigningKeyUnavailable = NewDomainError(ErrorTypeSigning, "signing key unavailable", nil)
	ErrSignatureInvalid      = NewDomainError(ErrorTypeSigning, "signature verification failed", nil)

	// Internal errors
	ErrInternal = NewDomainError(ErrorTypeInternal, "internal server error", nil)
)

// Error type checking helper functions

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return GetErrorType(err) == ErrorTypeValidation
}

// IsRangeError checks if an error is a range error
func IsRangeError(err error) bool {
	return GetErrorType(err) == ErrorTypeRange
}

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	return GetErrorType(err) == ErrorTypeNotFound
}

// IsDurabilityError checks if an error is a retryable durability error
func IsDurabilityError(err error) bool {
	return GetErrorType(err) == ErrorTypeDurability
}

// IsIntegrityError checks if an error is a chain integrity error
func IsIntegrityError(err error) bool {
	return GetErrorType(err) == ErrorTypeIntegrity
}

// IsSigningError checks if an error is a signing error
func IsSigningError(err error) bool {
	return GetErrorType(err) == ErrorTypeSigning
}

// IsInternalError checks if an error is an internal error
func IsInternalError(err error) bool {
	return GetErrorType(err) == ErrorTypeInternal
}

// GetErrorType returns the ErrorType of a domain error, or empty string if not a domain error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// GetErrorDetails returns the details map of a domain error, or nil if not a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}

// WrapError wraps an error with additional context
func WrapError(errType ErrorType, message string, err error) error {
	return NewDomainError(errType, message, err)
}

// WrapInternal wraps an error as an internal error
func WrapInternal(message string, err error) error {
	return NewDomainError(ErrorTypeInternal, message, err)
}

// WrapDurability wraps a persistence failure as a retryable durability error
func WrapDurability(message string, err error) error {
	return NewDomainError(ErrorTypeDurability, message, err)
}
