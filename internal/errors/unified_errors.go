// Package errors provides the unified error type used across the archive.
// Every I/O failure is converted into one of the kinds below at the point of
// the asynchronous call, so callers that only expect data never see raw
// transport errors.
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// ============================================================================
// ERROR TYPES AND CLASSIFICATION
// ============================================================================

// ErrorType defines the category of error for proper handling and response.
type ErrorType string

const (
	// ErrorTypeTransport covers remote reads or writes that were rejected or unreachable.
	ErrorTypeTransport ErrorType = "TRANSPORT"
	// ErrorTypeConflict covers duplicate inserts and deletes that matched nothing.
	ErrorTypeConflict ErrorType = "CONFLICT"
	// ErrorTypeAuthRequired is returned when a mutation is attempted without an identity.
	ErrorTypeAuthRequired ErrorType = "AUTH_REQUIRED"
	// ErrorTypeDanglingReference marks a like whose target item no longer resolves.
	ErrorTypeDanglingReference ErrorType = "DANGLING_REFERENCE"
	// ErrorTypePending is returned when a toggle is already in flight for the same item.
	ErrorTypePending ErrorType = "PENDING"

	ErrorTypeValidation ErrorType = "VALIDATION"
	ErrorTypeNotFound   ErrorType = "NOT_FOUND"
	ErrorTypeInternal   ErrorType = "INTERNAL"
)

// ErrorSeverity defines the severity level for logging and monitoring.
type ErrorSeverity string

const (
	SeverityLow      ErrorSeverity = "LOW"
	SeverityMedium   ErrorSeverity = "MEDIUM"
	SeverityHigh     ErrorSeverity = "HIGH"
	SeverityCritical ErrorSeverity = "CRITICAL"
)

// ============================================================================
// UNIFIED ERROR STRUCTURE
// ============================================================================

// UnifiedError is the single error type returned by the core packages.
type UnifiedError struct {
	Type    ErrorType `json:"type"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details"`

	Operation string `json:"operation"`
	Resource  string `json:"resource"`
	UserID    string `json:"userId"`
	RequestID string `json:"requestId"`

	Severity ErrorSeverity `json:"severity"`
	Cause    error         `json:"-"`

	File string `json:"file,omitempty"`
	Line int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e *UnifiedError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s:%s] %s: %s", e.Type, e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with the underlying cause.
func (e *UnifiedError) Unwrap() error {
	return e.Cause
}

// String provides a detailed string representation for logging.
func (e *UnifiedError) String() string {
	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("Error: %s\n", e.Error()))
	if e.Operation != "" {
		builder.WriteString(fmt.Sprintf("Operation: %s\n", e.Operation))
	}
	if e.Resource != "" {
		builder.WriteString(fmt.Sprintf("Resource: %s\n", e.Resource))
	}
	if e.UserID != "" {
		builder.WriteString(fmt.Sprintf("UserID: %s\n", e.UserID))
	}
	builder.WriteString(fmt.Sprintf("Severity: %s\n", e.Severity))
	if e.Cause != nil {
		builder.WriteString(fmt.Sprintf("Cause: %v\n", e.Cause))
	}
	if e.File != "" && e.Line > 0 {
		builder.WriteString(fmt.Sprintf("Location: %s:%d\n", e.File, e.Line))
	}
	return builder.String()
}

// ============================================================================
// ERROR BUILDER FOR FLUENT CONSTRUCTION
// ============================================================================

// ErrorBuilder provides a fluent interface for constructing UnifiedError instances.
type ErrorBuilder struct {
	error *UnifiedError
}

// NewError creates a new error builder with the specified type and message.
func NewError(errType ErrorType, code, message string) *ErrorBuilder {
	_, file, line, _ := runtime.Caller(2)

	return &ErrorBuilder{
		error: &UnifiedError{
			Type:     errType,
			Code:     code,
			Message:  message,
			Severity: SeverityMedium,
			File:     file,
			Line:     line,
		},
	}
}

// WithDetails adds additional details to the error.
func (b *ErrorBuilder) WithDetails(details string) *ErrorBuilder {
	b.error.Details = details
	return b
}

// WithOperation specifies the operation that failed.
func (b *ErrorBuilder) WithOperation(operation string) *ErrorBuilder {
	b.error.Operation = operation
	return b
}

// WithResource specifies the resource being operated on.
func (b *ErrorBuilder) WithResource(resource string) *ErrorBuilder {
	b.error.Resource = resource
	return b
}

// WithUserID adds user context to the error.
func (b *ErrorBuilder) WithUserID(userID string) *ErrorBuilder {
	b.error.UserID = userID
	return b
}

// WithRequestID adds request tracing information.
func (b *ErrorBuilder) WithRequestID(requestID string) *ErrorBuilder {
	b.error.RequestID = requestID
	return b
}

// WithSeverity sets the error severity.
func (b *ErrorBuilder) WithSeverity(severity ErrorSeverity) *ErrorBuilder {
	b.error.Severity = severity
	return b
}

// WithCause adds the underlying cause error.
func (b *ErrorBuilder) WithCause(cause error) *ErrorBuilder {
	b.error.Cause = cause
	if cause != nil && b.error.Details == "" {
		b.error.Details = cause.Error()
	}
	return b
}

// Build returns the constructed UnifiedError.
func (b *ErrorBuilder) Build() *UnifiedError {
	return b.error
}

// ============================================================================
// CONVENIENCE CONSTRUCTORS
// ============================================================================

// Transport creates a transport failure error.
func Transport(code, message string) *ErrorBuilder {
	return NewError(ErrorTypeTransport, code, message).
		WithSeverity(SeverityHigh)
}

// Conflict creates a constraint conflict error.
func Conflict(code, message string) *ErrorBuilder {
	return NewError(ErrorTypeConflict, code, message).
		WithSeverity(SeverityLow)
}

// AuthRequired creates an authentication required error.
func AuthRequired(code, message string) *ErrorBuilder {
	return NewError(ErrorTypeAuthRequired, code, message).
		WithSeverity(SeverityLow)
}

// Dangling creates a dangling reference error.
func Dangling(code, message string) *ErrorBuilder {
	return NewError(ErrorTypeDanglingReference, code, message).
		WithSeverity(SeverityLow)
}

// Pending creates an in-flight rejection error.
func Pending(code, message string) *ErrorBuilder {
	return NewError(ErrorTypePending, code, message).
		WithSeverity(SeverityLow)
}

// Validation creates a validation error.
func Validation(code, message string) *ErrorBuilder {
	return NewError(ErrorTypeValidation, code, message).
		WithSeverity(SeverityLow)
}

// NotFound creates a not found error.
func NotFound(code, message string) *ErrorBuilder {
	return NewError(ErrorTypeNotFound, code, message).
		WithSeverity(SeverityLow)
}

// Internal creates an internal error.
func Internal(code, message string) *ErrorBuilder {
	return NewError(ErrorTypeInternal, code, message).
		WithSeverity(SeverityHigh)
}

// ============================================================================
// ERROR CLASSIFICATION AND CHECKING
// ============================================================================

// IsType checks if an error is of a specific type.
func IsType(err error, errType ErrorType) bool {
	var unifiedErr *UnifiedError
	if errors.As(err, &unifiedErr) {
		return unifiedErr.Type == errType
	}
	return false
}

// IsTransport checks if an error is a transport failure.
func IsTransport(err error) bool {
	return IsType(err, ErrorTypeTransport)
}

// IsConflict checks if an error is a constraint conflict.
func IsConflict(err error) bool {
	return IsType(err, ErrorTypeConflict)
}

// IsAuthRequired checks if an error is an authentication required error.
func IsAuthRequired(err error) bool {
	return IsType(err, ErrorTypeAuthRequired)
}

// IsDangling checks if an error is a dangling reference.
func IsDangling(err error) bool {
	return IsType(err, ErrorTypeDanglingReference)
}

// IsPending checks if an error rejected a re-entrant toggle.
func IsPending(err error) bool {
	return IsType(err, ErrorTypePending)
}

// IsValidation checks if an error is a validation error.
func IsValidation(err error) bool {
	return IsType(err, ErrorTypeValidation)
}

// HasCode reports whether err is a UnifiedError carrying code.
func HasCode(err error, code ErrorCode) bool {
	var unifiedErr *UnifiedError
	if errors.As(err, &unifiedErr) {
		return unifiedErr.Code == code.String()
	}
	return false
}

// GetSeverity returns the severity of an error.
func GetSeverity(err error) ErrorSeverity {
	var unifiedErr *UnifiedError
	if errors.As(err, &unifiedErr) {
		return unifiedErr.Severity
	}
	return SeverityMedium
}

// ============================================================================
// ERROR WRAPPING AND CONTEXT PRESERVATION
// ============================================================================

// Wrap wraps an existing error with additional context while preserving the
// original error chain. Unknown errors become transport failures: anything
// that escapes an adapter unclassified came from the wire.
func Wrap(err error, operation, message string) *UnifiedError {
	if err == nil {
		return nil
	}

	var existingErr *UnifiedError
	if errors.As(err, &existingErr) {
		return &UnifiedError{
			Type:      existingErr.Type,
			Code:      existingErr.Code,
			Message:   message,
			Details:   existingErr.Message,
			Operation: operation,
			Resource:  existingErr.Resource,
			UserID:    existingErr.UserID,
			RequestID: existingErr.RequestID,
			Severity:  existingErr.Severity,
			Cause:     err,
			File:      existingErr.File,
			Line:      existingErr.Line,
		}
	}

	_, file, line, _ := runtime.Caller(1)
	return &UnifiedError{
		Type:      ErrorTypeTransport,
		Code:      CodeTransportFailed.String(),
		Message:   message,
		Details:   err.Error(),
		Operation: operation,
		Severity:  SeverityHigh,
		Cause:     err,
		File:      file,
		Line:      line,
	}
}

// As is errors.As, re-exported so callers importing this package under the
// name errors keep access to the standard helpers.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Is is errors.Is, re-exported for the same reason as As.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// New is errors.New.
func New(text string) error {
	return errors.New(text)
}
