package errors

// ErrorCode represents a unique error code for specific error scenarios
type ErrorCode string

const (
	// Transport
	CodeTransportFailed ErrorCode = "TRANSPORT_FAILED"
	CodeCircuitOpen     ErrorCode = "CIRCUIT_OPEN"
	CodeCanceled        ErrorCode = "CANCELED"
	CodeDecodeFailed    ErrorCode = "DECODE_FAILED"

	// Constraint conflicts
	CodeLikeAlreadyExists ErrorCode = "LIKE_ALREADY_EXISTS"

	// Session
	CodeAuthRequired       ErrorCode = "AUTH_REQUIRED"
	CodeSessionExpired     ErrorCode = "SESSION_EXPIRED"
	CodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"

	// Interaction
	CodeTogglePending ErrorCode = "TOGGLE_PENDING"
	CodeToggleSettled ErrorCode = "TOGGLE_SETTLED"
	CodeNoticeNotFound ErrorCode = "NOTICE_NOT_FOUND"

	// Aggregation
	CodeDanglingLike    ErrorCode = "DANGLING_LIKE"
	CodeUnknownView     ErrorCode = "UNKNOWN_VIEW"
	CodeUnknownItemType ErrorCode = "UNKNOWN_ITEM_TYPE"

	// Validation and configuration
	CodeInvalidInput  ErrorCode = "INVALID_INPUT"
	CodeInvalidConfig ErrorCode = "INVALID_CONFIG"

	CodeInternalError ErrorCode = "INTERNAL_ERROR"
)

// HTTPStatusCode returns the appropriate HTTP status code for an error code
func (c ErrorCode) HTTPStatusCode() int {
	switch c {
	case CodeInvalidInput, CodeUnknownView, CodeUnknownItemType, CodeInvalidConfig:
		return 400
	case CodeAuthRequired, CodeSessionExpired, CodeInvalidCredentials:
		return 401
	case CodeNoticeNotFound:
		return 404
	case CodeTogglePending, CodeToggleSettled:
		return 409
	case CodeCircuitOpen:
		return 503
	case CodeTransportFailed, CodeDecodeFailed, CodeCanceled:
		return 502
	default:
		return 500
	}
}

// String returns the string representation of the error code
func (c ErrorCode) String() string {
	return string(c)
}

// StatusCode maps any error to an HTTP status, defaulting to 500 for
// errors that never went through the builder.
func StatusCode(err error) int {
	var unifiedErr *UnifiedError
	if As(err, &unifiedErr) {
		return ErrorCode(unifiedErr.Code).HTTPStatusCode()
	}
	return 500
}
