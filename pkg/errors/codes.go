package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeUnauthorized       ErrorCode = "COMMON_003"
	ErrCodeForbidden          ErrorCode = "COMMON_004"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeTooManyRequests    ErrorCode = "COMMON_007"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeMessagingError     ErrorCode = "COMMON_014"
	ErrCodeNotImplemented     ErrorCode = "COMMON_016"
)

// Aliases used by call sites that predate the module-prefixed naming.
const (
	CodeUnknown      = ErrorCode("UNKNOWN")
	CodeOK           = ErrorCode("OK")
	CodeInternal     = ErrCodeInternal
	CodeInvalidParam = ErrCodeBadRequest
	CodeNotFound     = ErrCodeNotFound
	CodeConflict     = ErrCodeConflict
	CodeDBQueryError = ErrCodeDatabaseError
	CodeCacheError   = ErrCodeCacheError
)

// Schedule Module Error Codes
const (
	ErrCodeScheduleConfiguration   ErrorCode = "SCH_001"
	ErrCodeScheduleEventNotFound   ErrorCode = "SCH_002"
	ErrCodeScheduleInvalidOverride ErrorCode = "SCH_003"
	ErrCodeScheduleAlreadyExists   ErrorCode = "SCH_004"
)

// Lifecycle Module Error Codes
const (
	ErrCodeLifecycleInvalidTransition ErrorCode = "LFC_001"
	ErrCodeLifecycleVersionConflict   ErrorCode = "LFC_002"
	ErrCodeLifecycleInvalidTable      ErrorCode = "LFC_003"
	ErrCodeLifecycleUnknownEventType  ErrorCode = "LFC_004"
)

// Correlation Module Error Codes
const (
	ErrCodeCorrelationAmbiguity ErrorCode = "COR_001"
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeForbidden:          http.StatusForbidden,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeTooManyRequests:    http.StatusTooManyRequests,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeMessagingError:     http.StatusInternalServerError,
	ErrCodeNotImplemented:     http.StatusNotImplemented,

	ErrCodeScheduleConfiguration:   http.StatusBadRequest,
	ErrCodeScheduleEventNotFound:   http.StatusNotFound,
	ErrCodeScheduleInvalidOverride: http.StatusBadRequest,
	ErrCodeScheduleAlreadyExists:   http.StatusConflict,

	ErrCodeLifecycleInvalidTransition: http.StatusUnprocessableEntity,
	ErrCodeLifecycleVersionConflict:   http.StatusConflict,
	ErrCodeLifecycleInvalidTable:      http.StatusInternalServerError,
	ErrCodeLifecycleUnknownEventType:  http.StatusUnprocessableEntity,

	ErrCodeCorrelationAmbiguity: http.StatusOK,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeUnauthorized:       "unauthorized",
	ErrCodeForbidden:          "forbidden",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeTooManyRequests:    "too many requests",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeMessagingError:     "messaging error",
	ErrCodeNotImplemented:     "not implemented",

	ErrCodeScheduleConfiguration:   "invalid contract terms",
	ErrCodeScheduleEventNotFound:   "contract event not found",
	ErrCodeScheduleInvalidOverride: "invalid date override",
	ErrCodeScheduleAlreadyExists:   "schedule already generated for contract",

	ErrCodeLifecycleInvalidTransition: "status transition not permitted",
	ErrCodeLifecycleVersionConflict:   "event was modified concurrently",
	ErrCodeLifecycleInvalidTable:      "invalid status table",
	ErrCodeLifecycleUnknownEventType:  "no status table for event type",

	ErrCodeCorrelationAmbiguity: "multiple tickets share a completion date",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError returns true if the ErrorCode corresponds to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
