package errors

import "net/http"

// ErrorCode identifies a failure category. Codes are prefixed by the module
// that owns them so log lines and API payloads can be grouped by origin.
type ErrorCode string

// String returns the code literal.
func (c ErrorCode) String() string {
	return string(c)
}

const (
	// CodeOK is returned by GetCode for a nil error.
	CodeOK ErrorCode = ""
	// CodeUnknown is returned by GetCode for an error that carries no AppError.
	CodeUnknown ErrorCode = "UNKNOWN"
)

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
	ErrCodeFeatureDisabled    ErrorCode = "COMMON_015"
)

// Cheque Error Codes
const (
	ErrCodeChequeNotFound           ErrorCode = "CHQ_001"
	ErrCodeChequeInvalidDate        ErrorCode = "CHQ_002"
	ErrCodeChequeInvalidStatus      ErrorCode = "CHQ_003"
	ErrCodeChequeInvalidAmount      ErrorCode = "CHQ_004"
	ErrCodeChequeMissingField       ErrorCode = "CHQ_005"
	ErrCodeChequeUnknownStage       ErrorCode = "CHQ_006"
	ErrCodeClassificationFailed     ErrorCode = "CHQ_007"
	ErrCodeChequeSnapshotUnreadable ErrorCode = "CHQ_008"
)

// Report Error Codes
const (
	ErrCodeReportAggregationFailed ErrorCode = "RPT_001"
	ErrCodeReportRenderFailed      ErrorCode = "RPT_002"
	ErrCodeReportFormatUnsupported ErrorCode = "RPT_003"
)

// Infrastructure Error Codes
const (
	ErrCodeMessageQueueError ErrorCode = "INFRA_001"
	ErrCodeStorageError      ErrorCode = "INFRA_002"
	ErrCodeMigrationFailed   ErrorCode = "INFRA_003"
	ErrCodeConfigInvalid     ErrorCode = "INFRA_004"
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,
	ErrCodeFeatureDisabled:    http.StatusForbidden,

	ErrCodeChequeNotFound:           http.StatusNotFound,
	ErrCodeChequeInvalidDate:        http.StatusUnprocessableEntity,
	ErrCodeChequeInvalidStatus:      http.StatusUnprocessableEntity,
	ErrCodeChequeInvalidAmount:      http.StatusUnprocessableEntity,
	ErrCodeChequeMissingField:       http.StatusUnprocessableEntity,
	ErrCodeChequeUnknownStage:       http.StatusBadRequest,
	ErrCodeClassificationFailed:     http.StatusUnprocessableEntity,
	ErrCodeChequeSnapshotUnreadable: http.StatusInternalServerError,

	ErrCodeReportAggregationFailed: http.StatusInternalServerError,
	ErrCodeReportRenderFailed:      http.StatusInternalServerError,
	ErrCodeReportFormatUnsupported: http.StatusBadRequest,

	ErrCodeMessageQueueError: http.StatusInternalServerError,
	ErrCodeStorageError:      http.StatusInternalServerError,
	ErrCodeMigrationFailed:   http.StatusInternalServerError,
	ErrCodeConfigInvalid:     http.StatusInternalServerError,
}

// HTTPStatusForCode returns the HTTP status for code, defaulting to 500.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// ModuleForCode returns the module prefix of a code ("CHQ", "COMMON", ...).
func ModuleForCode(code ErrorCode) string {
	s := string(code)
	for i := 0; i < len(s); i++ {
		if s[i] == '_' {
			return s[:i]
		}
	}
	return s
}
