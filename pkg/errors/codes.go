package errors

import "net/http"

// ErrorCode identifies a specific failure category.  Codes are grouped by the
// module that raises them: COMMON for cross-cutting conditions, DS for the
// dataset module, RANK for the Pareto-ranking engine, GEO for polygon metrics.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common error codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeValidation         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_003"
	ErrCodeConflict           ErrorCode = "COMMON_004"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_005"
	ErrCodeTimeout            ErrorCode = "COMMON_006"
	ErrCodeSerialization      ErrorCode = "COMMON_007"
	ErrCodeDatabaseError      ErrorCode = "COMMON_008"
	ErrCodeCacheError         ErrorCode = "COMMON_009"
	ErrCodeStorageError       ErrorCode = "COMMON_010"
	ErrCodeMessagingError     ErrorCode = "COMMON_011"
	ErrCodeNotImplemented     ErrorCode = "COMMON_012"
	ErrCodeUnknown            ErrorCode = "COMMON_999"
)

// Dataset module error codes
const (
	ErrCodeDatasetNotFound    ErrorCode = "DS_001"
	ErrCodeDatasetEmpty       ErrorCode = "DS_002"
	ErrCodeDatasetParseFailed ErrorCode = "DS_003"
	ErrCodeColumnMissing      ErrorCode = "DS_004"
	ErrCodeColumnNotNumeric   ErrorCode = "DS_005"
	ErrCodeRowWidthMismatch   ErrorCode = "DS_006"
)

// Ranking module error codes
const (
	ErrCodeDirectionCountMismatch ErrorCode = "RANK_001"
	ErrCodeDirectionInvalid       ErrorCode = "RANK_002"
	ErrCodeRankerFailed           ErrorCode = "RANK_003"
	ErrCodeRankCountMismatch      ErrorCode = "RANK_004"
	ErrCodeSnapshotFailed         ErrorCode = "RANK_005"
	ErrCodeRankingNotFound        ErrorCode = "RANK_006"
)

// Geometry module error codes
const (
	ErrCodePolygonInvalid          ErrorCode = "GEO_001"
	ErrCodePolygonReferenceInvalid ErrorCode = "GEO_002"
)

// Aliases kept for call-site brevity.
const (
	CodeInternal   = ErrCodeInternal
	CodeValidation = ErrCodeValidation
	CodeNotFound   = ErrCodeNotFound
	CodeConflict   = ErrCodeConflict
	CodeUnknown    = ErrCodeUnknown
	CodeOK         = ErrorCode("OK")
)

// HTTPStatus maps an ErrorCode to the HTTP status the API layer should return
// for it.  Unknown codes map to 500 so that new codes fail safe.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeValidation, ErrCodeDirectionCountMismatch, ErrCodeDirectionInvalid,
		ErrCodeColumnMissing, ErrCodeColumnNotNumeric, ErrCodeRowWidthMismatch,
		ErrCodeDatasetEmpty, ErrCodeDatasetParseFailed,
		ErrCodePolygonInvalid, ErrCodePolygonReferenceInvalid:
		return http.StatusBadRequest
	case ErrCodeNotFound, ErrCodeDatasetNotFound, ErrCodeRankingNotFound:
		return http.StatusNotFound
	case ErrCodeConflict:
		return http.StatusConflict
	case ErrCodeServiceUnavailable, ErrCodeCacheError:
		return http.StatusServiceUnavailable
	case ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case ErrCodeNotImplemented:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}
