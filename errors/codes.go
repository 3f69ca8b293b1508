package errors

// ErrorCode is the application-level error code returned in every error envelope
type ErrorCode int32

const (
	ErrorCode_HTTP_OK ErrorCode = 0

	// General
	ErrorCode_INTERNAL         ErrorCode = 1000
	ErrorCode_INVALID_ARGUMENT ErrorCode = 1001
	ErrorCode_NOT_FOUND        ErrorCode = 1002
	ErrorCode_INVALID_PAYLOAD  ErrorCode = 1003

	// Response data
	ErrorCode_CORP_NOT_FOUND     ErrorCode = 2000
	ErrorCode_MEETING_NOT_FOUND  ErrorCode = 2001
	ErrorCode_QUESTION_NOT_FOUND ErrorCode = 2002
	ErrorCode_NO_DATA            ErrorCode = 2003
	ErrorCode_INVALID_AUDIO      ErrorCode = 2004

	// Persistence
	ErrorCode_SNAPSHOT_FAILED    ErrorCode = 3000
	ErrorCode_SNAPSHOT_MALFORMED ErrorCode = 3001

	// Integration
	ErrorCode_INTEGRATION_UPSTREAM_FAILED ErrorCode = 5003

	// Database
	ErrorCode_DB_QUERY_FAILED ErrorCode = 6000
	ErrorCode_DB_DISABLED     ErrorCode = 6001
)

var errorCodeNames = map[ErrorCode]string{
	ErrorCode_HTTP_OK:                     "HTTP_OK",
	ErrorCode_INTERNAL:                    "INTERNAL",
	ErrorCode_INVALID_ARGUMENT:            "INVALID_ARGUMENT",
	ErrorCode_NOT_FOUND:                   "NOT_FOUND",
	ErrorCode_INVALID_PAYLOAD:             "INVALID_PAYLOAD",
	ErrorCode_CORP_NOT_FOUND:              "CORP_NOT_FOUND",
	ErrorCode_MEETING_NOT_FOUND:           "MEETING_NOT_FOUND",
	ErrorCode_QUESTION_NOT_FOUND:          "QUESTION_NOT_FOUND",
	ErrorCode_NO_DATA:                     "NO_DATA",
	ErrorCode_INVALID_AUDIO:               "INVALID_AUDIO",
	ErrorCode_SNAPSHOT_FAILED:             "SNAPSHOT_FAILED",
	ErrorCode_SNAPSHOT_MALFORMED:          "SNAPSHOT_MALFORMED",
	ErrorCode_INTEGRATION_UPSTREAM_FAILED: "INTEGRATION_UPSTREAM_FAILED",
	ErrorCode_DB_QUERY_FAILED:             "DB_QUERY_FAILED",
	ErrorCode_DB_DISABLED:                 "DB_DISABLED",
}

// String returns the symbolic name of the code
func (c ErrorCode) String() string {
	if name, ok := errorCodeNames[c]; ok {
		return name
	}
	return "UNKNOWN"
}
