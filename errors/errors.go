package errors

import (
	"fmt"
	"net/http"
	"time"
)

// AppError is the custom error type carried up to the HTTP boundary
type AppError struct {
	Raw       error
	HTTPCode  int
	Code      ErrorCode
	Message   string
	Details   map[string]string
	Timestamp time.Time
}

// Error implements error interface
func (e AppError) Error() string {
	if e.Raw != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code.String(), e.Message, e.Raw)
	}
	return fmt.Sprintf("[%s] %s", e.Code.String(), e.Message)
}

// Unwrap exposes the raw cause to errors.Is / errors.As
func (e AppError) Unwrap() error {
	return e.Raw
}

// WithDetail adds a detail to the error
func (e AppError) WithDetail(key, value string) AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

func ErrInvalidArgument(message string) AppError {
	return AppError{
		HTTPCode: http.StatusBadRequest,
		Code:     ErrorCode_INVALID_ARGUMENT,
		Message:  message,
	}
}

func ErrInvalidPayload(err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusBadRequest,
		Code:     ErrorCode_INVALID_PAYLOAD,
		Message:  "Invalid payload",
	}
}

// Response data errors

func ErrCorpNotFound(corpID int64) AppError {
	return AppError{
		HTTPCode: http.StatusNotFound,
		Code:     ErrorCode_CORP_NOT_FOUND,
		Message:  "No data exists for corpId",
	}.WithDetail("corp_id", fmt.Sprintf("%d", corpID))
}

func ErrMeetingNotFound(corpID, meetingID int64) AppError {
	return AppError{
		HTTPCode: http.StatusNotFound,
		Code:     ErrorCode_MEETING_NOT_FOUND,
		Message:  "No data exists for meetingId",
	}.WithDetail("corp_id", fmt.Sprintf("%d", corpID)).
		WithDetail("meeting_id", fmt.Sprintf("%d", meetingID))
}

func ErrQuestionNotFound(corpID, meetingID, questionID int64) AppError {
	return AppError{
		HTTPCode: http.StatusNotFound,
		Code:     ErrorCode_QUESTION_NOT_FOUND,
		Message:  "No data exists for questionId",
	}.WithDetail("corp_id", fmt.Sprintf("%d", corpID)).
		WithDetail("meeting_id", fmt.Sprintf("%d", meetingID)).
		WithDetail("question_id", fmt.Sprintf("%d", questionID))
}

// ErrNoData is the "nothing to analyze" outcome: the key path exists but
// tokenization left no usable tokens.
func ErrNoData(scope string, err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusUnprocessableEntity,
		Code:     ErrorCode_NO_DATA,
		Message:  "Nothing to analyze",
	}.WithDetail("scope", scope)
}

func ErrInvalidAudio(err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusBadRequest,
		Code:     ErrorCode_INVALID_AUDIO,
		Message:  "voiceResponse is not valid base64 audio",
	}
}

// Persistence errors

func ErrSnapshotFailed(err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_SNAPSHOT_FAILED,
		Message:  "Failed to write snapshot",
	}
}

func ErrMalformedSnapshot(partition string, err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_SNAPSHOT_MALFORMED,
		Message:  "Snapshot file could not be parsed",
	}.WithDetail("partition", partition)
}

// Integration errors

// ErrUpstream wraps any collaborator failure; Raw keeps the collaborator's
// message so it reaches the caller in the envelope's info field.
func ErrUpstream(collaborator string, err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusBadGateway,
		Code:     ErrorCode_INTEGRATION_UPSTREAM_FAILED,
		Message:  fmt.Sprintf("Upstream collaborator failed: %s", collaborator),
	}.WithDetail("collaborator", collaborator)
}

// Database Errors

func ErrDBQueryFailed(query string, err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_DB_QUERY_FAILED,
		Message:  "Database query failed",
	}.WithDetail("query", query)
}

func ErrDBDisabled() AppError {
	return AppError{
		HTTPCode: http.StatusNotImplemented,
		Code:     ErrorCode_DB_DISABLED,
		Message:  "Report database is not enabled",
	}
}
