// Package errors provides the standardized error type shared by the matching engine and its API.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeInterpretationFailed ErrorCode = "INTERPRETATION_FAILED"
	ErrCodeConfigurationInvalid ErrorCode = "CONFIGURATION_INVALID"

	ErrCodeSessionBusy     ErrorCode = "SESSION_BUSY"
	ErrCodeSessionClosed   ErrorCode = "SESSION_CLOSED"
	ErrCodeSessionNotFound ErrorCode = "SESSION_NOT_FOUND"

	ErrCodeUpstreamUnavailable ErrorCode = "UPSTREAM_UNAVAILABLE"
	ErrCodeCandidateInvalid    ErrorCode = "CANDIDATE_INVALID"
	ErrCodeCandidateNotFound   ErrorCode = "CANDIDATE_NOT_FOUND"

	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"
	ErrCodeOutreachFailed ErrorCode = "OUTREACH_FAILED"
	ErrCodeCancelled      ErrorCode = "CANCELLED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause, if any.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// Is matches any StandardError carrying the same code, so the sentinels below
// work with errors.Is.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithMetadata returns e after attaching a metadata entry.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// Sentinels for errors.Is comparisons.
var (
	ErrInterpretation      = &StandardError{Code: ErrCodeInterpretationFailed}
	ErrConfiguration       = &StandardError{Code: ErrCodeConfigurationInvalid}
	ErrSessionBusy         = &StandardError{Code: ErrCodeSessionBusy}
	ErrSessionClosed       = &StandardError{Code: ErrCodeSessionClosed}
	ErrSessionNotFound     = &StandardError{Code: ErrCodeSessionNotFound}
	ErrUpstreamUnavailable = &StandardError{Code: ErrCodeUpstreamUnavailable}
	ErrCandidateInvalid    = &StandardError{Code: ErrCodeCandidateInvalid}
	ErrCandidateNotFound   = &StandardError{Code: ErrCodeCandidateNotFound}
	ErrInvalidRequest      = &StandardError{Code: ErrCodeInvalidRequest}
	ErrOutreachFailed      = &StandardError{Code: ErrCodeOutreachFailed}
	ErrCancelled           = &StandardError{Code: ErrCodeCancelled}
)

// NewInterpretationError is returned only for empty or whitespace-only query text.
func NewInterpretationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInterpretationFailed,
		Message:   "Query text could not be interpreted",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewConfigurationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeConfigurationInvalid,
		Message:   "Invalid configuration",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSessionBusyError signals a turn submitted while another is in flight.
func NewSessionBusyError(sessionID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSessionBusy,
		Message:   "Session is processing another turn",
		Details:   sessionID,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewSessionClosedError(sessionID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSessionClosed,
		Message:   "Session is closed",
		Details:   sessionID,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewSessionNotFoundError(sessionID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSessionNotFound,
		Message:   "Session not found",
		Details:   sessionID,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUpstreamUnavailableError wraps a record store or external service failure.
func NewUpstreamUnavailableError(service string, err error) *StandardError {
	details := service
	if err != nil {
		details = fmt.Sprintf("%s: %v", service, err)
	}
	return &StandardError{
		Code:      ErrCodeUpstreamUnavailable,
		Message:   "Upstream service unavailable",
		Details:   details,
		Retryable: true,
		Metadata:  map[string]interface{}{"service": service},
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewCandidateInvalidError(candidateID, reason string) *StandardError {
	return &StandardError{
		Code:      ErrCodeCandidateInvalid,
		Message:   "Candidate record is malformed",
		Details:   reason,
		Retryable: false,
		Metadata:  map[string]interface{}{"candidateId": candidateID},
		Timestamp: time.Now().UTC(),
	}
}

func NewCandidateNotFoundError(candidateID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeCandidateNotFound,
		Message:   "Candidate not found",
		Details:   candidateID,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewInvalidRequestError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidRequest,
		Message:   "Invalid request",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewOutreachFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeOutreachFailed,
		Message:   "Outreach generation failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewCancelledError reports a turn abandoned because its context ended.
func NewCancelledError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCancelled,
		Message:   "Operation cancelled",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// AsStandardError extracts a StandardError from an error chain.
func AsStandardError(err error) (*StandardError, bool) {
	var se *StandardError
	if stderrors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// HTTPStatus maps an error code to the HTTP status the session API answers with.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeInterpretationFailed, ErrCodeInvalidRequest, ErrCodeCandidateInvalid:
		return http.StatusBadRequest
	case ErrCodeSessionNotFound, ErrCodeCandidateNotFound:
		return http.StatusNotFound
	case ErrCodeSessionBusy:
		return http.StatusConflict
	case ErrCodeSessionClosed:
		return http.StatusGone
	case ErrCodeUpstreamUnavailable, ErrCodeOutreachFailed:
		return http.StatusServiceUnavailable
	case ErrCodeCancelled:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

// IsRetryableErrorCode checks if an error code is retryable by the caller.
func IsRetryableErrorCode(code ErrorCode) bool {
	switch code {
	case ErrCodeSessionBusy, ErrCodeUpstreamUnavailable, ErrCodeOutreachFailed, ErrCodeCancelled:
		return true
	default:
		return false
	}
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "SESSION"):
		return "SESSION"
	case strings.HasPrefix(codeStr, "CANDIDATE"):
		return "CANDIDATE"
	case strings.Contains(codeStr, "UPSTREAM") || strings.Contains(codeStr, "OUTREACH"):
		return "UPSTREAM"
	case strings.Contains(codeStr, "INTERPRETATION") || strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
