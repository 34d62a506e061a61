// Package errors carries coded job errors and their BPMN representation.
package errors

import (
	"fmt"
	"time"
)

// ErrorCode is the code thrown to the process as a BPMN error.
type ErrorCode string

const (
	ErrCodeInvalidMessageInput ErrorCode = "INVALID_MESSAGE_INPUT"
	ErrCodeExternalService     ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeTimeout             ErrorCode = "TIMEOUT_ERROR"
	ErrCodeResourceNotFound    ErrorCode = "RESOURCE_NOT_FOUND"
	ErrCodeInternal            ErrorCode = "INTERNAL_ERROR"
)

type policy struct {
	retries  int
	category string
}

// policies decides how often a code is retried before it is thrown.
// Unknown codes are thrown immediately.
var policies = map[ErrorCode]policy{
	ErrCodeInvalidMessageInput: {retries: 0, category: "VALIDATION"},
	ErrCodeExternalService:     {retries: 3, category: "INFRASTRUCTURE"},
	ErrCodeTimeout:             {retries: 2, category: "INFRASTRUCTURE"},
	ErrCodeResourceNotFound:    {retries: 0, category: "INFRASTRUCTURE"},
	ErrCodeInternal:            {retries: 0, category: "INTERNAL"},
}

// StandardError is a coded error a job handler reports to the engine.
type StandardError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Retryable bool      `json:"retryable"`
	Timestamp time.Time `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

func newError(code ErrorCode, message string, cause error, details string, retryable bool) *StandardError {
	if details == "" && cause != nil {
		details = cause.Error()
	}
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// NewInvalidMessageInputError reports job variables that failed decoding or
// schema validation. It is never retried.
func NewInvalidMessageInputError(details string) *StandardError {
	return newError(ErrCodeInvalidMessageInput, "Invalid message input", nil, details, false)
}

func NewExternalServiceError(service string, err error) *StandardError {
	return newError(ErrCodeExternalService, fmt.Sprintf("%s unavailable", service), err, "", true)
}

func NewTimeoutError(service string, err error) *StandardError {
	return newError(ErrCodeTimeout, fmt.Sprintf("%s timed out", service), err, "", true)
}

func NewResourceNotFoundError(service, details string) *StandardError {
	return newError(ErrCodeResourceNotFound, fmt.Sprintf("%s resource not found", service), nil, details, false)
}

func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", err, "", false)
}

// GetRetryCount is the number of retries the engine gets for code.
func GetRetryCount(code ErrorCode) int {
	return policies[code].retries
}

func GetErrorCategory(code ErrorCode) string {
	if p, ok := policies[code]; ok {
		return p.category
	}
	return "OTHER"
}

// BPMNError is what the engine sees when a job fails or throws.
type BPMNError struct {
	Code      string
	Message   string
	Details   string
	Retryable bool
	Retries   int
	Timestamp time.Time
}

// ConvertToBPMNError keeps the code as is and zeroes retries for
// non-retryable errors.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := 0
	if stdErr.Retryable {
		retries = GetRetryCount(stdErr.Code)
	}
	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		Timestamp: stdErr.Timestamp,
	}
}

// ToErrorVariables are the process variables attached to a fail or throw.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	return map[string]interface{}{
		"errorCode":     e.Code,
		"errorMessage":  e.Message,
		"errorDetails":  e.Details,
		"errorCategory": GetErrorCategory(ErrorCode(e.Code)),
		"retryable":     e.Retryable,
		"timestamp":     e.Timestamp.Format(time.RFC3339),
	}
}
