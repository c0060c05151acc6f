// Package errors provides custom error types for the Homework Assistant
// client.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	ErrNotConnected     = errors.New("not connected")
	ErrRetriesExhausted = errors.New("reconnect attempts exhausted")
	ErrNotConfigured    = errors.New("connection not configured")
	ErrInvalidResponse  = errors.New("invalid response format")
)

// ValidationError is an attachment that failed the type/size policy.
// Rule names the violated rule so the UI can surface it inline.
type ValidationError struct {
	Rule    string // "type" or "size"
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a new ValidationError
func NewValidationError(rule, message string) *ValidationError {
	return &ValidationError{Rule: rule, Message: message}
}

// IsValidationError reports whether err is a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// UploadError is a network or HTTP failure during an attachment upload.
type UploadError struct {
	StatusCode int
	Endpoint   string
	Cause      error
}

func (e *UploadError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("upload failed [%d] at %s", e.StatusCode, e.Endpoint)
	}
	return fmt.Sprintf("upload failed at %s: %v", e.Endpoint, e.Cause)
}

func (e *UploadError) Unwrap() error {
	return e.Cause
}

// NewUploadError creates a new UploadError
func NewUploadError(statusCode int, endpoint string, cause error) *UploadError {
	return &UploadError{StatusCode: statusCode, Endpoint: endpoint, Cause: cause}
}

// IsUploadError reports whether err is an UploadError.
func IsUploadError(err error) bool {
	var ue *UploadError
	return errors.As(err, &ue)
}

// ConnectionError is a transport-level failure from the realtime
// channel. Attempts counts consecutive connect errors; Exhausted is set
// once the bounded retry policy has given up.
type ConnectionError struct {
	Attempts  int
	Exhausted bool
	Cause     error
}

func (e *ConnectionError) Error() string {
	if e.Attempts > 0 {
		return fmt.Sprintf("connection failed after %d attempts: %v", e.Attempts, e.Cause)
	}
	return fmt.Sprintf("connection failed: %v", e.Cause)
}

func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// Is allows comparison with the ErrRetriesExhausted sentinel once the
// retry budget is spent.
func (e *ConnectionError) Is(target error) bool {
	if target == ErrRetriesExhausted {
		return e.Exhausted
	}
	_, ok := target.(*ConnectionError)
	return ok
}

// NewConnectionError creates a new ConnectionError
func NewConnectionError(attempts int, cause error) *ConnectionError {
	return &ConnectionError{Attempts: attempts, Cause: cause}
}

// IsConnectionError reports whether err is a ConnectionError.
func IsConnectionError(err error) bool {
	var ce *ConnectionError
	return errors.As(err, &ce)
}

// APIError is a REST request failure outside the upload flow.
type APIError struct {
	StatusCode int
	Endpoint   string
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("API error [%d] at %s: %s", e.StatusCode, e.Endpoint, e.Message)
	}
	return fmt.Sprintf("API error at %s: %s", e.Endpoint, e.Message)
}

// NewAPIError creates a new APIError
func NewAPIError(statusCode int, endpoint, message string) *APIError {
	return &APIError{StatusCode: statusCode, Endpoint: endpoint, Message: message}
}

// IsAPIError reports whether err is an APIError.
func IsAPIError(err error) bool {
	var ae *APIError
	return errors.As(err, &ae)
}

// HTTPStatus extracts an HTTP status code from upload or API errors,
// or 0 when none applies.
func HTTPStatus(err error) int {
	var ue *UploadError
	if errors.As(err, &ue) {
		return ue.StatusCode
	}
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.StatusCode
	}
	return 0
}
