// Package errors defines the failure taxonomy of the monitoring pipeline.
// Nothing in the pipeline is fatal: every kind maps to "skip and continue"
// or "log and retry later", and Classify tells callers which one applies.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

var (
	// ErrTimeout indicates an upstream call produced no response within its bound
	ErrTimeout = errors.New("request timeout")

	// ErrParse indicates a malformed response body
	ErrParse = errors.New("malformed response")

	// ErrConnection indicates the transport was closed or could not be established
	ErrConnection = errors.New("connection failure")

	// ErrThrottled indicates an explicit rate-limit signal from upstream
	ErrThrottled = errors.New("throttled")

	// ErrPersistence indicates progress state could not be read or written
	ErrPersistence = errors.New("persistence failure")

	// ErrUpstream indicates a non-success status from an upstream API
	ErrUpstream = errors.New("upstream error")

	// ErrNotConfigured indicates a collaborator is missing required settings
	ErrNotConfigured = errors.New("not configured")

	// ErrInvalidInput indicates invalid input was provided
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyExists indicates the resource already exists
	ErrAlreadyExists = errors.New("resource already exists")
)

// Kind is the handling class of an error.
type Kind string

const (
	KindTransient   Kind = "transient"
	KindTimeout     Kind = "timeout"
	KindParse       Kind = "parse"
	KindThrottle    Kind = "throttle"
	KindConnection  Kind = "connection"
	KindPersistence Kind = "persistence"
	KindUnknown     Kind = "unknown"
)

// ThrottleError carries the server-suggested delay of a rate-limit rejection.
type ThrottleError struct {
	RetryAfter time.Duration
	Message    string
}

func (e *ThrottleError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("throttled, retry after %s: %s", e.RetryAfter, e.Message)
	}
	return fmt.Sprintf("throttled, retry after %s", e.RetryAfter)
}

func (e *ThrottleError) Unwrap() error { return ErrThrottled }

// NewThrottleError creates a throttle error
func NewThrottleError(retryAfter time.Duration, message string) *ThrottleError {
	return &ThrottleError{RetryAfter: retryAfter, Message: message}
}

// RetryAfter extracts the suggested delay from a throttle error.
func RetryAfter(err error) (time.Duration, bool) {
	var te *ThrottleError
	if errors.As(err, &te) {
		return te.RetryAfter, true
	}
	return 0, false
}

// DomainError represents a domain-specific error with additional context
type DomainError struct {
	Err       error
	Code      string
	Message   string
	Details   map[string]interface{}
	Retryable bool
}

func (e *DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Code
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new domain error
func NewDomainError(err error, code, message string) *DomainError {
	return &DomainError{
		Err:     err,
		Code:    code,
		Message: message,
	}
}

// WithDetails adds details to the error
func (e *DomainError) WithDetails(details map[string]interface{}) *DomainError {
	e.Details = details
	return e
}

// WithRetryable marks the error as retryable
func (e *DomainError) WithRetryable(retryable bool) *DomainError {
	e.Retryable = retryable
	return e
}

// ValidationError creates a validation error
func ValidationError(field, message string) *DomainError {
	return &DomainError{
		Err:     ErrInvalidInput,
		Code:    "VALIDATION_ERROR",
		Message: message,
		Details: map[string]interface{}{"field": field},
	}
}

// NotFoundError creates a not found error
func NotFoundError(resource string) *DomainError {
	return &DomainError{
		Err:     ErrNotFound,
		Code:    fmt.Sprintf("%s_NOT_FOUND", resource),
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// AlreadyExistsError creates an already exists error
func AlreadyExistsError(resource string) *DomainError {
	return &DomainError{
		Err:     ErrAlreadyExists,
		Code:    fmt.Sprintf("%s_ALREADY_EXISTS", resource),
		Message: fmt.Sprintf("%s already exists", resource),
	}
}

// Classify maps an error to its handling kind.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var netErr net.Error
	switch {
	case errors.Is(err, ErrThrottled):
		return KindThrottle
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		return KindTimeout
	case errors.Is(err, ErrParse):
		return KindParse
	case errors.Is(err, ErrConnection):
		return KindConnection
	case errors.Is(err, ErrPersistence):
		return KindPersistence
	case errors.Is(err, ErrUpstream):
		return KindTransient
	}

	var domainErr *DomainError
	if errors.As(err, &domainErr) && domainErr.Retryable {
		return KindTransient
	}
	return KindUnknown
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsInvalidInput checks if an error is an invalid input error
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsThrottled checks if an error is a throttle signal
func IsThrottled(err error) bool {
	return errors.Is(err, ErrThrottled)
}
