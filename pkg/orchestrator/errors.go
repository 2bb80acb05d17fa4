// Package orchestrator provides the core provisioning engine for orgforge.
// It turns a composite workspace request into a dependency-ordered plan,
// executes the plan against a remote administrative API, and compensates
// (rolls back) already-created resources when a later step fails.
package orchestrator

import (
	"errors"
	"fmt"
	"time"
)

// ErrorClass classifies a provisioning error for retry and rollback decisions.
type ErrorClass string

const (
	// ClassValidation indicates bad input rejected before any remote call.
	// Never retried; bypasses rollback because nothing was created.
	ClassValidation ErrorClass = "validation"

	// ClassAuthExpired indicates the credential used for the remote API is
	// no longer valid. Terminal to this orchestration attempt; the caller
	// must refresh credentials and re-invoke.
	ClassAuthExpired ErrorClass = "auth_expired"

	// ClassPermissionDenied indicates the remote API rejected the call due
	// to insufficient rights. Terminal.
	ClassPermissionDenied ErrorClass = "permission_denied"

	// ClassConflict indicates the target resource already exists. Terminal,
	// surfaced distinctly so callers can decide to reuse or rename.
	ClassConflict ErrorClass = "conflict"

	// ClassNotFound indicates a referenced dependency vanished. Terminal.
	ClassNotFound ErrorClass = "not_found"

	// ClassRateLimited indicates the remote API throttled the call.
	// Retried with exponential backoff.
	ClassRateLimited ErrorClass = "rate_limited"

	// ClassUnavailable indicates a transient remote outage or timeout.
	// Retried with exponential backoff.
	ClassUnavailable ErrorClass = "unavailable"

	// ClassCompensationFailed indicates a rollback step itself failed.
	// Recorded in the result, never escalated to a second rollback.
	ClassCompensationFailed ErrorClass = "compensation_failed"

	// ClassInternal indicates a programming-contract violation such as a
	// malformed plan. Terminal.
	ClassInternal ErrorClass = "internal"
)

// ProvisionError is a classified error carrying orchestration context.
type ProvisionError struct {
	// Class is the error classification for retry and rollback logic.
	Class ErrorClass `json:"class"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Code is an optional error code for programmatic handling.
	Code string `json:"code,omitempty"`

	// Step is the plan step being executed when the error occurred.
	Step string `json:"step,omitempty"`

	// Resource is the remote resource involved, if known.
	Resource string `json:"resource,omitempty"`

	// RetryAfter is the backoff hint supplied by the remote API on
	// rate-limited responses. Zero when the API gave no hint.
	RetryAfter time.Duration `json:"retry_after,omitempty"`

	// Err is the underlying error.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *ProvisionError) Error() string {
	switch {
	case e.Step != "" && e.Resource != "":
		return fmt.Sprintf("[%s] %s (step=%s, resource=%s)%s",
			e.Class, e.Message, e.Step, e.Resource, e.unwrapSuffix())
	case e.Step != "":
		return fmt.Sprintf("[%s] %s (step=%s)%s", e.Class, e.Message, e.Step, e.unwrapSuffix())
	default:
		return fmt.Sprintf("[%s] %s%s", e.Class, e.Message, e.unwrapSuffix())
	}
}

// Unwrap returns the underlying error for error chain inspection.
func (e *ProvisionError) Unwrap() error {
	return e.Err
}

func (e *ProvisionError) unwrapSuffix() string {
	if e.Err != nil {
		return ": " + e.Err.Error()
	}
	return ""
}

// Is implements error equality for errors.Is. Two ProvisionErrors match
// when their class and code agree.
func (e *ProvisionError) Is(target error) bool {
	t, ok := target.(*ProvisionError)
	if !ok {
		return false
	}
	if t.Code != "" && e.Code != t.Code {
		return false
	}
	return e.Class == t.Class
}

// WithStep adds step context to an error.
func (e *ProvisionError) WithStep(step string) *ProvisionError {
	e.Step = step
	return e
}

// WithResource adds resource context to an error.
func (e *ProvisionError) WithResource(resource string) *ProvisionError {
	e.Resource = resource
	return e
}

// WithCode adds an error code to an error.
func (e *ProvisionError) WithCode(code string) *ProvisionError {
	e.Code = code
	return e
}

// NewValidationError creates a validation error.
func NewValidationError(message string, err error) *ProvisionError {
	return &ProvisionError{Class: ClassValidation, Message: message, Err: err}
}

// NewAuthExpiredError creates an expired-credential error.
func NewAuthExpiredError(message string, err error) *ProvisionError {
	return &ProvisionError{Class: ClassAuthExpired, Message: message, Err: err}
}

// NewPermissionDeniedError creates a permission-denied error.
func NewPermissionDeniedError(message string, err error) *ProvisionError {
	return &ProvisionError{Class: ClassPermissionDenied, Message: message, Err: err}
}

// NewConflictError creates a conflict error.
func NewConflictError(message string, err error) *ProvisionError {
	return &ProvisionError{Class: ClassConflict, Message: message, Err: err}
}

// NewNotFoundError creates a not-found error.
func NewNotFoundError(message string, err error) *ProvisionError {
	return &ProvisionError{Class: ClassNotFound, Message: message, Err: err}
}

// NewRateLimitedError creates a rate-limited error.
func NewRateLimitedError(message string, err error) *ProvisionError {
	return &ProvisionError{Class: ClassRateLimited, Message: message, Err: err}
}

// NewUnavailableError creates a transient-unavailability error.
func NewUnavailableError(message string, err error) *ProvisionError {
	return &ProvisionError{Class: ClassUnavailable, Message: message, Err: err}
}

// NewCompensationFailedError creates a failed-rollback error.
func NewCompensationFailedError(message string, err error) *ProvisionError {
	return &ProvisionError{Class: ClassCompensationFailed, Message: message, Err: err}
}

// NewInternalError creates an internal contract-violation error.
func NewInternalError(message string, err error) *ProvisionError {
	return &ProvisionError{Class: ClassInternal, Message: message, Err: err}
}

// ClassOf returns the classification of err, or ClassInternal when the
// error is not a ProvisionError.
func ClassOf(err error) ErrorClass {
	var e *ProvisionError
	if errors.As(err, &e) {
		return e.Class
	}
	return ClassInternal
}

// IsRetryable reports whether a call that returned err may succeed on
// retry. Only rate limiting and transient unavailability qualify;
// everything else wastes the rate budget.
func IsRetryable(err error) bool {
	switch ClassOf(err) {
	case ClassRateLimited, ClassUnavailable:
		return true
	default:
		return false
	}
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool { return ClassOf(err) == ClassValidation }

// IsAuthExpired reports whether err indicates an expired credential.
func IsAuthExpired(err error) bool { return ClassOf(err) == ClassAuthExpired }

// IsConflict reports whether err is a conflict error.
func IsConflict(err error) bool { return ClassOf(err) == ClassConflict }

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return ClassOf(err) == ClassNotFound }

// Common error codes.
const (
	ErrCodeDuplicateChannel = "DUPLICATE_CHANNEL"
	ErrCodeDuplicateMember  = "DUPLICATE_MEMBER"
	ErrCodeInvalidEmail     = "INVALID_EMAIL"
	ErrCodeEmptyName        = "EMPTY_NAME"
	ErrCodeMalformedPlan    = "MALFORMED_PLAN"
	ErrCodeRetryExhausted   = "RETRY_EXHAUSTED"
	ErrCodeRemoteCall       = "REMOTE_CALL_FAILED"
	ErrCodeCancelled        = "CANCELLED"
)
