package orchestrator

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestProvisionError_Message(t *testing.T) {
	base := errors.New("underlying")

	err := NewConflictError("workspace exists", base).
		WithStep("create-workspace").
		WithResource("workspace-1")

	msg := err.Error()
	for _, want := range []string{"conflict", "workspace exists", "create-workspace", "workspace-1", "underlying"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Expected message to contain %q, got: %s", want, msg)
		}
	}

	if !errors.Is(err, base) {
		t.Error("Expected Unwrap to reach the underlying error")
	}
}

func TestProvisionError_Is(t *testing.T) {
	err := NewRateLimitedError("throttled", nil).WithCode(ErrCodeRetryExhausted)

	if !errors.Is(err, &ProvisionError{Class: ClassRateLimited}) {
		t.Error("Expected class-only match")
	}
	if !errors.Is(err, &ProvisionError{Class: ClassRateLimited, Code: ErrCodeRetryExhausted}) {
		t.Error("Expected class+code match")
	}
	if errors.Is(err, &ProvisionError{Class: ClassRateLimited, Code: ErrCodeCancelled}) {
		t.Error("Expected code mismatch to fail")
	}
	if errors.Is(err, &ProvisionError{Class: ClassConflict}) {
		t.Error("Expected class mismatch to fail")
	}
}

func TestClassOf(t *testing.T) {
	if got := ClassOf(NewNotFoundError("gone", nil)); got != ClassNotFound {
		t.Errorf("Expected %s, got %s", ClassNotFound, got)
	}

	wrapped := fmt.Errorf("wrapped: %w", NewAuthExpiredError("expired", nil))
	if got := ClassOf(wrapped); got != ClassAuthExpired {
		t.Errorf("Expected %s through wrapping, got %s", ClassAuthExpired, got)
	}

	if got := ClassOf(errors.New("plain")); got != ClassInternal {
		t.Errorf("Expected %s for plain errors, got %s", ClassInternal, got)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{NewRateLimitedError("throttled", nil), true},
		{NewUnavailableError("outage", nil), true},
		{NewValidationError("bad", nil), false},
		{NewAuthExpiredError("expired", nil), false},
		{NewPermissionDeniedError("forbidden", nil), false},
		{NewConflictError("exists", nil), false},
		{NewNotFoundError("gone", nil), false},
		{NewCompensationFailedError("stuck", nil), false},
		{NewInternalError("bug", nil), false},
		{errors.New("plain"), false},
	}

	for _, tt := range tests {
		if got := IsRetryable(tt.err); got != tt.want {
			t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestClassPredicates(t *testing.T) {
	if !IsValidation(NewValidationError("bad", nil)) {
		t.Error("Expected IsValidation true")
	}
	if !IsAuthExpired(NewAuthExpiredError("expired", nil)) {
		t.Error("Expected IsAuthExpired true")
	}
	if !IsConflict(NewConflictError("exists", nil)) {
		t.Error("Expected IsConflict true")
	}
	if !IsNotFound(NewNotFoundError("gone", nil)) {
		t.Error("Expected IsNotFound true")
	}
	if IsConflict(NewNotFoundError("gone", nil)) {
		t.Error("Expected IsConflict false for not-found")
	}
}

func TestResourceKind_Validate(t *testing.T) {
	for _, kind := range []ResourceKind{KindAccount, KindWorkspace, KindChannel, KindMembership} {
		if err := kind.Validate(); err != nil {
			t.Errorf("Expected %s valid, got: %v", kind, err)
		}
	}
	if err := ResourceKind("bogus").Validate(); err == nil {
		t.Error("Expected error for bogus kind")
	}
}
