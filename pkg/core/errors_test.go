package core

import (
	"errors"
	"testing"
)

func TestExecutionErrorFormat(t *testing.T) {
	err := NewExecutionError(KindElementNotFound, "no element for %q", "#login")
	want := `[ELEMENT_NOT_FOUND] no element for "#login"`
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}

	withCause := err.WithCause(errors.New("locator timed out"))
	want = `[ELEMENT_NOT_FOUND] no element for "#login": locator timed out`
	if withCause.Error() != want {
		t.Errorf("got %q, want %q", withCause.Error(), want)
	}
}

func TestExecutionErrorUnwrap(t *testing.T) {
	cause := errors.New("underlying")
	err := NewExecutionError(KindNetworkError, "fetch failed").WithCause(cause)
	if !errors.Is(err, cause) {
		t.Errorf("cause should be reachable through Unwrap")
	}
}

func TestSentinelMatchingSurvivesWithCause(t *testing.T) {
	err := ErrEndpointUnresponsive.WithCause(errors.New("connect: connection refused"))
	if !errors.Is(err, ErrEndpointUnresponsive) {
		t.Errorf("WithCause should preserve sentinel identity")
	}
	if errors.Is(err, ErrBrowserNotFound) {
		t.Errorf("distinct sentinels must not match")
	}
	// WithCause must not mutate the shared sentinel.
	if ErrEndpointUnresponsive.Cause != nil {
		t.Errorf("sentinel was mutated")
	}
}

func TestWithMessage(t *testing.T) {
	base := NewExecutionError(KindValidationError, "original")
	modified := base.WithMessage("port %d out of range", 70000)
	if modified.Message != "port 70000 out of range" {
		t.Errorf("got %q", modified.Message)
	}
	if base.Message != "original" {
		t.Errorf("WithMessage mutated the receiver")
	}
	if modified.Kind != KindValidationError {
		t.Errorf("kind should carry over, got %s", modified.Kind)
	}
}

func TestErrorKindThroughWrapping(t *testing.T) {
	inner := NewExecutionError(KindDebugConnectionError, "endpoint probe failed")
	var execErr *ExecutionError
	wrapped := error(inner)
	for i := 0; i < 3; i++ {
		wrapped = &wrapError{msg: "layer", err: wrapped}
	}
	if !errors.As(wrapped, &execErr) {
		t.Fatalf("ExecutionError not found in chain")
	}
	if execErr.Kind != KindDebugConnectionError {
		t.Errorf("kind = %s, want %s", execErr.Kind, KindDebugConnectionError)
	}
}

type wrapError struct {
	msg string
	err error
}

func (w *wrapError) Error() string { return w.msg + ": " + w.err.Error() }
func (w *wrapError) Unwrap() error { return w.err }
