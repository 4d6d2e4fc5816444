package core

import (
	"fmt"
)

// ExecutionError is the classified error type carried through the runner.
// Errors render as "[KIND] message" so the kind survives process boundaries
// and can be recovered from logs and persisted records.
type ExecutionError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *ExecutionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// Is matches errors that carry the same kind and message, so sentinel
// comparisons keep working after WithCause attaches context.
func (e *ExecutionError) Is(target error) bool {
	t, ok := target.(*ExecutionError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

// WithCause returns a copy with the underlying cause attached.
func (e *ExecutionError) WithCause(cause error) *ExecutionError {
	clone := *e
	clone.Cause = cause
	return &clone
}

// WithMessage returns a copy with the message replaced.
func (e *ExecutionError) WithMessage(format string, args ...any) *ExecutionError {
	clone := *e
	clone.Message = fmt.Sprintf(format, args...)
	return &clone
}

// NewExecutionError builds a classified error.
func NewExecutionError(kind ErrorKind, format string, args ...any) *ExecutionError {
	return &ExecutionError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Sentinel errors for conditions callers branch on.
var (
	// ErrBrowserNotFound reports that no executable for the requested
	// browser type could be located on this machine.
	ErrBrowserNotFound = NewExecutionError(KindValidationError, "cannot find requested browser type")

	// ErrEndpointUnresponsive reports that a remote debugging endpoint
	// did not answer its version probe.
	ErrEndpointUnresponsive = NewExecutionError(KindDebugConnectionError, "remote debugging endpoint unresponsive")

	// ErrExecutionStopped reports that a run was terminated on request.
	ErrExecutionStopped = NewExecutionError(KindManualStop, "execution manually stopped")

	// ErrAlreadyRunning reports that the flow already has a live execution.
	ErrAlreadyRunning = NewExecutionError(KindValidationError, "flow already has a running execution")
)
