package jobq

import (
	"fmt"
)

// Error types assigned by the worker itself.
const (
	ErrorTypePanic     = "panic"
	ErrorTypeNoHandler = "no-handler"
)

// Error is a typed handler failure. Type is matched against the retry
// policy's non-retryable set to decide whether a retry can help.
type Error struct {
	Type    string
	Message string
}

func NewError(errType, message string) *Error {
	return &Error{Type: errType, Message: message}
}

func (e *Error) Error() string {
	return e.Message
}

// Result is the outcome of a single handler invocation.
// Handlers construct it through Complete, Fail or Failf; panics are
// coerced into a failed Result at the worker boundary.
type Result struct {
	success bool
	value   []byte
	err     *Error
}

// Complete marks the invocation successful. value is stored on the job
// as its result and is opaque to the engine.
func Complete(value []byte) Result {
	return Result{success: true, value: value}
}

// Fail marks the invocation failed with a typed error.
func Fail(err *Error) Result {
	if err == nil {
		err = NewError("error", "handler failed")
	}
	return Result{err: err}
}

// Failf marks the invocation failed with a formatted message.
func Failf(errType, format string, args ...any) Result {
	return Fail(NewError(errType, fmt.Sprintf(format, args...)))
}
