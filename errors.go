// Package hookless provides the reactive core: a variable holding a
// value bundle, a scope that records which variables a computation
// observed, a one-shot trigger that fires on invalidation, and a
// reactive-time algebra built on interval tightening rather than
// polling.
//
// Components run once: a computation enters a scope, reads whatever
// variables it needs, and leaves. Later a trigger is armed from the
// scope's dependency set; the first write to any observed variable
// fires the trigger exactly once. Re-running the computation is the
// caller's responsibility — this package only delivers the signal.
package hookless

import "fmt"

// InvalidArgumentError reports a caller-supplied value that violates
// a precondition: a nil bundle write, a malformed alarm interval, or a
// non-positive truncation unit.
type InvalidArgumentError struct {
	Message string
}

func (e *InvalidArgumentError) Error() string {
	return "hookless: invalid argument: " + e.Message
}

func invalidArgument(format string, args ...any) error {
	return &InvalidArgumentError{Message: fmt.Sprintf(format, args...)}
}

// IllegalStateError reports a caller bug: calling Arm on a trigger that
// is not Idle, or otherwise using a component outside the states it
// documents. Subscribing the same trigger to the same variable twice is
// not an error — Variable.subscribe is idempotent by design.
type IllegalStateError struct {
	Message string
}

func (e *IllegalStateError) Error() string {
	return "hookless: illegal state: " + e.Message
}

func illegalState(format string, args ...any) error {
	return &IllegalStateError{Message: fmt.Sprintf(format, args...)}
}

// AsyncCompletionError wraps the exception stored in a value bundle
// when Unwrap re-raises it inside a scope. The cause is reachable via
// errors.Unwrap/errors.As.
type AsyncCompletionError struct {
	Cause error
}

func (e *AsyncCompletionError) Error() string {
	return "hookless: async completion failed: " + e.Cause.Error()
}

func (e *AsyncCompletionError) Unwrap() error {
	return e.Cause
}
