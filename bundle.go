package hookless

import "reflect"

// ValueBundle is the immutable triple a Variable stores: an opaque
// result, an optional exception, and a blocking flag. It never stores
// a Go nil payload as "the" absence marker — absence is represented by
// Present being false, the same way a pending reactive computation is
// represented explicitly rather than via a sentinel value.
type ValueBundle struct {
	// Result is the payload. Only meaningful when Present is true and
	// Exception is nil.
	Result any
	// Present distinguishes "holds a result" from "empty".
	Present bool
	// Exception, when non-nil, is re-raised (wrapped) by Unwrap.
	Exception error
	// Blocking marks the bundle as "not ready"; readers propagate this
	// into their enclosing scope instead of treating it as an error.
	Blocking bool
}

// NewResult creates a bundle holding a present result.
func NewResult(result any) ValueBundle {
	return ValueBundle{Result: result, Present: true}
}

// NewException creates a bundle holding an exception.
func NewException(err error) ValueBundle {
	return ValueBundle{Exception: err}
}

// NewBlocking creates an empty, blocking bundle — the canonical
// "not ready yet" value.
func NewBlocking() ValueBundle {
	return ValueBundle{Blocking: true}
}

// EmptyBundle is the zero value: absent result, no exception, not
// blocking. It is the initial bundle of Variable.Empty.
var EmptyBundle = ValueBundle{}

// EqualsFull compares two bundles by content: equal Present/Result,
// equal Blocking, and exceptions that compare equal by kind, message,
// and cause chain.
func (v ValueBundle) EqualsFull(other ValueBundle) bool {
	if v.Blocking != other.Blocking {
		return false
	}
	if !exceptionsEqual(v.Exception, other.Exception) {
		return false
	}
	if v.Present != other.Present {
		return false
	}
	if !v.Present {
		return true
	}
	return resultsEqual(v.Result, other.Result)
}

// EqualsRef compares two bundles by identity of payload and exception
// plus flag equality — two bundles are reference-equal only if they
// carry the exact same result and exception values (for pointer/
// interface payloads this is pointer identity) and the same blocking
// flag.
func (v ValueBundle) EqualsRef(other ValueBundle) bool {
	if v.Blocking != other.Blocking {
		return false
	}
	if v.Present != other.Present {
		return false
	}
	return resultsIdentical(v.Result, other.Result) && v.Exception == other.Exception
}

// resultsIdentical compares two opaque payloads by identity: comparable
// values use ==, maps and funcs compare by the address they refer to,
// and slices by their backing address and length. Other non-comparable
// payloads are never identical.
func resultsIdentical(a, b any) bool {
	if a == nil || b == nil || reflect.TypeOf(a) != reflect.TypeOf(b) || reflect.TypeOf(a).Comparable() {
		return resultsEqual(a, b)
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	switch va.Kind() {
	case reflect.Map, reflect.Func:
		return va.Pointer() == vb.Pointer()
	case reflect.Slice:
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	}
	return false
}

// resultsEqual compares two opaque payloads without panicking: Go's ==
// operator panics when both dynamic types are the same non-comparable
// kind (slice, map, func), which is otherwise a perfectly valid bundle
// payload. Comparable types still use ==; non-comparable types fall
// back to a structural comparison.
func resultsEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if !ta.Comparable() {
		return reflect.DeepEqual(a, b)
	}
	return a == b
}

func exceptionsEqual(a, b error) bool {
	if a == nil || b == nil {
		return a == b
	}
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}
	return a.Error() == b.Error() && causesEqual(a, b)
}

func causesEqual(a, b error) bool {
	type unwrapper interface{ Unwrap() error }
	ua, aok := a.(unwrapper)
	ub, bok := b.(unwrapper)
	if !aok && !bok {
		return true
	}
	if aok != bok {
		return false
	}
	return exceptionsEqual(ua.Unwrap(), ub.Unwrap())
}

// Unwrap extracts the bundle's result inside scope s: it propagates
// Blocking into the scope and, if the bundle holds an exception,
// panics with it wrapped as an *AsyncCompletionError. Call this only
// from inside an active computation; s may be nil, in which case
// blocking is simply not recorded anywhere.
func (v ValueBundle) Unwrap(s *Scope) any {
	if s != nil && v.Blocking {
		s.Block()
	}
	if v.Exception != nil {
		panic(&AsyncCompletionError{Cause: v.Exception})
	}
	return v.Result
}

// EqualityMode selects how Variable.Write decides whether a new bundle
// is distinct enough from the current one to advance the version.
type EqualityMode int

const (
	// EqualityFull compares bundles by content (the default).
	EqualityFull EqualityMode = iota
	// EqualityReference compares bundles by payload/exception identity.
	EqualityReference
)

func (m EqualityMode) equal(a, b ValueBundle) bool {
	if m == EqualityReference {
		return a.EqualsRef(b)
	}
	return a.EqualsFull(b)
}
