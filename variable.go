package hookless

import (
	"sync"
	"sync/atomic"
	"weak"
)

// Variable is the universal mutable reactive source: it stores a
// ValueBundle, a monotonically increasing version, and a weakly-held
// set of subscribed triggers. Two variables are equal only if they are
// the same object — Variable carries no value equality of its own.
//
// The read fast path takes no lock: the bundle is published through an
// atomic.Pointer, giving release/acquire semantics between Write and
// Read. Write takes the variable's lock only across the publish,
// version bump, and subscriber-set swap; it calls out to triggers
// after releasing the lock so a trigger callback that writes back to
// the same variable cannot self-deadlock.
type Variable struct {
	bundle atomic.Pointer[ValueBundle]
	ver    atomic.Uint64

	mu          sync.Mutex
	mode        EqualityMode
	subscribers map[weak.Pointer[Trigger]]struct{}
	keepaliveRef any
}

// New creates a variable holding result as its initial bundle.
func New(result any) *Variable {
	return newVariable(NewResult(result))
}

// Empty creates a variable holding EmptyBundle as its initial bundle.
func Empty() *Variable {
	return newVariable(EmptyBundle)
}

func newVariable(initial ValueBundle) *Variable {
	x := &Variable{
		subscribers: make(map[weak.Pointer[Trigger]]struct{}),
	}
	x.bundle.Store(&initial)
	x.ver.Store(1)
	return x
}

// Read returns the current bundle. If a scope is active on the
// calling worker, the read records this variable and the version it
// observed into that scope's dependency map before loading the bundle
// — watching first closes the race where a write lands between the
// load and the watch and would otherwise be recorded against the
// version that postdates it.
func (x *Variable) Read() ValueBundle {
	if s := Current(); s != nil {
		s.watch(x, x.Version())
	}
	return *x.bundle.Load()
}

// Write replaces the variable's bundle with v. If v compares equal to
// the current bundle under the configured EqualityMode, Write is a
// no-op: no version bump, no trigger fires. Otherwise the bundle is
// published, the version advances by exactly one, the subscriber set
// is atomically swapped out for a fresh empty one, and every trigger
// that was subscribed at the moment of the swap fires exactly once —
// after the lock is released.
//
// Write never receives a "null" bundle: ValueBundle is a value type,
// not a pointer, so there is nothing for the invalid-argument case in
// spec terms to reject; absence is expressed through Present=false.
func (x *Variable) Write(v ValueBundle) {
	current := *x.bundle.Load()
	if x.mode.equal(current, v) {
		return
	}

	x.mu.Lock()
	vCopy := v
	x.bundle.Store(&vCopy)
	x.ver.Add(1)
	fired := x.subscribers
	x.subscribers = make(map[weak.Pointer[Trigger]]struct{})
	x.mu.Unlock()

	for wp := range fired {
		if t := wp.Value(); t != nil {
			t.fire()
		}
	}
}

// Version returns the current version without tracking a dependency.
func (x *Variable) Version() uint64 {
	return x.ver.Load()
}

func (x *Variable) version() uint64 {
	return x.Version()
}

// SetEqualityMode changes the equality mode used by Write. Callers
// should set this before the variable's first write.
func (x *Variable) SetEqualityMode(mode EqualityMode) {
	x.mu.Lock()
	x.mode = mode
	x.mu.Unlock()
}

// Keepalive installs (replacing any previous one) a strong reference
// from this variable to obj, anchoring an owning aggregate that would
// otherwise be reachable only through a weakly-held trigger.
func (x *Variable) Keepalive(obj any) {
	x.mu.Lock()
	x.keepaliveRef = obj
	x.mu.Unlock()
}

// subscribe registers t as a weak subscriber of x. Idempotent: arming
// the same trigger against the same variable twice leaves the
// subscriber set unchanged (weak.Pointer values are equal when made
// from the same object).
func (x *Variable) subscribe(t *Trigger) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.subscribers[weak.Make(t)] = struct{}{}
}

// unsubscribe removes t from x's subscriber set. Idempotent.
func (x *Variable) unsubscribe(t *Trigger) {
	x.mu.Lock()
	defer x.mu.Unlock()
	delete(x.subscribers, weak.Make(t))
}

// subscriberCount reports the live subscriber count, pruning entries
// whose trigger has already been collected. Exposed for tests that
// verify the weak-reference invariant (spec scenario 4).
func (x *Variable) subscriberCount() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	n := 0
	for wp := range x.subscribers {
		if wp.Value() != nil {
			n++
		} else {
			delete(x.subscribers, wp)
		}
	}
	return n
}
