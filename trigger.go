package hookless

import (
	"sync"
	"sync/atomic"
)

const (
	triggerIdle int32 = iota
	triggerArmed
	triggerFired
	triggerClosed
)

// Trigger is a one-shot armable notifier. It moves Idle -> Armed ->
// Fired, and any state -> Closed. Arming subscribes the trigger to
// every variable a scope observed; the first variable to advance past
// the version the scope recorded fires the trigger, which runs its
// callback exactly once.
//
// Variables hold triggers weakly; a Trigger holds the variables it is
// subscribed to strongly, so it can always unsubscribe itself on
// Close.
//
// If the callback panics, the panic propagates out of the call to
// fire (normally from inside Variable.Write, on the writer's own
// goroutine) uncaught, and triggers not yet fired for that write are
// not invoked. This core does not isolate trigger callbacks from one
// another — see DESIGN.md for why.
type Trigger struct {
	state    atomic.Int32
	callback func()

	mu       sync.Mutex
	subbedTo []*Variable
}

// NewTrigger creates an Idle trigger wrapping callback. callback
// should not panic; if it does, see the Trigger doc comment.
func NewTrigger(callback func()) *Trigger {
	return &Trigger{callback: callback}
}

// Arm subscribes t to every variable scope observed, then rechecks
// each recorded version. If any variable has already advanced past
// the version the scope recorded, t fires synchronously before Arm
// returns (subscriptions made so far are undone, best-effort) and the
// remaining dependencies are never subscribed. Otherwise t transitions
// to Armed.
//
// Arm requires t to currently be Idle; arming a non-Idle trigger
// returns an *IllegalStateError and does nothing.
func (t *Trigger) Arm(scope *Scope) error {
	if t.state.Load() != triggerIdle {
		return illegalState("Arm called on a trigger that is not Idle")
	}

	deps := scope.snapshot()
	subscribed := make([]*Variable, 0, len(deps))
	stale := false
	for x, v := range deps {
		x.subscribe(t)
		subscribed = append(subscribed, x)
		if x.Version() > v {
			stale = true
			break
		}
	}

	if stale {
		for _, x := range subscribed {
			x.unsubscribe(t)
		}
		t.fire()
		return nil
	}

	t.mu.Lock()
	t.subbedTo = subscribed
	t.mu.Unlock()

	t.state.CompareAndSwap(triggerIdle, triggerArmed)
	return nil
}

// fire transitions t to Fired and runs the callback exactly once.
// Idempotent: calling fire on an already-Fired or Closed trigger is a
// no-op. Does not unsubscribe from variables — the variable's own
// write path already removed t by swapping out its subscriber set;
// other variables t is subscribed to will drop it on their own next
// write, or when Close is called.
func (t *Trigger) fire() {
	for {
		s := t.state.Load()
		if s == triggerFired || s == triggerClosed {
			return
		}
		if t.state.CompareAndSwap(s, triggerFired) {
			break
		}
	}
	if t.callback != nil {
		t.callback()
	}
}

// Close unsubscribes t from every variable it is still subscribed to
// and moves it to the terminal Closed state. After Close, no new fire()
// call runs the callback; a racing fire() that had already moved t to
// Fired before Close still runs it, possibly after Close returns.
// Idempotent.
func (t *Trigger) Close() {
	if t.state.Swap(triggerClosed) == triggerClosed {
		return
	}
	t.mu.Lock()
	vars := t.subbedTo
	t.subbedTo = nil
	t.mu.Unlock()
	for _, x := range vars {
		x.unsubscribe(t)
	}
}

// Fired reports whether t is in the Fired state. A trigger that fired
// and was then closed reports Closed instead.
func (t *Trigger) Fired() bool {
	return t.state.Load() == triggerFired
}

// Closed reports whether t has been closed.
func (t *Trigger) Closed() bool {
	return t.state.Load() == triggerClosed
}
