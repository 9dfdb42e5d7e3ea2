package hookless

import (
	"sync"
	"time"
)

// ClockResolution is the smallest time increment the interval algebra
// reasons about (spec §6, "Clock resolution: 1 ns").
const ClockResolution = time.Nanosecond

type clockKeyType struct{}

var clockKey = clockKeyType{}

// ReactiveInstant is a per-computation frozen "now": the first read
// inside a scope captures wall-clock time once, and every later read
// inside the same scope returns the identical instant (frozen via
// Scope.Freeze under a fixed key). Comparisons against the frozen
// instant tighten a half-open validity interval [lower, upper) rather
// than installing a timer per read; the singleton Scheduler wakes this
// ReactiveInstant's underlying Variable when wall-clock time leaves
// that interval.
type ReactiveInstant struct {
	instant time.Time

	mu    sync.Mutex
	lower *time.Time // nil = -infinity
	upper *time.Time // nil = +infinity

	variable *Variable
	alarm    *Alarm
}

func newReactiveInstant(now time.Time) *ReactiveInstant {
	c := &ReactiveInstant{
		instant:  now,
		variable: New(now),
	}
	c.alarm = &Alarm{instant: c}
	return c
}

// Now returns the calling computation's frozen reactive instant,
// creating and freezing one into the active scope on first use. If no
// scope is active the returned instant still works, but nothing will
// ever invalidate it (there is no scope to notify).
func Now() *ReactiveInstant {
	if s := Current(); s != nil {
		return s.Freeze(clockKey, func() any {
			return newReactiveInstant(time.Now())
		}).(*ReactiveInstant)
	}
	return newReactiveInstant(time.Now())
}

// Variable exposes the ReactiveInstant's underlying reactive variable.
// Reading it (or any Compare/Before/After/TruncatedTo call) registers
// the current scope as a dependency, the way any other Variable read
// does.
func (c *ReactiveInstant) Variable() *Variable {
	return c.variable
}

// Time returns the frozen wall-clock instant this ReactiveInstant
// captured. This does not track a dependency by itself — call Compare/
// Before/After/Equal/TruncatedTo to participate in invalidation.
func (c *ReactiveInstant) Time() time.Time {
	return c.instant
}

func (c *ReactiveInstant) track() {
	c.variable.Read()
}

// Compare returns -1 if this instant is before t, +1 if after, 0 if
// equal, tightening the validity interval to match: an "after" result
// tightens the lower bound to t+ClockResolution, a "before" result
// tightens the upper bound to t, and an "equal" result tightens both
// bounds to t.
func (c *ReactiveInstant) Compare(t time.Time) int {
	c.track()
	switch {
	case c.instant.Before(t):
		c.tighten(nil, &t)
		return -1
	case c.instant.After(t):
		lower := t.Add(ClockResolution)
		c.tighten(&lower, nil)
		return 1
	default:
		c.tighten(&t, &t)
		return 0
	}
}

// Before reports whether this instant is strictly before t.
func (c *ReactiveInstant) Before(t time.Time) bool { return c.Compare(t) < 0 }

// After reports whether this instant is strictly after t.
func (c *ReactiveInstant) After(t time.Time) bool { return c.Compare(t) > 0 }

// Equal reports whether this instant equals t.
func (c *ReactiveInstant) Equal(t time.Time) bool { return c.Compare(t) == 0 }

// TruncatedTo returns the start of the unit-sized bucket containing
// this instant (floor(now/unit)*unit) and tightens the validity
// interval to exactly that bucket. unit must be positive.
func (c *ReactiveInstant) TruncatedTo(unit time.Duration) (time.Time, error) {
	if unit <= 0 {
		return time.Time{}, invalidArgument("TruncatedTo: unit must be positive, got %v", unit)
	}
	c.track()
	trunc := c.instant.Truncate(unit)
	upper := trunc.Add(unit)
	c.tighten(&trunc, &upper)
	return trunc, nil
}

// tighten narrows the interval by the given candidate bounds (nil
// means "no change to this bound") and, if the interval actually
// changed, re-registers the resulting Alarm with the scheduler.
func (c *ReactiveInstant) tighten(lower, upper *time.Time) {
	c.mu.Lock()
	changed := false
	if lower != nil && (c.lower == nil || lower.After(*c.lower)) {
		c.lower = lower
		changed = true
	}
	if upper != nil && (c.upper == nil || upper.Before(*c.upper)) {
		c.upper = upper
		changed = true
	}
	if !changed {
		c.mu.Unlock()
		return
	}
	old := c.alarm
	next := &Alarm{Lower: c.lower, Upper: c.upper, instant: c}
	c.alarm = next
	c.mu.Unlock()

	globalScheduler.monitor(next, old)
}

// inInterval reports whether t falls within [lower, upper).
func (c *ReactiveInstant) inInterval(t time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lower != nil && t.Before(*c.lower) {
		return false
	}
	if c.upper != nil && !t.Before(*c.upper) {
		return false
	}
	return true
}

// ring publishes a fresh opaque token into the underlying variable,
// advancing its version and firing every subscribed trigger. Called
// by the scheduler when wall-clock time leaves this instant's validity
// interval.
func (c *ReactiveInstant) ring() {
	c.variable.Write(NewResult(ringToken{at: time.Now()}))
}

type ringToken struct {
	at time.Time
}
