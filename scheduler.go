package hookless

import (
	"container/heap"
	"sync"
	"time"
	"weak"
)

// pollCap bounds how long the scheduler ever sleeps between wakeups,
// even if no alarm is due sooner — this keeps a clock that is only
// compared against a moving "now" (never truncated or bounded above)
// from starving: spec §4.6, "scheduler poll cap 1s".
const pollCap = time.Second

// purgeGrowthFactor controls how often the scheduler sweeps dead weak
// alarm entries out of its indexes: a purge runs whenever live entries
// have grown to this multiple of the count at the last purge and
// number more than 16.
const purgeGrowthFactor = 2

// Alarm is an immutable snapshot of a ReactiveInstant's validity
// interval at the moment it was registered with the scheduler. The
// scheduler holds alarms only weakly (via their owning ReactiveInstant),
// per spec §3's "Alarm ... held only weakly" invariant: a ReactiveInstant
// nobody still references can be collected even though the scheduler
// still "knows about" its last interval.
type Alarm struct {
	Lower *time.Time
	Upper *time.Time

	instant *ReactiveInstant
}

// dueAt returns the two bounds this alarm should be indexed at. Spec
// §4.6: "an alarm with bounds [L, U) contributes up to two entries" —
// the upper bound rings when wall-clock time advances past it, the
// lower bound rings only if wall-clock time is (or later becomes) less
// than it, which ordinarily only happens after a backward clock step
// since the lower bound is usually already in the past at registration
// time. Either return value may be nil.
func (a *Alarm) dueAt() (lower, upper *time.Time) {
	return a.Lower, a.Upper
}

// scheduler is the process-wide singleton background timer described in
// spec §4.6: a single goroutine maintains a time-indexed set of weakly
// held alarms and wakes each ReactiveInstant whose interval wall-clock
// time has left.
//
// Upper bounds are kept in a min-heap, since the condition that rings
// them ("now has advanced past U") is monotonic forward in time and so
// a plain timer-queue drain suffices. Lower bounds are kept in a
// separate, unordered watch list: the condition that rings them ("now
// is currently less than L") is not monotonic — it starts false at
// registration (L is ordinarily already in the past) and can only
// become true later if the wall clock steps backward — so every entry
// must be re-checked on every tick rather than drained off a heap.
type scheduler struct {
	mu              sync.Mutex
	timer           *time.Timer
	wake            chan struct{}
	upper           alarmHeap
	lower           []alarmEntry
	liveAtLastPurge int

	startOnce sync.Once
}

var globalScheduler = &scheduler{wake: make(chan struct{}, 1)}

// alarmEntry is one index node: a bound time paired with a weak
// reference to the Alarm's owning ReactiveInstant, so an instant that
// becomes unreachable is not kept alive by the scheduler's bookkeeping
// alone. An alarm with both a lower and upper bound contributes one
// entry to each index.
type alarmEntry struct {
	due  time.Time
	weak weak.Pointer[ReactiveInstant]
}

// alarmHeap is a min-heap of alarmEntry ordered by due time.
type alarmHeap []alarmEntry

func (h alarmHeap) Len() int           { return len(h) }
func (h alarmHeap) Less(i, j int) bool { return h[i].due.Before(h[j].due) }
func (h alarmHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *alarmHeap) Push(x any)        { *h = append(*h, x.(alarmEntry)) }
func (h *alarmHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

// monitor registers new as c's current alarm, replacing old (old may be
// nil on first registration). Because the indexes hold weak references
// keyed by instant rather than being updated in place, monitor simply
// enqueues fresh entries for new's bound(s) and lets the ring check
// (comparing the instant's *current* interval against the bound that
// triggered the check) silently drop stale entries as they are found.
func (s *scheduler) monitor(new, old *Alarm) {
	s.startOnce.Do(s.start)

	lower, upper := new.dueAt()
	if lower == nil && upper == nil {
		return
	}

	s.mu.Lock()
	if upper != nil {
		heap.Push(&s.upper, alarmEntry{due: *upper, weak: weak.Make(new.instant)})
	}
	if lower != nil {
		s.lower = append(s.lower, alarmEntry{due: *lower, weak: weak.Make(new.instant)})
	}
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *scheduler) start() {
	go s.run()
}

// run is the scheduler's single background goroutine: sleep until the
// earliest due upper bound (capped at pollCap so the lower-bound watch
// list is still re-checked periodically), then tick.
func (s *scheduler) run() {
	for {
		d := s.nextDelay()
		timer := time.NewTimer(d)
		select {
		case <-timer.C:
			s.tick(time.Now())
		case <-s.wake:
			timer.Stop()
		}
	}
}

func (s *scheduler) nextDelay() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upper.Len() == 0 {
		return pollCap
	}
	d := time.Until(s.upper[0].due)
	if d <= 0 {
		return 0
	}
	if d > pollCap {
		return pollCap
	}
	return d
}

// tick rings every indexed bound that wall-clock time, at reading now,
// has crossed: every upper-bound entry whose due is no later than now
// (drained off the heap, same as a plain timer queue, since once now
// has advanced past an upper bound it never retreats before it again
// without a backward clock step popping the entry through the
// lower-bound path instead), and every lower-bound entry whose due is
// now strictly after now (checked by linear scan, since this condition
// is not monotonic: it is false at registration — the lower bound is
// ordinarily already in the past — and can only flip true if the wall
// clock subsequently steps backward below it). A matched entry only
// actually rings if the instant's *current* interval has in fact been
// left; it may be stale (superseded by a later tighten call) or already
// collected. Indexes are purged of dead weak references once they have
// grown enough to be worth the sweep.
func (s *scheduler) tick(now time.Time) {
	var toRing []*ReactiveInstant

	s.mu.Lock()
	for s.upper.Len() > 0 && !s.upper[0].due.After(now) {
		e := heap.Pop(&s.upper).(alarmEntry)
		if c := e.weak.Value(); c != nil && !c.inInterval(now) {
			toRing = append(toRing, c)
		}
	}

	kept := s.lower[:0]
	for _, e := range s.lower {
		if now.Before(e.due) {
			if c := e.weak.Value(); c != nil && !c.inInterval(now) {
				toRing = append(toRing, c)
			}
			continue
		}
		kept = append(kept, e)
	}
	s.lower = kept

	live := s.upper.Len() + len(s.lower)
	s.mu.Unlock()

	for _, c := range toRing {
		c.ring()
	}

	if live >= s.liveAtLastPurge*purgeGrowthFactor && live > 16 {
		s.purge()
	}
}

// purge drops entries from both indexes whose ReactiveInstant has
// already been collected, bounding memory use under long-running
// processes that create and discard many short-lived instants (spec
// §3's weak-holding invariant exists precisely so this is safe to do
// lazily).
func (s *scheduler) purge() {
	s.mu.Lock()
	defer s.mu.Unlock()

	keptUpper := s.upper[:0]
	for _, e := range s.upper {
		if e.weak.Value() != nil {
			keptUpper = append(keptUpper, e)
		}
	}
	s.upper = keptUpper
	heap.Init(&s.upper)

	keptLower := s.lower[:0]
	for _, e := range s.lower {
		if e.weak.Value() != nil {
			keptLower = append(keptLower, e)
		}
	}
	s.lower = keptLower

	s.liveAtLastPurge = s.upper.Len() + len(s.lower)
}
