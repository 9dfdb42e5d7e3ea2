package hookless

import (
	"testing"
	"time"
)

func TestReactiveInstant_NowFreezesPerScope(t *testing.T) {
	Reset()
	s := NewRootScope()
	var a, b *ReactiveInstant
	s.Run(func() {
		a = Now()
		b = Now()
	})
	if a != b {
		t.Error("expected repeated Now() calls within one scope to return the identical instant")
	}
}

func TestReactiveInstant_NowDiffersAcrossScopes(t *testing.T) {
	Reset()
	var a, b *ReactiveInstant
	NewRootScope().Run(func() { a = Now() })
	NewRootScope().Run(func() { b = Now() })
	if a == b {
		t.Error("expected independent scopes to freeze independent instants")
	}
}

func TestReactiveInstant_CompareTightensInterval(t *testing.T) {
	c := newReactiveInstant(time.Unix(1000, 0))

	past := time.Unix(500, 0)
	if c.Compare(past) <= 0 {
		t.Fatal("expected c to compare after an earlier time")
	}
	if c.lower == nil || !c.lower.After(past) {
		t.Error("expected the lower bound to tighten past the compared time")
	}

	future := time.Unix(1500, 0)
	if c.Compare(future) >= 0 {
		t.Fatal("expected c to compare before a later time")
	}
	if c.upper == nil || c.upper.After(future.Add(time.Nanosecond)) {
		t.Error("expected the upper bound to tighten to the compared time")
	}
}

func TestReactiveInstant_TruncatedToRejectsNonPositiveUnit(t *testing.T) {
	c := newReactiveInstant(time.Now())
	if _, err := c.TruncatedTo(0); err == nil {
		t.Fatal("expected a non-positive unit to be rejected")
	}
}

func TestReactiveInstant_TruncatedToBucketsInstant(t *testing.T) {
	c := newReactiveInstant(time.Unix(125, 0))
	trunc, err := c.TruncatedTo(100 * time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if trunc.Unix() != 100 {
		t.Errorf("expected truncation to the 100s bucket, got %v", trunc.Unix())
	}
}

func TestReactiveInstant_RingsWhenIntervalIsLeft(t *testing.T) {
	Reset()
	c := newReactiveInstant(time.Now())
	// Tighten the upper bound to an hour ago, so wall-clock time is
	// already outside the interval.
	past := time.Now().Add(-time.Hour)
	c.tighten(nil, &past)

	ringed := make(chan struct{}, 1)
	tr := NewTrigger(func() { ringed <- struct{}{} })

	s := NewRootScope()
	s.Run(func() {
		c.track()
	})
	if err := tr.Arm(s); err != nil {
		t.Fatalf("Arm failed: %v", err)
	}

	select {
	case <-ringed:
	case <-time.After(2 * time.Second):
		t.Fatal("expected the scheduler to ring the instant within one poll quantum")
	}
}
