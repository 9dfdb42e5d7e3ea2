package hookless

import (
	"runtime"
	"testing"
)

func TestVariable_ReadReturnsInitialValue(t *testing.T) {
	x := New(1)
	b := x.Read()
	if b.Result != 1 {
		t.Errorf("expected 1, got %v", b.Result)
	}
}

func TestVariable_WriteAdvancesVersion(t *testing.T) {
	x := New(1)
	v0 := x.Version()
	x.Write(NewResult(2))
	if x.Version() != v0+1 {
		t.Errorf("expected version %d, got %d", v0+1, x.Version())
	}
}

func TestVariable_WriteIsNoOpOnEqualBundle(t *testing.T) {
	x := New(1)
	v0 := x.Version()
	x.Write(NewResult(1))
	if x.Version() != v0 {
		t.Errorf("expected version to stay at %d, got %d", v0, x.Version())
	}
}

func TestVariable_ReferenceEqualityAlwaysAdvances(t *testing.T) {
	type box struct{ n int }
	a := &box{1}
	b := &box{1}

	x := New(a)
	x.SetEqualityMode(EqualityReference)
	v0 := x.Version()
	x.Write(NewResult(b))
	if x.Version() != v0+1 {
		t.Error("expected reference-equality mode to treat distinct pointers with equal content as distinct")
	}
}

func TestVariable_ReferenceEqualityIsNoOpOnSamePointer(t *testing.T) {
	type box struct{ n int }
	a := &box{1}

	x := New(a)
	x.SetEqualityMode(EqualityReference)
	v0 := x.Version()
	x.Write(NewResult(a))
	if x.Version() != v0 {
		t.Error("expected reference-equality mode to treat the same pointer as equal")
	}
}

func TestVariable_ReadRecordsDependencyInActiveScope(t *testing.T) {
	Reset()
	x := New(1)
	s := NewRootScope()
	s.Run(func() {
		x.Read()
	})
	if s.Dependencies() != 1 {
		t.Errorf("expected 1 dependency recorded, got %d", s.Dependencies())
	}
}

func TestVariable_WriteFiresArmedTrigger(t *testing.T) {
	Reset()
	x := New(1)
	s := NewRootScope()
	s.Run(func() {
		x.Read()
	})

	fired := make(chan struct{}, 1)
	tr := NewTrigger(func() { fired <- struct{}{} })
	if err := tr.Arm(s); err != nil {
		t.Fatalf("Arm failed: %v", err)
	}

	x.Write(NewResult(2))

	select {
	case <-fired:
	default:
		t.Fatal("expected trigger to fire synchronously from Write")
	}
	if !tr.Fired() {
		t.Error("expected trigger to report Fired")
	}
}

func TestVariable_SubscribersAreHeldWeakly(t *testing.T) {
	Reset()
	x := New(1)
	s := NewRootScope()
	s.Run(func() {
		x.Read()
	})

	tr := NewTrigger(func() {})
	if err := tr.Arm(s); err != nil {
		t.Fatalf("Arm failed: %v", err)
	}
	if x.subscriberCount() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", x.subscriberCount())
	}

	tr = nil
	runtime.GC()
	runtime.GC()

	if n := x.subscriberCount(); n != 0 {
		t.Errorf("expected subscriber to be collectible once unreferenced, got %d live", n)
	}
}
