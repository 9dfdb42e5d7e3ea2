// Command hookless-demo wires the whole reactive core together once,
// end to end: a variable, a scope that reads it, a trigger armed
// against that scope, a write that fires the trigger, and a reactive
// countdown built on the clock and scheduler.
package main

import (
	"fmt"
	"time"

	"github.com/robertvazan/hookless"
)

func main() {
	name := hookless.New("world")
	rerendered := make(chan struct{})

	var render func()
	render = func() {
		scope := hookless.NewRootScope()
		scope.Run(func() {
			result := name.Read().Unwrap(scope)
			fmt.Printf("hello, %v\n", result)
		})

		t := hookless.NewTrigger(func() {
			render()
			close(rerendered)
		})
		if err := t.Arm(scope); err != nil {
			panic(err)
		}
	}

	render()
	name.Write(hookless.NewResult("hookless"))
	<-rerendered

	runCountdown(300 * time.Millisecond)
}

// runCountdown demonstrates ReactiveInstant/ReactiveDuration: it
// reports the remaining time until a deadline, re-running itself each
// time the scheduler rings the underlying clock, until the deadline
// passes.
func runCountdown(d time.Duration) {
	deadline := time.Now().Add(d)
	done := make(chan struct{})

	var step func()
	step = func() {
		scope := hookless.NewRootScope()
		var remaining time.Duration
		var reached bool
		scope.Run(func() {
			now := hookless.Now()
			reached = !now.Before(deadline)
			remaining = deadline.Sub(now.Time())
		})
		fmt.Printf("remaining: %v\n", remaining.Round(time.Millisecond))

		if reached {
			close(done)
			return
		}

		t := hookless.NewTrigger(func() { step() })
		if err := t.Arm(scope); err != nil {
			panic(err)
		}
	}

	step()
	<-done
}
