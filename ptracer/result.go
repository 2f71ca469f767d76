package ptracer

import (
	"fmt"
	"syscall"
)

// Result is the terminal state of the traced leader
type Result struct {
	// ExitStatus is the exit status if the leader exited normally
	ExitStatus int
	// Signal terminated the leader, zero if it exited
	Signal syscall.Signal
	// Killed is set when a handler returned Kill
	Killed bool
}

// ExitCode maps the result to a shell style exit code, 128 + signal when the
// leader was terminated by a signal
func (r Result) ExitCode() int {
	if r.Signal != 0 {
		return 128 + int(r.Signal)
	}
	return r.ExitStatus
}

func (r Result) String() string {
	switch {
	case r.Killed:
		return "killed by handler"
	case r.Signal != 0:
		return fmt.Sprintf("signaled: %v", r.Signal)
	default:
		return fmt.Sprintf("exited: %d", r.ExitStatus)
	}
}
