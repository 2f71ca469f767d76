package ptracer

import (
	"fmt"

	"github.com/criyle/restrict/pkg/syscalls"
)

// Verdict is returned by handlers to decide how the tracee continues
type Verdict int

const (
	// Continue resumes the tracee
	Continue Verdict = iota
	// Kill terminates the tracee and ends the event loop
	Kill
	// SkipExit resumes the tracee without stopping at the syscall exit,
	// the exit interceptor of the syscall does not run for this call
	SkipExit
)

func (v Verdict) String() string {
	switch v {
	case Continue:
		return "continue"
	case Kill:
		return "kill"
	case SkipExit:
		return "skip-exit"
	default:
		return fmt.Sprintf("verdict(%d)", int(v))
	}
}

// TraceFunc observes a traced syscall
type TraceFunc func(syscalls.Syscall) Verdict

// InterceptFunc inspects or rewrites a syscall at its entry or exit
type InterceptFunc func(*Interceptor) Verdict

// Handlers maps syscalls to the handlers run when they trap
type Handlers struct {
	Trace map[syscalls.Syscall]TraceFunc
	Entry map[syscalls.Syscall]InterceptFunc
	Exit  map[syscalls.Syscall]InterceptFunc
}

// Syscalls returns every syscall that has at least one handler
func (h *Handlers) Syscalls() []syscalls.Syscall {
	seen := make(map[syscalls.Syscall]bool)
	var ret []syscalls.Syscall
	for _, m := range []map[syscalls.Syscall]InterceptFunc{h.Entry, h.Exit} {
		for sc := range m {
			if !seen[sc] {
				seen[sc] = true
				ret = append(ret, sc)
			}
		}
	}
	for sc := range h.Trace {
		if !seen[sc] {
			seen[sc] = true
			ret = append(ret, sc)
		}
	}
	return ret
}
