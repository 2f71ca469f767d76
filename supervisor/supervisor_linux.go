// Package supervisor forks a traced copy of the running program. The child is
// the same executable started again with a marker in its environment. It is
// traced from its first instruction and runs under the seccomp filter.
package supervisor

import (
	"fmt"
	"os"
	"runtime"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/criyle/restrict/pkg/forkexec"
	"github.com/criyle/restrict/ptracer"
)

// EnvTracee marks the re-executed tracee
const EnvTracee = "_RESTRICT_TRACEE"

// Role tells which side of the fork the caller is on
type Role int

const (
	// Parent is the supervising process
	Parent Role = iota + 1
	// Child is the traced process with the filter loaded
	Child
)

func (r Role) String() string {
	switch r {
	case Parent:
		return "parent"
	case Child:
		return "child"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// Outcome is the result of Fork, Pid is set for Parent
type Outcome struct {
	Role Role
	Pid  int
}

// SyncError is returned when the startup handshake with the child fails. The
// child is killed and reaped before it is returned.
type SyncError struct {
	Op  string
	Pid int
	Err error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("supervisor: %s (pid %d): %v", e.Op, e.Pid, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// IsTracee reports whether the process is the re-executed tracee
func IsTracee() bool {
	_, ok := os.LookupEnv(EnvTracee)
	return ok
}

// Fork starts the current executable again as a traced child. r carries the
// extra files, Args, Env and ExecFile are filled when empty. The child stops
// itself with SIGSTOP after PTRACE_TRACEME and before its execve.
//
// In the tracee it returns Child immediately and clears the marker, the
// caller loads its filter from there. In the parent the calling goroutine
// stays locked to its OS thread, Rendezvous and the event loop must run on it.
// A nil logger logs to the standard logger.
func Fork(r *forkexec.Runner, logger *logrus.Logger) (Outcome, error) {
	if IsTracee() {
		os.Unsetenv(EnvTracee)
		return Outcome{Role: Child}, nil
	}

	self, err := os.Open("/proc/self/exe")
	if err != nil {
		return Outcome{}, fmt.Errorf("supervisor: open executable: %w", err)
	}
	defer self.Close()

	run := *r
	if run.Args == nil {
		run.Args = os.Args
	}
	if run.Env == nil {
		run.Env = os.Environ()
	}
	run.Env = append(run.Env[:len(run.Env):len(run.Env)], EnvTracee+"=1")
	if run.ExecFile == 0 {
		run.ExecFile = self.Fd()
	}
	if run.Files == nil {
		run.Files = []uintptr{os.Stdin.Fd(), os.Stdout.Fd(), os.Stderr.Fd()}
	}
	run.Ptrace = true
	run.StopBeforeSeccomp = true

	runtime.LockOSThread()
	pid, err := run.Start()
	if err != nil {
		runtime.UnlockOSThread()
		return Outcome{}, err
	}
	logOrStd(logger).Debugf("supervisor: forked tracee %d", pid)
	return Outcome{Role: Parent, Pid: pid}, nil
}

// Start forks an external program described by r as a tracee. The child
// stops with SIGSTOP before it loads the filter of r and execs. The calling
// goroutine stays locked to its OS thread on success.
func Start(r *forkexec.Runner, logger *logrus.Logger) (int, error) {
	run := *r
	run.Ptrace = true
	run.StopBeforeSeccomp = true
	runtime.LockOSThread()
	pid, err := run.Start()
	if err != nil {
		runtime.UnlockOSThread()
		return 0, err
	}
	logOrStd(logger).Debugf("supervisor: started %v as %d", run.Args, pid)
	return pid, nil
}

func logOrStd(l *logrus.Logger) *logrus.Logger {
	if l != nil {
		return l
	}
	return logrus.StandardLogger()
}

// Rendezvous waits for the SIGSTOP the child raises before its execve, sets
// the tracer options and lets it continue
func Rendezvous(pid int) error {
	var wstatus unix.WaitStatus
	for {
		_, err := unix.Wait4(pid, &wstatus, unix.WALL, nil)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return fail(pid, "wait", err)
		}
		break
	}
	if !wstatus.Stopped() || wstatus.StopSignal() != unix.SIGSTOP {
		return fail(pid, "wait", fmt.Errorf("unexpected wait status %#x", uint32(wstatus)))
	}
	if err := ptracer.SetOptions(pid); err != nil {
		return fail(pid, "set options", err)
	}
	if err := unix.PtraceCont(pid, 0); err != nil {
		return fail(pid, "continue", err)
	}
	return nil
}

func fail(pid int, op string, err error) error {
	unix.Kill(pid, unix.SIGKILL)
	var wstatus unix.WaitStatus
	for {
		_, werr := unix.Wait4(pid, &wstatus, unix.WALL, nil)
		if werr != unix.EINTR {
			break
		}
	}
	return &SyncError{Op: op, Pid: pid, Err: err}
}
