package ptracer

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/criyle/restrict/pkg/syscalls"
)

// ErrExitBeforeExec is returned when the traced leader exits before it
// finished its execve, usually the exec itself failed
var ErrExitBeforeExec = errors.New("ptracer: tracee exited before execve")

// Tracer dispatches seccomp trap stops of a traced process tree to Handlers
type Tracer struct {
	Handlers
	Logger *logrus.Logger
}

func (t *Tracer) log() *logrus.Logger {
	if t.Logger != nil {
		return t.Logger
	}
	return logrus.StandardLogger()
}

// Run traces pid until it exits or a handler returns Kill. pid must have
// been forked by the calling OS thread with PTRACE_TRACEME and already
// carry the tracer options, the calling goroutine must stay locked to
// that thread.
//
// Run waits for any child (wait4(-1, __WALL)), so other children of the
// process may be reaped by it.
func (t *Tracer) Run(pid int) (Result, error) {
	var (
		wstatus unix.WaitStatus
		traced  = map[int]bool{pid: true}        // tracees with options set
		pending = make(map[int]syscalls.Syscall) // threads between syscall entry and exit
		execved = false                          // the leader finished its execve
		logger  = t.log()
	)

	// ptrace is thread based (kernel proc)
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	for {
		wpid, err := unix.Wait4(-1, &wstatus, unix.WALL, nil)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			logger.Debugf("ptracer: wait4 failed: %v", err)
			return Result{}, fmt.Errorf("ptracer: wait4: %w", err)
		}

		switch {
		case wstatus.Exited(), wstatus.Signaled():
			delete(traced, wpid)
			delete(pending, wpid)
			if wpid != pid {
				logger.Debugf("ptracer: %d gone: %v", wpid, describe(wstatus))
				continue
			}
			logger.Debugf("ptracer: leader %d gone: %v", wpid, describe(wstatus))
			killRest(traced)
			if wstatus.Signaled() {
				return Result{Signal: wstatus.Signal()}, nil
			}
			result := Result{ExitStatus: wstatus.ExitStatus()}
			if !execved {
				return result, ErrExitBeforeExec
			}
			return result, nil

		case wstatus.Stopped():
			stopSig := wstatus.StopSignal()

			// new thread or child inherits options through PTRACE_O_TRACECLONE,
			// its first stop is SIGSTOP
			if !traced[wpid] {
				traced[wpid] = true
				if err := SetOptions(wpid); err != nil {
					logger.Debugf("ptracer: set options for %d: %v", wpid, err)
				}
				if stopSig == unix.SIGSTOP {
					resume(wpid, 0)
					continue
				}
			}

			switch {
			case stopSig == unix.SIGTRAP|0x80:
				if sc, ok := pending[wpid]; ok {
					delete(pending, wpid)
					if t.handleExit(wpid, sc) == Kill {
						return t.kill(pid, traced)
					}
					resume(wpid, 0)
					continue
				}
				// syscall entry stop without a previous trap
				regs, err := GetRegisters(wpid)
				if err == nil {
					var sc syscalls.Syscall
					if sc, err = syscalls.FromNumber(regs.SyscallNumber()); err == nil {
						pending[wpid] = sc
					}
				}
				if err != nil {
					logger.Warnf("ptracer: syscall entry of %d: %v", wpid, err)
				}
				unix.PtraceSyscall(wpid, 0)

			case stopSig == unix.SIGTRAP && wstatus.TrapCause() > 0:
				switch trapCause := wstatus.TrapCause(); trapCause {
				case unix.PTRACE_EVENT_SECCOMP:
					if !execved {
						logger.Debugf("ptracer: seccomp trap before execve in %d", wpid)
						resume(wpid, 0)
						continue
					}
					v, sc, ok := t.handleTrap(wpid)
					switch {
					case v == Kill:
						return t.kill(pid, traced)
					case ok && v != SkipExit && t.Exit[sc] != nil:
						pending[wpid] = sc
						unix.PtraceSyscall(wpid, 0)
					default:
						resume(wpid, 0)
					}

				case unix.PTRACE_EVENT_EXEC:
					if wpid == pid && !execved {
						execved = true
					}
					logger.Debugf("ptracer: exec in %d", wpid)
					resume(wpid, 0)

				case unix.PTRACE_EVENT_CLONE, unix.PTRACE_EVENT_FORK, unix.PTRACE_EVENT_VFORK:
					if msg, err := unix.PtraceGetEventMsg(wpid); err != nil {
						logger.Debugf("ptracer: event message of %d: %v", wpid, err)
					} else {
						logger.Debugf("ptracer: %d created %d", wpid, msg)
					}
					resume(wpid, 0)

				default:
					logger.Debugf("ptracer: unexpected trap cause %d in %d", trapCause, wpid)
					resume(wpid, 0)
				}

			case stopSig == unix.SIGSTOP, stopSig == unix.SIGTSTP, stopSig == unix.SIGTTIN, stopSig == unix.SIGTTOU:
				logger.Debugf("ptracer: suppress %v in %d", stopSig, wpid)
				resume(wpid, 0)

			default:
				logger.Debugf("ptracer: forward %v to %d", stopSig, wpid)
				resume(wpid, stopSig)
			}
		}
	}
}

// handleTrap runs the trace handler and the entry interceptor of the
// trapped syscall. ok is false when the syscall could not be decoded.
func (t *Tracer) handleTrap(pid int) (v Verdict, sc syscalls.Syscall, ok bool) {
	logger := t.log()
	regs, err := GetRegisters(pid)
	if err != nil {
		logger.Warnf("ptracer: get registers of %d: %v", pid, err)
		return Continue, 0, false
	}
	sc, err = syscalls.FromNumber(regs.SyscallNumber())
	if err != nil {
		logger.Warnf("ptracer: seccomp trap in %d: %v", pid, err)
		return Continue, 0, false
	}
	logger.Debugf("ptracer: seccomp trap %v in %d", sc, pid)

	skipExit := false
	if h := t.Trace[sc]; h != nil {
		switch h(sc) {
		case Kill:
			return Kill, sc, true
		case SkipExit:
			skipExit = true
		}
	}
	if h := t.Entry[sc]; h != nil {
		switch h(&Interceptor{Syscall: sc, Registers: regs, Pid: pid}) {
		case Kill:
			return Kill, sc, true
		case SkipExit:
			skipExit = true
		}
	}
	if skipExit {
		return SkipExit, sc, true
	}
	return Continue, sc, true
}

// handleExit runs the exit interceptor with a fresh register snapshot
func (t *Tracer) handleExit(pid int, sc syscalls.Syscall) Verdict {
	h := t.Exit[sc]
	if h == nil {
		return Continue
	}
	regs, err := GetRegisters(pid)
	if err != nil {
		t.log().Warnf("ptracer: get registers of %d at %v exit: %v", pid, sc, err)
		return Continue
	}
	t.log().Debugf("ptracer: syscall exit %v in %d", sc, pid)
	return h(&Interceptor{Syscall: sc, Registers: regs, Pid: pid})
}

// kill terminates the leader, falling back to PTRACE_KILL, and reaps it
func (t *Tracer) kill(pid int, traced map[int]bool) (Result, error) {
	t.log().Debugf("ptracer: kill %d", pid)
	if err := unix.Kill(pid, unix.SIGKILL); err != nil {
		ptraceKill(pid)
	}
	var wstatus unix.WaitStatus
	for {
		wpid, err := unix.Wait4(-1, &wstatus, unix.WALL, nil)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			break
		}
		if wstatus.Exited() || wstatus.Signaled() {
			delete(traced, wpid)
			if wpid == pid {
				break
			}
		}
	}
	killRest(traced)
	return Result{Signal: unix.SIGKILL, Killed: true}, nil
}

// killRest kills tracees that outlived the leader and reaps them
func killRest(traced map[int]bool) {
	for p := range traced {
		unix.Kill(p, unix.SIGKILL)
	}
	var wstatus unix.WaitStatus
	for len(traced) > 0 {
		wpid, err := unix.Wait4(-1, &wstatus, unix.WALL, nil)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return
		}
		if wstatus.Exited() || wstatus.Signaled() {
			delete(traced, wpid)
		}
	}
}

func resume(pid int, sig unix.Signal) {
	unix.PtraceCont(pid, int(sig))
}

func describe(wstatus unix.WaitStatus) string {
	if wstatus.Signaled() {
		return "signaled " + wstatus.Signal().String()
	}
	return fmt.Sprintf("exited %d", wstatus.ExitStatus())
}
