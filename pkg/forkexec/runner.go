package forkexec

import (
	"syscall"

	"github.com/criyle/restrict/pkg/rlimit"
)

// Runner is the configuration including the exec path, argv
// and the filter. It creates the tracee for a ptrace-based tracer.
type Runner struct {
	// argv and env for execve syscall for the child process
	Args []string
	Env  []string

	// if exec_fd is defined, then at the end, fd_execve is called
	ExecFile uintptr

	// file disriptors map for new process, from 0 to len - 1
	Files []uintptr

	// work path set by chdir(dir) (current working directory for child)
	WorkDir string

	// resource limits set by prlimit64 in the child
	RLimits []rlimit.RLimit

	// seccomp syscall filter applied to child
	Seccomp *syscall.SockFprog

	// ptrace controls child process to call ptrace(PTRACE_TRACEME)
	// runtime.LockOSThread is required for tracer to call ptrace syscalls
	Ptrace bool

	// no_new_privs calls prctl(PR_SET_NO_NEW_PRIVS) to disable calls to
	// setuid processes. It is automatically enabled when seccomp filter is provided
	NoNewPrivs bool

	// stop before seccomp calls kill(getpid(), SIGSTOP) after ptrace(PTRACE_TRACEME)
	// and right before the calls to seccomp, so the tracer can set its options.
	// It is automatically enabled when seccomp filter and ptrace are provided
	// since kill might not be available after seccomp and execve might be traced
	// by ptrace
	StopBeforeSeccomp bool

	// Parent and child process with sync status through a socket pair.
	// SyncFunc will invoke with the child pid. If SyncFunc return some error,
	// parent will signal child to stop and report the error
	SyncFunc func(int) error
}
