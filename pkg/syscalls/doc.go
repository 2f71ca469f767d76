// Package syscalls provides the syscall identities used by filter rules and
// trace handlers.
//
// The ABI numbers come from the golang.org/x/sys/unix SYS_* constants which are
// generated from the OS headers at build time. Symbolic names are resolved from
// the go-seccomp-bpf architecture table of the host.
package syscalls
