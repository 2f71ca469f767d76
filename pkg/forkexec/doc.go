// Package forkexec starts a process with a seccomp filter loaded and,
// optionally, with ptrace enabled before the filter takes effect.
//
// The child side runs between clone and execve with raw syscalls only.
// seccomp requires kernel >= 3.5 and SECCOMP_FILTER_FLAG_TSYNC >= 3.17
package forkexec
