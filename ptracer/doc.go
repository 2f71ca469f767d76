// Package ptracer is the supervisor side of a traced sandbox. It decodes
// seccomp trap stops into syscalls, hands them to user handlers together
// with the register state of the stopped thread and resumes the tracee
// according to the handler verdict.
package ptracer
