package ptracer

import (
	"github.com/criyle/restrict/pkg/syscalls"
)

// Interceptor is handed to entry and exit interceptors. Registers is a
// snapshot taken at the stop, changes reach the tracee only through Commit
// or Skip.
type Interceptor struct {
	Syscall   syscalls.Syscall
	Registers *Registers
	Pid       int
}

// Commit writes Registers back into the stopped thread
func (i *Interceptor) Commit() error {
	return i.Registers.Commit(i.Pid)
}

// Skip cancels the syscall at its entry, the tracee observes ret as the
// return value
func (i *Interceptor) Skip(ret int64) error {
	return i.Registers.skip(i.Pid, ret)
}

// ReadString reads a NUL terminated string of at most max bytes at addr in
// the tracee memory
func (i *Interceptor) ReadString(addr uintptr, max int) (string, error) {
	if max <= 0 {
		return "", nil
	}
	buff := make([]byte, max)
	n, err := vmReadStr(i.Pid, addr, buff)
	if err != nil && n == 0 {
		return "", err
	}
	return string(buff[:clen(buff[:n])]), nil
}
