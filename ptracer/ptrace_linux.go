package ptracer

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// ptrace constants
const (
	NT_PRSTATUS        = 1
	NT_ARM_SYSTEM_CALL = 0x404
)

// ptraceFlags traces seccomp traps, syscall boundaries (as SIGTRAP|0x80) and
// every new thread or child; tracees are killed if the tracer exits
const ptraceFlags = unix.PTRACE_O_TRACESECCOMP | unix.PTRACE_O_TRACESYSGOOD | unix.PTRACE_O_EXITKILL |
	unix.PTRACE_O_TRACEFORK | unix.PTRACE_O_TRACECLONE | unix.PTRACE_O_TRACEEXEC | unix.PTRACE_O_TRACEVFORK

// SetOptions sets the tracer options on a stopped tracee
func SetOptions(pid int) error {
	return unix.PtraceSetOptions(pid, ptraceFlags)
}

func ptrace(request int, pid int, addr uintptr, data uintptr) (err error) {
	_, _, e1 := unix.Syscall6(unix.SYS_PTRACE, uintptr(request), uintptr(pid), addr, data, 0, 0)
	if e1 != 0 {
		err = e1
	}
	return
}

func ptraceGetRegSet(pid int, regs *unix.PtraceRegs) error {
	iov := getIovec((*byte)(unsafe.Pointer(regs)), int(unsafe.Sizeof(*regs)))
	return ptrace(unix.PTRACE_GETREGSET, pid, NT_PRSTATUS, uintptr(unsafe.Pointer(&iov)))
}

func ptraceSetRegSet(pid int, regs *unix.PtraceRegs) error {
	iov := getIovec((*byte)(unsafe.Pointer(regs)), int(unsafe.Sizeof(*regs)))
	return ptrace(unix.PTRACE_SETREGSET, pid, NT_PRSTATUS, uintptr(unsafe.Pointer(&iov)))
}

func ptraceKill(pid int) error {
	return ptrace(unix.PTRACE_KILL, pid, 0, 0)
}

func getIovec(base *byte, l int) unix.Iovec {
	iov := unix.Iovec{Base: base}
	iov.SetLen(l)
	return iov
}
