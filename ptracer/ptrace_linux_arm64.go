package ptracer

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// on arm64 the syscall number is not part of the general register set
func ptraceArm64SetSyscall(pid int, syscallNo int32) error {
	iov := getIovec((*byte)(unsafe.Pointer(&syscallNo)), int(unsafe.Sizeof(syscallNo)))
	return ptrace(unix.PTRACE_SETREGSET, pid, NT_ARM_SYSTEM_CALL, uintptr(unsafe.Pointer(&iov)))
}
