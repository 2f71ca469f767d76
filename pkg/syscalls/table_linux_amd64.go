package syscalls

import "golang.org/x/sys/unix"

// Syscalls only present in the x86_64 ABI
const (
	Open      Syscall = unix.SYS_OPEN
	Stat      Syscall = unix.SYS_STAT
	Lstat     Syscall = unix.SYS_LSTAT
	Access    Syscall = unix.SYS_ACCESS
	Readlink  Syscall = unix.SYS_READLINK
	Unlink    Syscall = unix.SYS_UNLINK
	Mkdir     Syscall = unix.SYS_MKDIR
	Rename    Syscall = unix.SYS_RENAME
	Pipe      Syscall = unix.SYS_PIPE
	Dup2      Syscall = unix.SYS_DUP2
	Time      Syscall = unix.SYS_TIME
	Fork      Syscall = unix.SYS_FORK
	Vfork     Syscall = unix.SYS_VFORK
	ArchPrctl Syscall = unix.SYS_ARCH_PRCTL
)
