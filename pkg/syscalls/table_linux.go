package syscalls

import "golang.org/x/sys/unix"

// Syscalls shared by amd64 and arm64
const (
	Read          Syscall = unix.SYS_READ
	Write         Syscall = unix.SYS_WRITE
	Readv         Syscall = unix.SYS_READV
	Writev        Syscall = unix.SYS_WRITEV
	Pread64       Syscall = unix.SYS_PREAD64
	Pwrite64      Syscall = unix.SYS_PWRITE64
	Openat        Syscall = unix.SYS_OPENAT
	Close         Syscall = unix.SYS_CLOSE
	Lseek         Syscall = unix.SYS_LSEEK
	Fstat         Syscall = unix.SYS_FSTAT
	Fcntl         Syscall = unix.SYS_FCNTL
	Ioctl         Syscall = unix.SYS_IOCTL
	Dup3          Syscall = unix.SYS_DUP3
	Pipe2         Syscall = unix.SYS_PIPE2
	Getdents64    Syscall = unix.SYS_GETDENTS64
	Getcwd        Syscall = unix.SYS_GETCWD
	Chdir         Syscall = unix.SYS_CHDIR
	Mkdirat       Syscall = unix.SYS_MKDIRAT
	Unlinkat      Syscall = unix.SYS_UNLINKAT
	Renameat      Syscall = unix.SYS_RENAMEAT
	Fchmodat      Syscall = unix.SYS_FCHMODAT
	Fchownat      Syscall = unix.SYS_FCHOWNAT
	Getpid        Syscall = unix.SYS_GETPID
	Getppid       Syscall = unix.SYS_GETPPID
	Gettid        Syscall = unix.SYS_GETTID
	Getuid        Syscall = unix.SYS_GETUID
	Geteuid       Syscall = unix.SYS_GETEUID
	Getgid        Syscall = unix.SYS_GETGID
	Setuid        Syscall = unix.SYS_SETUID
	Setgid        Syscall = unix.SYS_SETGID
	Setpgid       Syscall = unix.SYS_SETPGID
	Setsid        Syscall = unix.SYS_SETSID
	Uname         Syscall = unix.SYS_UNAME
	Sysinfo       Syscall = unix.SYS_SYSINFO
	Times         Syscall = unix.SYS_TIMES
	ClockGettime  Syscall = unix.SYS_CLOCK_GETTIME
	Nanosleep     Syscall = unix.SYS_NANOSLEEP
	Getrandom     Syscall = unix.SYS_GETRANDOM
	Mmap          Syscall = unix.SYS_MMAP
	Munmap        Syscall = unix.SYS_MUNMAP
	Mprotect      Syscall = unix.SYS_MPROTECT
	Madvise       Syscall = unix.SYS_MADVISE
	Brk           Syscall = unix.SYS_BRK
	Futex         Syscall = unix.SYS_FUTEX
	SchedYield    Syscall = unix.SYS_SCHED_YIELD
	RtSigaction   Syscall = unix.SYS_RT_SIGACTION
	RtSigprocmask Syscall = unix.SYS_RT_SIGPROCMASK
	RtSigreturn   Syscall = unix.SYS_RT_SIGRETURN
	Sigaltstack   Syscall = unix.SYS_SIGALTSTACK
	Kill          Syscall = unix.SYS_KILL
	Tgkill        Syscall = unix.SYS_TGKILL
	Clone         Syscall = unix.SYS_CLONE
	Execve        Syscall = unix.SYS_EXECVE
	Execveat      Syscall = unix.SYS_EXECVEAT
	Wait4         Syscall = unix.SYS_WAIT4
	Exit          Syscall = unix.SYS_EXIT
	ExitGroup     Syscall = unix.SYS_EXIT_GROUP
	Ptrace        Syscall = unix.SYS_PTRACE
	Prctl         Syscall = unix.SYS_PRCTL
	Seccomp       Syscall = unix.SYS_SECCOMP
	Prlimit64     Syscall = unix.SYS_PRLIMIT64
	Mount         Syscall = unix.SYS_MOUNT
	Reboot        Syscall = unix.SYS_REBOOT
	MemfdCreate   Syscall = unix.SYS_MEMFD_CREATE
	Socket        Syscall = unix.SYS_SOCKET
	Connect       Syscall = unix.SYS_CONNECT
	Bind          Syscall = unix.SYS_BIND
	Listen        Syscall = unix.SYS_LISTEN
	Accept4       Syscall = unix.SYS_ACCEPT4
	Sendto        Syscall = unix.SYS_SENDTO
	Recvfrom      Syscall = unix.SYS_RECVFROM
)
