package ptracer

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"syscall"
	"testing"
	"unsafe"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/bpf"
	"golang.org/x/sys/unix"

	"github.com/criyle/restrict/pkg/forkexec"
	"github.com/criyle/restrict/pkg/seccomp"
	"github.com/criyle/restrict/pkg/seccomp/libseccomp"
	"github.com/criyle/restrict/pkg/syscalls"
)

var devNullFile, _ = os.OpenFile(os.DevNull, os.O_RDWR, 0)

var devNull = devNullFile.Fd()

func TestResultExitCode(t *testing.T) {
	tests := []struct {
		r    Result
		want int
	}{
		{Result{ExitStatus: 0}, 0},
		{Result{ExitStatus: 3}, 3},
		{Result{Signal: syscall.SIGSYS}, 128 + 31},
		{Result{Signal: syscall.SIGKILL, Killed: true}, 137},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.r.ExitCode(), tt.r.String())
	}
}

func TestVerdictString(t *testing.T) {
	assert.Equal(t, "continue", Continue.String())
	assert.Equal(t, "kill", Kill.String())
	assert.Equal(t, "skip-exit", SkipExit.String())
	assert.Equal(t, "verdict(9)", Verdict(9).String())
}

func TestHandlersSyscalls(t *testing.T) {
	h := Handlers{
		Trace: map[syscalls.Syscall]TraceFunc{syscalls.Write: nil, syscalls.Read: nil},
		Entry: map[syscalls.Syscall]InterceptFunc{syscalls.Write: nil},
		Exit:  map[syscalls.Syscall]InterceptFunc{syscalls.Getpid: nil},
	}
	assert.ElementsMatch(t, []syscalls.Syscall{syscalls.Write, syscalls.Read, syscalls.Getpid}, h.Syscalls())
	assert.Empty(t, (&Handlers{}).Syscalls())
}

func TestClen(t *testing.T) {
	assert.Equal(t, 0, clen([]byte{0, 1}))
	assert.Equal(t, 3, clen([]byte("abc")))
	assert.Equal(t, 2, clen([]byte{'a', 'b', 0, 'c'}))
}

func TestReadString(t *testing.T) {
	buf := append([]byte("hello, tracee"), 0, 'x')
	i := &Interceptor{Pid: os.Getpid()}
	addr := uintptr(unsafe.Pointer(&buf[0]))

	s, err := i.ReadString(addr, 64)
	require.NoError(t, err)
	assert.Equal(t, "hello, tracee", s)

	s, err = i.ReadString(addr, 5)
	require.NoError(t, err)
	assert.Equal(t, "hello", s)

	s, err = i.ReadString(addr, 0)
	require.NoError(t, err)
	assert.Empty(t, s)
	runtime.KeepAlive(buf)
}

func TestReadStringCrossPage(t *testing.T) {
	mem, err := unix.Mmap(-1, 0, 2*pageSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	require.NoError(t, err)
	defer unix.Munmap(mem)

	// string starts 3 bytes before the page boundary
	copy(mem[pageSize-3:], "abcdef\x00")
	i := &Interceptor{Pid: os.Getpid()}
	s, err := i.ReadString(uintptr(unsafe.Pointer(&mem[pageSize-3])), 2*pageSize)
	require.NoError(t, err)
	assert.Equal(t, "abcdef", s)
}

// startTraced forks argv stopped right after its execve
func startTraced(t *testing.T, argv ...string) int {
	r := forkexec.Runner{
		Args:   argv,
		Files:  []uintptr{devNull, devNull, devNull},
		Ptrace: true,
	}
	pid, err := r.Start()
	require.NoError(t, err)

	var wstatus unix.WaitStatus
	_, err = unix.Wait4(pid, &wstatus, unix.WALL, nil)
	require.NoError(t, err)
	require.True(t, wstatus.Stopped())
	require.Equal(t, unix.SIGTRAP, wstatus.StopSignal())
	return pid
}

func killTraced(pid int) {
	unix.Kill(pid, unix.SIGKILL)
	var wstatus unix.WaitStatus
	unix.Wait4(pid, &wstatus, unix.WALL, nil)
}

func TestRegistersRoundTrip(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	pid := startTraced(t, "/bin/sleep", "10")
	defer killTraced(pid)

	regs, err := GetRegisters(pid)
	require.NoError(t, err)

	name := regs.Names()[2]
	orig, err := regs.Get(name)
	require.NoError(t, err)

	require.NoError(t, regs.Set(name, orig^0x5a5a))
	require.NoError(t, regs.Commit(pid))
	require.NoError(t, regs.Commit(pid))

	fresh, err := GetRegisters(pid)
	require.NoError(t, err)
	v, err := fresh.Get(name)
	require.NoError(t, err)
	assert.Equal(t, orig^0x5a5a, v)
	assert.Equal(t, regs.regs, fresh.regs)
}

func TestRegistersArgs(t *testing.T) {
	var r Registers
	for i := 0; i < 6; i++ {
		r.SetArg(i, uint64(i+10))
	}
	for i := 0; i < 6; i++ {
		assert.Equal(t, uint64(i+10), r.Arg(i))
	}
	r.SetReturnValue(-2)
	assert.Equal(t, int64(-2), r.ReturnValue())

	for _, n := range r.Names() {
		require.NoError(t, r.Set(n, 1), n)
	}
}

func TestUnknownRegister(t *testing.T) {
	var r Registers
	_, err := r.Get("no_such_register")
	var ure *UnknownRegisterError
	require.True(t, errors.As(err, &ure))
	assert.Equal(t, "no_such_register", ure.Name)
	assert.Error(t, r.Set("x31x", 1))
	assert.Error(t, r.Set("", 1))
}

// startSeccomp forks argv with a filter tracing the given syscalls and does
// the tracer side of the startup handshake
func startSeccomp(t *testing.T, trace []syscalls.Syscall, argv ...string) int {
	ctx, err := libseccomp.Init(seccomp.ActionAllow)
	require.NoError(t, err)
	for _, sc := range trace {
		require.NoError(t, ctx.AddRule(seccomp.ActionTrace, sc))
	}
	filter, err := ctx.Build()
	require.NoError(t, err)
	return startFiltered(t, filter, nil, argv...)
}

func startFiltered(t *testing.T, filter seccomp.Filter, env []string, argv ...string) int {
	r := forkexec.Runner{
		Args:    argv,
		Env:     env,
		Files:   []uintptr{devNull, devNull, devNull},
		Seccomp: filter.SockFprog(),
		Ptrace:  true,
	}
	pid, err := r.Start()
	require.NoError(t, err)

	var wstatus unix.WaitStatus
	_, err = unix.Wait4(pid, &wstatus, unix.WALL, nil)
	require.NoError(t, err)
	require.True(t, wstatus.Stopped())
	require.Equal(t, unix.SIGSTOP, wstatus.StopSignal())
	require.NoError(t, SetOptions(pid))
	require.NoError(t, unix.PtraceCont(pid, 0))
	return pid
}

func TestRunExit(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	traced := 0
	pid := startSeccomp(t, []syscalls.Syscall{syscalls.Uname}, "/bin/uname")
	tr := &Tracer{Handlers: Handlers{
		Trace: map[syscalls.Syscall]TraceFunc{
			syscalls.Uname: func(sc syscalls.Syscall) Verdict {
				assert.Equal(t, syscalls.Uname, sc)
				traced++
				return Continue
			},
		},
	}}
	result, err := tr.Run(pid)
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode())
	assert.False(t, result.Killed)
	assert.GreaterOrEqual(t, traced, 1)
}

func TestRunKill(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	pid := startSeccomp(t, []syscalls.Syscall{syscalls.Uname}, "/bin/uname")
	tr := &Tracer{Handlers: Handlers{
		Entry: map[syscalls.Syscall]InterceptFunc{
			syscalls.Uname: func(*Interceptor) Verdict { return Kill },
		},
	}}
	result, err := tr.Run(pid)
	require.NoError(t, err)
	assert.True(t, result.Killed)
	assert.Equal(t, 137, result.ExitCode())
}

func TestRunSkip(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	// uname fails with EPERM without running, the program exits non zero
	pid := startSeccomp(t, []syscalls.Syscall{syscalls.Uname}, "/bin/uname")
	exitRan := false
	tr := &Tracer{Handlers: Handlers{
		Entry: map[syscalls.Syscall]InterceptFunc{
			syscalls.Uname: func(i *Interceptor) Verdict {
				require.NoError(t, i.Skip(-int64(unix.EPERM)))
				return SkipExit
			},
		},
		Exit: map[syscalls.Syscall]InterceptFunc{
			syscalls.Uname: func(*Interceptor) Verdict {
				exitRan = true
				return Continue
			},
		},
	}}
	result, err := tr.Run(pid)
	require.NoError(t, err)
	assert.NotEqual(t, 0, result.ExitCode())
	assert.False(t, exitRan)
}

func TestRunExitIntercept(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	pid := startSeccomp(t, []syscalls.Syscall{syscalls.Uname}, "/bin/uname")
	var ret int64 = -1
	tr := &Tracer{Handlers: Handlers{
		Exit: map[syscalls.Syscall]InterceptFunc{
			syscalls.Uname: func(i *Interceptor) Verdict {
				ret = i.Registers.ReturnValue()
				return Continue
			},
		},
	}}
	result, err := tr.Run(pid)
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode())
	assert.Equal(t, int64(0), ret)
}

func TestRunExecFailed(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	pid := startSeccomp(t, nil, "/path/not/exist")
	tr := &Tracer{}
	_, err := tr.Run(pid)
	assert.ErrorIs(t, err, ErrExitBeforeExec)
}

const (
	envHelper = "RESTRICT_PTRACER_HELPER"

	// no architecture names a syscall with this number
	unnamedSyscall = 1000
)

func TestHelperProcess(t *testing.T) {
	if os.Getenv(envHelper) == "" {
		t.Skip("helper process")
	}
	_, _, errno := unix.RawSyscall(unnamedSyscall, 0, 0, 0)
	unix.Getpid()
	if errno != unix.ENOSYS {
		os.Exit(1)
	}
	os.Exit(7)
}

func TestRunUnnamedSyscall(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	_, err := syscalls.FromNumber(unnamedSyscall)
	require.Error(t, err)

	filter, err := libseccomp.ExportBPF([]bpf.Instruction{
		bpf.LoadAbsolute{Off: 0, Size: 4},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: unnamedSyscall, SkipTrue: 2},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: uint32(syscalls.Getpid), SkipTrue: 1},
		bpf.RetConstant{Val: unix.SECCOMP_RET_ALLOW},
		bpf.RetConstant{Val: unix.SECCOMP_RET_TRACE},
	})
	require.NoError(t, err)
	exe, err := os.Executable()
	require.NoError(t, err)

	pid := startFiltered(t, filter, append(os.Environ(), envHelper+"=1"),
		exe, "-test.run=^TestHelperProcess$", "-test.timeout=0")

	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	traced := 0
	tr := &Tracer{
		Handlers: Handlers{
			Trace: map[syscalls.Syscall]TraceFunc{
				syscalls.Getpid: func(syscalls.Syscall) Verdict { traced++; return Continue },
			},
		},
		Logger: logger,
	}
	result, err := tr.Run(pid)
	require.NoError(t, err)

	// the unnamed call was resumed and failed with ENOSYS, the loop kept
	// dispatching the traps after it
	assert.Equal(t, 7, result.ExitCode())
	assert.GreaterOrEqual(t, traced, 1)

	warned, cloned := false, false
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && strings.Contains(e.Message, "unsupported syscall id 1000") {
			warned = true
		}
		// the go runtime starts threads, each clone event carries the new tid
		if strings.Contains(e.Message, fmt.Sprintf("ptracer: %d created ", pid)) {
			cloned = true
		}
	}
	assert.True(t, warned, "no warning for the unnamed syscall")
	assert.True(t, cloned, "no clone event message logged")
}
