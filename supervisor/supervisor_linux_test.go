package supervisor

import (
	"errors"
	"os"
	"syscall"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/criyle/restrict/pkg/forkexec"
	"github.com/criyle/restrict/pkg/seccomp"
	"github.com/criyle/restrict/pkg/seccomp/libseccomp"
	"github.com/criyle/restrict/ptracer"
)

const envHelper = "RESTRICT_SUPERVISOR_HELPER"

// TestHelperProcess runs inside the re-executed tracee
func TestHelperProcess(t *testing.T) {
	if os.Getenv(envHelper) == "" {
		t.Skip("helper process")
	}
	if !IsTracee() {
		os.Exit(2)
	}
	out, err := Fork(&forkexec.Runner{}, nil)
	if err != nil || out.Role != Child || IsTracee() {
		os.Exit(3)
	}
	os.Exit(7)
}

func TestForkParent(t *testing.T) {
	out, err := Fork(&forkexec.Runner{
		Args: []string{os.Args[0], "-test.run=^TestHelperProcess$"},
		Env:  append(os.Environ(), envHelper+"=1"),
	}, nil)
	require.NoError(t, err)
	require.Equal(t, Parent, out.Role)
	require.NoError(t, Rendezvous(out.Pid))

	result, err := (&ptracer.Tracer{}).Run(out.Pid)
	require.NoError(t, err)
	assert.Equal(t, 7, result.ExitCode())
}

func TestForkChild(t *testing.T) {
	t.Setenv(EnvTracee, "1")
	out, err := Fork(&forkexec.Runner{}, nil)
	require.NoError(t, err)
	assert.Equal(t, Child, out.Role)
	assert.Zero(t, out.Pid)
	assert.False(t, IsTracee())
}

func TestStartRendezvous(t *testing.T) {
	ctx, err := libseccomp.Init(seccomp.ActionAllow)
	require.NoError(t, err)
	filter, err := ctx.Build()
	require.NoError(t, err)

	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	pid, err := Start(&forkexec.Runner{
		Args:    []string{"/bin/true"},
		Seccomp: filter.SockFprog(),
	}, logger)
	require.NoError(t, err)
	require.NotNil(t, hook.LastEntry())
	assert.Contains(t, hook.LastEntry().Message, "supervisor: started")
	require.NoError(t, Rendezvous(pid))

	result, err := (&ptracer.Tracer{}).Run(pid)
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode())
}

func TestRendezvousNotStopped(t *testing.T) {
	r := forkexec.Runner{Args: []string{"/bin/true"}}
	pid, err := r.Start()
	require.NoError(t, err)

	err = Rendezvous(pid)
	var se *SyncError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "wait", se.Op)
	assert.Equal(t, pid, se.Pid)

	// reaped by Rendezvous
	var ws syscall.WaitStatus
	_, err = syscall.Wait4(pid, &ws, syscall.WALL, nil)
	assert.ErrorIs(t, err, syscall.ECHILD)
}

func TestSyncError(t *testing.T) {
	err := &SyncError{Op: "set options", Pid: 42, Err: syscall.ESRCH}
	assert.ErrorIs(t, err, syscall.ESRCH)
	assert.Equal(t, "supervisor: set options (pid 42): no such process", err.Error())
}

func TestRoleString(t *testing.T) {
	assert.Equal(t, "parent", Parent.String())
	assert.Equal(t, "child", Child.String())
	assert.Equal(t, "role(0)", Role(0).String())
}
