package syscalls

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromNumber(t *testing.T) {
	for _, sc := range []Syscall{Read, Write, Openat, Getpid, Getppid, Ptrace, Execve, ExitGroup} {
		got, err := FromNumber(sc.Number())
		require.NoError(t, err, sc.String())
		assert.Equal(t, sc, got)
	}
}

func TestFromNumberUnsupported(t *testing.T) {
	for _, n := range []int{-1, 100000} {
		_, err := FromNumber(n)
		var ue *UnsupportedSyscallError
		require.True(t, errors.As(err, &ue), "number %d", n)
		assert.Equal(t, n, ue.ID)
	}
}

func TestNames(t *testing.T) {
	tests := []struct {
		sc   Syscall
		name string
	}{
		{Read, "read"},
		{Write, "write"},
		{Openat, "openat"},
		{Getpid, "getpid"},
		{ExitGroup, "exit_group"},
		{Syscall(100000), "syscall(100000)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.name, tt.sc.String())
	}
}

func TestByName(t *testing.T) {
	sc, err := ByName("write")
	require.NoError(t, err)
	assert.Equal(t, Write, sc)

	_, err = ByName("not_a_syscall")
	var ue *UnknownSyscallError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, "not_a_syscall", ue.Name)

	names := Names()
	assert.Contains(t, names, "getpid")
	assert.IsNonDecreasing(t, names)
}
