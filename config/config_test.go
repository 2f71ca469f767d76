package config

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/criyle/restrict/pkg/seccomp"
	"github.com/criyle/restrict/pkg/syscalls"
	"github.com/criyle/restrict/policy"
	"github.com/criyle/restrict/ptracer"
)

const sample = `
default: deny
allow: [read, write, exit_group]
errno:
  openat: EACCES
  getuid: 1
trace: [uname]
`

func TestParse(t *testing.T) {
	f, err := Parse([]byte(sample))
	require.NoError(t, err)
	assert.Equal(t, DefaultDeny, f.Default)
	assert.Equal(t, []string{"read", "write", "exit_group"}, f.Allow)
	assert.Equal(t, Errno(syscall.EACCES), f.Errno["openat"])
	assert.Equal(t, Errno(1), f.Errno["getuid"])
	assert.Equal(t, []string{"getuid", "openat"}, f.errnoNames())
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"missing default", "allow: [read]"},
		{"bad default", "default: maybe"},
		{"unknown key", "default: allow\nlimits: 1"},
		{"unknown syscall", "default: allow\ndeny: [no_such_call]"},
		{"unknown errno", "default: allow\nerrno: {openat: ENOTHING}"},
		{"errno range", "default: allow\nerrno: {openat: 5000}"},
		{"errno kind", "default: allow\nerrno: {openat: [1]}"},
		{"unknown errno syscall", "default: allow\nerrno: {no_such_call: 1}"},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	f, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"uname"}, f.Trace)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestPolicy(t *testing.T) {
	f, err := Parse([]byte(sample))
	require.NoError(t, err)

	p, err := f.Policy(func(syscalls.Syscall) ptracer.Verdict { return ptracer.Continue })
	require.NoError(t, err)
	assert.True(t, p.Supervised())

	tests := []struct {
		sc   syscalls.Syscall
		want seccomp.Action
	}{
		{syscalls.Read, seccomp.ActionAllow},
		{syscalls.Openat, seccomp.ActionErrno.WithReturnCode(int16(syscall.EACCES))},
		{syscalls.Getuid, seccomp.ActionErrno.WithReturnCode(1)},
		{syscalls.Uname, seccomp.ActionTrace},
		{syscalls.Ptrace, seccomp.ActionKill},
	}
	for _, tt := range tests {
		got, err := p.Evaluate(tt.sc)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.sc.String())
	}
}

func TestPolicyWithoutTraceHandler(t *testing.T) {
	f, err := Parse([]byte(sample))
	require.NoError(t, err)
	p, err := f.Policy(nil)
	require.NoError(t, err)
	assert.False(t, p.Supervised())
}

func TestPolicyRedundant(t *testing.T) {
	f, err := Parse([]byte("default: allow\nallow: [read]"))
	require.NoError(t, err)
	_, err = f.Policy(nil)
	assert.ErrorIs(t, err, policy.ErrRedundantAllow)

	f, err = Parse([]byte("default: deny\ndeny: [read]"))
	require.NoError(t, err)
	_, err = f.Policy(nil)
	assert.ErrorIs(t, err, policy.ErrRedundantDeny)
}
