// Package rlimit describes the resource limits applied to a confined program
// with prlimit64 before it execs.
package rlimit

import (
	"fmt"
	"strings"
	"syscall"
)

// RLimits is the set of limits of a program, zero values are not applied
type RLimits struct {
	CPU          uint64 // in s
	CPUHard      uint64 // in s
	Data         uint64 // in bytes
	FileSize     uint64 // in bytes
	Stack        uint64 // in bytes
	AddressSpace uint64 // in bytes
	OpenFile     uint64
	DisableCore  bool // set core to 0
}

// RLimit is one resource limit as passed to prlimit64
type RLimit struct {
	// Res is the resource type (e.g. syscall.RLIMIT_CPU)
	Res int
	// Rlim is the limit applied to that resource
	Rlim syscall.Rlimit
}

func limit(res int, cur, max uint64) RLimit {
	return RLimit{Res: res, Rlim: syscall.Rlimit{Cur: cur, Max: max}}
}

// PrepareRLimit lists the limits to apply in a fixed order
func (r *RLimits) PrepareRLimit() []RLimit {
	var ret []RLimit
	if r.CPU > 0 {
		ret = append(ret, limit(syscall.RLIMIT_CPU, r.CPU, max(r.CPU, r.CPUHard)))
	}
	if r.Data > 0 {
		ret = append(ret, limit(syscall.RLIMIT_DATA, r.Data, r.Data))
	}
	if r.FileSize > 0 {
		ret = append(ret, limit(syscall.RLIMIT_FSIZE, r.FileSize, r.FileSize))
	}
	if r.Stack > 0 {
		ret = append(ret, limit(syscall.RLIMIT_STACK, r.Stack, r.Stack))
	}
	if r.AddressSpace > 0 {
		ret = append(ret, limit(syscall.RLIMIT_AS, r.AddressSpace, r.AddressSpace))
	}
	if r.OpenFile > 0 {
		ret = append(ret, limit(syscall.RLIMIT_NOFILE, r.OpenFile, r.OpenFile))
	}
	if r.DisableCore {
		ret = append(ret, limit(syscall.RLIMIT_CORE, 0, 0))
	}
	return ret
}

var resourceName = map[int]string{
	syscall.RLIMIT_CPU:    "cpu",
	syscall.RLIMIT_DATA:   "data",
	syscall.RLIMIT_FSIZE:  "fsize",
	syscall.RLIMIT_STACK:  "stack",
	syscall.RLIMIT_AS:     "as",
	syscall.RLIMIT_NOFILE: "nofile",
	syscall.RLIMIT_CORE:   "core",
}

func (r RLimit) String() string {
	name, ok := resourceName[r.Res]
	if !ok {
		name = fmt.Sprintf("resource(%d)", r.Res)
	}
	return fmt.Sprintf("%s[%d:%d]", name, r.Rlim.Cur, r.Rlim.Max)
}

func (r RLimits) String() string {
	var sb strings.Builder
	sb.WriteString("rlimits[")
	for i, rl := range r.PrepareRLimit() {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(rl.String())
	}
	sb.WriteString("]")
	return sb.String()
}
