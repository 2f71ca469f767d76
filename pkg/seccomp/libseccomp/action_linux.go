package libseccomp

import (
	"fmt"

	"github.com/criyle/restrict/pkg/seccomp"
	libseccomp "github.com/elastic/go-seccomp-bpf"
	"golang.org/x/sys/unix"
)

const retData = 0xffff

// ToSeccompAction convert action to libseccomp compatible action
func ToSeccompAction(a seccomp.Action) libseccomp.Action {
	var action libseccomp.Action
	switch a.Action() {
	case seccomp.ActionAllow:
		action = libseccomp.ActionAllow
	case seccomp.ActionErrno:
		// the least 16 bit of ret value is SECCOMP_RET_DATA
		action = libseccomp.Action(uint32(libseccomp.ActionErrno)&^retData | uint32(uint16(a.ReturnCode())))
	case seccomp.ActionTrace:
		action = libseccomp.ActionTrace
	default:
		action = libseccomp.ActionKillProcess
	}
	return action
}

// fromReturnValue converts the value returned by a filter program back into
// the action it encodes
func fromReturnValue(ret uint32) (seccomp.Action, error) {
	switch ret &^ retData {
	case unix.SECCOMP_RET_ALLOW:
		return seccomp.ActionAllow, nil
	case unix.SECCOMP_RET_ERRNO:
		return seccomp.ActionErrno.WithReturnCode(int16(ret & retData)), nil
	case unix.SECCOMP_RET_TRACE:
		return seccomp.ActionTrace, nil
	case unix.SECCOMP_RET_KILL_PROCESS, unix.SECCOMP_RET_KILL_THREAD:
		return seccomp.ActionKill, nil
	}
	return 0, fmt.Errorf("libseccomp: unexpected filter return value %#x", ret)
}
