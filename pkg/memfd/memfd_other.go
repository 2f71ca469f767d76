//go:build !linux

package memfd

import (
	"fmt"
	"os"
	"runtime"
)

var errNotImplemented = fmt.Errorf("memfd: unsupported on platform %s", runtime.GOOS)

// Region is a shared mapping, unsupported on this platform
type Region struct {
	File *os.File
	Data []byte
}

func New(name string) (*os.File, error) {
	return nil, errNotImplemented
}

func Shared(name string, size int) (*Region, error) {
	return nil, errNotImplemented
}

func Open(fd uintptr, size int) (*Region, error) {
	return nil, errNotImplemented
}

func (r *Region) Close() error {
	return errNotImplemented
}
