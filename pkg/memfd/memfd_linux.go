// Package memfd creates anonymous memory files and shared mappings on top of
// them. The file descriptor can be passed to a child process so both sides map
// the same pages.
package memfd

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

const createFlag = unix.MFD_CLOEXEC | unix.MFD_ALLOW_SEALING
const sizeSeal = unix.F_SEAL_SEAL | unix.F_SEAL_SHRINK | unix.F_SEAL_GROW

// New creates a new memfd, caller need to close the file
func New(name string) (*os.File, error) {
	fd, err := unix.MemfdCreate(name, createFlag)
	if err != nil {
		return nil, fmt.Errorf("memfd: memfd_create failed %v", err)
	}
	file := os.NewFile(uintptr(fd), name)
	if file == nil {
		unix.Close(fd)
		return nil, fmt.Errorf("memfd: NewFile failed for %v", name)
	}
	return file, nil
}

// Region is a MAP_SHARED mapping of a memfd
type Region struct {
	File *os.File
	Data []byte
}

// Shared creates a memfd of the given size with its size sealed and maps it
// shared into the calling process
func Shared(name string, size int) (*Region, error) {
	if size <= 0 {
		return nil, fmt.Errorf("memfd: invalid size %d", size)
	}
	file, err := New(name)
	if err != nil {
		return nil, err
	}
	if err := file.Truncate(int64(size)); err != nil {
		file.Close()
		return nil, fmt.Errorf("memfd: truncate %v", err)
	}
	if _, err := unix.FcntlInt(file.Fd(), unix.F_ADD_SEALS, sizeSeal); err != nil {
		file.Close()
		return nil, fmt.Errorf("memfd: seal %v", err)
	}
	return mapFile(file, size)
}

// Open maps an inherited memfd. The size must match the size it was created
// with.
func Open(fd uintptr, size int) (*Region, error) {
	file := os.NewFile(fd, fmt.Sprintf("memfd:%d", fd))
	if file == nil {
		return nil, fmt.Errorf("memfd: invalid fd %d", fd)
	}
	fi, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("memfd: stat %v", err)
	}
	if fi.Size() != int64(size) {
		return nil, fmt.Errorf("memfd: fd %d has size %d, want %d", fd, fi.Size(), size)
	}
	// inherited without close_on_exec, restore it
	unix.CloseOnExec(int(fd))
	return mapFile(file, size)
}

func mapFile(file *os.File, size int) (*Region, error) {
	data, err := unix.Mmap(int(file.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("memfd: mmap %v", err)
	}
	return &Region{File: file, Data: data}, nil
}

// Close unmaps the region and closes the memfd
func (r *Region) Close() error {
	err := unix.Munmap(r.Data)
	if err2 := r.File.Close(); err == nil {
		err = err2
	}
	return err
}
