package ptracer

import (
	"bytes"
	"os"

	"golang.org/x/sys/unix"
)

var pageSize = os.Getpagesize()

func vmRead(pid int, addr uintptr, buff []byte) (int, error) {
	l := len(buff)
	localIov := []unix.Iovec{getIovec(&buff[0], l)}
	remoteIov := []unix.RemoteIovec{{Base: addr, Len: l}}
	return unix.ProcessVMReadv(pid, localIov, remoteIov, 0)
}

// vmReadStr reads a NUL terminated string into buff page by page, a read
// never crosses a page boundary so an unmapped page after the string does
// not fail the whole read. It returns the number of bytes filled.
func vmReadStr(pid int, addr uintptr, buff []byte) (int, error) {
	totalRead := 0
	nextRead := pageSize - int(addr%uintptr(pageSize))
	for len(buff) > 0 {
		if restToRead := len(buff); restToRead < nextRead {
			nextRead = restToRead
		}
		curRead, err := vmRead(pid, addr+uintptr(totalRead), buff[:nextRead])
		if err != nil {
			return totalRead, err
		}
		if curRead == 0 {
			break
		}
		totalRead += curRead
		if bytes.IndexByte(buff[:curRead], 0) >= 0 {
			break
		}
		buff = buff[curRead:]
		nextRead = pageSize
	}
	return totalRead, nil
}

// clen returns the index of the first NUL byte or len(b)
func clen(b []byte) int {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return i
	}
	return len(b)
}
