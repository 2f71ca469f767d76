package forkexec

// defines missing consts from syscall package
const (
	SECCOMP_SET_MODE_FILTER   = 1
	SECCOMP_FILTER_FLAG_TSYNC = 1
)

// empty path for execveat(fd, "", AT_EMPTY_PATH)
var empty = [...]byte{0}
