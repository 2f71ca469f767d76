package syscalls

import (
	"fmt"
	"sort"

	"github.com/elastic/go-seccomp-bpf/arch"
)

// Syscall is a kernel entry point identified by its ABI number on the host
// architecture
type Syscall int

var (
	info, errInfo = arch.GetInfo("")
	byName        = make(map[string]Syscall)
)

func init() {
	if errInfo != nil {
		return
	}
	for n, name := range info.SyscallNumbers {
		byName[name] = Syscall(n)
	}
}

// UnsupportedSyscallError is returned when a syscall number has no symbolic
// mapping on the host architecture
type UnsupportedSyscallError struct {
	ID int
}

func (e *UnsupportedSyscallError) Error() string {
	return fmt.Sprintf("syscalls: unsupported syscall id %d", e.ID)
}

// UnknownSyscallError is returned when a syscall name is not known on the host
// architecture
type UnknownSyscallError struct {
	Name string
}

func (e *UnknownSyscallError) Error() string {
	return fmt.Sprintf("syscalls: unknown syscall name %q", e.Name)
}

// FromNumber converts an observed ABI number into a Syscall
func FromNumber(n int) (Syscall, error) {
	if errInfo != nil {
		return 0, fmt.Errorf("syscalls: %w", errInfo)
	}
	if _, ok := info.SyscallNumbers[n]; !ok {
		return 0, &UnsupportedSyscallError{ID: n}
	}
	return Syscall(n), nil
}

// ByName looks up a syscall by its kernel name (e.g. "openat")
func ByName(name string) (Syscall, error) {
	if errInfo != nil {
		return 0, fmt.Errorf("syscalls: %w", errInfo)
	}
	s, ok := byName[name]
	if !ok {
		return 0, &UnknownSyscallError{Name: name}
	}
	return s, nil
}

// Names returns all syscall names known on the host architecture, sorted
func Names() []string {
	names := make([]string, 0, len(byName))
	for n := range byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Number returns the ABI number
func (s Syscall) Number() int {
	return int(s)
}

func (s Syscall) String() string {
	if errInfo == nil {
		if n, ok := info.SyscallNumbers[int(s)]; ok {
			return n
		}
	}
	return fmt.Sprintf("syscall(%d)", int(s))
}
