package ptracer

import "strconv"

var registerNames = func() []string {
	names := make([]string, 0, 34)
	for i := 0; i < 31; i++ {
		names = append(names, "x"+strconv.Itoa(i))
	}
	return append(names, "sp", "pc", "pstate")
}()

func (r *Registers) field(name string) *uint64 {
	switch name {
	case "sp":
		return &r.regs.Sp
	case "pc":
		return &r.regs.Pc
	case "pstate":
		return &r.regs.Pstate
	}
	if len(name) < 2 || name[0] != 'x' || (name[1] == '0' && len(name) > 2) {
		return nil
	}
	i, err := strconv.Atoi(name[1:])
	if err != nil || i < 0 || i >= len(r.regs.Regs) {
		return nil
	}
	return &r.regs.Regs[i]
}

// x0 - x5
func (r *Registers) args() [6]*uint64 {
	return [6]*uint64{&r.regs.Regs[0], &r.regs.Regs[1], &r.regs.Regs[2], &r.regs.Regs[3], &r.regs.Regs[4], &r.regs.Regs[5]}
}

// SyscallNumber returns the number of the syscall the thread is stopped in (x8)
func (r *Registers) SyscallNumber() int {
	return int(int64(r.regs.Regs[8]))
}

// ReturnValue returns the syscall return value (x0)
func (r *Registers) ReturnValue() int64 {
	return int64(r.regs.Regs[0])
}

// SetReturnValue sets the syscall return value (x0)
func (r *Registers) SetReturnValue(v int64) {
	r.regs.Regs[0] = uint64(v)
}

// skip writes the return value into x0 and replaces the syscall number with
// -1 through NT_ARM_SYSTEM_CALL
func (r *Registers) skip(pid int, ret int64) error {
	r.regs.Regs[0] = uint64(ret)
	if err := r.Commit(pid); err != nil {
		return err
	}
	return ptraceArm64SetSyscall(pid, -1)
}
