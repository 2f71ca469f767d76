package ptracer

var registerNames = []string{
	"rax", "rbx", "rcx", "rdx", "rsi", "rdi", "rbp", "rsp",
	"r8", "r9", "r10", "r11", "r12", "r13", "r14", "r15",
	"rip", "eflags", "orig_rax",
	"cs", "ss", "ds", "es", "fs", "gs", "fs_base", "gs_base",
}

func (r *Registers) field(name string) *uint64 {
	switch name {
	case "rax":
		return &r.regs.Rax
	case "rbx":
		return &r.regs.Rbx
	case "rcx":
		return &r.regs.Rcx
	case "rdx":
		return &r.regs.Rdx
	case "rsi":
		return &r.regs.Rsi
	case "rdi":
		return &r.regs.Rdi
	case "rbp":
		return &r.regs.Rbp
	case "rsp":
		return &r.regs.Rsp
	case "r8":
		return &r.regs.R8
	case "r9":
		return &r.regs.R9
	case "r10":
		return &r.regs.R10
	case "r11":
		return &r.regs.R11
	case "r12":
		return &r.regs.R12
	case "r13":
		return &r.regs.R13
	case "r14":
		return &r.regs.R14
	case "r15":
		return &r.regs.R15
	case "rip":
		return &r.regs.Rip
	case "eflags":
		return &r.regs.Eflags
	case "orig_rax":
		return &r.regs.Orig_rax
	case "cs":
		return &r.regs.Cs
	case "ss":
		return &r.regs.Ss
	case "ds":
		return &r.regs.Ds
	case "es":
		return &r.regs.Es
	case "fs":
		return &r.regs.Fs
	case "gs":
		return &r.regs.Gs
	case "fs_base":
		return &r.regs.Fs_base
	case "gs_base":
		return &r.regs.Gs_base
	}
	return nil
}

// rdi, rsi, rdx, r10, r8, r9
func (r *Registers) args() [6]*uint64 {
	return [6]*uint64{&r.regs.Rdi, &r.regs.Rsi, &r.regs.Rdx, &r.regs.R10, &r.regs.R8, &r.regs.R9}
}

// SyscallNumber returns the number of the syscall the thread is stopped in
func (r *Registers) SyscallNumber() int {
	return int(int64(r.regs.Orig_rax))
}

// ReturnValue returns the syscall return value (rax)
func (r *Registers) ReturnValue() int64 {
	return int64(r.regs.Rax)
}

// SetReturnValue sets the syscall return value (rax)
func (r *Registers) SetReturnValue(v int64) {
	r.regs.Rax = uint64(v)
}

// skip sets the syscall number to -1 so the kernel skips it and
// returns the value in rax
func (r *Registers) skip(pid int, ret int64) error {
	r.regs.Orig_rax = ^uint64(0)
	r.regs.Rax = uint64(ret)
	return r.Commit(pid)
}
