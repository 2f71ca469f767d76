package ptracer

import (
	"strconv"

	"golang.org/x/sys/unix"
)

// UnknownRegisterError is returned when a register name does not exist on
// the running architecture
type UnknownRegisterError struct {
	Name string
}

func (e *UnknownRegisterError) Error() string {
	return "ptracer: unknown register " + strconv.Quote(e.Name)
}

// Registers is a snapshot of the general purpose registers of a stopped
// tracee. Changes are local until Commit writes the full set back.
type Registers struct {
	regs unix.PtraceRegs
}

// GetRegisters reads the register set of the stopped thread pid
func GetRegisters(pid int) (*Registers, error) {
	r := new(Registers)
	if err := ptraceGetRegSet(pid, &r.regs); err != nil {
		return nil, err
	}
	return r, nil
}

// Commit writes the whole register set into the stopped thread pid
func (r *Registers) Commit(pid int) error {
	return ptraceSetRegSet(pid, &r.regs)
}

// Names lists the register names accepted by Get and Set
func (r *Registers) Names() []string {
	return append([]string(nil), registerNames...)
}

// Get returns the register value by name
func (r *Registers) Get(name string) (uint64, error) {
	p := r.field(name)
	if p == nil {
		return 0, &UnknownRegisterError{Name: name}
	}
	return *p, nil
}

// Set changes the register value by name
func (r *Registers) Set(name string, v uint64) error {
	p := r.field(name)
	if p == nil {
		return &UnknownRegisterError{Name: name}
	}
	*p = v
	return nil
}

// Arg returns the i-th syscall argument, 0 <= i < 6
func (r *Registers) Arg(i int) uint64 {
	return *r.args()[i]
}

// SetArg sets the i-th syscall argument, 0 <= i < 6
func (r *Registers) SetArg(i int, v uint64) {
	*r.args()[i] = v
}
