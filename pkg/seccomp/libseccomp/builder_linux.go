// Package libseccomp compiles syscall rules into a seccomp BPF program with
// go-seccomp-bpf and loads it into the kernel.
package libseccomp

import (
	"encoding/binary"
	"errors"
	"fmt"
	"runtime"
	"syscall"
	"unsafe"

	"github.com/criyle/restrict/pkg/seccomp"
	"github.com/criyle/restrict/pkg/syscalls"
	libseccomp "github.com/elastic/go-seccomp-bpf"
	"github.com/elastic/go-seccomp-bpf/arch"
	"golang.org/x/net/bpf"
	"golang.org/x/sys/unix"
)

// offsets in struct seccomp_data
const (
	nrOffset   = 0
	archOffset = 4
)

// Errors returned by the filter context
var (
	ErrInitContext   = errors.New("libseccomp: failed to initialize filter context")
	ErrInvalidAction = errors.New("libseccomp: invalid action")
	ErrLoaded        = errors.New("libseccomp: filter already loaded")
)

// Rule is a syscall with the action the filter takes for it
type Rule struct {
	Syscall syscalls.Syscall
	Action  seccomp.Action
}

// Context accumulates rules for one filter program. Rules are kept in
// insertion order and the first rule added for a syscall wins.
type Context struct {
	def    seccomp.Action
	arch   *arch.Info
	rules  []Rule
	seen   map[syscalls.Syscall]bool
	loaded bool
}

// Init creates a filter context with the default action applied to every
// syscall without a rule
func Init(def seccomp.Action) (*Context, error) {
	info, err := arch.GetInfo("")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInitContext, err)
	}
	if !validAction(def) {
		return nil, fmt.Errorf("%w: default %v", ErrInvalidAction, def)
	}
	return &Context{
		def:  def,
		arch: info,
		seen: make(map[syscalls.Syscall]bool),
	}, nil
}

// AddRule appends a rule. A later rule for an already present syscall is
// ignored since the first compiled rule takes effect in the kernel.
func (c *Context) AddRule(a seccomp.Action, sc syscalls.Syscall) error {
	if c.loaded {
		return ErrLoaded
	}
	if !validAction(a) {
		return fmt.Errorf("%w: %v for %v", ErrInvalidAction, a, sc)
	}
	if _, err := syscalls.FromNumber(sc.Number()); err != nil {
		return fmt.Errorf("libseccomp: add rule: %w", err)
	}
	if c.seen[sc] {
		return nil
	}
	c.seen[sc] = true
	c.rules = append(c.rules, Rule{Syscall: sc, Action: a})
	return nil
}

// Default returns the default action
func (c *Context) Default() seccomp.Action {
	return c.def
}

// Rules returns a copy of the rules in insertion order
func (c *Context) Rules() []Rule {
	return append([]Rule(nil), c.rules...)
}

// Len returns the number of rules
func (c *Context) Len() int {
	return len(c.rules)
}

// Build assembles the rules into the kernel readable BPF program
func (c *Context) Build() (seccomp.Filter, error) {
	program, err := c.assemble()
	if err != nil {
		return nil, err
	}
	return ExportBPF(program)
}

// Load installs the filter into the calling process for all of its threads.
// It sets no_new_privs and cannot be undone.
func (c *Context) Load() error {
	if c.loaded {
		return ErrLoaded
	}
	filter, err := c.Build()
	if err != nil {
		return err
	}
	if err := libseccomp.SetNoNewPrivs(); err != nil {
		return fmt.Errorf("libseccomp: load: no_new_privs: %w", err)
	}
	r1, _, errno := unix.Syscall(unix.SYS_SECCOMP, unix.SECCOMP_SET_MODE_FILTER,
		unix.SECCOMP_FILTER_FLAG_TSYNC, uintptr(unsafe.Pointer(filter.SockFprog())))
	runtime.KeepAlive(filter)
	if errno != 0 {
		return fmt.Errorf("libseccomp: load: %w", errno)
	}
	if r1 != 0 {
		// TSYNC failed, r1 is the thread that could not be synchronized
		return fmt.Errorf("libseccomp: load: thread %d not synchronized", r1)
	}
	c.loaded = true
	return nil
}

// Evaluate runs the assembled program against a syscall of the host
// architecture and returns the action the kernel would take
func (c *Context) Evaluate(sc syscalls.Syscall) (seccomp.Action, error) {
	program, err := c.assemble()
	if err != nil {
		return 0, err
	}
	vm, err := bpf.NewVM(program)
	if err != nil {
		return 0, fmt.Errorf("libseccomp: evaluate: %w", err)
	}
	ret, err := vm.Run(seccompData(sc, uint32(c.arch.ID)))
	if err != nil {
		return 0, fmt.Errorf("libseccomp: evaluate: %w", err)
	}
	return fromReturnValue(uint32(ret))
}

// assemble emits a header checking the architecture, then one jump per rule
// into the block returning its action, then the default.
//
//	ld arch; jeq host ? next : ret kill
//	ld nr; (amd64) jge x32 ? ret ENOSYS : next
//	jeq nr_0 -> action(rule_0) ... jeq nr_n -> action(rule_n)
//	ret default
//	ret action_0 ... ret action_k
func (c *Context) assemble() ([]bpf.Instruction, error) {
	program := []bpf.Instruction{
		bpf.LoadAbsolute{Off: archOffset, Size: 4},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: uint32(c.arch.ID), SkipTrue: 1},
		bpf.RetConstant{Val: uint32(libseccomp.ActionKillProcess)},
		bpf.LoadAbsolute{Off: nrOffset, Size: 4},
	}
	if c.arch.ID == arch.X86_64.ID {
		program = append(program,
			bpf.JumpIf{Cond: bpf.JumpGreaterOrEqual, Val: uint32(arch.X32.SeccompMask), SkipFalse: 1},
			bpf.RetConstant{Val: uint32(libseccomp.ActionErrno) | uint32(unix.ENOSYS)},
		)
	}

	p := libseccomp.NewProgram()
	var (
		actions []seccomp.Action
		labels  = make(map[seccomp.Action]libseccomp.Label)
	)
	for _, r := range c.rules {
		l, ok := labels[r.Action]
		if !ok {
			l = p.NewLabel()
			labels[r.Action] = l
			actions = append(actions, r.Action)
		}
		p.JmpIfTrue(bpf.JumpEqual, uint32(r.Syscall.Number()|c.arch.SeccompMask), l)
	}
	p.Ret(ToSeccompAction(c.def))
	for _, a := range actions {
		p.SetLabel(labels[a])
		p.Ret(ToSeccompAction(a))
	}

	body, err := p.Assemble()
	if err != nil {
		return nil, fmt.Errorf("libseccomp: assemble: %w", err)
	}
	return append(program, body...), nil
}

// ExportBPF convert libseccomp filter to kernel readable BPF content
func ExportBPF(filter []bpf.Instruction) (seccomp.Filter, error) {
	raw, err := bpf.Assemble(filter)
	if err != nil {
		return nil, err
	}
	return sockFilter(raw), nil
}

func sockFilter(raw []bpf.RawInstruction) []syscall.SockFilter {
	filter := make([]syscall.SockFilter, 0, len(raw))
	for _, instruction := range raw {
		filter = append(filter, syscall.SockFilter{
			Code: instruction.Op,
			Jt:   instruction.Jt,
			Jf:   instruction.Jf,
			K:    instruction.K,
		})
	}
	return filter
}

// seccompData encodes struct seccomp_data for the bpf VM, which loads words
// in network byte order
func seccompData(sc syscalls.Syscall, archID uint32) []byte {
	b := make([]byte, 64)
	binary.BigEndian.PutUint32(b[0:], uint32(sc.Number()))
	binary.BigEndian.PutUint32(b[4:], archID)
	return b
}

func validAction(a seccomp.Action) bool {
	switch a.Action() {
	case seccomp.ActionAllow, seccomp.ActionErrno, seccomp.ActionTrace, seccomp.ActionKill:
		return true
	}
	return false
}
