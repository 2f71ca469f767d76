// Package policy builds a syscall policy for the running process and applies
// it. Rules without handlers are enforced by a seccomp filter alone. Handlers
// make Apply fork a supervisor that traces the process and runs them when the
// filter traps.
package policy

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/criyle/restrict/pkg/forkexec"
	"github.com/criyle/restrict/pkg/memfd"
	"github.com/criyle/restrict/pkg/seccomp"
	"github.com/criyle/restrict/pkg/seccomp/libseccomp"
	"github.com/criyle/restrict/pkg/syscalls"
	"github.com/criyle/restrict/ptracer"
	"github.com/criyle/restrict/supervisor"
)

// Errors reported to the builder caller
var (
	ErrRedundantAllow = errors.New("policy: allow rule is redundant with the default allow")
	ErrRedundantDeny  = errors.New("policy: deny rule is redundant with the default deny")
	ErrEmptyContext   = errors.New("policy: empty context, the policy was already applied")
)

// sharedFdBase is the first descriptor shared regions are passed on
const sharedFdBase = 3

// Policy is a default action, an ordered list of rules and the handlers of
// traced syscalls. It is consumed by Apply or Exec.
type Policy struct {
	def seccomp.Action
	ctx *libseccomp.Context
	err error

	handlers   ptracer.Handlers
	supervised bool

	shared []*memfd.Region
	logger *logrus.Logger
}

// AllowAll creates a policy allowing every syscall without a rule
func AllowAll() (*Policy, error) {
	return newPolicy(seccomp.ActionAllow)
}

// DenyAll creates a policy killing the process on every syscall without a
// rule
func DenyAll() (*Policy, error) {
	return newPolicy(seccomp.ActionKill)
}

func newPolicy(def seccomp.Action) (*Policy, error) {
	ctx, err := libseccomp.Init(def)
	if err != nil {
		return nil, err
	}
	return &Policy{
		def: def,
		ctx: ctx,
		handlers: ptracer.Handlers{
			Trace: make(map[syscalls.Syscall]ptracer.TraceFunc),
			Entry: make(map[syscalls.Syscall]ptracer.InterceptFunc),
			Exit:  make(map[syscalls.Syscall]ptracer.InterceptFunc),
		},
	}, nil
}

// SetLogger sets the logger of the policy and its supervisor
func (p *Policy) SetLogger(l *logrus.Logger) *Policy {
	p.logger = l
	return p
}

func (p *Policy) log() *logrus.Logger {
	if p.logger != nil {
		return p.logger
	}
	return logrus.StandardLogger()
}

// Allow adds an allow rule, it fails when the default already allows
func (p *Policy) Allow(sc syscalls.Syscall) error {
	if p.ctx == nil {
		return ErrEmptyContext
	}
	if p.def == seccomp.ActionAllow {
		return ErrRedundantAllow
	}
	return p.addRule(seccomp.ActionAllow, sc)
}

// Deny adds a rule killing the process, it fails when the default already
// kills
func (p *Policy) Deny(sc syscalls.Syscall) error {
	if p.ctx == nil {
		return ErrEmptyContext
	}
	if p.def == seccomp.ActionKill {
		return ErrRedundantDeny
	}
	return p.addRule(seccomp.ActionKill, sc)
}

// FailWith makes the syscall fail with errno without running it. A failing
// rule is reported by Apply.
func (p *Policy) FailWith(sc syscalls.Syscall, errno syscall.Errno) *Policy {
	if err := p.addRule(seccomp.ActionErrno.WithReturnCode(int16(errno)), sc); err != nil && p.err == nil {
		p.err = err
	}
	return p
}

func (p *Policy) addRule(a seccomp.Action, sc syscalls.Syscall) error {
	if p.ctx == nil {
		return ErrEmptyContext
	}
	return p.ctx.AddRule(a, sc)
}

// Trace registers an observer run when sc traps. Only the first handler
// registered for a syscall is kept.
func (p *Policy) Trace(sc syscalls.Syscall, fn ptracer.TraceFunc) *Policy {
	if _, ok := p.handlers.Trace[sc]; ok {
		p.log().Warnf("policy: trace handler for %v already registered, ignored", sc)
		return p
	}
	p.handlers.Trace[sc] = fn
	p.supervised = true
	return p
}

// EntryIntercept registers an interceptor run before sc executes. Only the
// first handler registered for a syscall is kept.
func (p *Policy) EntryIntercept(sc syscalls.Syscall, fn ptracer.InterceptFunc) *Policy {
	if _, ok := p.handlers.Entry[sc]; ok {
		p.log().Warnf("policy: entry interceptor for %v already registered, ignored", sc)
		return p
	}
	p.handlers.Entry[sc] = fn
	p.supervised = true
	return p
}

// ExitIntercept registers an interceptor run after sc returned. Only the
// first handler registered for a syscall is kept.
func (p *Policy) ExitIntercept(sc syscalls.Syscall, fn ptracer.InterceptFunc) *Policy {
	if _, ok := p.handlers.Exit[sc]; ok {
		p.log().Warnf("policy: exit interceptor for %v already registered, ignored", sc)
		return p
	}
	p.handlers.Exit[sc] = fn
	p.supervised = true
	return p
}

// Supervised reports whether applying the policy forks a supervisor
func (p *Policy) Supervised() bool {
	return p.supervised
}

// Evaluate returns the action the filter takes for sc, trap rules for
// handlers included
func (p *Policy) Evaluate(sc syscalls.Syscall) (seccomp.Action, error) {
	if p.ctx == nil {
		return 0, ErrEmptyContext
	}
	ctx, err := libseccomp.Init(p.def)
	if err != nil {
		return 0, err
	}
	for _, r := range p.ctx.Rules() {
		if err := ctx.AddRule(r.Action, r.Syscall); err != nil {
			return 0, err
		}
	}
	if err := p.addTraps(ctx); err != nil {
		return 0, err
	}
	return ctx.Evaluate(sc)
}

// SharedMemory maps a region shared between the supervisor and the traced
// process. It must be called in the same order before Apply on both sides.
func (p *Policy) SharedMemory(size int) ([]byte, error) {
	if p.ctx == nil {
		return nil, ErrEmptyContext
	}
	var (
		r   *memfd.Region
		err error
		idx = len(p.shared)
	)
	if supervisor.IsTracee() {
		r, err = memfd.Open(uintptr(sharedFdBase+idx), size)
	} else {
		r, err = memfd.Shared(fmt.Sprintf("restrict-shared-%d", idx), size)
	}
	if err != nil {
		return nil, fmt.Errorf("policy: shared memory: %w", err)
	}
	p.shared = append(p.shared, r)
	return r.Data, nil
}

// Apply consumes the policy.
//
// Without handlers it loads the filter into the calling process and returns.
// With handlers it forks: the traced copy of the program returns from Apply
// with the filter loaded, the supervisor traces it and exits the process
// with its exit code, it never returns unless the startup fails.
func (p *Policy) Apply() error {
	ctx, err := p.take()
	if err != nil {
		return err
	}
	p.logRules(ctx)

	if !p.supervised {
		return ctx.Load()
	}

	files := []uintptr{os.Stdin.Fd(), os.Stdout.Fd(), os.Stderr.Fd()}
	for _, r := range p.shared {
		files = append(files, r.File.Fd())
	}
	out, err := supervisor.Fork(&forkexec.Runner{Files: files}, p.logger)
	if err != nil {
		return fmt.Errorf("policy: fork: %w", err)
	}
	if out.Role == supervisor.Child {
		if err := p.addTraps(ctx); err != nil {
			return err
		}
		return ctx.Load()
	}

	if err := supervisor.Rendezvous(out.Pid); err != nil {
		return err
	}
	result, err := p.tracer().Run(out.Pid)
	if err != nil {
		p.log().Errorf("policy: tracer: %v", err)
		if result.ExitCode() == 0 {
			os.Exit(1)
		}
	}
	p.log().Debugf("policy: tracee %d %v", out.Pid, result)
	os.Exit(result.ExitCode())
	return nil
}

func (p *Policy) take() (*libseccomp.Context, error) {
	if p.ctx == nil {
		return nil, ErrEmptyContext
	}
	ctx := p.ctx
	p.ctx = nil
	if p.err != nil {
		return nil, p.err
	}
	return ctx, nil
}

// addTraps adds a trace rule for every syscall with a handler
func (p *Policy) addTraps(ctx *libseccomp.Context) error {
	existing := make(map[syscalls.Syscall]seccomp.Action)
	for _, r := range ctx.Rules() {
		existing[r.Syscall] = r.Action
	}
	for _, sc := range p.handlers.Syscalls() {
		if a, ok := existing[sc]; ok && a != seccomp.ActionTrace {
			p.log().Warnf("policy: handler for %v never runs, the %v rule comes first", sc, a)
			continue
		}
		if err := ctx.AddRule(seccomp.ActionTrace, sc); err != nil {
			return err
		}
	}
	return nil
}

func (p *Policy) tracer() *ptracer.Tracer {
	return &ptracer.Tracer{
		Handlers: p.handlers,
		Logger:   p.logger,
	}
}

func (p *Policy) logRules(ctx *libseccomp.Context) {
	l := p.log()
	if !l.IsLevelEnabled(logrus.DebugLevel) {
		return
	}
	l.Debugf("policy: default %v, %d rules, supervised %v", ctx.Default(), ctx.Len(), p.supervised)
	for _, r := range ctx.Rules() {
		l.WithField("syscall", r.Syscall.String()).Debugf("policy: rule %v", r.Action)
	}
}
