package policy

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/criyle/restrict/pkg/forkexec"
	"github.com/criyle/restrict/pkg/rlimit"
	"github.com/criyle/restrict/ptracer"
	"github.com/criyle/restrict/supervisor"
)

// ExecOption configures the program started by Exec
type ExecOption func(*forkexec.Runner)

// WithEnv sets the environment of the program, default is the current one
func WithEnv(env []string) ExecOption {
	return func(r *forkexec.Runner) {
		r.Env = env
	}
}

// WithWorkDir sets the working directory of the program
func WithWorkDir(dir string) ExecOption {
	return func(r *forkexec.Runner) {
		r.WorkDir = dir
	}
}

// WithFiles sets the descriptors of the program, from 0 on. Default is the
// standard input, output and error of the caller.
func WithFiles(files ...uintptr) ExecOption {
	return func(r *forkexec.Runner) {
		r.Files = files
	}
}

// WithRLimits sets resource limits of the program
func WithRLimits(r rlimit.RLimits) ExecOption {
	return func(run *forkexec.Runner) {
		run.RLimits = r.PrepareRLimit()
	}
}

// Exec consumes the policy and runs args under it. The program is traced from
// its execve when the policy has handlers. Exec returns when the program
// exited or was killed by a handler.
func (p *Policy) Exec(args []string, opts ...ExecOption) (ptracer.Result, error) {
	if len(args) == 0 {
		return ptracer.Result{}, fmt.Errorf("policy: exec: empty args")
	}
	ctx, err := p.take()
	if err != nil {
		return ptracer.Result{}, err
	}
	if err := p.addTraps(ctx); err != nil {
		return ptracer.Result{}, err
	}
	p.logRules(ctx)

	filter, err := ctx.Build()
	if err != nil {
		return ptracer.Result{}, err
	}
	path, err := exec.LookPath(args[0])
	if err != nil {
		return ptracer.Result{}, fmt.Errorf("policy: exec: %w", err)
	}

	r := &forkexec.Runner{
		Args:    append([]string{path}, args[1:]...),
		Env:     os.Environ(),
		Files:   []uintptr{os.Stdin.Fd(), os.Stdout.Fd(), os.Stderr.Fd()},
		Seccomp: filter.SockFprog(),
	}
	for _, o := range opts {
		o(r)
	}

	pid, err := supervisor.Start(r, p.logger)
	if err != nil {
		return ptracer.Result{}, fmt.Errorf("policy: exec: %w", err)
	}
	defer runtime.UnlockOSThread()

	if err := supervisor.Rendezvous(pid); err != nil {
		return ptracer.Result{}, err
	}
	result, err := p.tracer().Run(pid)
	p.log().Debugf("policy: %v %v", args, result)
	return result, err
}
