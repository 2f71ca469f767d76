// Command restrict runs a program under a syscall policy file.
//
//	restrict -c policy.yaml [--trace name]... -- prog args...
//	restrict -c policy.yaml --check name...
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/criyle/restrict/config"
	"github.com/criyle/restrict/pkg/rlimit"
	"github.com/criyle/restrict/pkg/syscalls"
	"github.com/criyle/restrict/policy"
	"github.com/criyle/restrict/ptracer"
)

var (
	configPath string
	verbose    bool
	traces     []string
	checks     []string
	limits     rlimit.RLimits
)

func printUsage(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, "Usage: %s [options] -- <prog> [args...]\n", os.Args[0])
	flagSet.PrintDefaults()
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	flagSet := pflag.NewFlagSet("restrict", pflag.ContinueOnError)
	flagSet.StringVarP(&configPath, "config", "c", "", "policy file (default: allow everything)")
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "log the applied rules and the tracer events")
	flagSet.StringArrayVar(&traces, "trace", nil, "log every call of the syscall (repeatable)")
	flagSet.StringArrayVar(&checks, "check", nil, "print the action taken for the syscall and exit (repeatable)")
	flagSet.Uint64Var(&limits.CPU, "cpu", 0, "CPU time limit in seconds")
	flagSet.Uint64Var(&limits.AddressSpace, "as", 0, "address space limit in bytes")
	flagSet.Uint64Var(&limits.FileSize, "fsize", 0, "file size limit in bytes")
	flagSet.Uint64Var(&limits.OpenFile, "nofile", 0, "open file limit")
	flagSet.BoolVar(&limits.DisableCore, "no-core", false, "disable core dumps")
	flagSet.Usage = func() { printUsage(flagSet) }
	if err := flagSet.Parse(argv); err != nil {
		if err == pflag.ErrHelp {
			return 0
		}
		return 2
	}

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	args := flagSet.Args()
	if len(args) == 0 && len(checks) == 0 {
		printUsage(flagSet)
		return 2
	}

	p, err := buildPolicy(logger)
	if err != nil {
		logger.Errorf("restrict: %v", err)
		return 1
	}

	if len(checks) > 0 {
		for _, name := range checks {
			sc, err := syscalls.ByName(name)
			if err != nil {
				logger.Errorf("restrict: %v", err)
				return 1
			}
			a, err := p.Evaluate(sc)
			if err != nil {
				logger.Errorf("restrict: %v", err)
				return 1
			}
			fmt.Printf("%s: %v\n", sc, a)
		}
		return 0
	}

	if limits.CPU > 0 {
		// SIGXCPU at the soft limit, SIGKILL a second later
		limits.CPUHard = limits.CPU + 1
	}
	logger.Debugf("restrict: %v", limits)
	result, err := p.Exec(args, policy.WithRLimits(limits))
	if err != nil {
		logger.Errorf("restrict: %v", err)
		if result.ExitCode() == 0 {
			return 1
		}
	}
	logger.Debugf("restrict: %v", result)
	return result.ExitCode()
}

func buildPolicy(logger *logrus.Logger) (*policy.Policy, error) {
	f := &config.File{Default: config.DefaultAllow}
	if configPath != "" {
		var err error
		if f, err = config.Load(configPath); err != nil {
			return nil, err
		}
	}
	f.Trace = append(f.Trace, traces...)

	p, err := f.Policy(func(sc syscalls.Syscall) ptracer.Verdict {
		logger.WithField("syscall", sc.String()).Info("restrict: traced")
		return ptracer.Continue
	})
	if err != nil {
		return nil, err
	}
	return p.SetLogger(logger), nil
}
