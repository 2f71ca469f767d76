// Package config loads policy files written in YAML.
//
//	default: deny
//	allow: [read, write, exit_group]
//	deny: []
//	errno:
//	  openat: EACCES
//	trace: [execve]
package config

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"
	"gopkg.in/yaml.v3"

	"github.com/criyle/restrict/pkg/syscalls"
	"github.com/criyle/restrict/policy"
	"github.com/criyle/restrict/ptracer"
)

// Default values of File.Default
const (
	DefaultAllow = "allow"
	DefaultDeny  = "deny"
)

// File is a decoded policy file
type File struct {
	Default string           `yaml:"default"`
	Allow   []string         `yaml:"allow,omitempty"`
	Deny    []string         `yaml:"deny,omitempty"`
	Errno   map[string]Errno `yaml:"errno,omitempty"`
	Trace   []string         `yaml:"trace,omitempty"`
}

// Errno is an error number written either as a number or by its name
type Errno syscall.Errno

// UnmarshalYAML accepts 13 as well as EACCES
func (e *Errno) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: errno must be a number or a name", value.Line)
	}
	if n, err := strconv.Atoi(value.Value); err == nil {
		if n <= 0 || n > 4095 {
			return fmt.Errorf("line %d: errno %d out of range", value.Line, n)
		}
		*e = Errno(n)
		return nil
	}
	n, ok := errnoByName[strings.ToUpper(value.Value)]
	if !ok {
		return fmt.Errorf("line %d: unknown errno %q", value.Line, value.Value)
	}
	*e = Errno(n)
	return nil
}

var errnoByName = func() map[string]syscall.Errno {
	m := make(map[string]syscall.Errno)
	for i := 1; i < 4096; i++ {
		if name := unix.ErrnoName(syscall.Errno(i)); name != "" {
			m[name] = syscall.Errno(i)
		}
	}
	return m
}()

// Load reads and parses a policy file
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes a policy document, unknown keys are rejected
func Parse(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse policy: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks the default and resolves every syscall name
func (f *File) Validate() error {
	switch f.Default {
	case DefaultAllow, DefaultDeny:
	case "":
		return fmt.Errorf("default is required")
	default:
		return fmt.Errorf("default must be %q or %q, got %q", DefaultAllow, DefaultDeny, f.Default)
	}
	for _, names := range [][]string{f.Allow, f.Deny, f.Trace, f.errnoNames()} {
		if _, err := resolve(names); err != nil {
			return err
		}
	}
	return nil
}

// Policy builds the policy described by the file. Every syscall listed in
// trace is handed to h.
func (f *File) Policy(h ptracer.TraceFunc) (*policy.Policy, error) {
	var (
		p   *policy.Policy
		err error
	)
	if f.Default == DefaultDeny {
		p, err = policy.DenyAll()
	} else {
		p, err = policy.AllowAll()
	}
	if err != nil {
		return nil, err
	}

	allow, err := resolve(f.Allow)
	if err != nil {
		return nil, err
	}
	for _, sc := range allow {
		if err := p.Allow(sc); err != nil {
			return nil, fmt.Errorf("allow %v: %w", sc, err)
		}
	}
	deny, err := resolve(f.Deny)
	if err != nil {
		return nil, err
	}
	for _, sc := range deny {
		if err := p.Deny(sc); err != nil {
			return nil, fmt.Errorf("deny %v: %w", sc, err)
		}
	}
	for _, name := range f.errnoNames() {
		sc, err := syscalls.ByName(name)
		if err != nil {
			return nil, err
		}
		p.FailWith(sc, syscall.Errno(f.Errno[name]))
	}
	if h != nil {
		trace, err := resolve(f.Trace)
		if err != nil {
			return nil, err
		}
		for _, sc := range trace {
			p.Trace(sc, h)
		}
	}
	return p, nil
}

// errnoNames returns the keys of Errno in a stable order
func (f *File) errnoNames() []string {
	names := make([]string, 0, len(f.Errno))
	for n := range f.Errno {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func resolve(names []string) ([]syscalls.Syscall, error) {
	ret := make([]syscalls.Syscall, 0, len(names))
	for _, n := range names {
		sc, err := syscalls.ByName(n)
		if err != nil {
			return nil, err
		}
		ret = append(ret, sc)
	}
	return ret, nil
}
