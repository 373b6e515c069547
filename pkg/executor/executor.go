// Package executor wraps external command execution so that callers can be
// tested against fakes.
package executor

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"syscall"
)

// Executor runs external commands: one-shot with captured output, or
// long-running with a terminable handle.
type Executor interface {
	Execute(ctx context.Context, name string, args ...string) (string, error)
	Start(name string, args ...string) (*Process, error)
}

// Process is a handle to a long-running command started with Start.
type Process struct {
	cmd  *exec.Cmd
	once sync.Once
	err  error
}

// PID returns the OS process id.
func (p *Process) PID() int {
	if p.cmd == nil || p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// Terminate sends SIGTERM to the process. Safe to call more than once; only
// the first call signals.
func (p *Process) Terminate() error {
	p.once.Do(func() {
		if p.cmd == nil || p.cmd.Process == nil {
			return
		}
		p.err = p.cmd.Process.Signal(syscall.SIGTERM)
	})
	return p.err
}

type implExecutor struct{}

// New creates a new Executor instance.
func New() Executor {
	return &implExecutor{}
}

// Execute runs an external command and waits for it to finish, returning
// stdout. Stderr is folded into the error for debugging.
func (e *implExecutor) Execute(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		stderrStr := strings.TrimSpace(stderr.String())
		if stderrStr != "" {
			return "", fmt.Errorf("command '%s' failed: %w\nstderr: %s", name, err, stderrStr)
		}
		return "", fmt.Errorf("command '%s' failed: %w", name, err)
	}

	return stdout.String(), nil
}

// Start launches a long-running command and returns immediately. A reaper
// goroutine waits on the process so it never becomes a zombie.
func (e *implExecutor) Start(name string, args ...string) (*Process, error) {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start '%s': %w", name, err)
	}
	go func() { _ = cmd.Wait() }()
	return &Process{cmd: cmd}, nil
}
