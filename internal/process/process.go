// Package process runs helper binaries (the adb executable) as child
// processes with their console window suppressed on Windows.
package process

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"
	"sync"
	"time"

	"headsetctl/util"
)

// waitDelay bounds how long Run waits for output pipes after the child
// exits.  adb forks a server daemon that can inherit them.
const waitDelay = 2 * time.Second

// Spawner runs a program to completion and returns its combined
// stdout and stderr.
type Spawner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ErrNotFound is returned when the program cannot be located.
var ErrNotFound = exec.ErrNotFound

// Exec is the Spawner backed by os/exec.
type Exec struct {
	Logger *util.Logger
}

// Run starts name with args and waits for it.  A non-zero exit is an
// error that still comes with the captured output.
func (e Exec) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.WaitDelay = waitDelay
	hideConsole(cmd)

	if e.Logger != nil {
		e.Logger.Debug("exec: %s", cmd.String())
	}

	out, err := cmd.CombinedOutput()
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("exec %q: %w", name, ErrNotFound)
		}
		if ctx.Err() != nil {
			return out, fmt.Errorf("exec %s %s: %w", name, strings.Join(args, " "), ctx.Err())
		}
		return out, fmt.Errorf("exec %s %s: %w", name, strings.Join(args, " "), err)
	}
	return out, nil
}

// ExitCode reports the status of a child that ran and exited non-zero.
// ok is false for every other error, including a program that could
// not be started at all.
func ExitCode(err error) (code int, ok bool) {
	var ee *exec.ExitError
	if !errors.As(err, &ee) {
		return 0, false
	}
	return ee.ExitCode(), true
}

// ── Test double ──────────────────────────────────────────────────────

// Call is one recorded Spawner invocation.
type Call struct {
	Name string
	Args []string
}

func (c Call) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Recorder is a Spawner that records invocations and answers through
// Func (nil answers with empty output).
type Recorder struct {
	Func func(ctx context.Context, call Call) ([]byte, error)

	mu    sync.Mutex
	calls []Call
}

// Run implements Spawner.
func (r *Recorder) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	c := Call{Name: name, Args: append([]string(nil), args...)}
	r.mu.Lock()
	r.calls = append(r.calls, c)
	r.mu.Unlock()
	if r.Func == nil {
		return nil, nil
	}
	return r.Func(ctx, c)
}

// Calls returns the invocations so far.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}
