// Package adb drives the Android Debug Bridge command-line tool: one-shot
// invocations, device enumeration, remote listing parsing, and long-lived
// interactive shell sessions.
package adb

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"time"

	"github.com/devfarm/adbkit/internal/config"
	pkgerrors "github.com/pkg/errors"
)

// Environment variables honored by this package.
const (
	// EnvADBPath overrides the adb binary location (default "adb" via PATH).
	EnvADBPath = "ADBKIT_ADB_PATH"
	// EnvSyncTimeout sets the per-tier timeout for synchronous shell commands.
	EnvSyncTimeout = "ADBKIT_SYNC_TIMEOUT"
	// EnvWatchInterval sets the device watcher refresh interval.
	EnvWatchInterval = "ADBKIT_WATCH_INTERVAL"
	// EnvWatchBuffer sets the device watcher event channel capacity.
	EnvWatchBuffer = "ADBKIT_WATCH_BUFFER"
)

// DefaultSyncTimeout returns the configured per-tier synchronous timeout.
func DefaultSyncTimeout() time.Duration {
	return config.Duration(EnvSyncTimeout, 15*time.Second)
}

var (
	// ErrToolNotFound means the adb binary is missing from the host. Fatal to
	// the whole session; surfaced by the very first enumeration or connect.
	ErrToolNotFound = errors.New("adb binary not found")
	// ErrTimedOut means a one-shot invocation exceeded its timeout. The
	// result carries no partial output.
	ErrTimedOut = errors.New("adb command timed out")
	// ErrSpawnFailed means the interactive shell could not start or restart.
	ErrSpawnFailed = errors.New("interactive shell spawn failed")
)

// Result is the captured outcome of one adb invocation. A non-zero ExitCode
// is a normal result, not an error.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner executes one-shot adb invocations. *Invoker is the real
// implementation; tests substitute stubs.
type Runner interface {
	Run(ctx context.Context, serial string, timeout time.Duration, args ...string) (Result, error)
}

// Invoker spawns the adb binary. Every spawned process, one-shot or
// interactive, has its console window suppressed on platforms where that
// applies.
type Invoker struct {
	// Path is the adb executable. Empty means "adb" resolved via PATH.
	Path string
}

// NewInvoker builds an Invoker using the configured adb path.
func NewInvoker() *Invoker {
	return &Invoker{Path: config.String(EnvADBPath, "adb")}
}

func (inv *Invoker) path() string {
	if inv.Path != "" {
		return inv.Path
	}
	return "adb"
}

// Run invokes adb with the given arguments, prefixing the target selector
// when serial is non-empty. Both output streams are captured as text. A
// timeout of zero means no deadline.
func (inv *Invoker) Run(ctx context.Context, serial string, timeout time.Duration, args ...string) (Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	argv := make([]string, 0, len(args)+2)
	if serial != "" {
		argv = append(argv, "-s", serial)
	}
	argv = append(argv, args...)

	cmd := exec.CommandContext(ctx, inv.path(), argv...)
	hideConsole(cmd)
	// adb forks a background daemon that inherits the pipes; without a wait
	// delay a killed or exited invocation could block on them forever.
	cmd.WaitDelay = 3 * time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return Result{Stdout: stdout.String(), Stderr: stderr.String()}, nil
	}
	// Deadline first: the context kill also surfaces as an ExitError.
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return Result{}, pkgerrors.Wrapf(ErrTimedOut, "adb %v after %s", args, timeout)
	}
	if ctx.Err() != nil {
		return Result{}, pkgerrors.Wrap(ctx.Err(), "adb invocation canceled")
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return Result{
			Stdout:   stdout.String(),
			Stderr:   stderr.String(),
			ExitCode: exitErr.ExitCode(),
		}, nil
	}
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
		return Result{}, pkgerrors.Wrapf(ErrToolNotFound, "%q", inv.path())
	}
	return Result{}, pkgerrors.Wrap(err, "adb invocation failed")
}
