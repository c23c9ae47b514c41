package adb

import (
	"context"
	"errors"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("test drives unix shell binaries")
	}
}

func TestRunCapturesBothStreamsAndExitCode(t *testing.T) {
	skipOnWindows(t)
	inv := &Invoker{Path: "/bin/sh"}

	res, err := inv.Run(context.Background(), "", 0, "-c", "echo out; echo err 1>&2; exit 3")
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if res.Stdout != "out\n" {
		t.Errorf("stdout = %q", res.Stdout)
	}
	if res.Stderr != "err\n" {
		t.Errorf("stderr = %q", res.Stderr)
	}
	if res.ExitCode != 3 {
		t.Errorf("exit code = %d, want 3", res.ExitCode)
	}
}

func TestRunPrependsTargetSelector(t *testing.T) {
	skipOnWindows(t)
	inv := &Invoker{Path: "/bin/echo"}

	res, err := inv.Run(context.Background(), "SER123", 0, "hello")
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if res.Stdout != "-s SER123 hello\n" {
		t.Fatalf("argv not prefixed with selector: %q", res.Stdout)
	}
}

func TestRunToolNotFound(t *testing.T) {
	inv := &Invoker{Path: filepath.Join(t.TempDir(), "missing-adb")}

	_, err := inv.Run(context.Background(), "", 0, "devices")
	if !errors.Is(err, ErrToolNotFound) {
		t.Fatalf("expected ErrToolNotFound, got %v", err)
	}
}

func TestRunTimeoutCarriesNoPartialOutput(t *testing.T) {
	skipOnWindows(t)
	inv := &Invoker{Path: "/bin/sh"}

	res, err := inv.Run(context.Background(), "", 100*time.Millisecond, "-c", "echo partial; exec sleep 5")
	if !errors.Is(err, ErrTimedOut) {
		t.Fatalf("expected ErrTimedOut, got %v", err)
	}
	if res.Stdout != "" || res.Stderr != "" {
		t.Fatalf("timeout must not carry partial output, got %q / %q", res.Stdout, res.Stderr)
	}
}
