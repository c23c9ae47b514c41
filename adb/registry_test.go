package adb

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubRunner struct {
	result Result
	err    error
	calls  [][]string
}

func (s *stubRunner) Run(ctx context.Context, serial string, timeout time.Duration, args ...string) (Result, error) {
	call := append([]string{serial}, args...)
	s.calls = append(s.calls, call)
	return s.result, s.err
}

func TestDevicesFiltersReadyState(t *testing.T) {
	run := &stubRunner{result: Result{
		Stdout: "List of devices attached\nABC123\tdevice\nDEF456\toffline\n",
	}}
	reg := &Registry{run: run, timeout: time.Second}

	devices, err := reg.Devices(context.Background())
	if err != nil {
		t.Fatalf("Devices returned error: %v", err)
	}
	if len(devices) != 1 {
		t.Fatalf("expected 1 device, got %d", len(devices))
	}
	if devices[0].Serial != "ABC123" || devices[0].State != StateDevice {
		t.Fatalf("unexpected device %#v", devices[0])
	}
}

func TestAllDevicesKeepsRawStates(t *testing.T) {
	run := &stubRunner{result: Result{
		Stdout: "List of devices attached\nABC123\tdevice\nDEF456\toffline\nGHI789\tunauthorized\n",
	}}
	reg := &Registry{run: run, timeout: time.Second}

	devices, err := reg.AllDevices(context.Background())
	if err != nil {
		t.Fatalf("AllDevices returned error: %v", err)
	}
	if len(devices) != 3 {
		t.Fatalf("expected 3 devices, got %d", len(devices))
	}
	if devices[1].State != StateOffline || devices[2].State != StateUnauthorized {
		t.Fatalf("raw states not preserved: %#v", devices)
	}
}

func TestConnectZeroExitWithoutMarkerIsFailure(t *testing.T) {
	run := &stubRunner{result: Result{
		Stdout: "failed to authenticate to 1.2.3.4:5555",
	}}
	reg := &Registry{run: run, timeout: time.Second}

	ok, msg, err := reg.Connect(context.Background(), "1.2.3.4:5555")
	if err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}
	if ok {
		t.Fatal("expected failure despite zero exit status")
	}
	if msg == "" {
		t.Fatal("expected response text to be surfaced")
	}
}

func TestConnectSuccess(t *testing.T) {
	run := &stubRunner{result: Result{Stdout: "connected to 1.2.3.4:5555\n"}}
	reg := &Registry{run: run, timeout: time.Second}

	ok, msg, err := reg.Connect(context.Background(), "1.2.3.4:5555")
	if err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}
	if !ok {
		t.Fatalf("expected success, got message %q", msg)
	}
}

func TestVersionSurfacesToolNotFound(t *testing.T) {
	run := &stubRunner{err: ErrToolNotFound}
	reg := &Registry{run: run, timeout: time.Second}

	if _, err := reg.Version(context.Background()); !errors.Is(err, ErrToolNotFound) {
		t.Fatalf("expected ErrToolNotFound, got %v", err)
	}
}
