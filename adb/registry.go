package adb

import (
	"context"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// DeviceState is the raw state token reported by `adb devices`.
type DeviceState string

const (
	// StateDevice marks a device as connected and authorized for commands.
	StateDevice       DeviceState = "device"
	StateOffline      DeviceState = "offline"
	StateUnauthorized DeviceState = "unauthorized"
	StateUnknown      DeviceState = "unknown"
)

// Device is an immutable snapshot produced by one enumeration call.
type Device struct {
	Serial string      `json:"serial"`
	State  DeviceState `json:"state"`
}

// Header line emitted by `adb devices` before the device rows.
const devicesHeader = "List of devices attached"

// Registry enumerates reachable devices and initiates network connections.
type Registry struct {
	run     Runner
	timeout time.Duration
}

// NewRegistry builds a Registry on top of the given invoker.
func NewRegistry(inv *Invoker) *Registry {
	return &Registry{run: inv, timeout: DefaultSyncTimeout()}
}

// Devices returns the devices that are ready for commands. Entries in other
// states (offline, unauthorized) are excluded; use AllDevices for display.
func (r *Registry) Devices(ctx context.Context) ([]Device, error) {
	return r.enumerate(ctx, true)
}

// AllDevices returns every enumerated device with its raw state text.
func (r *Registry) AllDevices(ctx context.Context) ([]Device, error) {
	return r.enumerate(ctx, false)
}

func (r *Registry) enumerate(ctx context.Context, readyOnly bool) ([]Device, error) {
	res, err := r.run.Run(ctx, "", r.timeout, "devices")
	if err != nil {
		return nil, err
	}
	if res.ExitCode != 0 {
		return nil, pkgerrors.Errorf("adb devices exited %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return parseDevices(res.Stdout, readyOnly), nil
}

func parseDevices(raw string, readyOnly bool) []Device {
	lines := strings.Split(raw, "\n")
	devices := make([]Device, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimRight(strings.TrimSuffix(line, "\r"), " ")
		if line == "" || strings.HasPrefix(line, devicesHeader) {
			continue
		}
		serial, state, ok := strings.Cut(line, "\t")
		if !ok || strings.TrimSpace(serial) == "" {
			continue
		}
		st := DeviceState(strings.TrimSpace(state))
		if st == "" {
			st = StateUnknown
		}
		if readyOnly && st != StateDevice {
			continue
		}
		devices = append(devices, Device{Serial: strings.TrimSpace(serial), State: st})
	}
	return devices
}

// Connect issues a network connect to addr (`ip:port`). Success requires a
// zero exit status AND a connection confirmation in the response text: adb
// can exit zero while reporting a logical failure in prose. The returned
// message is whatever text the tool produced. The error is non-nil only for
// invocation failures (missing binary, timeout).
func (r *Registry) Connect(ctx context.Context, addr string) (bool, string, error) {
	res, err := r.run.Run(ctx, "", r.timeout, "connect", addr)
	if err != nil {
		return false, "", err
	}
	msg := strings.TrimSpace(res.Stdout)
	if msg == "" {
		msg = strings.TrimSpace(res.Stderr)
	}
	ok := res.ExitCode == 0 && strings.Contains(strings.ToLower(res.Stdout), "connected")
	if ok {
		log.Info().Str("addr", addr).Str("response", msg).Msg("device connected over network")
	} else {
		log.Warn().Str("addr", addr).Int("exit", res.ExitCode).Str("response", msg).Msg("network connect failed")
	}
	return ok, msg, nil
}

// Version returns the adb version banner. Use it as a preflight: a missing
// binary surfaces here as ErrToolNotFound before any other call is made.
func (r *Registry) Version(ctx context.Context) (string, error) {
	res, err := r.run.Run(ctx, "", r.timeout, "version")
	if err != nil {
		return "", err
	}
	if res.ExitCode != 0 {
		return "", pkgerrors.Errorf("adb version exited %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	banner, _, _ := strings.Cut(res.Stdout, "\n")
	return strings.TrimSpace(banner), nil
}
