package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/devfarm/adbkit/adb"
	"github.com/devfarm/adbkit/history"
	"github.com/rs/zerolog/log"
)

func newInvoker() *adb.Invoker {
	inv := adb.NewInvoker()
	if strings.TrimSpace(rootADBPath) != "" {
		inv.Path = strings.TrimSpace(rootADBPath)
	}
	return inv
}

// preflight verifies the adb binary is usable before any device call.
func preflight(ctx context.Context, inv *adb.Invoker) (*adb.Registry, error) {
	reg := adb.NewRegistry(inv)
	banner, err := reg.Version(ctx)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("version", banner).Msg("adb available")
	return reg, nil
}

// resolveSerial picks the target device: the --serial flag when given,
// otherwise the single ready device.
func resolveSerial(ctx context.Context, reg *adb.Registry) (string, error) {
	if s := strings.TrimSpace(rootSerial); s != "" {
		return s, nil
	}
	devices, err := reg.Devices(ctx)
	if err != nil {
		return "", err
	}
	switch len(devices) {
	case 0:
		return "", fmt.Errorf("no device is ready; check `adbkit devices`")
	case 1:
		return devices[0].Serial, nil
	default:
		return "", fmt.Errorf("%d devices are ready; pick one with --serial", len(devices))
	}
}

// openHistory returns the command history store, or nil when it cannot be
// opened. History is best-effort; a broken store never blocks a command.
func openHistory() *history.Store {
	store, err := history.Open("")
	if err != nil {
		log.Warn().Err(err).Msg("command history unavailable")
		return nil
	}
	return store
}

// recordSync wires a session's sync observer to the history store.
func recordSync(store *history.Store, sess *adb.Session) {
	if store == nil {
		return
	}
	sess.OnSync = func(rec adb.SyncRecord) {
		err := store.Record(context.Background(), history.Entry{
			Serial:      rec.Serial,
			Command:     rec.Command,
			Tier:        rec.Tier,
			TimedOut:    rec.TimedOut,
			Duration:    rec.Duration,
			StdoutBytes: rec.StdoutBytes,
			StderrBytes: rec.StderrBytes,
		})
		if err != nil {
			log.Warn().Err(err).Msg("record command history failed")
		}
	}
}
