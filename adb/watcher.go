package adb

import (
	"context"
	"time"

	"github.com/devfarm/adbkit/internal/config"
	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// DeviceStateChange reports one observed device transition. A newly seen
// device arrives with Old == StateUnknown; a vanished device leaves with
// New == StateOffline.
type DeviceStateChange struct {
	Serial string
	Old    DeviceState
	New    DeviceState
	At     time.Time
}

type deviceLister interface {
	AllDevices(ctx context.Context) ([]Device, error)
}

// Watcher polls the registry and emits state-change events. Events are
// dropped with a warning when the consumer falls behind; enumeration
// snapshots stay authoritative.
type Watcher struct {
	lister   deviceLister
	interval time.Duration
	events   chan DeviceStateChange
	known    map[string]DeviceState
}

// NewWatcher builds a watcher over the given registry, refreshing at the
// configured interval. The event buffer absorbs bursts from a slow consumer;
// its capacity is tunable through the environment.
func NewWatcher(reg *Registry) *Watcher {
	buffer := config.Int(EnvWatchBuffer, 64)
	if buffer < 1 {
		buffer = 1
	}
	return &Watcher{
		lister:   reg,
		interval: config.Duration(EnvWatchInterval, 5*time.Second),
		events:   make(chan DeviceStateChange, buffer),
		known:    make(map[string]DeviceState),
	}
}

// Events returns the change stream. Closed when Run returns.
func (w *Watcher) Events() <-chan DeviceStateChange {
	return w.events
}

// Run refreshes immediately, then on every tick until the context is
// canceled. A missing adb binary aborts the loop; transient enumeration
// failures are logged and retried on the next tick.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.events)
	if err := w.refresh(ctx); err != nil {
		if pkgerrors.Is(err, ErrToolNotFound) {
			return err
		}
		log.Error().Err(err).Msg("device watcher initial refresh failed")
	}
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := w.refresh(ctx); err != nil {
				if pkgerrors.Is(err, ErrToolNotFound) {
					return err
				}
				log.Error().Err(err).Msg("device watcher refresh failed")
			}
		}
	}
}

func (w *Watcher) refresh(ctx context.Context) error {
	devices, err := w.lister.AllDevices(ctx)
	if err != nil {
		return pkgerrors.Wrap(err, "refresh devices failed")
	}
	now := time.Now()
	seen := make(map[string]struct{}, len(devices))
	for _, dev := range devices {
		seen[dev.Serial] = struct{}{}
		old, ok := w.known[dev.Serial]
		if !ok {
			w.known[dev.Serial] = dev.State
			log.Info().Str("serial", dev.Serial).Str("state", string(dev.State)).Msg("device connected")
			w.emit(DeviceStateChange{Serial: dev.Serial, Old: StateUnknown, New: dev.State, At: now})
			continue
		}
		if old != dev.State {
			w.known[dev.Serial] = dev.State
			log.Info().Str("serial", dev.Serial).Str("from", string(old)).Str("to", string(dev.State)).Msg("device state changed")
			w.emit(DeviceStateChange{Serial: dev.Serial, Old: old, New: dev.State, At: now})
		}
	}
	for serial, old := range w.known {
		if _, ok := seen[serial]; ok {
			continue
		}
		delete(w.known, serial)
		log.Info().Str("serial", serial).Msg("device disconnected")
		w.emit(DeviceStateChange{Serial: serial, Old: old, New: StateOffline, At: now})
	}
	return nil
}

func (w *Watcher) emit(change DeviceStateChange) {
	select {
	case w.events <- change:
	default:
		log.Warn().Str("serial", change.Serial).Msg("device watcher event dropped, consumer too slow")
	}
}
