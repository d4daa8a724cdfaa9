package hotkey

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.design/x/hotkey"
)

// ErrPermissionDenied reports that the display server refused the global
// hotkey registration, usually because another client already grabbed the
// chord or the session lacks input-hook access.
var ErrPermissionDenied = errors.New("global hotkey registration denied")

// Monitor registers a chord with the display server and turns raw
// keydown/keyup events into debounced press/release callbacks. Key-repeat
// delivers additional keydown events while the chord is held; the held flag
// collapses those into a single press until the matching release arrives.
type Monitor struct {
	logger    *slog.Logger
	chord     Chord
	onPress   func()
	onRelease func()

	held atomic.Bool
}

func NewMonitor(logger *slog.Logger, chord Chord, onPress, onRelease func()) *Monitor {
	return &Monitor{
		logger:    logger,
		chord:     chord,
		onPress:   onPress,
		onRelease: onRelease,
	}
}

// Held reports whether the chord is currently pressed.
func (m *Monitor) Held() bool {
	return m.held.Load()
}

// Run registers the chord and dispatches callbacks until ctx is cancelled.
// Registration failures are wrapped in ErrPermissionDenied.
func (m *Monitor) Run(ctx context.Context) error {
	hk := hotkey.New(m.chord.Mods, m.chord.Key)
	if err := hk.Register(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrPermissionDenied, m.chord, err)
	}
	defer hk.Unregister()

	m.logger.Info("hotkey registered", "chord", m.chord.String())
	m.dispatch(ctx, hk.Keydown(), hk.Keyup())
	return nil
}

// dispatch turns raw keydown/keyup events into edge-triggered callbacks.
// The held CAS collapses key-repeat keydowns into one press per physical
// hold; a hold still open at shutdown gets a synthetic release.
func (m *Monitor) dispatch(ctx context.Context, keydown, keyup <-chan hotkey.Event) {
	for {
		select {
		case <-ctx.Done():
			if m.held.CompareAndSwap(true, false) {
				m.onRelease()
			}
			return
		case <-keydown:
			if m.held.CompareAndSwap(false, true) {
				m.onPress()
			}
		case <-keyup:
			if m.held.CompareAndSwap(true, false) {
				m.onRelease()
			}
		}
	}
}
