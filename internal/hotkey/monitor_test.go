package hotkey

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.design/x/hotkey"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type dispatchHarness struct {
	monitor  *Monitor
	keydown  chan hotkey.Event
	keyup    chan hotkey.Event
	cancel   context.CancelFunc
	done     chan struct{}
	presses  int
	releases int
}

func startDispatch(t *testing.T) *dispatchHarness {
	t.Helper()

	chord, err := ParseChord("ctrl+alt+space")
	require.NoError(t, err)

	h := &dispatchHarness{
		keydown: make(chan hotkey.Event),
		keyup:   make(chan hotkey.Event),
		done:    make(chan struct{}),
	}
	h.monitor = NewMonitor(testLogger(), chord,
		func() { h.presses++ },
		func() { h.releases++ },
	)

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() {
		defer close(h.done)
		h.monitor.dispatch(ctx, h.keydown, h.keyup)
	}()
	return h
}

// finish stops the dispatch loop; callback counters are safe to read after.
func (h *dispatchHarness) finish() {
	h.cancel()
	<-h.done
}

func TestDispatchCollapsesKeyRepeatIntoOnePress(t *testing.T) {
	h := startDispatch(t)

	// OS key repeat delivers keydown continuously while the chord is held.
	for i := 0; i < 5; i++ {
		h.keydown <- hotkey.Event{}
	}
	h.keyup <- hotkey.Event{}
	h.finish()

	require.Equal(t, 1, h.presses)
	require.Equal(t, 1, h.releases)
	require.False(t, h.monitor.Held())
}

func TestDispatchFiresOncePerHold(t *testing.T) {
	h := startDispatch(t)

	h.keydown <- hotkey.Event{}
	h.keyup <- hotkey.Event{}
	h.keydown <- hotkey.Event{}
	h.keydown <- hotkey.Event{}
	h.keyup <- hotkey.Event{}
	h.finish()

	require.Equal(t, 2, h.presses)
	require.Equal(t, 2, h.releases)
}

func TestDispatchIgnoresReleaseWithoutPress(t *testing.T) {
	h := startDispatch(t)

	h.keyup <- hotkey.Event{}
	h.finish()

	require.Zero(t, h.presses)
	require.Zero(t, h.releases)
}

func TestDispatchSynthesizesReleaseOnShutdownMidHold(t *testing.T) {
	h := startDispatch(t)

	h.keydown <- hotkey.Event{}
	h.finish()

	require.Equal(t, 1, h.presses)
	require.Equal(t, 1, h.releases)
	require.False(t, h.monitor.Held())
}
