// Package inject delivers transcripts into the focused application through a
// scoped clipboard transaction.
package inject

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/atotto/clipboard"
	"github.com/micmonay/keybd_event"
)

// ErrClipboardBusy reports that clipboard access could not be acquired.
// Injection is never retried on this error: a partially applied paste risks
// duplicate insertion.
var ErrClipboardBusy = errors.New("clipboard is busy")

// Clipboard is the subset of clipboard access the injector needs.
type Clipboard interface {
	Read() (string, error)
	Write(text string) error
}

// Keyboard simulates the platform paste shortcut.
type Keyboard interface {
	Paste() error
}

type systemClipboard struct{}

func (systemClipboard) Read() (string, error) {
	return clipboard.ReadAll()
}

func (systemClipboard) Write(text string) error {
	return clipboard.WriteAll(text)
}

type systemKeyboard struct{}

func (systemKeyboard) Paste() error {
	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return fmt.Errorf("open keyboard device: %w", err)
	}
	kb.SetKeys(keybd_event.VK_V)
	kb.HasCTRL(true)
	return kb.Launching()
}

// Injector performs one clipboard transaction per call: snapshot, write,
// paste, restore. The restore step runs on every exit path so the user's
// clipboard content survives failures and cancellation.
type Injector struct {
	logger       *slog.Logger
	clip         Clipboard
	keys         Keyboard
	settle       time.Duration
	restoreDelay time.Duration
}

// New builds an injector backed by the system clipboard and a simulated
// ctrl+v. Settle is the pause between the clipboard write and the paste
// keystroke; restoreDelay gives the focused application time to read the
// clipboard before the snapshot is restored.
func New(logger *slog.Logger, settle, restoreDelay time.Duration) *Injector {
	return NewWithBackends(logger, systemClipboard{}, systemKeyboard{}, settle, restoreDelay)
}

// NewWithBackends builds an injector over explicit clipboard and keyboard
// implementations.
func NewWithBackends(logger *slog.Logger, clip Clipboard, keys Keyboard, settle, restoreDelay time.Duration) *Injector {
	return &Injector{
		logger:       logger,
		clip:         clip,
		keys:         keys,
		settle:       settle,
		restoreDelay: restoreDelay,
	}
}

// Inject pastes text into the focused application. The pre-call clipboard
// content is restored before Inject returns, success or not.
func (i *Injector) Inject(ctx context.Context, text string) error {
	snapshot, err := i.clip.Read()
	if err != nil {
		return fmt.Errorf("%w: read snapshot: %v", ErrClipboardBusy, err)
	}

	defer func() {
		if err := i.clip.Write(snapshot); err != nil {
			i.logger.Error("restore clipboard snapshot failed", "error", err.Error())
		}
	}()

	if err := i.clip.Write(text); err != nil {
		return fmt.Errorf("%w: write transcript: %v", ErrClipboardBusy, err)
	}

	if err := sleepCtx(ctx, i.settle); err != nil {
		return err
	}

	if err := i.keys.Paste(); err != nil {
		return fmt.Errorf("simulate paste: %w", err)
	}

	if err := sleepCtx(ctx, i.restoreDelay); err != nil {
		return err
	}

	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
