// Package notify surfaces session lifecycle events as desktop notifications.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/yyyzl/push-2-talk/internal/config"
	"github.com/yyyzl/push-2-talk/internal/session"
)

const (
	// stateTimeoutMS keeps in-progress notifications up until replaced.
	stateTimeoutMS    = 300000
	terminalTimeoutMS = 1600
	summaryLimit      = 60
	notifyDeadline    = 2 * time.Second
)

type sendFunc func(ctx context.Context, appName string, replaceID uint32, summary, body string, timeoutMS int) (uint32, error)

// Notifier implements session.EventSink over freedesktop notifications.
// Successive lifecycle states replace one another instead of stacking.
type Notifier struct {
	logger *slog.Logger
	cfg    config.NotifyConfig
	send   sendFunc

	mu     sync.Mutex
	lastID uint32
}

var _ session.EventSink = (*Notifier)(nil)

func New(logger *slog.Logger, cfg config.NotifyConfig) *Notifier {
	return &Notifier{logger: logger, cfg: cfg, send: desktopNotify}
}

func (n *Notifier) RecordingStarted(ctx context.Context) {
	n.show(ctx, "Recording…", "", stateTimeoutMS)
}

func (n *Notifier) RecordingStopped(context.Context) {
	// The transcribing notification replaces this state immediately.
}

func (n *Notifier) Transcribing(ctx context.Context) {
	n.show(ctx, "Transcribing…", "", stateTimeoutMS)
}

func (n *Notifier) TranscriptionComplete(ctx context.Context, done Completion) {
	n.show(ctx, "Inserted: "+truncate(done.Text, summaryLimit),
		fmt.Sprintf("asr %dms · total %dms", done.ASRMillis, done.TotalMillis),
		terminalTimeoutMS)
}

func (n *Notifier) TranscriptionCancelled(ctx context.Context) {
	n.show(ctx, "Dictation cancelled", "", terminalTimeoutMS)
}

func (n *Notifier) Error(ctx context.Context, message string) {
	timeout := n.cfg.ErrorTimeoutMS
	if timeout <= 0 {
		timeout = terminalTimeoutMS
	}
	n.show(ctx, "Dictation failed", message, timeout)
}

// Completion aliases the session payload so callers need only this package.
type Completion = session.Completion

// show delivers one notification, replacing the previous one. Notification
// failures are logged and swallowed; they must never fail a session.
func (n *Notifier) show(ctx context.Context, summary, body string, timeoutMS int) {
	if !n.cfg.Enable {
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	callCtx, cancel := context.WithTimeout(withoutCancel(ctx), notifyDeadline)
	defer cancel()

	id, err := n.send(callCtx, n.cfg.AppName, n.lastID, summary, body, timeoutMS)
	if err != nil {
		n.logger.Warn("desktop notification failed", "error", err.Error())
		return
	}
	n.lastID = id
}

// withoutCancel detaches notification delivery from session cancellation so
// terminal notifications still appear for cancelled sessions.
func withoutCancel(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return context.WithoutCancel(ctx)
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "…"
}
