package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/yyyzl/push-2-talk/internal/fsm"
	"github.com/yyyzl/push-2-talk/internal/ipc"
)

type action int

const (
	actionStop action = iota + 1
	actionCancel
)

// Controller owns the single current-session slot. Chord presses, chord
// releases, IPC commands, and network completions all funnel through one
// mutex-guarded state machine; a press while a session is in flight is
// rejected, never queued.
type Controller struct {
	logger     *slog.Logger
	transcribe Transcriber
	inject     Injector
	sink       EventSink

	mu              sync.RWMutex
	state           fsm.State
	current         *Session
	abort           context.CancelFunc
	cancelRequested bool

	actions chan action
	wg      sync.WaitGroup
}

// NewController wires the orchestrator. A nil sink is replaced with NoopSink.
func NewController(logger *slog.Logger, transcriber Transcriber, injector Injector, sink EventSink) *Controller {
	if sink == nil {
		sink = NoopSink{}
	}
	if injector == nil {
		injector = InjectorFunc(func(context.Context, string) error { return nil })
	}
	return &Controller{
		logger:     logger,
		transcribe: transcriber,
		inject:     injector,
		sink:       sink,
		state:      fsm.StateIdle,
		actions:    make(chan action, 1),
	}
}

// State returns the current state snapshot.
func (c *Controller) State() fsm.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Press starts a new session. While any session is in flight the press is a
// no-op and ErrBusy is returned.
func (c *Controller) Press(ctx context.Context) error {
	c.mu.Lock()
	next, err := fsm.Transition(c.state, fsm.EventStart)
	if err != nil {
		state := c.state
		c.mu.Unlock()
		c.logger.Debug("chord press ignored", "state", string(state))
		return ErrBusy
	}
	c.state = next
	sess := newSession()
	c.current = sess
	c.cancelRequested = false
	// Drop any action left over from a previous session.
	select {
	case <-c.actions:
	default:
	}
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run(ctx, sess)
	}()
	return nil
}

// Release requests the recording-to-transcription handoff. Releases outside
// the Recording state are ignored.
func (c *Controller) Release() {
	if c.State() != fsm.StateRecording {
		return
	}
	select {
	case c.actions <- actionStop:
	default:
	}
}

// Cancel aborts the in-flight session at whatever stage it is in. While
// recording it is delivered through the action queue; later stages are
// interrupted by cancelling the session context so outstanding network
// calls return immediately.
func (c *Controller) Cancel() error {
	c.mu.Lock()
	switch c.state {
	case fsm.StateRecording:
		c.cancelRequested = true
		c.mu.Unlock()
		select {
		case c.actions <- actionCancel:
		default:
		}
		return nil
	case fsm.StateTranscribing, fsm.StateInjecting:
		c.cancelRequested = true
		abort := c.abort
		c.mu.Unlock()
		if abort != nil {
			abort()
		}
		return nil
	default:
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("cannot cancel from state %s", state)
	}
}

// Wait blocks until the in-flight session goroutine, if any, has finished.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Handle serves IPC control commands against the live controller.
func (c *Controller) Handle(_ context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case ipc.CommandStatus:
		return ipc.Response{OK: true, State: string(c.State()), Message: "status"}
	case ipc.CommandStop:
		state := c.State()
		if state != fsm.StateRecording {
			return ipc.Response{OK: false, State: string(state), Error: fmt.Sprintf("cannot stop from state %s", state)}
		}
		c.Release()
		return ipc.Response{OK: true, State: string(state), Message: "stop requested"}
	case ipc.CommandCancel:
		if err := c.Cancel(); err != nil {
			return ipc.Response{OK: false, State: string(c.State()), Error: err.Error()}
		}
		return ipc.Response{OK: true, State: string(c.State()), Message: "cancel requested"}
	default:
		return ipc.Response{OK: false, State: string(c.State()), Error: fmt.Sprintf("unknown command: %s", req.Command)}
	}
}

// run drives one session from recording start to a terminal outcome.
func (c *Controller) run(ctx context.Context, sess *Session) {
	runCtx, abort := context.WithCancel(ctx)
	defer abort()
	c.mu.Lock()
	c.abort = abort
	c.mu.Unlock()

	if err := c.transcribe.Start(runCtx); err != nil {
		c.fail(sess, fmt.Errorf("start recording: %w", err))
		return
	}
	c.logger.Info("recording started", "session", sess.ID.String())
	c.sink.RecordingStarted(ctx)

	var act action
	select {
	case <-runCtx.Done():
		c.cancelSession(sess)
		return
	case act = <-c.actions:
	}

	if act == actionCancel {
		c.cancelSession(sess)
		return
	}
	// A cancel that raced a queued stop loses its slot in the size-1 action
	// queue; the cancelRequested flag survives that race.
	if c.wasCancelled() {
		c.cancelSession(sess)
		return
	}

	sess.RecordingEndedAt = time.Now()
	if err := c.transition(fsm.EventStop); err != nil {
		c.fail(sess, err)
		return
	}
	c.sink.RecordingStopped(ctx)
	c.sink.Transcribing(ctx)

	stop, err := c.transcribe.StopAndTranscribe(runCtx)
	sess.TranscriptionEndedAt = time.Now()
	if err != nil {
		if c.wasCancelled() || errors.Is(err, context.Canceled) {
			c.cancelSession(sess)
			return
		}
		c.fail(sess, err)
		return
	}
	if c.wasCancelled() {
		c.cancelSession(sess)
		return
	}

	sess.RawTranscript = stop.RawTranscript
	sess.RefinedTranscript = stop.RefinedTranscript

	text := stop.FinalText()
	if strings.TrimSpace(text) == "" {
		c.fail(sess, ErrEmptyTranscript)
		return
	}

	if err := c.transition(fsm.EventTranscribed); err != nil {
		c.fail(sess, err)
		return
	}

	if err := c.inject.Inject(runCtx, text); err != nil {
		if c.wasCancelled() || errors.Is(err, context.Canceled) {
			c.cancelSession(sess)
			return
		}
		c.fail(sess, err)
		return
	}

	if err := c.transition(fsm.EventInjected); err != nil {
		c.fail(sess, err)
		return
	}

	sess.Outcome = OutcomeCompleted
	sess.FinishedAt = time.Now()
	c.clearCurrent()

	done := Completion{
		Text:         text,
		ASRMillis:    stop.ASRLatency.Milliseconds(),
		RefineMillis: stop.RefineLatency.Milliseconds(),
		TotalMillis:  sess.FinishedAt.Sub(sess.StartedAt).Milliseconds(),
		UsedFallback: stop.UsedFallback,
	}
	if stop.RefinedTranscript != "" && stop.RefinedTranscript != stop.RawTranscript {
		done.OriginalText = stop.RawTranscript
	}

	c.logger.Info("session completed",
		"session", sess.ID.String(),
		"asr_ms", done.ASRMillis,
		"refine_ms", done.RefineMillis,
		"total_ms", done.TotalMillis,
		"used_fallback", done.UsedFallback)
	c.sink.TranscriptionComplete(ctx, done)
}

// transition applies one lifecycle event to the controller state.
func (c *Controller) transition(event fsm.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := fsm.Transition(c.state, event)
	if err != nil {
		return err
	}
	c.state = next
	return nil
}

func (c *Controller) wasCancelled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cancelRequested
}

func (c *Controller) clearCurrent() {
	c.mu.Lock()
	c.current = nil
	c.abort = nil
	c.mu.Unlock()
}

// cancelSession discards the in-flight session: the recorder buffer is
// dropped and no completion event ever fires for it.
func (c *Controller) cancelSession(sess *Session) {
	_ = c.transcribe.Cancel(context.Background())

	c.mu.Lock()
	if next, err := fsm.Transition(c.state, fsm.EventCancel); err == nil {
		c.state = next
	} else {
		c.state = fsm.StateIdle
	}
	c.current = nil
	c.abort = nil
	c.mu.Unlock()

	sess.Outcome = OutcomeCancelled
	sess.FinishedAt = time.Now()
	c.logger.Info("session cancelled", "session", sess.ID.String())
	c.sink.TranscriptionCancelled(context.Background())
}

// fail routes any component error through the Error state and back to Idle.
// Cleanup runs before the error event is published.
func (c *Controller) fail(sess *Session, err error) {
	_ = c.transcribe.Cancel(context.Background())

	c.mu.Lock()
	if next, terr := fsm.Transition(c.state, fsm.EventFail); terr == nil {
		c.state = next
	}
	if next, terr := fsm.Transition(c.state, fsm.EventReset); terr == nil {
		c.state = next
	}
	c.current = nil
	c.abort = nil
	c.mu.Unlock()

	sess.Outcome = OutcomeFailed
	sess.Err = err
	sess.FinishedAt = time.Now()
	c.logger.Error("session failed", "session", sess.ID.String(), "error", err.Error())
	c.sink.Error(context.Background(), err.Error())
}
