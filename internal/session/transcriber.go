package session

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrBusy reports a chord press while a session is already in flight.
	ErrBusy = errors.New("a dictation session is already in flight")
	// ErrEmptyTranscript reports that transcription finished without usable
	// speech.
	ErrEmptyTranscript = errors.New("no speech recognized; check microphone input or mute state")
)

// StopResult is the transcriber output consumed by the orchestrator.
type StopResult struct {
	RawTranscript     string
	RefinedTranscript string
	AudioDevice       string
	ASRLatency        time.Duration
	RefineLatency     time.Duration
	UsedFallback      bool
}

// FinalText is the transcript to inject: refined when present, raw otherwise.
func (r StopResult) FinalText() string {
	if strings.TrimSpace(r.RefinedTranscript) != "" {
		return r.RefinedTranscript
	}
	return r.RawTranscript
}

// Transcriber abstracts the capture-and-recognize pipeline.
type Transcriber interface {
	Start(context.Context) error
	StopAndTranscribe(context.Context) (StopResult, error)
	Cancel(context.Context) error
}

// Injector abstracts transcript delivery into the focused application.
type Injector interface {
	Inject(ctx context.Context, text string) error
}

// InjectorFunc adapts a function to the Injector interface.
type InjectorFunc func(ctx context.Context, text string) error

func (f InjectorFunc) Inject(ctx context.Context, text string) error {
	return f(ctx, text)
}
