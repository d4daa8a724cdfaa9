package session

import "context"

// Completion is the payload of a successful session's final event.
type Completion struct {
	// Text is the injected transcript, refined when refinement ran.
	Text string
	// OriginalText is the raw transcript when it differs from Text.
	OriginalText string
	ASRMillis    int64
	RefineMillis int64
	TotalMillis  int64
	UsedFallback bool
}

// EventSink receives the fixed lifecycle event vocabulary the orchestrator
// publishes to the presentation layer.
type EventSink interface {
	RecordingStarted(ctx context.Context)
	RecordingStopped(ctx context.Context)
	Transcribing(ctx context.Context)
	TranscriptionComplete(ctx context.Context, done Completion)
	TranscriptionCancelled(ctx context.Context)
	Error(ctx context.Context, message string)
}

// NoopSink preserves session flow when no presentation layer is wired.
type NoopSink struct{}

func (NoopSink) RecordingStarted(context.Context)                  {}
func (NoopSink) RecordingStopped(context.Context)                  {}
func (NoopSink) Transcribing(context.Context)                      {}
func (NoopSink) TranscriptionComplete(context.Context, Completion) {}
func (NoopSink) TranscriptionCancelled(context.Context)            {}
func (NoopSink) Error(context.Context, string)                     {}
