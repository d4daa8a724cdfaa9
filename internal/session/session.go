// Package session coordinates the single-session dictation lifecycle.
package session

import (
	"time"

	"github.com/google/uuid"
)

// Outcome is the terminal disposition of one session.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeFailed    Outcome = "failed"
)

// Session is one record-transcribe-inject cycle. At most one session is in
// a non-terminal state at any time; the controller enforces that invariant.
type Session struct {
	ID        uuid.UUID
	StartedAt time.Time

	RecordingEndedAt     time.Time
	TranscriptionEndedAt time.Time
	FinishedAt           time.Time

	RawTranscript     string
	RefinedTranscript string

	Outcome Outcome
	Err     error
}

func newSession() *Session {
	return &Session{ID: uuid.New(), StartedAt: time.Now()}
}
