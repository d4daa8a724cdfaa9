// Package asr sends captured audio to the remote speech recognition service.
package asr

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout reports that every attempt ran out its per-attempt budget.
	ErrTimeout = errors.New("transcription timed out")
	// ErrFailed reports a non-timeout transcription failure after all
	// attempts and fallback were exhausted.
	ErrFailed = errors.New("transcription failed")
)

// ParseError reports a response envelope missing an expected field.
type ParseError struct {
	Field string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("transcription response missing %s", e.Field)
}

type failureClass int

const (
	classTimeout failureClass = iota
	classTransport
	classAuth
	classQuota
	classServer
	classContent
	classParse
)

func (c failureClass) String() string {
	switch c {
	case classTimeout:
		return "timeout"
	case classTransport:
		return "transport"
	case classAuth:
		return "auth"
	case classQuota:
		return "quota"
	case classServer:
		return "server"
	case classContent:
		return "content"
	case classParse:
		return "parse"
	default:
		return "unknown"
	}
}

// attemptError carries the failure class a single request attempt ended with.
type attemptError struct {
	class failureClass
	err   error
}

func (e *attemptError) Error() string {
	return fmt.Sprintf("%s: %v", e.class, e.err)
}

func (e *attemptError) Unwrap() error {
	return e.err
}

// retriable reports whether the same credential is worth another attempt.
// Auth and quota failures will not heal on retry with the same key.
func retriable(err error) bool {
	var ae *attemptError
	if !errors.As(err, &ae) {
		return false
	}
	switch ae.class {
	case classTimeout, classTransport, classServer:
		return true
	default:
		return false
	}
}

// fallbackEligible reports whether the failure class permits switching to
// the fallback credential. Content and parse failures never do: the request
// itself is bad and a different key cannot fix it.
func fallbackEligible(err error) bool {
	var ae *attemptError
	if !errors.As(err, &ae) {
		return false
	}
	switch ae.class {
	case classTimeout, classTransport, classServer, classAuth, classQuota:
		return true
	default:
		return false
	}
}

func isTimeout(err error) bool {
	var ae *attemptError
	return errors.As(err, &ae) && ae.class == classTimeout
}
