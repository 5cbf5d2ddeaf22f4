package ai

import (
	"errors"
	"fmt"
)

var (
	// ErrModelUnavailable covers unreachable backends, server errors and
	// timeouts.
	ErrModelUnavailable = errors.New("model backend unavailable")
	// ErrMalformedModelOutput means the response failed the schema even
	// after repair.
	ErrMalformedModelOutput = errors.New("malformed model output")
	// ErrQuotaExceeded means the backend reported a rate or usage limit.
	ErrQuotaExceeded = errors.New("model quota exceeded")
	// ErrEmptyTranscript means there was nothing to analyze.
	ErrEmptyTranscript = errors.New("empty transcript")
)

// MalformedOutputError keeps the offending payload for diagnosis.
type MalformedOutputError struct {
	Raw string
	Err error
}

func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("%v: %v", ErrMalformedModelOutput, e.Err)
}

func (e *MalformedOutputError) Unwrap() []error {
	return []error{ErrMalformedModelOutput, e.Err}
}
