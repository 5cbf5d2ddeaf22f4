package transcript

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrInvalidReference means no video id could be parsed from the reference.
	ErrInvalidReference = errors.New("invalid video reference")
	// ErrNoCaptionsAvailable means every configured strategy failed.
	ErrNoCaptionsAvailable = errors.New("video has no usable captions")
	// ErrExtractionTimeout means a strategy ran past its own deadline.
	ErrExtractionTimeout = errors.New("transcript extraction timed out")
	// ErrGarbledPayload marks a strategy result that decoded but is unusable.
	ErrGarbledPayload = errors.New("empty or garbled caption payload")
)

// AttemptError records why a single strategy failed.
type AttemptError struct {
	Strategy string
	Elapsed  time.Duration
	Err      error
}

func (e *AttemptError) Error() string {
	return fmt.Sprintf("%s: %v", e.Strategy, e.Err)
}

func (e *AttemptError) Unwrap() error {
	return e.Err
}

// ExhaustedError is returned when no strategy produced a transcript. It
// matches ErrNoCaptionsAvailable, and also ErrExtractionTimeout when the
// last strategy timed out.
type ExhaustedError struct {
	VideoID  string
	Attempts []*AttemptError
}

func (e *ExhaustedError) Error() string {
	if len(e.Attempts) == 0 {
		return fmt.Sprintf("%v for %s: no strategies configured", ErrNoCaptionsAvailable, e.VideoID)
	}
	reasons := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		reasons = append(reasons, a.Error())
	}
	return fmt.Sprintf("%v for %s (%s)", ErrNoCaptionsAvailable, e.VideoID, strings.Join(reasons, "; "))
}

func (e *ExhaustedError) Unwrap() []error {
	errs := []error{ErrNoCaptionsAvailable}
	if n := len(e.Attempts); n > 0 {
		errs = append(errs, e.Attempts[n-1])
	}
	return errs
}

// LastTimedOut reports whether the final attempt failed on its deadline.
func (e *ExhaustedError) LastTimedOut() bool {
	n := len(e.Attempts)
	return n > 0 && errors.Is(e.Attempts[n-1].Err, ErrExtractionTimeout)
}
