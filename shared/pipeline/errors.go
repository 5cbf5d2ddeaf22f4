package pipeline

import (
	"context"
	"errors"

	"content-pilot/shared/ai"
	"content-pilot/shared/transcript"
)

// Error codes carried as the prefix of AnalysisReport.Error.
const (
	CodeInvalidReference     = "invalid_reference"
	CodeNoCaptions           = "no_captions"
	CodeExtractionTimeout    = "extraction_timeout"
	CodeModelUnavailable     = "model_unavailable"
	CodeMalformedModelOutput = "malformed_model_output"
	CodeQuotaExceeded        = "quota_exceeded"
	CodeEmptyTranscript      = "empty_transcript"
	CodeCanceled             = "canceled"
	CodeInternal             = "internal"
)

var codeMessages = map[string]string{
	CodeInvalidReference:     "could not find a YouTube video id in the reference",
	CodeNoCaptions:           "video has no usable captions",
	CodeExtractionTimeout:    "transcript extraction timed out",
	CodeModelUnavailable:     "analysis model is unavailable, try again later",
	CodeMalformedModelOutput: "analysis model returned an unreadable report",
	CodeQuotaExceeded:        "analysis quota exceeded, try again later",
	CodeEmptyTranscript:      "transcript had no content left to analyze",
	CodeCanceled:             "request was canceled",
	CodeInternal:             "internal error",
}

// ErrInternal marks failures that are bugs rather than expected outcomes,
// such as a recovered panic.
var ErrInternal = errors.New("internal pipeline error")

// ErrorCode classifies a stage error. Order matters: caller cancellation
// wins over whatever the stage made of it, a strategy chain that
// ended on a timeout matches both ErrExtractionTimeout and
// ErrNoCaptionsAvailable, and quota errors are reported ahead of generic
// unavailability.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInternal):
		return CodeInternal
	case errors.Is(err, context.Canceled):
		return CodeCanceled
	case errors.Is(err, transcript.ErrInvalidReference):
		return CodeInvalidReference
	case errors.Is(err, transcript.ErrExtractionTimeout):
		return CodeExtractionTimeout
	case errors.Is(err, transcript.ErrNoCaptionsAvailable):
		return CodeNoCaptions
	case errors.Is(err, ai.ErrEmptyTranscript):
		return CodeEmptyTranscript
	case errors.Is(err, ai.ErrQuotaExceeded):
		return CodeQuotaExceeded
	case errors.Is(err, ai.ErrMalformedModelOutput):
		return CodeMalformedModelOutput
	case errors.Is(err, ai.ErrModelUnavailable):
		return CodeModelUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return CodeCanceled
	default:
		return CodeInternal
	}
}

// ErrorMessage renders the wire error string for a code.
func ErrorMessage(code string) string {
	msg, ok := codeMessages[code]
	if !ok {
		msg = codeMessages[CodeInternal]
	}
	return code + ": " + msg
}
