package models

import "strings"

// TranscriptSegment is one timed chunk of caption text. Start is nil when the
// source carried no timing.
type TranscriptSegment struct {
	Text     string   `json:"text"`
	Start    *float64 `json:"start,omitempty"`
	Duration float64  `json:"duration,omitempty"`
}

// RawTranscript is the output of exactly one successful extraction strategy,
// segments in chronological order.
type RawTranscript struct {
	VideoID         string              `json:"video_id"`
	Language        string              `json:"language,omitempty"`
	Source          string              `json:"source"`
	DurationSeconds int                 `json:"duration_seconds"`
	Segments        []TranscriptSegment `json:"segments"`
}

// Text concatenates the segment texts with single spaces.
func (t *RawTranscript) Text() string {
	if t == nil {
		return ""
	}
	parts := make([]string, 0, len(t.Segments))
	for _, seg := range t.Segments {
		if s := strings.TrimSpace(seg.Text); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// StageReduction records what one preprocessing stage removed.
type StageReduction struct {
	Stage         string  `json:"stage"`
	TokensRemoved int     `json:"tokens_removed"`
	Percent       float64 `json:"percent"`
}

// ReductionMetrics describes how far preprocessing shrank a transcript.
// Percent values are relative to OriginalTokens.
type ReductionMetrics struct {
	OriginalTokens int              `json:"original_tokens"`
	FinalTokens    int              `json:"final_tokens"`
	PercentSaved   float64          `json:"percent_saved"`
	Stages         []StageReduction `json:"stages"`
	Passes         int              `json:"passes"`
}

// CleanedTranscript is the normalized transcript text fed to the model.
type CleanedTranscript struct {
	VideoID         string           `json:"video_id"`
	DurationSeconds int              `json:"duration_seconds"`
	Text            string           `json:"text"`
	Metrics         ReductionMetrics `json:"metrics"`
}
