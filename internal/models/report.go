package models

import (
	"math"
	"time"
)

// Score bounds for every AnalysisReport score.
const (
	MinScore = 0.0
	MaxScore = 10.0
)

// AnalysisReport is the structured content-quality report. The JSON field
// names are the wire contract consumed by callers and must not change.
type AnalysisReport struct {
	HookScore        float64  `json:"hook_score"`
	RetentionScore   float64  `json:"retention_score"`
	SEOScore         float64  `json:"seo_score"`
	CraftScore       float64  `json:"craft_score"`
	Strengths        []string `json:"strengths"`
	Improvements     []string `json:"improvements"`
	SEOKeywords      []string `json:"seo_keywords"`
	TitleSuggestions []string `json:"title_suggestions"`
	Summary          string   `json:"summary"`
	Success          bool     `json:"success"`
	Error            *string  `json:"error"`
}

// ErrorMessage returns the error text or "" when the report succeeded.
func (r *AnalysisReport) ErrorMessage() string {
	if r == nil || r.Error == nil {
		return ""
	}
	return *r.Error
}

// ClampScore bounds a score to [MinScore, MaxScore].
func ClampScore(v float64) float64 {
	if math.IsNaN(v) {
		return MinScore
	}
	if v < MinScore {
		return MinScore
	}
	if v > MaxScore {
		return MaxScore
	}
	return v
}

// ScoreLabel maps a 0-10 score to the wording used in digests.
func ScoreLabel(score float64) string {
	switch {
	case score >= 8.5:
		return "Excellent"
	case score >= 7.0:
		return "High"
	case score >= 5.5:
		return "Medium"
	default:
		return "Low"
	}
}

// GradeLabel maps a 0-10 score to a letter grade.
func GradeLabel(score float64) string {
	switch {
	case score >= 9.0:
		return "A+"
	case score >= 8.0:
		return "A"
	case score >= 7.0:
		return "B+"
	case score >= 6.0:
		return "B"
	case score >= 5.0:
		return "C"
	default:
		return "D"
	}
}

// ReportEntry pairs a report with the video it describes, for digests.
type ReportEntry struct {
	Video     *Video            `json:"video"`
	Report    *AnalysisReport   `json:"report"`
	Reduction *ReductionMetrics `json:"reduction,omitempty"`
	Source    string            `json:"source,omitempty"`
}

// DigestReport is one scheduled run's worth of reports for email delivery.
type DigestReport struct {
	Date      time.Time      `json:"date"`
	Entries   []*ReportEntry `json:"entries"`
	Requested int            `json:"requested"`
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
}
