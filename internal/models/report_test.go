package models

import (
	"encoding/json"
	"math"
	"reflect"
	"testing"
)

func TestAnalysisReportWireRoundTrip(t *testing.T) {
	errMsg := "no_captions: video has no usable captions"

	tests := []struct {
		name   string
		report AnalysisReport
	}{
		{
			name: "Successful report",
			report: AnalysisReport{
				HookScore:        7.5,
				RetentionScore:   6,
				SEOScore:         8.25,
				CraftScore:       9,
				Strengths:        []string{"Strong opening", "Clear structure"},
				Improvements:     []string{"Tighten the middle section"},
				SEOKeywords:      []string{"go", "concurrency"},
				TitleSuggestions: []string{"Go Concurrency in 10 Minutes"},
				Summary:          "A focused tutorial.",
				Success:          true,
			},
		},
		{
			name: "Fallback report",
			report: AnalysisReport{
				Strengths:        []string{},
				Improvements:     []string{},
				SEOKeywords:      []string{},
				TitleSuggestions: []string{},
				Summary:          "Automated analysis unavailable.",
				Success:          false,
				Error:            &errMsg,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.report)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}

			var decoded AnalysisReport
			if err := json.Unmarshal(data, &decoded); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}

			if !reflect.DeepEqual(decoded, tt.report) {
				t.Errorf("round trip mismatch:\n got  %+v\n want %+v", decoded, tt.report)
			}
		})
	}
}

func TestAnalysisReportWireFieldNames(t *testing.T) {
	data, err := json.Marshal(AnalysisReport{})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	want := []string{
		"hook_score", "retention_score", "seo_score", "craft_score",
		"strengths", "improvements", "seo_keywords", "title_suggestions",
		"summary", "success", "error",
	}
	if len(fields) != len(want) {
		t.Errorf("got %d fields, want %d: %v", len(fields), len(want), fields)
	}
	for _, name := range want {
		if _, ok := fields[name]; !ok {
			t.Errorf("missing wire field %q", name)
		}
	}
	if fields["error"] != nil {
		t.Errorf("error = %v, want null", fields["error"])
	}
}

func TestClampScore(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{in: 12.5, want: 10},
		{in: -1, want: 0},
		{in: 0, want: 0},
		{in: 10, want: 10},
		{in: 7.3, want: 7.3},
		{in: math.NaN(), want: 0},
		{in: math.Inf(1), want: 10},
	}

	for _, tt := range tests {
		if got := ClampScore(tt.in); got != tt.want {
			t.Errorf("ClampScore(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestScoreAndGradeLabels(t *testing.T) {
	tests := []struct {
		score float64
		label string
		grade string
	}{
		{score: 9.5, label: "Excellent", grade: "A+"},
		{score: 8.2, label: "High", grade: "A"},
		{score: 7.0, label: "High", grade: "B+"},
		{score: 6.0, label: "Medium", grade: "B"},
		{score: 5.0, label: "Low", grade: "C"},
		{score: 2.0, label: "Low", grade: "D"},
	}

	for _, tt := range tests {
		if got := ScoreLabel(tt.score); got != tt.label {
			t.Errorf("ScoreLabel(%v) = %s, want %s", tt.score, got, tt.label)
		}
		if got := GradeLabel(tt.score); got != tt.grade {
			t.Errorf("GradeLabel(%v) = %s, want %s", tt.score, got, tt.grade)
		}
	}
}

func TestRawTranscriptText(t *testing.T) {
	start := 1.5
	tr := &RawTranscript{Segments: []TranscriptSegment{
		{Text: "  hello  ", Start: &start},
		{Text: ""},
		{Text: "world"},
	}}
	if got := tr.Text(); got != "hello world" {
		t.Errorf("Text() = %q, want %q", got, "hello world")
	}

	var nilTranscript *RawTranscript
	if got := nilTranscript.Text(); got != "" {
		t.Errorf("nil Text() = %q, want empty", got)
	}
}
