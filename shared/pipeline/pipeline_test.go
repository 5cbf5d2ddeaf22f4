package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"content-pilot/internal/models"
	"content-pilot/shared/ai"
	"content-pilot/shared/nlp"
	"content-pilot/shared/transcript"
)

type fakeExtractor struct {
	raw   *models.RawTranscript
	err   error
	block bool
	panic bool
}

func (f *fakeExtractor) Extract(ctx context.Context, ref string) (*models.RawTranscript, error) {
	if f.panic {
		panic("extractor exploded")
	}
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	raw := *f.raw
	return &raw, nil
}

type fakeAnalyzer struct {
	report *models.AnalysisReport
	err    error
	block  bool

	mu   sync.Mutex
	seen []*models.CleanedTranscript
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, t *models.CleanedTranscript) (*models.AnalysisReport, error) {
	f.mu.Lock()
	f.seen = append(f.seen, t)
	f.mu.Unlock()
	if f.block {
		<-ctx.Done()
		return nil, fmt.Errorf("%w: %w", ai.ErrModelUnavailable, ctx.Err())
	}
	if strings.TrimSpace(t.Text) == "" {
		return nil, ai.ErrEmptyTranscript
	}
	return f.report, f.err
}

func (f *fakeAnalyzer) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.seen)
}

func sampleRaw() *models.RawTranscript {
	start := 1.0
	return &models.RawTranscript{
		VideoID:         "dQw4w9WgXcQ",
		Source:          "timedtext",
		DurationSeconds: 240,
		Segments: []models.TranscriptSegment{
			{Text: "[00:01] Um, so, basically, this is great.", Start: &start, Duration: 2},
			{Text: "Um, so, basically, this is great.", Start: &start, Duration: 2},
		},
	}
}

func goodReport() *models.AnalysisReport {
	return &models.AnalysisReport{
		HookScore:        8,
		RetentionScore:   7,
		SEOScore:         6,
		CraftScore:       9,
		Strengths:        []string{"Strong hook"},
		Improvements:     []string{"Shorter intro"},
		SEOKeywords:      []string{"espresso"},
		TitleSuggestions: []string{"Espresso at Home"},
		Summary:          "A short espresso guide.",
		Success:          true,
	}
}

type transitions struct {
	mu    sync.Mutex
	steps []string
}

func (tr *transitions) observe(_ string, from, to State) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.steps = append(tr.steps, fmt.Sprintf("%s>%s", from, to))
}

func TestRunSuccess(t *testing.T) {
	analyzer := &fakeAnalyzer{report: goodReport()}
	tr := &transitions{}
	o := New(&fakeExtractor{raw: sampleRaw()}, nlp.Default(), analyzer, WithObserver(tr.observe))

	out := o.RunDetailed(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
	require.True(t, out.Succeeded())
	assert.Equal(t, StateDone, out.State)
	assert.Empty(t, out.Code)
	assert.NoError(t, out.Err)
	assert.Equal(t, "dQw4w9WgXcQ", out.VideoID)
	assert.Equal(t, "timedtext", out.Source)
	assert.NotEmpty(t, out.RequestID)
	assert.Same(t, analyzer.report, out.Report)
	assert.True(t, out.Report.Success)

	require.NotNil(t, out.Reduction)
	assert.LessOrEqual(t, out.Reduction.FinalTokens, out.Reduction.OriginalTokens)
	assert.Greater(t, out.Reduction.PercentSaved, 0.0)

	require.Equal(t, 1, analyzer.calls())
	seen := analyzer.seen[0]
	assert.Equal(t, "this is great.", seen.Text)
	assert.Equal(t, 240, seen.DurationSeconds)

	assert.Equal(t, []string{">extracting", "extracting>cleaning", "cleaning>analyzing", "analyzing>done"}, tr.steps)
	assert.Contains(t, out.Durations, StateExtracting)
	assert.Contains(t, out.Durations, StateAnalyzing)
}

func TestRunFallbackReports(t *testing.T) {
	timeoutChain := &transcript.ExhaustedError{
		VideoID: "dQw4w9WgXcQ",
		Attempts: []*transcript.AttemptError{
			{Strategy: "timedtext", Err: errors.New("HTTP 404")},
			{Strategy: "ytdlp", Err: fmt.Errorf("%w after 20s", transcript.ErrExtractionTimeout)},
		},
	}
	exhausted := &transcript.ExhaustedError{
		VideoID:  "dQw4w9WgXcQ",
		Attempts: []*transcript.AttemptError{{Strategy: "timedtext", Err: errors.New("no caption tracks")}},
	}

	tests := []struct {
		name      string
		extractor *fakeExtractor
		analyzer  *fakeAnalyzer
		code      string
		stage     State
	}{
		{
			name:      "invalid reference",
			extractor: &fakeExtractor{err: fmt.Errorf("%w: %q", transcript.ErrInvalidReference, "not a video")},
			analyzer:  &fakeAnalyzer{report: goodReport()},
			code:      CodeInvalidReference,
			stage:     StateExtracting,
		},
		{
			name:      "every strategy failed",
			extractor: &fakeExtractor{err: exhausted},
			analyzer:  &fakeAnalyzer{report: goodReport()},
			code:      CodeNoCaptions,
			stage:     StateExtracting,
		},
		{
			name:      "last strategy timed out",
			extractor: &fakeExtractor{err: timeoutChain},
			analyzer:  &fakeAnalyzer{report: goodReport()},
			code:      CodeExtractionTimeout,
			stage:     StateExtracting,
		},
		{
			name:      "model unavailable",
			extractor: &fakeExtractor{raw: sampleRaw()},
			analyzer:  &fakeAnalyzer{err: fmt.Errorf("%w: 503", ai.ErrModelUnavailable)},
			code:      CodeModelUnavailable,
			stage:     StateAnalyzing,
		},
		{
			name:      "quota",
			extractor: &fakeExtractor{raw: sampleRaw()},
			analyzer:  &fakeAnalyzer{err: fmt.Errorf("%w: slow down", ai.ErrQuotaExceeded)},
			code:      CodeQuotaExceeded,
			stage:     StateAnalyzing,
		},
		{
			name:      "malformed output",
			extractor: &fakeExtractor{raw: sampleRaw()},
			analyzer:  &fakeAnalyzer{err: &ai.MalformedOutputError{Raw: "nope", Err: errors.New("no JSON object found")}},
			code:      CodeMalformedModelOutput,
			stage:     StateAnalyzing,
		},
		{
			name: "nothing left after cleaning",
			extractor: &fakeExtractor{raw: &models.RawTranscript{
				VideoID:  "dQw4w9WgXcQ",
				Segments: []models.TranscriptSegment{{Text: "[Music]"}},
			}},
			analyzer: &fakeAnalyzer{report: goodReport()},
			code:     CodeEmptyTranscript,
			stage:    StateAnalyzing,
		},
		{
			name:      "analyzer returned nothing",
			extractor: &fakeExtractor{raw: sampleRaw()},
			analyzer:  &fakeAnalyzer{},
			code:      CodeInternal,
			stage:     StateAnalyzing,
		},
		{
			name:      "panic",
			extractor: &fakeExtractor{panic: true},
			analyzer:  &fakeAnalyzer{report: goodReport()},
			code:      CodeInternal,
			stage:     StateExtracting,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := New(tt.extractor, nlp.Default(), tt.analyzer)

			var out *Outcome
			require.NotPanics(t, func() {
				out = o.RunDetailed(context.Background(), "dQw4w9WgXcQ")
			})

			assert.Equal(t, StateFailed, out.State)
			assert.Equal(t, tt.stage, out.FailedStage)
			assert.Equal(t, tt.code, out.Code)
			assert.Error(t, out.Err)
			assertFallback(t, out.Report, tt.code)
		})
	}
}

func assertFallback(t *testing.T, report *models.AnalysisReport, code string) {
	t.Helper()
	require.NotNil(t, report)
	assert.False(t, report.Success)
	require.NotNil(t, report.Error)
	assert.True(t, strings.HasPrefix(*report.Error, code+": "), *report.Error)
	assert.True(t, strings.HasPrefix(report.Summary, FallbackNote), report.Summary)
	assert.Zero(t, report.HookScore)
	assert.Zero(t, report.CraftScore)

	// fallback reports serialize with empty lists, never null
	data, err := json.Marshal(report)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"strengths":[]`)
	assert.Contains(t, string(data), `"title_suggestions":[]`)
	assert.Contains(t, string(data), `"success":false`)
}

func TestRunNeverReturnsNil(t *testing.T) {
	o := New(&fakeExtractor{err: transcript.ErrNoCaptionsAvailable}, nlp.Default(), &fakeAnalyzer{})
	report := o.Run(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	require.NotNil(t, report)
	assert.False(t, report.Success)
	assert.Equal(t, "no_captions: video has no usable captions", report.ErrorMessage())
}

func TestRunExtractionStageTimeout(t *testing.T) {
	o := New(&fakeExtractor{block: true}, nlp.Default(), &fakeAnalyzer{report: goodReport()},
		WithExtractTimeout(20*time.Millisecond))

	out := o.RunDetailed(context.Background(), "dQw4w9WgXcQ")
	assert.Equal(t, CodeExtractionTimeout, out.Code)
	assert.ErrorIs(t, out.Err, transcript.ErrExtractionTimeout)
}

func TestRunCallerCancellation(t *testing.T) {
	analyzer := &fakeAnalyzer{block: true}
	o := New(&fakeExtractor{raw: sampleRaw()}, nlp.Default(), analyzer)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	out := o.RunDetailed(ctx, "dQw4w9WgXcQ")
	assert.Equal(t, StateFailed, out.State)
	assert.Equal(t, StateAnalyzing, out.FailedStage)
	assert.Equal(t, CodeCanceled, out.Code)
	assertFallback(t, out.Report, CodeCanceled)
}

func TestRunAlreadyCanceled(t *testing.T) {
	analyzer := &fakeAnalyzer{report: goodReport()}
	o := New(&fakeExtractor{block: true}, nlp.Default(), analyzer)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := o.RunDetailed(ctx, "dQw4w9WgXcQ")
	assert.Equal(t, CodeCanceled, out.Code)
	assert.Equal(t, 0, analyzer.calls())
}

func TestRunConcurrentRequests(t *testing.T) {
	o := New(&fakeExtractor{raw: sampleRaw()}, nlp.Default(), &fakeAnalyzer{report: goodReport()})

	var wg sync.WaitGroup
	ids := make(chan string, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out := o.RunDetailed(context.Background(), "dQw4w9WgXcQ")
			assert.True(t, out.Succeeded())
			ids <- out.RequestID
		}()
	}
	wg.Wait()
	close(ids)

	unique := make(map[string]bool)
	for id := range ids {
		unique[id] = true
	}
	assert.Len(t, unique, 20)
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{transcript.ErrInvalidReference, CodeInvalidReference},
		{transcript.ErrNoCaptionsAvailable, CodeNoCaptions},
		{fmt.Errorf("wrapped: %w", ai.ErrQuotaExceeded), CodeQuotaExceeded},
		{fmt.Errorf("%w: %w", ai.ErrModelUnavailable, context.Canceled), CodeCanceled},
		{fmt.Errorf("%w: %w", ai.ErrModelUnavailable, context.DeadlineExceeded), CodeModelUnavailable},
		{ai.ErrEmptyTranscript, CodeEmptyTranscript},
		{errors.New("mystery"), CodeInternal},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ErrorCode(tt.err), "error %v", tt.err)
	}
}

func TestFallbackReportUnknownCode(t *testing.T) {
	report := FallbackReport("bogus")
	assert.Equal(t, "bogus: internal error", report.ErrorMessage())
	assert.Contains(t, report.Summary, "internal error")
}
