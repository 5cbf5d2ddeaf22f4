package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"content-pilot/internal/models"
	"content-pilot/shared/transcript"
)

// State is a step of the analysis state machine.
type State string

const (
	StateExtracting State = "extracting"
	StateCleaning   State = "cleaning"
	StateAnalyzing  State = "analyzing"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// FallbackNote prefixes the summary of every fallback report.
const FallbackNote = "[fallback report] Analysis could not be completed"

type Extractor interface {
	Extract(ctx context.Context, ref string) (*models.RawTranscript, error)
}

type Cleaner interface {
	Clean(raw *models.RawTranscript) *models.CleanedTranscript
}

type Analyzer interface {
	Analyze(ctx context.Context, transcript *models.CleanedTranscript) (*models.AnalysisReport, error)
}

// Observer is notified on every state transition. It is called from the
// goroutine running the request and must be safe for concurrent use.
type Observer func(requestID string, from, to State)

// Outcome is the diagnostic view of one run.
type Outcome struct {
	RequestID   string
	Reference   string
	VideoID     string
	Report      *models.AnalysisReport
	State       State
	FailedStage State
	Code        string
	Err         error
	Source      string
	Reduction   *models.ReductionMetrics
	Durations   map[State]time.Duration
	Elapsed     time.Duration

	entered time.Time
}

// Succeeded reports whether the run reached StateDone.
func (o *Outcome) Succeeded() bool {
	return o.State == StateDone
}

type Orchestrator struct {
	extractor      Extractor
	cleaner        Cleaner
	analyzer       Analyzer
	extractTimeout time.Duration
	observer       Observer
}

type Option func(*Orchestrator)

// WithExtractTimeout bounds the whole extraction stage.
func WithExtractTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.extractTimeout = d }
}

func WithObserver(fn Observer) Option {
	return func(o *Orchestrator) { o.observer = fn }
}

func New(extractor Extractor, cleaner Cleaner, analyzer Analyzer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		extractor: extractor,
		cleaner:   cleaner,
		analyzer:  analyzer,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run analyzes one video reference. It never fails: problems come back as a
// fallback report with Success false and a coded Error.
func (o *Orchestrator) Run(ctx context.Context, ref string) *models.AnalysisReport {
	return o.RunDetailed(ctx, ref).Report
}

// RunDetailed is Run plus diagnostics.
func (o *Orchestrator) RunDetailed(ctx context.Context, ref string) (out *Outcome) {
	start := time.Now()
	out = &Outcome{
		RequestID: uuid.NewString(),
		Reference: ref,
		Durations: make(map[State]time.Duration, 3),
	}

	defer func() {
		if p := recover(); p != nil {
			log.Printf("[req %s] panic during %s: %v\n%s", out.RequestID, out.State, p, debug.Stack())
			o.fail(out, fmt.Errorf("%w: panic: %v", ErrInternal, p))
		}
		if out.State != StateFailed && out.State != StateDone {
			o.fail(out, fmt.Errorf("%w: run ended in state %q", ErrInternal, out.State))
		}
		out.Elapsed = time.Since(start)
	}()

	log.Printf("[req %s] Analyzing %q", out.RequestID, ref)

	o.enter(out, StateExtracting)
	raw, err := o.extract(ctx, ref)
	if err != nil {
		o.fail(out, o.extractionError(ctx, err))
		return out
	}
	out.VideoID = raw.VideoID
	out.Source = raw.Source

	o.enter(out, StateCleaning)
	cleaned := o.cleaner.Clean(raw)
	if cleaned == nil {
		cleaned = &models.CleanedTranscript{VideoID: raw.VideoID, DurationSeconds: raw.DurationSeconds}
	}
	out.Reduction = &cleaned.Metrics
	log.Printf("[req %s] Cleaned transcript for %s: %d -> %d tokens (%.1f%% saved)",
		out.RequestID, raw.VideoID, cleaned.Metrics.OriginalTokens, cleaned.Metrics.FinalTokens, cleaned.Metrics.PercentSaved)

	if err := ctx.Err(); err != nil {
		o.fail(out, err)
		return out
	}

	o.enter(out, StateAnalyzing)
	report, err := o.analyzer.Analyze(ctx, cleaned)
	if err == nil && report == nil {
		err = fmt.Errorf("%w: analyzer returned no report", ErrInternal)
	}
	if err != nil {
		o.fail(out, err)
		return out
	}

	out.Report = report
	o.enter(out, StateDone)
	log.Printf("[req %s] Analysis complete for %s in %v", out.RequestID, raw.VideoID, time.Since(start).Round(time.Millisecond))
	return out
}

func (o *Orchestrator) extract(ctx context.Context, ref string) (*models.RawTranscript, error) {
	if o.extractTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.extractTimeout)
		defer cancel()
	}
	raw, err := o.extractor.Extract(ctx, ref)
	if err == nil && raw == nil {
		err = fmt.Errorf("%w: extractor returned no transcript", ErrInternal)
	}
	return raw, err
}

// extractionError maps a stage deadline onto ErrExtractionTimeout while
// leaving caller cancellation alone.
func (o *Orchestrator) extractionError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return fmt.Errorf("%w: stage limit %v: %w", transcript.ErrExtractionTimeout, o.extractTimeout, err)
	}
	return err
}

func (o *Orchestrator) fail(out *Outcome, err error) {
	if out.State == StateFailed {
		return
	}
	code := ErrorCode(err)
	out.FailedStage = out.State
	out.Code = code
	out.Err = err
	out.Report = FallbackReport(code)
	o.enter(out, StateFailed)
	log.Printf("[req %s] Failed during %s (%s): %v", out.RequestID, out.FailedStage, code, err)
}

// enter moves out to state s, closing the timing of the previous stage.
func (o *Orchestrator) enter(out *Outcome, s State) {
	now := time.Now()
	from := out.State
	if from != "" {
		out.Durations[from] += now.Sub(out.entered)
	}
	out.State = s
	out.entered = now
	if o.observer != nil {
		o.observer(out.RequestID, from, s)
	}
}

// FallbackReport is the well-formed report returned when a stage fails.
func FallbackReport(code string) *models.AnalysisReport {
	msg := ErrorMessage(code)
	return &models.AnalysisReport{
		Strengths:        []string{},
		Improvements:     []string{},
		SEOKeywords:      []string{},
		TitleSuggestions: []string{},
		Summary:          fmt.Sprintf("%s (%s). Scores are placeholders.", FallbackNote, codeMessages[codeOrInternal(code)]),
		Success:          false,
		Error:            &msg,
	}
}

func codeOrInternal(code string) string {
	if _, ok := codeMessages[code]; ok {
		return code
	}
	return CodeInternal
}
