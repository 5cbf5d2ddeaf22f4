package contentpilot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"content-pilot/internal/models"
	"content-pilot/shared/config"
	"content-pilot/shared/monitoring"
	"content-pilot/shared/pipeline"
	"content-pilot/shared/scheduler"
	"content-pilot/shared/storage"
	"content-pilot/shared/transcript"
)

type fakeRunner struct {
	mu   sync.Mutex
	refs []string
	fail map[string]string
}

func (f *fakeRunner) RunDetailed(_ context.Context, ref string) *pipeline.Outcome {
	f.mu.Lock()
	f.refs = append(f.refs, ref)
	f.mu.Unlock()

	id, err := transcript.ParseVideoID(ref)
	if err != nil {
		return &pipeline.Outcome{Reference: ref, Code: pipeline.CodeInvalidReference, Report: pipeline.FallbackReport(pipeline.CodeInvalidReference)}
	}
	if code, ok := f.fail[id]; ok {
		return &pipeline.Outcome{Reference: ref, VideoID: id, Code: code, Report: pipeline.FallbackReport(code)}
	}
	return &pipeline.Outcome{
		Reference: ref,
		VideoID:   id,
		Source:    "timedtext",
		Reduction: &models.ReductionMetrics{OriginalTokens: 100, FinalTokens: 60, PercentSaved: 40},
		Report: &models.AnalysisReport{
			HookScore: 8, RetentionScore: 7, SEOScore: 6, CraftScore: 9,
			Strengths: []string{}, Improvements: []string{}, SEOKeywords: []string{}, TitleSuggestions: []string{},
			Summary: "ok", Success: true,
		},
	}
}

type fakeLookup struct {
	err error
}

func (f *fakeLookup) GetVideo(_ context.Context, id string) (*models.Video, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Video{ID: id, Title: "Title " + id, URL: models.WatchURL(id)}, nil
}

type fakeSender struct {
	digests []*models.DigestReport
	err     error
}

func (f *fakeSender) SendDigest(report *models.DigestReport) error {
	f.digests = append(f.digests, report)
	return f.err
}

type recordedEvents struct {
	successes []scheduler.Metrics
	partials  []error
	codes     []string
}

func (r *recordedEvents) events() *scheduler.AgentEvents {
	return &scheduler.AgentEvents{
		RunID: "test-run",
		OnSuccess: func(metrics scheduler.Metrics, _ time.Duration) {
			r.successes = append(r.successes, metrics)
		},
		OnPartialFailure: func(err error, _ time.Duration) {
			r.partials = append(r.partials, err)
		},
		OnCriticalFailure: func(error, time.Duration) {},
		OnAnalysis: func(code string) {
			r.codes = append(r.codes, code)
		},
	}
}

func newTestAgent(t *testing.T, videos []string, runner *fakeRunner, sender *fakeSender) *ContentPilotAgent {
	t.Helper()
	tracker, err := storage.NewReportTracker(t.TempDir(), 24*time.Hour)
	if err != nil {
		t.Fatalf("NewReportTracker: %v", err)
	}
	agent := NewContentPilotAgent(&config.Config{Videos: videos}, monitoring.NewMonitor())
	agent.runner = runner
	agent.metadata = &fakeLookup{}
	agent.tracker = tracker
	if sender != nil {
		agent.sender = sender
	}
	return agent
}

func TestContentPilotAgentName(t *testing.T) {
	agent := NewContentPilotAgent(&config.Config{}, nil)
	if name := agent.Name(); name != "Content Pilot" {
		t.Errorf("Agent.Name() = %s, want Content Pilot", name)
	}
}

func TestContentPilotMetricsGetSummary(t *testing.T) {
	tests := []struct {
		name     string
		metrics  ContentPilotMetrics
		expected string
	}{
		{
			name:     "All zeros",
			metrics:  ContentPilotMetrics{},
			expected: "requested 0 videos, analyzed 0, failed 0, skipped 0",
		},
		{
			name:     "Mixed",
			metrics:  ContentPilotMetrics{Requested: 5, Analyzed: 3, Failed: 1, Skipped: 1, Emailed: true},
			expected: "requested 5 videos, analyzed 3, failed 1, skipped 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := tt.metrics.GetSummary(); result != tt.expected {
				t.Errorf("GetSummary() = %s, want %s", result, tt.expected)
			}
		})
	}
}

func TestRunOnceSendsDigest(t *testing.T) {
	runner := &fakeRunner{fail: map[string]string{"bbbbbbbbbbb": pipeline.CodeNoCaptions}}
	sender := &fakeSender{}
	agent := newTestAgent(t, []string{
		"https://www.youtube.com/watch?v=aaaaaaaaaaa",
		"https://youtu.be/bbbbbbbbbbb",
		"aaaaaaaaaaa", // duplicate of the first
	}, runner, sender)

	rec := &recordedEvents{}
	if err := agent.RunOnce(context.Background(), rec.events()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	if len(runner.refs) != 2 {
		t.Fatalf("runner called for %v, want 2 references", runner.refs)
	}
	if len(sender.digests) != 1 {
		t.Fatalf("sent %d digests, want 1", len(sender.digests))
	}

	digest := sender.digests[0]
	if digest.Requested != 2 || digest.Succeeded != 1 || digest.Failed != 1 || len(digest.Entries) != 2 {
		t.Errorf("digest = %+v", digest)
	}
	if got := digest.Entries[0].Video.Title; got != "Title aaaaaaaaaaa" {
		t.Errorf("entry title = %q", got)
	}
	if !strings.HasPrefix(digest.Entries[1].Report.ErrorMessage(), "no_captions:") {
		t.Errorf("failed entry error = %q", digest.Entries[1].Report.ErrorMessage())
	}

	if len(rec.partials) != 1 {
		t.Errorf("partial failures = %d, want 1", len(rec.partials))
	}
	if len(rec.successes) != 1 {
		t.Fatalf("successes = %d, want 1", len(rec.successes))
	}
	m := rec.successes[0].(ContentPilotMetrics)
	if m.Requested != 3 || m.Skipped != 1 || m.Analyzed != 1 || m.Failed != 1 || !m.Emailed {
		t.Errorf("metrics = %+v", m)
	}
	if strings.Join(rec.codes, ",") != ",no_captions" {
		t.Errorf("analysis codes = %q", rec.codes)
	}

	if !agent.tracker.IsReported("aaaaaaaaaaa") {
		t.Error("successful video should be marked reported")
	}
	if agent.tracker.IsReported("bbbbbbbbbbb") {
		t.Error("failed video should stay pending")
	}
}

func TestRunOnceSkipsReported(t *testing.T) {
	runner := &fakeRunner{}
	sender := &fakeSender{}
	agent := newTestAgent(t, []string{"aaaaaaaaaaa"}, runner, sender)
	if err := agent.tracker.MarkReported(storage.TrackedReport{VideoID: "aaaaaaaaaaa"}); err != nil {
		t.Fatal(err)
	}

	rec := &recordedEvents{}
	if err := agent.RunOnce(context.Background(), rec.events()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(runner.refs) != 0 || len(sender.digests) != 0 {
		t.Errorf("nothing should run, got refs %v and %d digests", runner.refs, len(sender.digests))
	}
	if len(rec.successes) != 1 {
		t.Errorf("empty run should still report success")
	}
}

func TestRunOnceAllFailed(t *testing.T) {
	runner := &fakeRunner{fail: map[string]string{"aaaaaaaaaaa": pipeline.CodeModelUnavailable}}
	sender := &fakeSender{}
	agent := newTestAgent(t, []string{"aaaaaaaaaaa", "not a video"}, runner, sender)

	err := agent.RunOnce(context.Background(), (&recordedEvents{}).events())
	if err == nil {
		t.Fatal("RunOnce should fail when every analysis failed")
	}
	if len(sender.digests) != 0 {
		t.Error("no digest should be sent when every analysis failed")
	}
}

func TestRunOnceDigestFailureKeepsVideosPending(t *testing.T) {
	runner := &fakeRunner{}
	sender := &fakeSender{err: errors.New("smtp down")}
	agent := newTestAgent(t, []string{"aaaaaaaaaaa"}, runner, sender)

	err := agent.RunOnce(context.Background(), (&recordedEvents{}).events())
	if err == nil || !strings.Contains(err.Error(), "smtp down") {
		t.Fatalf("RunOnce error = %v, want smtp failure", err)
	}
	if agent.tracker.IsReported("aaaaaaaaaaa") {
		t.Error("video should not be marked reported when the digest was not sent")
	}
}

func TestRunOnceWithoutEmail(t *testing.T) {
	runner := &fakeRunner{}
	agent := newTestAgent(t, []string{"aaaaaaaaaaa"}, runner, nil)

	rec := &recordedEvents{}
	if err := agent.RunOnce(context.Background(), rec.events()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if m := rec.successes[0].(ContentPilotMetrics); m.Emailed {
		t.Error("Emailed should be false without a sender")
	}
	if !agent.tracker.IsReported("aaaaaaaaaaa") {
		t.Error("video should be marked reported")
	}
}

func TestRunOnceCanceled(t *testing.T) {
	runner := &fakeRunner{}
	agent := newTestAgent(t, []string{"aaaaaaaaaaa"}, runner, &fakeSender{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := agent.RunOnce(ctx, (&recordedEvents{}).events()); !errors.Is(err, context.Canceled) {
		t.Errorf("RunOnce error = %v, want context.Canceled", err)
	}
	if len(runner.refs) != 0 {
		t.Error("no analysis should start after cancellation")
	}
}

func TestLookupVideoFallback(t *testing.T) {
	agent := newTestAgent(t, nil, &fakeRunner{}, nil)
	agent.metadata = &fakeLookup{err: errors.New("quota")}

	video := agent.lookupVideo(context.Background(), "https://youtu.be/aaaaaaaaaaa", "aaaaaaaaaaa")
	if video.ThumbnailURL != "https://img.youtube.com/vi/aaaaaaaaaaa/hqdefault.jpg" {
		t.Errorf("ThumbnailURL = %q", video.ThumbnailURL)
	}
	if video.URL != "https://www.youtube.com/watch?v=aaaaaaaaaaa" {
		t.Errorf("URL = %q", video.URL)
	}

	invalid := agent.lookupVideo(context.Background(), "not a video", "")
	if invalid.ID != "not a video" {
		t.Errorf("invalid reference video = %+v", invalid)
	}
}

func TestAnalyzeRecordsOutcome(t *testing.T) {
	monitor := monitoring.NewMonitor()
	agent := NewContentPilotAgent(&config.Config{}, monitor)
	agent.runner = &fakeRunner{}

	out := agent.Analyze(context.Background(), "not a video")
	if out.Report.Success {
		t.Error("invalid reference should fail")
	}
	if c := monitor.Counters(); c.Failures[pipeline.CodeInvalidReference] != 1 {
		t.Errorf("Counters() = %+v", c)
	}
}
