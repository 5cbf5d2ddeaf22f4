package contentpilot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"content-pilot/internal/models"
	"content-pilot/shared/ai"
	"content-pilot/shared/config"
	"content-pilot/shared/email"
	"content-pilot/shared/monitoring"
	"content-pilot/shared/nlp"
	"content-pilot/shared/pipeline"
	"content-pilot/shared/scheduler"
	"content-pilot/shared/storage"
	"content-pilot/shared/transcript"
	"content-pilot/shared/youtube"
)

// Runner runs the analysis pipeline for one reference.
type Runner interface {
	RunDetailed(ctx context.Context, ref string) *pipeline.Outcome
}

type VideoLookup interface {
	GetVideo(ctx context.Context, videoID string) (*models.Video, error)
}

type DigestSender interface {
	SendDigest(report *models.DigestReport) error
}

// ContentPilotMetrics implements scheduler.Metrics
type ContentPilotMetrics struct {
	Requested int
	Skipped   int
	Analyzed  int
	Failed    int
	Emailed   bool
}

func (m ContentPilotMetrics) GetSummary() string {
	return fmt.Sprintf("requested %d videos, analyzed %d, failed %d, skipped %d",
		m.Requested, m.Analyzed, m.Failed, m.Skipped)
}

// ContentPilotAgent implements the scheduler.Agent interface
type ContentPilotAgent struct {
	config   *config.Config
	monitor  *monitoring.Monitor
	runner   Runner
	metadata VideoLookup
	sender   DigestSender
	tracker  *storage.ReportTracker
}

// NewContentPilotAgent creates the watchlist agent. A nil monitor gets a
// fresh one.
func NewContentPilotAgent(cfg *config.Config, monitor *monitoring.Monitor) *ContentPilotAgent {
	if monitor == nil {
		monitor = monitoring.NewMonitor()
	}
	return &ContentPilotAgent{
		config:  cfg,
		monitor: monitor,
	}
}

func (c *ContentPilotAgent) Name() string {
	return "Content Pilot"
}

func (c *ContentPilotAgent) Initialize() error {
	log.Printf("Initializing %s...", c.Name())
	ctx := context.Background()

	if c.runner == nil {
		clients, err := youtube.NewClients(ctx, &c.config.YouTube)
		if errors.Is(err, youtube.ErrNotConfigured) {
			log.Println("Warning: YouTube Data API not configured, using public caption sources only")
			clients, err = &youtube.Clients{}, nil
		}
		if err != nil {
			return fmt.Errorf("failed to create YouTube client: %w", err)
		}
		if clients.Service != nil && c.metadata == nil {
			c.metadata = youtube.NewMetadataClient(clients.Service)
		}

		extractor, err := transcript.NewFromConfig(c.config, clients.Service, clients.Authorized)
		if err != nil {
			return fmt.Errorf("failed to create transcript extractor: %w", err)
		}

		analyzer, err := ai.New(ctx, c.config.AI)
		if err != nil {
			return fmt.Errorf("failed to create AI analyzer: %w", err)
		}
		log.Printf("AI analyzer initialized (%s)", analyzer.Backend().Name())

		c.runner = pipeline.New(extractor, nlp.New(c.config.NLP), analyzer,
			pipeline.WithExtractTimeout(c.config.Pipeline.ExtractTimeout),
			pipeline.WithObserver(c.monitor.ObserveTransition),
		)
		log.Println("Analysis pipeline initialized")
	}

	if c.sender == nil && c.config.Email.Enabled() {
		c.sender = email.NewSender(&c.config.Email)
		log.Println("Email sender initialized")
	}

	if c.tracker == nil {
		tracker, err := storage.NewReportTracker(c.config.Storage.DataDir, c.config.Storage.Retention)
		if err != nil {
			return fmt.Errorf("failed to create report tracker: %w", err)
		}
		c.tracker = tracker
		log.Printf("Report tracker initialized (%d videos tracked)", tracker.Count())
	}

	return nil
}

// Analyze runs the pipeline for a single reference outside the schedule.
func (c *ContentPilotAgent) Analyze(ctx context.Context, ref string) *pipeline.Outcome {
	out := c.runner.RunDetailed(ctx, ref)
	c.monitor.RecordAnalysis(out.Code)
	return out
}

func (c *ContentPilotAgent) RunOnce(ctx context.Context, events *scheduler.AgentEvents) error {
	startTime := time.Now()
	metrics := ContentPilotMetrics{}

	refs := c.pendingReferences(&metrics)
	log.Printf("[run %s] %d videos in watchlist (%d pending, %d already reported)",
		events.RunID, metrics.Requested, len(refs), metrics.Skipped)

	if len(refs) == 0 {
		log.Printf("[run %s] No videos to analyze", events.RunID)
		events.OnSuccess(metrics, time.Since(startTime))
		return nil
	}

	digest := &models.DigestReport{Date: time.Now(), Requested: len(refs)}
	var reported []storage.TrackedReport

	for i, ref := range refs {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("run interrupted after %d/%d videos: %w", i, len(refs), err)
		}

		log.Printf("[run %s] Analyzing video %d/%d: %s", events.RunID, i+1, len(refs), ref)
		out := c.runner.RunDetailed(ctx, ref)
		if events.OnAnalysis != nil {
			events.OnAnalysis(out.Code)
		}

		entry := &models.ReportEntry{
			Video:     c.lookupVideo(ctx, ref, out.VideoID),
			Report:    out.Report,
			Reduction: out.Reduction,
			Source:    out.Source,
		}
		digest.Entries = append(digest.Entries, entry)

		if !out.Report.Success {
			metrics.Failed++
			log.Printf("[run %s] Warning: analysis of %s failed: %s", events.RunID, ref, out.Report.ErrorMessage())
			continue
		}
		metrics.Analyzed++
		reported = append(reported, storage.TrackedReport{
			VideoID:   out.VideoID,
			HookScore: out.Report.HookScore,
			Source:    out.Source,
		})
	}

	digest.Succeeded = metrics.Analyzed
	digest.Failed = metrics.Failed

	if metrics.Analyzed == 0 {
		return fmt.Errorf("all %d analyses failed", metrics.Failed)
	}

	if c.sender != nil {
		log.Printf("[run %s] Sending digest with %d reports", events.RunID, len(digest.Entries))
		if err := c.sender.SendDigest(digest); err != nil {
			return fmt.Errorf("failed to send digest: %w", err)
		}
		metrics.Emailed = true
		log.Printf("[run %s] Digest sent successfully", events.RunID)
	} else {
		log.Printf("[run %s] Email not configured, skipping digest", events.RunID)
	}

	// Only after delivery, so an unsent digest is retried next run.
	if err := c.tracker.MarkReported(reported...); err != nil {
		log.Printf("[run %s] Warning: Failed to mark videos as reported: %v", events.RunID, err)
	}

	if metrics.Failed > 0 {
		events.OnPartialFailure(fmt.Errorf("%d of %d analyses failed", metrics.Failed, len(refs)), time.Since(startTime))
	}

	events.OnSuccess(metrics, time.Since(startTime))
	log.Printf("[run %s] Session complete: %s", events.RunID, metrics.GetSummary())
	return nil
}

// pendingReferences drops duplicates and videos reported within the
// retention window. Unparseable references are kept so the digest shows
// why they failed.
func (c *ContentPilotAgent) pendingReferences(metrics *ContentPilotMetrics) []string {
	seen := make(map[string]bool)
	var refs []string
	for _, ref := range c.config.Videos {
		metrics.Requested++
		key := ref
		if id, err := transcript.ParseVideoID(ref); err == nil {
			key = id
			if c.tracker != nil && c.tracker.IsReported(id) {
				metrics.Skipped++
				continue
			}
		}
		if seen[key] {
			metrics.Skipped++
			continue
		}
		seen[key] = true
		refs = append(refs, ref)
	}
	return refs
}

// lookupVideo fetches title and thumbnail when the Data API is available and
// falls back to what can be derived from the id.
func (c *ContentPilotAgent) lookupVideo(ctx context.Context, ref, videoID string) *models.Video {
	if videoID == "" {
		return &models.Video{ID: ref, Title: ref}
	}

	if c.metadata != nil {
		video, err := c.metadata.GetVideo(ctx, videoID)
		if err == nil {
			return video
		}
		log.Printf("Warning: metadata lookup for %s failed: %v", videoID, err)
	}

	return &models.Video{
		ID:           videoID,
		URL:          models.WatchURL(videoID),
		ThumbnailURL: models.DefaultThumbnailURL(videoID),
	}
}
