// Package transcript resolves a video reference to caption text by trying
// an ordered list of caption sources until one returns usable segments.
package transcript

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"content-pilot/internal/models"
	"content-pilot/shared/config"

	"google.golang.org/api/youtube/v3"
)

// Strategy fetches captions for a single video id. Implementations must not
// download media and must honour ctx cancellation.
type Strategy interface {
	Name() string
	Fetch(ctx context.Context, videoID string) (*models.RawTranscript, error)
}

// Extractor tries each strategy in order and returns the first usable result.
// It holds no per-request state and is safe for concurrent use.
type Extractor struct {
	strategies []Strategy
	timeout    time.Duration
	minChars   int
}

func NewExtractor(timeout time.Duration, minChars int, strategies ...Strategy) *Extractor {
	return &Extractor{strategies: strategies, timeout: timeout, minChars: minChars}
}

// NewFromConfig builds the configured strategy chain. service may be nil, in
// which case the data_api strategy reports itself as unconfigured.
func NewFromConfig(cfg *config.Config, service *youtube.Service, authorized bool) (*Extractor, error) {
	fetch := newFetcher(cfg.Transcript.UserAgent, cfg.Transcript.RequestsPerSecond)

	var strategies []Strategy
	for _, name := range cfg.Transcript.Strategies {
		switch name {
		case "timedtext":
			strategies = append(strategies, NewTimedtextStrategy(cfg.Transcript.WatchURL, cfg.YouTube.Languages, fetch))
		case "data_api":
			strategies = append(strategies, NewDataAPIStrategy(service, authorized, cfg.YouTube.Languages))
		case "ytdlp":
			strategies = append(strategies, NewYtDlpStrategy(cfg.Transcript.YtDlpPath, cfg.YouTube.Languages, ExecRunner{}, fetch))
		default:
			return nil, fmt.Errorf("unknown transcript strategy %q", name)
		}
	}

	return NewExtractor(cfg.Transcript.StrategyTimeout, cfg.Transcript.MinChars, strategies...), nil
}

// Extract parses the reference and walks the strategy chain. The returned
// error matches ErrInvalidReference, ErrNoCaptionsAvailable (via
// *ExhaustedError) or the parent context's error.
func (e *Extractor) Extract(ctx context.Context, ref string) (*models.RawTranscript, error) {
	videoID, err := ParseVideoID(ref)
	if err != nil {
		return nil, err
	}

	exhausted := &ExhaustedError{VideoID: videoID}
	for _, s := range e.strategies {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start := time.Now()
		raw, err := e.attempt(ctx, s, videoID)
		elapsed := time.Since(start)
		if err == nil {
			log.Printf("Transcript for %s extracted via %s in %v (%d segments)", videoID, s.Name(), elapsed.Round(time.Millisecond), len(raw.Segments))
			return raw, nil
		}

		// The caller gave up; later strategies would fail the same way.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		log.Printf("Transcript strategy %s failed for %s after %v: %v", s.Name(), videoID, elapsed.Round(time.Millisecond), err)
		exhausted.Attempts = append(exhausted.Attempts, &AttemptError{Strategy: s.Name(), Elapsed: elapsed, Err: err})
	}

	if exhausted.LastTimedOut() {
		log.Printf("Transcript extraction for %s gave up after %d strategies, the last one timed out", videoID, len(exhausted.Attempts))
	} else {
		log.Printf("No usable captions for %s after %d strategies", videoID, len(exhausted.Attempts))
	}
	return nil, exhausted
}

func (e *Extractor) attempt(ctx context.Context, s Strategy, videoID string) (*models.RawTranscript, error) {
	attemptCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	raw, err := s.Fetch(attemptCtx, videoID)
	if err != nil {
		if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("%w after %v: %v", ErrExtractionTimeout, e.timeout, err)
		}
		return nil, err
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: no transcript returned", ErrGarbledPayload)
	}
	if err := validatePayload(raw, e.minChars); err != nil {
		return nil, err
	}

	raw.VideoID = videoID
	if raw.Source == "" {
		raw.Source = s.Name()
	}
	return raw, nil
}

// replacementRatio is the share of U+FFFD runes above which a payload is
// treated as mis-decoded.
const replacementRatio = 0.10

func validatePayload(raw *models.RawTranscript, minChars int) error {
	text := raw.Text()
	if text == "" {
		return fmt.Errorf("%w: no non-blank segments", ErrGarbledPayload)
	}
	if !utf8.ValidString(text) {
		return fmt.Errorf("%w: invalid UTF-8", ErrGarbledPayload)
	}

	total := utf8.RuneCountInString(text)
	if bad := strings.Count(text, "\uFFFD"); float64(bad) > replacementRatio*float64(total) {
		return fmt.Errorf("%w: %d of %d characters undecodable", ErrGarbledPayload, bad, total)
	}
	if total < minChars {
		return fmt.Errorf("%w: %d characters, want at least %d", ErrGarbledPayload, total, minChars)
	}
	return nil
}

// newRawTranscript derives the duration from the last timed segment.
func newRawTranscript(videoID, language, source string, segments []models.TranscriptSegment) *models.RawTranscript {
	raw := &models.RawTranscript{
		VideoID:  videoID,
		Language: language,
		Source:   source,
		Segments: segments,
	}
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i].Start != nil {
			raw.DurationSeconds = int(*segments[i].Start + segments[i].Duration)
			break
		}
	}
	return raw
}
