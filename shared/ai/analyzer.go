package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"content-pilot/internal/models"
	"content-pilot/shared/config"
)

const maxLoggedPayload = 2048

// InsightAnalyzer turns a cleaned transcript into an AnalysisReport with one
// model round trip. It holds no per-request state.
type InsightAnalyzer struct {
	backend     Backend
	timeout     time.Duration
	temperature float64
	maxTokens   int
	maxChars    int
}

// NewInsightAnalyzer wraps an existing backend with the tunables from cfg.
func NewInsightAnalyzer(backend Backend, cfg config.AIConfig) *InsightAnalyzer {
	return &InsightAnalyzer{
		backend:     backend,
		timeout:     cfg.Timeout,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxOutputTokens,
		maxChars:    cfg.MaxTranscriptChars,
	}
}

// New builds the configured backend and an analyzer around it.
func New(ctx context.Context, cfg config.AIConfig) (*InsightAnalyzer, error) {
	backend, err := NewBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewInsightAnalyzer(backend, cfg), nil
}

// Backend returns the underlying model backend.
func (a *InsightAnalyzer) Backend() Backend {
	return a.backend
}

// Analyze scores a transcript. Errors wrap ErrEmptyTranscript,
// ErrModelUnavailable, ErrQuotaExceeded or ErrMalformedModelOutput.
func (a *InsightAnalyzer) Analyze(ctx context.Context, transcript *models.CleanedTranscript) (*models.AnalysisReport, error) {
	if transcript == nil || strings.TrimSpace(transcript.Text) == "" {
		return nil, ErrEmptyTranscript
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	req := &CompletionRequest{
		SystemPrompt: systemInstruction,
		UserPrompt:   buildPrompt(transcript.Text, transcript.DurationSeconds, a.maxChars),
		Temperature:  a.temperature,
		MaxTokens:    a.maxTokens,
		JSON:         true,
	}

	responseText, err := a.backend.Complete(ctx, req)
	if err != nil {
		if !errors.Is(err, ErrModelUnavailable) && !errors.Is(err, ErrQuotaExceeded) {
			err = fmt.Errorf("%w: %w", ErrModelUnavailable, err)
		}
		return nil, fmt.Errorf("analysis of video %s failed: %w", transcript.VideoID, err)
	}

	if strings.TrimSpace(responseText) == "" {
		return nil, &MalformedOutputError{Raw: responseText, Err: errors.New("empty response")}
	}

	report, repaired, err := parseReport(responseText)
	if err != nil {
		log.Printf("Warning: malformed output from %s for video %s: %v; raw payload: %s",
			a.backend.Name(), transcript.VideoID, err, truncateString(responseText, maxLoggedPayload))
		return nil, err
	}
	if repaired {
		log.Printf("Warning: Had to repair model output for video %s", transcript.VideoID)
	}

	return report, nil
}
