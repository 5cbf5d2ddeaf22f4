// Package nlp shrinks transcript text before it is sent to a model. It runs
// four stages in a fixed order and reports how many estimated tokens each
// stage removed.
package nlp

import (
	"strings"

	"content-pilot/internal/models"
	"content-pilot/shared/config"
)

const (
	StageTimestamps = "timestamps"
	StageFillers    = "fillers"
	StageDuplicates = "duplicates"
	StageStopWords  = "stop_words"
)

var stageOrder = []string{StageTimestamps, StageFillers, StageDuplicates, StageStopWords}

// Preprocessor is immutable after construction and safe for concurrent use.
type Preprocessor struct {
	fillers   *fillerRemover
	dedupe    *deduper
	stopWords *stopWordFilter
}

// New builds a preprocessor from the nlp config section. Empty vocabularies
// fall back to the built-in defaults.
func New(cfg config.NLPConfig) *Preprocessor {
	hesitations := orDefault(cfg.Hesitations, defaultHesitations)
	phrases := orDefault(cfg.FillerPhrases, defaultFillerPhrases)
	leading := orDefault(cfg.LeadingFillers, defaultLeadingFillers)

	var stop []string
	switch cfg.StopWordPolicy {
	case config.StopWordsOff:
	case config.StopWordsStandard:
		stop = orDefault(cfg.StopWords, standardStopWords)
	default:
		stop = orDefault(cfg.StopWords, conservativeStopWords)
	}

	threshold := cfg.SimilarityThreshold
	if threshold <= 0 {
		threshold = 0.85
	}
	minWords := cfg.MinDedupeWords
	if minWords <= 0 {
		minWords = 4
	}
	return &Preprocessor{
		fillers:   newFillerRemover(hesitations, phrases, leading),
		dedupe:    &deduper{threshold: threshold, minWords: minWords, window: cfg.DedupeWindow},
		stopWords: newStopWordFilter(stop),
	}
}

// Default is New with the zero config, i.e. the conservative stop-word policy.
func Default() *Preprocessor {
	return New(config.NLPConfig{})
}

func orDefault(v, def []string) []string {
	if len(v) == 0 {
		return def
	}
	return v
}

// Clean runs the stages over the transcript until the text stops changing.
// It never fails: empty input yields empty text with zero reduction.
func (p *Preprocessor) Clean(raw *models.RawTranscript) *models.CleanedTranscript {
	out := &models.CleanedTranscript{Metrics: models.ReductionMetrics{Stages: emptyStages()}}
	if raw == nil {
		return out
	}
	out.VideoID = raw.VideoID
	out.DurationSeconds = raw.DurationSeconds

	original := raw.Text()
	if original == "" {
		return out
	}
	originalTokens := EstimateTokens(original)

	// The first stage sees segments individually so line-anchored speaker
	// labels are still at a line start.
	parts := make([]string, 0, len(raw.Segments))
	for _, seg := range raw.Segments {
		if s := strings.TrimSpace(stripMarkers(seg.Text)); s != "" {
			parts = append(parts, s)
		}
	}
	first := tidy(strings.Join(parts, " "))

	removed := make(map[string]int, len(stageOrder))
	text := p.acceptStage(removed, StageTimestamps, original, first)
	text = p.restOfPass(removed, text)
	passes := 1

	// A pass that changes the text also shortens it, so the loop reaches a
	// fixed point within len(text) passes.
	for limit := len(text) + 1; passes <= limit; {
		next := p.acceptStage(removed, StageTimestamps, text, tidy(stripMarkers(text)))
		next = p.restOfPass(removed, next)
		passes++
		if next == text {
			break
		}
		text = next
	}

	out.Text = text
	out.Metrics = buildMetrics(originalTokens, EstimateTokens(text), removed, passes)
	return out
}

// CleanText is Clean for a single block of text.
func (p *Preprocessor) CleanText(text string) *models.CleanedTranscript {
	return p.Clean(&models.RawTranscript{Segments: []models.TranscriptSegment{{Text: text}}})
}

func (p *Preprocessor) restOfPass(removed map[string]int, text string) string {
	text = p.acceptStage(removed, StageFillers, text, p.fillers.apply(text))
	text = p.acceptStage(removed, StageDuplicates, text, tidy(p.dedupe.apply(text)))
	text = p.acceptStage(removed, StageStopWords, text, tidy(p.stopWords.apply(text)))
	return text
}

// acceptStage keeps a stage's output unless it grew the estimate, and books
// the tokens it removed.
func (p *Preprocessor) acceptStage(removed map[string]int, stage, before, after string) string {
	b, a := EstimateTokens(before), EstimateTokens(after)
	if a > b {
		return before
	}
	removed[stage] += b - a
	return after
}

func emptyStages() []models.StageReduction {
	stages := make([]models.StageReduction, len(stageOrder))
	for i, name := range stageOrder {
		stages[i] = models.StageReduction{Stage: name}
	}
	return stages
}

func buildMetrics(original, final int, removed map[string]int, passes int) models.ReductionMetrics {
	m := models.ReductionMetrics{
		OriginalTokens: original,
		FinalTokens:    final,
		Stages:         emptyStages(),
		Passes:         passes,
	}
	if original == 0 {
		return m
	}
	m.PercentSaved = percent(original-final, original)
	for i := range m.Stages {
		n := removed[m.Stages[i].Stage]
		m.Stages[i].TokensRemoved = n
		m.Stages[i].Percent = percent(n, original)
	}
	return m
}

func percent(part, whole int) float64 {
	return float64(part) / float64(whole) * 100
}
