package ai

import (
	"context"
	"fmt"

	"content-pilot/shared/config"
)

// CompletionRequest is one instruction-following call to a model.
type CompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float64
	MaxTokens    int
	// JSON asks the backend to constrain output to a single JSON document.
	JSON bool
}

// Backend is a text-in, text-out model provider. Errors should wrap
// ErrModelUnavailable or ErrQuotaExceeded.
type Backend interface {
	Name() string
	Complete(ctx context.Context, req *CompletionRequest) (string, error)
}

// NewBackend builds the backend named by cfg.Provider.
func NewBackend(ctx context.Context, cfg config.AIConfig) (Backend, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		return NewGeminiBackend(ctx, cfg.GeminiAPIKey, cfg.Model, cfg.BaseURL)
	case config.ProviderOpenAI:
		return NewOpenAIBackend(cfg.BaseURL, cfg.APIKey, cfg.Model, nil), nil
	default:
		return nil, fmt.Errorf("unknown ai provider %q", cfg.Provider)
	}
}
