package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/tieubaoca/pdf-quizbot/config"
	"github.com/tieubaoca/pdf-quizbot/types"
)

// ErrEmptyResponse is returned when the model answers with no text.
var ErrEmptyResponse = errors.New("no response generated")

// AIService generates text for a single prompt.
type AIService interface {
	Generate(ctx context.Context, prompt string) (string, error)
	// GenerateStream passes the answer to handler chunk by chunk.
	GenerateStream(ctx context.Context, prompt string, handler types.StreamHandler) error
	Close() error
}

// NewAIService builds the provider selected in cfg.
func NewAIService(ctx context.Context, cfg *config.Config, log *zap.Logger) (AIService, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		svc, err := NewGeminiService(ctx, cfg.GeminiAPIKeys(), cfg.Model, log)
		if err != nil {
			return nil, err
		}
		return svc, nil
	case config.ProviderOpenAI:
		return NewOpenAIService(cfg.AIEndpoint, cfg.OpenAIAPIKey, cfg.Model, log), nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
	}
}
