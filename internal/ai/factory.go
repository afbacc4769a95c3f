package ai

import (
	"fmt"

	"github.com/tubebrief/tubebrief/internal/ai/mock"
	"github.com/tubebrief/tubebrief/internal/ai/openai"
	"github.com/tubebrief/tubebrief/internal/config"
	"github.com/tubebrief/tubebrief/pkg/models"
)

// NewProvider constructs the appropriate AI provider based on config.
// Called once at server startup.
func NewProvider(cfg config.AIConfig) (models.SummaryProvider, error) {
	switch cfg.Provider {
	case "openai":
		return openai.NewProvider(cfg.OpenAI), nil
	case "mock":
		return mock.NewProvider(), nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q: must be one of openai, mock", cfg.Provider)
	}
}
