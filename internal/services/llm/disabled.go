package llm

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/respondo/internal/interfaces"
	"github.com/ternarybob/respondo/internal/models"
)

// DisabledService is the LLMService implementation used when no provider is
// configured or provider construction failed. Every call returns the typed
// unavailability error so the pipeline degrades to pseudo-embeddings and
// template replies without nil checks at call sites.
type DisabledService struct {
	logger arbor.ILogger
}

// NewDisabledService creates an LLM service that refuses all calls.
func NewDisabledService(logger arbor.ILogger) *DisabledService {
	return &DisabledService{logger: logger}
}

// Embed always fails with models.ErrEmbeddingUnavailable.
func (s *DisabledService) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("%w: no LLM provider configured", models.ErrEmbeddingUnavailable)
}

// Chat always fails with models.ErrCompletionUnavailable.
func (s *DisabledService) Chat(ctx context.Context, messages []interfaces.Message) (string, error) {
	return "", fmt.Errorf("%w: no LLM provider configured", models.ErrCompletionUnavailable)
}

// HealthCheck reports the disabled state. This is not an error condition;
// running without a provider is a supported configuration.
func (s *DisabledService) HealthCheck(ctx context.Context) error {
	s.logger.Debug().Msg("LLM service disabled, skipping health check")
	return nil
}

// GetMode returns LLMModeDisabled.
func (s *DisabledService) GetMode() interfaces.LLMMode {
	return interfaces.LLMModeDisabled
}

// Close is a no-op for the disabled service.
func (s *DisabledService) Close() error {
	return nil
}
