package llm

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/respondo/internal/common"
	"github.com/ternarybob/respondo/internal/interfaces"
)

// Compile-time interface checks for all provider implementations.
var (
	_ interfaces.LLMService = (*GeminiService)(nil)
	_ interfaces.LLMService = (*ClaudeService)(nil)
	_ interfaces.LLMService = (*DisabledService)(nil)
)

// NewLLMService creates the appropriate LLM service implementation based on
// the configured default provider.
//
// Provider "none" returns the disabled service directly. For cloud providers
// a construction failure (usually a missing API key) is NOT fatal: the error
// is logged and the disabled service is returned so the rest of the pipeline
// starts and runs on deterministic fallbacks. Only an unknown provider name
// is a hard error.
func NewLLMService(cfg *common.Config, kvStorage interfaces.KeyValueStorage, logger arbor.ILogger) (interfaces.LLMService, error) {
	provider := cfg.LLM.DefaultProvider
	if provider == "" {
		provider = common.LLMProviderGemini
	}

	logger.Info().Str("provider", string(provider)).Msg("Initializing LLM service")

	switch provider {
	case common.LLMProviderNone:
		return NewDisabledService(logger), nil

	case common.LLMProviderGemini:
		service, err := NewGeminiService(&cfg.Gemini, kvStorage, logger)
		if err != nil {
			logger.Warn().
				Err(err).
				Msg("Gemini service unavailable, running with deterministic fallbacks")
			return NewDisabledService(logger), nil
		}
		return service, nil

	case common.LLMProviderClaude:
		service, err := NewClaudeService(&cfg.Claude, kvStorage, logger)
		if err != nil {
			logger.Warn().
				Err(err).
				Msg("Claude service unavailable, running with deterministic fallbacks")
			return NewDisabledService(logger), nil
		}
		return service, nil

	default:
		return nil, fmt.Errorf("unsupported LLM provider '%s': must be 'gemini', 'claude', or 'none'", provider)
	}
}
