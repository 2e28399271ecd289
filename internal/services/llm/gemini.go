package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/respondo/internal/common"
	"github.com/ternarybob/respondo/internal/interfaces"
	"github.com/ternarybob/respondo/internal/models"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// embedDimension is the vector size produced for knowledge chunks. The
// retrieval tier and the pseudo-embedding fallback both assume this size,
// so it is fixed rather than configurable.
const embedDimension = 768

// GeminiService implements the LLMService interface using the Google Gemini
// API. It provides both embedding generation and chat completions, with a
// shared rate limiter pacing outbound calls.
type GeminiService struct {
	config  *common.GeminiConfig
	logger  arbor.ILogger
	client  *genai.Client
	limiter *rate.Limiter
	timeout time.Duration
}

// convertMessagesToGemini converts []interfaces.Message to Gemini Content
// format. Role values map to the provider's expected values and chronological
// ordering is preserved. System messages are extracted separately for use
// with SystemInstruction. Returns the user/model messages, the first system
// message content (if any), and an error.
func convertMessagesToGemini(messages []interfaces.Message) ([]*genai.Content, string, error) {
	if len(messages) == 0 {
		return nil, "", fmt.Errorf("messages cannot be empty")
	}

	hasUserMessage := false
	for _, msg := range messages {
		if msg.Role == "user" {
			hasUserMessage = true
			break
		}
	}
	if !hasUserMessage {
		return nil, "", fmt.Errorf("at least one message must have role 'user'")
	}

	contents := make([]*genai.Content, 0, len(messages))
	var systemText string
	for _, msg := range messages {
		if msg.Role == "system" {
			if systemText == "" {
				systemText = msg.Content
			}
			continue
		}

		var geminiRole string
		switch msg.Role {
		case "assistant":
			geminiRole = genai.RoleModel
		case "user":
			geminiRole = genai.RoleUser
		default:
			geminiRole = genai.RoleUser
		}

		part := genai.NewPartFromText(msg.Content)
		contents = append(contents, &genai.Content{
			Role:  geminiRole,
			Parts: []*genai.Part{part},
		})
	}

	return contents, systemText, nil
}

// NewGeminiService creates a new Gemini LLM service instance.
//
// Initialization resolves the API key (environment, KV store, then config
// fallback), applies model name defaults, parses the timeout and rate limit
// durations, and constructs the genai client. The rate limit duration is the
// minimum spacing between outbound calls; "4s" keeps a free tier key under
// its 15 requests per minute quota.
func NewGeminiService(geminiConfig *common.GeminiConfig, kvStorage interfaces.KeyValueStorage, logger arbor.ILogger) (*GeminiService, error) {
	ctx := context.Background()
	apiKey, err := common.ResolveAPIKey(ctx, kvStorage, "gemini_api_key", geminiConfig.APIKey)
	if err != nil {
		return nil, fmt.Errorf("Gemini API key is required (set via RESPONDO_GEMINI_API_KEY, the KV store, or gemini.api_key in config): %w", err)
	}

	if geminiConfig.Model == "" {
		geminiConfig.Model = "gemini-3-flash-preview"
	}
	if geminiConfig.EmbeddingModel == "" {
		geminiConfig.EmbeddingModel = "gemini-embedding-001"
	}

	timeout, err := time.ParseDuration(geminiConfig.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid timeout duration '%s': %w", geminiConfig.Timeout, err)
	}

	limiter, err := newCallLimiter(geminiConfig.RateLimit)
	if err != nil {
		return nil, fmt.Errorf("invalid rate limit '%s': %w", geminiConfig.RateLimit, err)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}

	service := &GeminiService{
		config:  geminiConfig,
		logger:  logger,
		client:  client,
		limiter: limiter,
		timeout: timeout,
	}

	logger.Info().
		Str("chat_model", geminiConfig.Model).
		Str("embedding_model", geminiConfig.EmbeddingModel).
		Int("embed_dimension", embedDimension).
		Dur("timeout", timeout).
		Msg("Gemini LLM service initialized")

	return service, nil
}

// newCallLimiter builds a rate limiter from a minimum-spacing duration
// string. An empty string disables pacing.
func newCallLimiter(spacing string) (*rate.Limiter, error) {
	if spacing == "" {
		return rate.NewLimiter(rate.Inf, 1), nil
	}
	interval, err := time.ParseDuration(spacing)
	if err != nil {
		return nil, err
	}
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1), nil
	}
	return rate.NewLimiter(rate.Every(interval), 1), nil
}

// Embed generates a 768-dimension embedding vector for the given text using
// the configured embedding model. Failures are wrapped with
// models.ErrEmbeddingUnavailable so callers can degrade to pseudo-embeddings
// with errors.Is.
func (s *GeminiService) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", models.ErrValidation)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limiter interrupted: %w", models.ErrEmbeddingUnavailable, err)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	startTime := time.Now()
	embedding, err := s.generateEmbedding(timeoutCtx, text)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Int("text_length", len(text)).
			Msg("Embedding generation failed")
		return nil, fmt.Errorf("%w: %w", models.ErrEmbeddingUnavailable, err)
	}

	s.logger.Debug().
		Int("text_length", len(text)).
		Int("embedding_dim", len(embedding)).
		Dur("duration", time.Since(startTime)).
		Msg("Embedding generated")

	return embedding, nil
}

// Chat generates a completion response based on the conversation history.
// The messages slice should contain the full conversation context in
// chronological order. Failures are wrapped with
// models.ErrCompletionUnavailable so the composer can degrade to templates.
func (s *GeminiService) Chat(ctx context.Context, messages []interfaces.Message) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("%w: messages cannot be empty", models.ErrValidation)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: rate limiter interrupted: %w", models.ErrCompletionUnavailable, err)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	startTime := time.Now()
	response, err := s.generateCompletion(timeoutCtx, messages)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Int("message_count", len(messages)).
			Msg("Chat completion failed")
		return "", fmt.Errorf("%w: %w", models.ErrCompletionUnavailable, err)
	}

	s.logger.Debug().
		Int("message_count", len(messages)).
		Int("response_length", len(response)).
		Dur("duration", time.Since(startTime)).
		Msg("Chat completion generated")

	return response, nil
}

// HealthCheck verifies the Gemini service is operational. It runs lightweight
// probes against both the embedding and chat models with short timeouts.
func (s *GeminiService) HealthCheck(ctx context.Context) error {
	s.logger.Debug().Msg("Running Gemini LLM service health check")

	if s.client == nil {
		return fmt.Errorf("genai client is not initialized")
	}

	if err := s.performEmbeddingHealthCheck(ctx); err != nil {
		return fmt.Errorf("embedding model health check failed: %w", err)
	}

	if err := s.performChatHealthCheck(ctx); err != nil {
		return fmt.Errorf("chat model health check failed: %w", err)
	}

	s.logger.Info().
		Str("chat_model", s.config.Model).
		Str("embedding_model", s.config.EmbeddingModel).
		Msg("Gemini LLM service health check passed")

	return nil
}

// performEmbeddingHealthCheck exercises the embedding model with a static
// probe string and validates a non-empty vector comes back.
func (s *GeminiService) performEmbeddingHealthCheck(ctx context.Context) error {
	healthCheckCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	embedding, err := s.generateEmbedding(healthCheckCtx, "health check probe")
	if err != nil {
		return fmt.Errorf("embedding probe failed: %w", err)
	}
	if len(embedding) == 0 {
		return fmt.Errorf("embedding probe returned empty vector")
	}

	return nil
}

// performChatHealthCheck exercises the chat model with a minimal probe and
// validates a non-empty response comes back.
func (s *GeminiService) performChatHealthCheck(ctx context.Context) error {
	healthCheckCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	response, err := s.generateCompletion(healthCheckCtx, []interfaces.Message{
		{Role: "user", Content: "ping"},
	})
	if err != nil {
		return fmt.Errorf("chat probe failed: %w", err)
	}
	if len(strings.TrimSpace(response)) == 0 {
		return fmt.Errorf("chat probe returned empty response")
	}

	return nil
}

// GetMode returns LLMModeCloud since this implementation uses the Gemini
// cloud API.
func (s *GeminiService) GetMode() interfaces.LLMMode {
	return interfaces.LLMModeCloud
}

// Close releases resources. The genai client does not require explicit
// cleanup beyond clearing the reference.
func (s *GeminiService) Close() error {
	s.logger.Info().Msg("Closing Gemini LLM service")
	s.client = nil
	return nil
}

// generateEmbedding encapsulates the genai embedding call with the fixed
// output dimensionality, including retry on rate limit errors.
func (s *GeminiService) generateEmbedding(ctx context.Context, text string) ([]float32, error) {
	outputDim := int32(embedDimension)
	embeddingConfig := &genai.EmbedContentConfig{
		OutputDimensionality: &outputDim,
	}

	var result *genai.EmbedContentResponse
	err := s.withRateLimitRetry(ctx, "embed", func() error {
		var callErr error
		result, callErr = s.client.Models.EmbedContent(ctx, s.config.EmbeddingModel, []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}, embeddingConfig)
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("embedding generation failed: %w", err)
	}

	var embedding []float32
	if result != nil && len(result.Embeddings) > 0 {
		embedding = result.Embeddings[0].Values
	}
	if embedding == nil {
		return nil, fmt.Errorf("no embedding returned from API")
	}
	if len(embedding) != embedDimension {
		return nil, fmt.Errorf("embedding dimension mismatch: expected %d, got %d", embedDimension, len(embedding))
	}

	return embedding, nil
}

// generateCompletion encapsulates the genai chat call with temperature and
// system instruction applied, including retry on rate limit errors.
func (s *GeminiService) generateCompletion(ctx context.Context, messages []interfaces.Message) (string, error) {
	geminiContents, systemText, err := convertMessagesToGemini(messages)
	if err != nil {
		return "", fmt.Errorf("failed to convert messages to Gemini format: %w", err)
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(s.config.Temperature),
	}
	if systemText != "" {
		config.SystemInstruction = genai.NewContentFromText(systemText, genai.RoleUser)
	}

	var resp *genai.GenerateContentResponse
	err = s.withRateLimitRetry(ctx, "chat", func() error {
		var callErr error
		resp, callErr = s.client.Models.GenerateContent(ctx, s.config.Model, geminiContents, config)
		return callErr
	})
	if err != nil {
		return "", fmt.Errorf("chat generation failed: %w", err)
	}

	// Iterate candidates until non-empty text is found.
	var response strings.Builder
	if resp != nil && len(resp.Candidates) > 0 {
		for _, candidate := range resp.Candidates {
			if candidate.Content == nil {
				continue
			}
			for _, part := range candidate.Content.Parts {
				if part.Text != "" {
					response.WriteString(part.Text)
				}
			}
			if response.Len() > 0 {
				break
			}
		}
	}

	if response.Len() == 0 {
		return "", fmt.Errorf("no response generated from chat model")
	}

	return response.String(), nil
}

// withRateLimitRetry runs call and retries it on Gemini rate limit errors,
// honoring the API-suggested retry delay when present. Non rate limit errors
// are returned immediately.
func (s *GeminiService) withRateLimitRetry(ctx context.Context, operation string, call func() error) error {
	retryConfig := NewDefaultRetryConfig()

	var lastErr error
	for attempt := 0; attempt <= retryConfig.MaxRetries; attempt++ {
		lastErr = call()
		if lastErr == nil {
			return nil
		}
		if !IsRateLimitError(lastErr) || attempt == retryConfig.MaxRetries {
			return lastErr
		}

		backoff := retryConfig.CalculateBackoff(attempt, ExtractRetryDelay(lastErr))
		s.logger.Warn().
			Str("operation", operation).
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Err(lastErr).
			Msg("Gemini rate limit hit, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}

	return lastErr
}
