package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondo/internal/common"
	"github.com/ternarybob/respondo/internal/interfaces"
	"github.com/ternarybob/respondo/internal/models"
)

func TestDisabledService_EmbedReturnsTypedError(t *testing.T) {
	svc := NewDisabledService(arbor.NewLogger())

	vector, err := svc.Embed(context.Background(), "some text")

	assert.Nil(t, vector)
	assert.ErrorIs(t, err, models.ErrEmbeddingUnavailable)
}

func TestDisabledService_ChatReturnsTypedError(t *testing.T) {
	svc := NewDisabledService(arbor.NewLogger())

	response, err := svc.Chat(context.Background(), []interfaces.Message{
		{Role: "user", Content: "hello"},
	})

	assert.Empty(t, response)
	assert.ErrorIs(t, err, models.ErrCompletionUnavailable)
}

func TestDisabledService_Mode(t *testing.T) {
	svc := NewDisabledService(arbor.NewLogger())

	assert.Equal(t, interfaces.LLMModeDisabled, svc.GetMode())
	assert.NoError(t, svc.HealthCheck(context.Background()))
	assert.NoError(t, svc.Close())
}

func TestNewLLMService_ProviderNone(t *testing.T) {
	cfg := common.NewDefaultConfig()
	cfg.LLM.DefaultProvider = common.LLMProviderNone

	svc, err := NewLLMService(cfg, nil, arbor.NewLogger())

	require.NoError(t, err)
	assert.Equal(t, interfaces.LLMModeDisabled, svc.GetMode())
}

func TestNewLLMService_UnknownProvider(t *testing.T) {
	cfg := common.NewDefaultConfig()
	cfg.LLM.DefaultProvider = "openai"

	svc, err := NewLLMService(cfg, nil, arbor.NewLogger())

	assert.Nil(t, svc)
	assert.Error(t, err)
}

func TestNewLLMService_MissingKeyDegradesToDisabled(t *testing.T) {
	// No API key in env, KV store, or config: the factory logs the failure
	// and hands back the disabled service instead of failing startup.
	t.Setenv("RESPONDO_GEMINI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")

	cfg := common.NewDefaultConfig()
	cfg.LLM.DefaultProvider = common.LLMProviderGemini
	cfg.Gemini.APIKey = ""

	svc, err := NewLLMService(cfg, nil, arbor.NewLogger())

	require.NoError(t, err)
	assert.Equal(t, interfaces.LLMModeDisabled, svc.GetMode())
}

func TestConvertMessagesToGemini_SystemExtracted(t *testing.T) {
	contents, systemText, err := convertMessagesToGemini([]interfaces.Message{
		{Role: "system", Content: "You are a helpful assistant."},
		{Role: "user", Content: "What do you sell?"},
		{Role: "assistant", Content: "Widgets."},
		{Role: "user", Content: "How much?"},
	})

	require.NoError(t, err)
	assert.Equal(t, "You are a helpful assistant.", systemText)
	require.Len(t, contents, 3)
	assert.Equal(t, "user", contents[0].Role)
	assert.Equal(t, "model", contents[1].Role)
	assert.Equal(t, "user", contents[2].Role)
}

func TestConvertMessagesToGemini_RequiresUserMessage(t *testing.T) {
	_, _, err := convertMessagesToGemini([]interfaces.Message{
		{Role: "system", Content: "system only"},
	})
	assert.Error(t, err)

	_, _, err = convertMessagesToGemini(nil)
	assert.Error(t, err)
}

func TestConvertMessagesToClaude_SystemExtracted(t *testing.T) {
	claudeMessages, systemText, err := convertMessagesToClaude([]interfaces.Message{
		{Role: "system", Content: "Answer briefly."},
		{Role: "user", Content: "Do you ship overseas?"},
		{Role: "assistant", Content: "Yes."},
	})

	require.NoError(t, err)
	assert.Equal(t, "Answer briefly.", systemText)
	assert.Len(t, claudeMessages, 2)
}

func TestIsRateLimitError(t *testing.T) {
	assert.False(t, IsRateLimitError(nil))
	assert.False(t, IsRateLimitError(errors.New("connection refused")))
	assert.True(t, IsRateLimitError(errors.New("Error 429: too many requests")))
	assert.True(t, IsRateLimitError(errors.New("status RESOURCE_EXHAUSTED")))
	assert.True(t, IsRateLimitError(errors.New("quota exceeded for model")))
}

func TestExtractRetryDelay(t *testing.T) {
	err := errors.New("Error 429, Message: rate limited. Please retry in 45.387061394s., Status: RESOURCE_EXHAUSTED")
	delay := ExtractRetryDelay(err)
	assert.InDelta(t, 45.387, delay.Seconds(), 0.01)

	assert.Equal(t, time.Duration(0), ExtractRetryDelay(nil))
	assert.Equal(t, time.Duration(0), ExtractRetryDelay(errors.New("no delay here")))
}

func TestCalculateBackoff_UsesAPIDelay(t *testing.T) {
	cfg := NewDefaultRetryConfig()

	// API-provided delay plus the 5s buffer on the first attempt.
	backoff := cfg.CalculateBackoff(0, 30*time.Second)
	assert.Equal(t, 35*time.Second, backoff)

	// Without an API delay the initial backoff applies.
	backoff = cfg.CalculateBackoff(0, 0)
	assert.Equal(t, DefaultInitialBackoff, backoff)
}

func TestCalculateBackoff_CapsAtMax(t *testing.T) {
	cfg := NewDefaultRetryConfig()

	backoff := cfg.CalculateBackoff(10, 0)
	assert.Equal(t, DefaultMaxBackoff, backoff)
}

func TestNewCallLimiter(t *testing.T) {
	limiter, err := newCallLimiter("")
	require.NoError(t, err)
	require.NotNil(t, limiter)

	limiter, err = newCallLimiter("4s")
	require.NoError(t, err)
	require.NotNil(t, limiter)

	_, err = newCallLimiter("not-a-duration")
	assert.Error(t, err)
}
