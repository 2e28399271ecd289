package interfaces

import (
	"context"
)

// LLMMode represents the operational mode of the LLM service
type LLMMode string

const (
	// LLMModeCloud indicates the service uses cloud-based LLM APIs
	LLMModeCloud LLMMode = "cloud"

	// LLMModeDisabled indicates no LLM backend is configured. Callers must
	// degrade to deterministic fallbacks (pseudo-embeddings, template replies).
	LLMModeDisabled LLMMode = "disabled"
)

// Message represents a single message in a chat conversation
type Message struct {
	// Role identifies the message sender: "user", "assistant", or "system"
	Role string

	// Content contains the text content of the message
	Content string
}

// LLMService defines the interface for language model operations including
// embeddings generation and chat completions. Implementations wrap cloud
// APIs (Gemini, Claude); a disabled implementation returns typed errors so
// the pipeline can fall back without nil checks at every call site.
type LLMService interface {
	// Embed generates a 768-dimension embedding vector for the given text.
	// Returns an error wrapping models.ErrEmbeddingUnavailable when the
	// backend cannot produce embeddings.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Chat generates a completion response based on the conversation history.
	// The messages slice should contain the full conversation context
	// including system prompts, user messages, and previous assistant
	// responses. Returns an error wrapping models.ErrCompletionUnavailable
	// when the backend cannot complete.
	Chat(ctx context.Context, messages []Message) (string, error)

	// HealthCheck verifies the LLM service is operational and can handle requests.
	HealthCheck(ctx context.Context) error

	// GetMode returns the current operational mode of the LLM service.
	GetMode() LLMMode

	// Close releases resources and performs cleanup operations.
	Close() error
}
