package models

import "errors"

// Domain error kinds. Callers match with errors.Is and wrap with
// fmt.Errorf("...: %w", err) to add context.
var (
	// ErrValidation marks empty or missing required input, rejected before
	// any processing happens.
	ErrValidation = errors.New("validation failed")

	// ErrStorage marks a durable read or write failure. No partial state is
	// retained by the operation that returns it.
	ErrStorage = errors.New("storage failure")

	// ErrEmbeddingUnavailable marks an unreachable or unconfigured embedding
	// backend. The vectorizer degrades to a pseudo-embedding and continues.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrCompletionUnavailable marks an unreachable or unconfigured LLM
	// completion backend. The composer degrades to a templated reply.
	ErrCompletionUnavailable = errors.New("completion service unavailable")

	// ErrNotFound marks an unknown id on delete or lookup. Reported, not fatal.
	ErrNotFound = errors.New("not found")
)
