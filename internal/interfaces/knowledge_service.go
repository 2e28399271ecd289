package interfaces

import (
	"context"

	"github.com/ternarybob/respondo/internal/models"
)

// AddEntryRequest carries the inputs for a knowledge ingestion
type AddEntryRequest struct {
	Content  string                 `json:"content"`
	Source   string                 `json:"source,omitempty"`
	Category string                 `json:"category,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// KnowledgeService manages a company's knowledge base. Ingestion runs the
// full analyze, chunk and vectorize pipeline; duplicate content (by hash)
// updates the existing entry instead of creating a second one.
type KnowledgeService interface {
	// Add ingests content for a company and returns the stored entry
	Add(ctx context.Context, companyID string, req *AddEntryRequest) (*models.KnowledgeEntry, error)

	// Get returns a single entry, or an error wrapping models.ErrNotFound
	Get(ctx context.Context, companyID, entryID string) (*models.KnowledgeEntry, error)

	// List returns all entries for a company
	List(ctx context.Context, companyID string) ([]*models.KnowledgeEntry, error)

	// ListByCategory returns the company's entries matching a category
	ListByCategory(ctx context.Context, companyID, category string) ([]*models.KnowledgeEntry, error)

	// Delete removes a single entry
	Delete(ctx context.Context, companyID, entryID string) error

	// Clear removes all knowledge for a company and returns the number of
	// entries removed
	Clear(ctx context.Context, companyID string) (int, error)

	// Stats aggregates counts, category and source distributions
	Stats(ctx context.Context, companyID string) (*models.KnowledgeStats, error)

	// Count returns the number of entries for a company
	Count(ctx context.Context, companyID string) (int, error)

	// Invalidate drops the company's cached entries, forcing the next read
	// through to storage
	Invalidate(companyID string)
}

// RetrievalService answers queries against a company's knowledge base.
// Matches come back sorted by score descending and capped at the configured
// maximum; an empty result means nothing cleared the threshold floor.
// A non-empty category restricts the search to entries in that category.
type RetrievalService interface {
	Search(ctx context.Context, companyID, query, category string) ([]models.Match, error)
}
