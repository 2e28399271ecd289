package knowledge

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/respondo/internal/common"
	"github.com/ternarybob/respondo/internal/interfaces"
	"github.com/ternarybob/respondo/internal/models"
	"github.com/ternarybob/respondo/internal/services/analysis"
	"github.com/ternarybob/respondo/internal/services/chunking"
	"github.com/ternarybob/respondo/internal/services/embeddings"
)

const (
	defaultSource   = "manual"
	defaultCategory = "general"
)

// Service manages per-company knowledge with a cache-aside store. Each
// company's entry set is loaded lazily and kept in memory; mutations build
// the next set, persist it as a whole-company replace, and only then swap
// the cached set. A failed write therefore leaves both the store and the
// cache on the previous state.
type Service struct {
	storage  interfaces.EntryStorage
	analyzer *analysis.Service
	chunker  *chunking.Service
	embedder *embeddings.Service
	logger   arbor.ILogger

	// mu guards cache; writeMu serializes the read-modify-persist sequence
	// of mutations so readers never wait on storage or embedding calls.
	mu      sync.RWMutex
	writeMu sync.Mutex
	cache   map[string][]*models.KnowledgeEntry
}

var _ interfaces.KnowledgeService = (*Service)(nil)

// NewService creates a knowledge service over the given storage and
// ingestion pipeline collaborators.
func NewService(storage interfaces.EntryStorage, analyzer *analysis.Service, chunker *chunking.Service, embedder *embeddings.Service, logger arbor.ILogger) *Service {
	return &Service{
		storage:  storage,
		analyzer: analyzer,
		chunker:  chunker,
		embedder: embedder,
		logger:   logger,
		cache:    make(map[string][]*models.KnowledgeEntry),
	}
}

// Add ingests content for a company. Content is analyzed, chunked and
// vectorized before persisting. Duplicate content (same md5 hash within the
// company) updates the existing entry's timestamp and metadata instead of
// creating a second entry.
func (s *Service) Add(ctx context.Context, companyID string, req *interfaces.AddEntryRequest) (*models.KnowledgeEntry, error) {
	if companyID == "" {
		return nil, fmt.Errorf("%w: company id is required", models.ErrValidation)
	}
	if req == nil {
		return nil, fmt.Errorf("%w: request is required", models.ErrValidation)
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, fmt.Errorf("%w: content is required", models.ErrValidation)
	}

	source := req.Source
	if source == "" {
		source = defaultSource
	}
	category := req.Category
	if category == "" {
		category = defaultCategory
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	entries, err := s.ensureLoaded(ctx, companyID)
	if err != nil {
		return nil, err
	}

	hash := models.HashContent(content)
	for i, existing := range entries {
		if existing.ContentHash != hash {
			continue
		}

		// Duplicate content: refresh the existing entry.
		updated := *existing
		updated.UpdatedAt = time.Now()
		if req.Metadata != nil {
			updated.Metadata = req.Metadata
		}

		next := make([]*models.KnowledgeEntry, len(entries))
		copy(next, entries)
		next[i] = &updated

		if err := s.storage.Save(ctx, companyID, next); err != nil {
			return nil, err
		}
		s.install(companyID, next)

		s.logger.Debug().
			Str("company_id", companyID).
			Str("entry_id", updated.ID).
			Msg("Duplicate content, existing entry refreshed")

		return &updated, nil
	}

	now := time.Now()
	entry := &models.KnowledgeEntry{
		ID:          common.NewEntryID(),
		CompanyID:   companyID,
		Content:     content,
		Source:      source,
		Category:    category,
		ContentHash: hash,
		Analysis:    s.analyzer.Analyze(content),
		Metadata:    req.Metadata,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	chunks := s.chunker.Chunk(content)
	entry.Chunks = s.embedder.EmbedChunks(ctx, chunks)

	next := make([]*models.KnowledgeEntry, 0, len(entries)+1)
	next = append(next, entries...)
	next = append(next, entry)

	if err := s.storage.Save(ctx, companyID, next); err != nil {
		return nil, err
	}
	s.install(companyID, next)

	s.logger.Info().
		Str("company_id", companyID).
		Str("entry_id", entry.ID).
		Str("category", category).
		Int("chunks", len(entry.Chunks)).
		Float64("quality", entry.Analysis.QualityScore).
		Msg("Knowledge entry added")

	return entry, nil
}

// Get returns a single entry, or an error wrapping models.ErrNotFound.
func (s *Service) Get(ctx context.Context, companyID, entryID string) (*models.KnowledgeEntry, error) {
	entries, err := s.ensureLoaded(ctx, companyID)
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		if entry.ID == entryID {
			return entry, nil
		}
	}
	return nil, fmt.Errorf("%w: entry %s", models.ErrNotFound, entryID)
}

// List returns all entries for a company ordered by creation time.
func (s *Service) List(ctx context.Context, companyID string) ([]*models.KnowledgeEntry, error) {
	return s.ensureLoaded(ctx, companyID)
}

// ListByCategory returns the company's entries matching a category.
func (s *Service) ListByCategory(ctx context.Context, companyID, category string) ([]*models.KnowledgeEntry, error) {
	entries, err := s.ensureLoaded(ctx, companyID)
	if err != nil {
		return nil, err
	}

	matched := make([]*models.KnowledgeEntry, 0)
	for _, entry := range entries {
		if entry.Category == category {
			matched = append(matched, entry)
		}
	}
	return matched, nil
}

// Delete removes a single entry.
func (s *Service) Delete(ctx context.Context, companyID, entryID string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	entries, err := s.ensureLoaded(ctx, companyID)
	if err != nil {
		return err
	}

	index := -1
	for i, entry := range entries {
		if entry.ID == entryID {
			index = i
			break
		}
	}
	if index < 0 {
		return fmt.Errorf("%w: entry %s", models.ErrNotFound, entryID)
	}

	next := make([]*models.KnowledgeEntry, 0, len(entries)-1)
	next = append(next, entries[:index]...)
	next = append(next, entries[index+1:]...)

	if err := s.storage.Save(ctx, companyID, next); err != nil {
		return err
	}
	s.install(companyID, next)

	s.logger.Info().
		Str("company_id", companyID).
		Str("entry_id", entryID).
		Msg("Knowledge entry deleted")

	return nil
}

// Clear removes all knowledge for a company and returns the number of
// entries removed.
func (s *Service) Clear(ctx context.Context, companyID string) (int, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	entries, err := s.ensureLoaded(ctx, companyID)
	if err != nil {
		return 0, err
	}
	count := len(entries)
	if count == 0 {
		return 0, nil
	}

	if err := s.storage.Save(ctx, companyID, nil); err != nil {
		return 0, err
	}
	s.install(companyID, nil)

	s.logger.Info().
		Str("company_id", companyID).
		Int("removed", count).
		Msg("Company knowledge cleared")

	return count, nil
}

// Stats aggregates counts, category and source distributions.
func (s *Service) Stats(ctx context.Context, companyID string) (*models.KnowledgeStats, error) {
	entries, err := s.ensureLoaded(ctx, companyID)
	if err != nil {
		return nil, err
	}

	stats := &models.KnowledgeStats{
		TotalEntries: len(entries),
		Categories:   make(map[string]int),
		Sources:      make(map[string]int),
	}

	var latest time.Time
	for _, entry := range entries {
		stats.Categories[entry.Category]++
		stats.Sources[entry.Source]++
		stats.TotalContentLength += len(entry.Content)
		if entry.UpdatedAt.After(latest) {
			latest = entry.UpdatedAt
		}
	}

	if len(entries) > 0 {
		stats.AverageContentLength = float64(stats.TotalContentLength) / float64(len(entries))
		stats.LatestUpdate = &latest
	}

	return stats, nil
}

// Count returns the number of entries for a company.
func (s *Service) Count(ctx context.Context, companyID string) (int, error) {
	entries, err := s.ensureLoaded(ctx, companyID)
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

// Invalidate drops the company's cached entries, forcing the next read
// through to storage.
func (s *Service) Invalidate(companyID string) {
	s.mu.Lock()
	delete(s.cache, companyID)
	s.mu.Unlock()
}

// ensureLoaded returns the company's cached entry set, loading it from
// storage on first access. Safe for concurrent readers; a lost load race
// keeps the first installed set.
func (s *Service) ensureLoaded(ctx context.Context, companyID string) ([]*models.KnowledgeEntry, error) {
	s.mu.RLock()
	entries, ok := s.cache[companyID]
	s.mu.RUnlock()
	if ok {
		return entries, nil
	}

	loaded, err := s.storage.Load(ctx, companyID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cached, ok := s.cache[companyID]; ok {
		return cached, nil
	}
	s.cache[companyID] = loaded
	return loaded, nil
}

// install swaps the company's cached entry set after a successful persist.
func (s *Service) install(companyID string, entries []*models.KnowledgeEntry) {
	s.mu.Lock()
	s.cache[companyID] = entries
	s.mu.Unlock()
}
