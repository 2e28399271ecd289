package retrieval

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondo/internal/common"
	"github.com/ternarybob/respondo/internal/interfaces"
	"github.com/ternarybob/respondo/internal/models"
	"github.com/ternarybob/respondo/internal/services/analysis"
	"github.com/ternarybob/respondo/internal/services/embeddings"
)

const testEmbedModel = "gemini-embedding-001"

// stubKnowledge serves canned entries per company. Only the read paths
// matter to retrieval; the mutating methods are inert.
type stubKnowledge struct {
	entries map[string][]*models.KnowledgeEntry
	listErr error
}

func (s *stubKnowledge) Add(context.Context, string, *interfaces.AddEntryRequest) (*models.KnowledgeEntry, error) {
	return nil, nil
}

func (s *stubKnowledge) Get(context.Context, string, string) (*models.KnowledgeEntry, error) {
	return nil, nil
}

func (s *stubKnowledge) List(_ context.Context, companyID string) ([]*models.KnowledgeEntry, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.entries[companyID], nil
}

func (s *stubKnowledge) ListByCategory(_ context.Context, companyID, category string) ([]*models.KnowledgeEntry, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	filtered := make([]*models.KnowledgeEntry, 0)
	for _, entry := range s.entries[companyID] {
		if entry.Category == category {
			filtered = append(filtered, entry)
		}
	}
	return filtered, nil
}

func (s *stubKnowledge) Delete(context.Context, string, string) error { return nil }

func (s *stubKnowledge) Clear(context.Context, string) (int, error) { return 0, nil }

func (s *stubKnowledge) Stats(context.Context, string) (*models.KnowledgeStats, error) {
	return nil, nil
}

func (s *stubKnowledge) Count(context.Context, string) (int, error) { return 0, nil }

func (s *stubKnowledge) Invalidate(string) {}

// embedLLM returns a fixed query vector so vector-tier behavior is
// controllable from tests.
type embedLLM struct {
	vector []float32
}

func (l *embedLLM) Embed(context.Context, string) ([]float32, error) {
	return l.vector, nil
}

func (l *embedLLM) Chat(context.Context, []interfaces.Message) (string, error) {
	return "", fmt.Errorf("%w: stub has no completions", models.ErrCompletionUnavailable)
}

func (l *embedLLM) HealthCheck(context.Context) error { return nil }

func (l *embedLLM) GetMode() interfaces.LLMMode { return interfaces.LLMModeCloud }

func (l *embedLLM) Close() error { return nil }

func newTestService(knowledge interfaces.KnowledgeService, llm interfaces.LLMService) *Service {
	logger := arbor.NewLogger()
	config := &common.RetrievalConfig{
		SimilarityThreshold: 0.3,
		KeywordFloor:        0.1,
		MaxResults:          5,
	}
	embedder := embeddings.NewService(llm, testEmbedModel, logger)
	return NewService(knowledge, embedder, analysis.NewService(logger), config, logger)
}

func newEntry(id, companyID, content, category string, createdAt time.Time) *models.KnowledgeEntry {
	return &models.KnowledgeEntry{
		ID:          id,
		CompanyID:   companyID,
		Content:     content,
		Source:      "manual",
		Category:    category,
		ContentHash: models.HashContent(content),
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}

func TestSearchKeywordMatchesSupportEntry(t *testing.T) {
	created := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	knowledge := &stubKnowledge{entries: map[string][]*models.KnowledgeEntry{
		"acme": {
			newEntry("e1", "acme", "We offer 24/7 support and free shipping over $50.", "support", created),
		},
	}}
	service := newTestService(knowledge, nil)

	matches, err := service.Search(context.Background(), "acme", "Do you offer shipping?", "")

	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "e1", matches[0].EntryID)
	assert.Equal(t, models.MatchSourceKeyword, matches[0].Source)
	assert.InDelta(t, 0.2, matches[0].Score, 1e-9)
	assert.GreaterOrEqual(t, matches[0].Score, 0.1)
}

func TestSearchEmptyQueryReturnsNothing(t *testing.T) {
	knowledge := &stubKnowledge{listErr: fmt.Errorf("%w: should not be read", models.ErrStorage)}
	service := newTestService(knowledge, nil)

	matches, err := service.Search(context.Background(), "acme", "   ", "")

	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestSearchEmptyStoreReturnsNothing(t *testing.T) {
	service := newTestService(&stubKnowledge{entries: map[string][]*models.KnowledgeEntry{}}, nil)

	matches, err := service.Search(context.Background(), "newco", "anything at all", "")

	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestSearchPropagatesStorageError(t *testing.T) {
	knowledge := &stubKnowledge{listErr: fmt.Errorf("%w: load failed", models.ErrStorage)}
	service := newTestService(knowledge, nil)

	matches, err := service.Search(context.Background(), "acme", "shipping", "")

	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrStorage)
	assert.Nil(t, matches)
}

func TestSearchCategoryRestrictsEntries(t *testing.T) {
	created := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	knowledge := &stubKnowledge{entries: map[string][]*models.KnowledgeEntry{
		"acme": {
			newEntry("price", "acme", "Our plans cost ten dollars.", "pricing", created),
			newEntry("help", "acme", "Support plans available.", "support", created),
		},
	}}
	service := newTestService(knowledge, nil)

	matches, err := service.Search(context.Background(), "acme", "cost of plans", "pricing")

	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "price", matches[0].EntryID)
}

func TestSearchSortedDescendingAndCapped(t *testing.T) {
	created := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	entries := make([]*models.KnowledgeEntry, 0, 7)
	for i := 1; i <= 7; i++ {
		content := ""
		for j := 0; j < i; j++ {
			content += "widget "
		}
		entries = append(entries, newEntry(fmt.Sprintf("e%d", i), "acme", content, "general", created.Add(time.Duration(i)*time.Minute)))
	}
	knowledge := &stubKnowledge{entries: map[string][]*models.KnowledgeEntry{"acme": entries}}
	service := newTestService(knowledge, nil)

	matches, err := service.Search(context.Background(), "acme", "shiny widget", "")

	require.NoError(t, err)
	require.Len(t, matches, 5)
	assert.Equal(t, "e7", matches[0].EntryID)
	for i := 1; i < len(matches); i++ {
		assert.GreaterOrEqual(t, matches[i-1].Score, matches[i].Score)
	}
	for _, match := range matches {
		assert.GreaterOrEqual(t, match.Score, 0.1)
	}
}

func TestSearchTieBreaksOlderThenID(t *testing.T) {
	content := "Our returns policy lasts thirty days."
	older := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(48 * time.Hour)
	knowledge := &stubKnowledge{entries: map[string][]*models.KnowledgeEntry{
		"acme": {
			newEntry("recent", "acme", content, "general", newer),
			newEntry("founding", "acme", content, "general", older),
		},
		"beta": {
			newEntry("b", "beta", content, "general", older),
			newEntry("a", "beta", content, "general", older),
		},
	}}
	service := newTestService(knowledge, nil)

	matches, err := service.Search(context.Background(), "acme", "returns policy", "")
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "founding", matches[0].EntryID)
	assert.Equal(t, matches[0].Score, matches[1].Score)

	matches, err = service.Search(context.Background(), "beta", "returns policy", "")
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "a", matches[0].EntryID)
}

func TestSearchVectorTierPreferred(t *testing.T) {
	created := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	entry := newEntry("e1", "acme", "Full entry text about deliveries.", "general", created)
	entry.Chunks = []models.VectorizedChunk{
		{
			Chunk:       models.TextChunk{ID: "c1", Content: "We deliver in two days.", ChunkIndex: 0},
			Vector:      []float32{1, 0, 0},
			VectorModel: testEmbedModel,
		},
		{
			Chunk:       models.TextChunk{ID: "c2", Content: "Unrelated paragraph.", ChunkIndex: 1},
			Vector:      []float32{0, 1, 0},
			VectorModel: testEmbedModel,
		},
	}
	knowledge := &stubKnowledge{entries: map[string][]*models.KnowledgeEntry{"acme": {entry}}}
	service := newTestService(knowledge, &embedLLM{vector: []float32{1, 0, 0}})

	matches, err := service.Search(context.Background(), "acme", "delivery speed", "")

	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, models.MatchSourceVector, matches[0].Source)
	assert.Equal(t, "c1", matches[0].ChunkID)
	assert.Equal(t, "We deliver in two days.", matches[0].Content)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-9)
}

func TestSearchSkipsFallbackChunkVectors(t *testing.T) {
	created := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	entry := newEntry("e1", "acme", "Free shipping on all orders.", "general", created)
	entry.Chunks = []models.VectorizedChunk{
		{
			Chunk:       models.TextChunk{ID: "c1", Content: "Free shipping on all orders.", ChunkIndex: 0},
			Vector:      []float32{1, 0, 0},
			VectorModel: models.VectorModelFallback,
		},
	}
	knowledge := &stubKnowledge{entries: map[string][]*models.KnowledgeEntry{"acme": {entry}}}
	service := newTestService(knowledge, &embedLLM{vector: []float32{1, 0, 0}})

	matches, err := service.Search(context.Background(), "acme", "shipping options", "")

	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, models.MatchSourceKeyword, matches[0].Source)
}

func TestSearchSkipsMismatchedVectorModel(t *testing.T) {
	created := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	entry := newEntry("e1", "acme", "Free shipping on all orders.", "general", created)
	entry.Chunks = []models.VectorizedChunk{
		{
			Chunk:       models.TextChunk{ID: "c1", Content: "Free shipping on all orders.", ChunkIndex: 0},
			Vector:      []float32{1, 0, 0},
			VectorModel: "some-other-model",
		},
	}
	knowledge := &stubKnowledge{entries: map[string][]*models.KnowledgeEntry{"acme": {entry}}}
	service := newTestService(knowledge, &embedLLM{vector: []float32{1, 0, 0}})

	matches, err := service.Search(context.Background(), "acme", "shipping options", "")

	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, models.MatchSourceKeyword, matches[0].Source)
}

func TestSearchEmptyVectorTierEqualsKeywordOnly(t *testing.T) {
	created := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	entry := newEntry("e1", "acme", "Free shipping on all orders.", "general", created)
	entry.Chunks = []models.VectorizedChunk{
		{
			Chunk:       models.TextChunk{ID: "c1", Content: "Free shipping on all orders.", ChunkIndex: 0},
			Vector:      []float32{0, 0, 1},
			VectorModel: testEmbedModel,
		},
	}
	knowledge := &stubKnowledge{entries: map[string][]*models.KnowledgeEntry{"acme": {entry}}}

	// Orthogonal query vector: the vector tier runs but clears nothing.
	belowThreshold := newTestService(knowledge, &embedLLM{vector: []float32{1, 0, 0}})
	// No backend at all: the vector tier is skipped outright.
	skipped := newTestService(knowledge, nil)

	fromBelow, err := belowThreshold.Search(context.Background(), "acme", "shipping options", "")
	require.NoError(t, err)
	fromSkipped, err := skipped.Search(context.Background(), "acme", "shipping options", "")
	require.NoError(t, err)

	require.NotEmpty(t, fromBelow)
	assert.Equal(t, fromSkipped, fromBelow)
}

func TestSearchPricingIntentBonus(t *testing.T) {
	created := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	content := "Plans start at ten dollars monthly."
	knowledge := &stubKnowledge{entries: map[string][]*models.KnowledgeEntry{
		"acme": {
			newEntry("priced", "acme", content, "pricing", created),
			newEntry("plain", "acme", content, "general", created),
		},
	}}
	service := newTestService(knowledge, nil)

	matches, err := service.Search(context.Background(), "acme", "How much does it cost?", "")

	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "priced", matches[0].EntryID)
	assert.InDelta(t, 0.2, matches[0].Score, 1e-9)
}

func TestSearchFrustrationRoutesToSupport(t *testing.T) {
	created := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	content := "Contact our support team anytime."
	knowledge := &stubKnowledge{entries: map[string][]*models.KnowledgeEntry{
		"acme": {
			newEntry("desk", "acme", content, "support", created),
			newEntry("misc", "acme", content, "general", created),
		},
	}}
	service := newTestService(knowledge, nil)

	matches, err := service.Search(context.Background(), "acme", "This is terrible, I need help", "")

	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "desk", matches[0].EntryID)
	// support_intent (4) plus frustration_to_support (2), scaled by 20.
	assert.InDelta(t, 0.3, matches[0].Score, 1e-9)
}

func TestSearchTopicOverlapBonus(t *testing.T) {
	created := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	tagged := newEntry("tagged", "acme", "Orders ship fast.", "general", created)
	tagged.Analysis = models.AnalysisResult{Topics: []string{"shipping"}}
	plain := newEntry("plain", "acme", "Orders ship fast.", "general", created)
	knowledge := &stubKnowledge{entries: map[string][]*models.KnowledgeEntry{
		"acme": {tagged, plain},
	}}
	service := newTestService(knowledge, nil)

	matches, err := service.Search(context.Background(), "acme", "shipping time", "")

	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "tagged", matches[0].EntryID)
	assert.InDelta(t, 0.15, matches[0].Score, 1e-9)
}

func TestSearchExactSubstringBonus(t *testing.T) {
	created := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	knowledge := &stubKnowledge{entries: map[string][]*models.KnowledgeEntry{
		"acme": {
			newEntry("e1", "acme", "Yes, we ship worldwide.", "general", created),
		},
	}}
	service := newTestService(knowledge, nil)

	matches, err := service.Search(context.Background(), "acme", "ship worldwide", "")

	require.NoError(t, err)
	require.Len(t, matches, 1)
	// Two keyword hits (4) plus the exact-substring bonus (10), scaled by 20.
	assert.InDelta(t, 0.7, matches[0].Score, 1e-9)
}

func TestExtractKeywords(t *testing.T) {
	keywords := extractKeywords("Do you offer free shipping to the USA?")
	assert.Equal(t, []string{"offer", "free", "shipping", "usa"}, keywords)

	keywords = extractKeywords("price price pricing")
	assert.Equal(t, []string{"price", "pricing"}, keywords)

	assert.Empty(t, extractKeywords("do you it"))
}
