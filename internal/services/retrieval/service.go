package retrieval

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondo/internal/common"
	"github.com/ternarybob/respondo/internal/interfaces"
	"github.com/ternarybob/respondo/internal/models"
	"github.com/ternarybob/respondo/internal/services/analysis"
	"github.com/ternarybob/respondo/internal/services/embeddings"
)

// keywordScale maps the raw heuristic score onto [0,1]. A single strong
// signal (exact query substring, raw 10) lands at 0.5; several keyword hits
// plus an alignment bonus can saturate at 1.0.
const keywordScale = 20.0

// Query words carrying no retrieval signal. Chat queries are question-shaped,
// so interrogatives and pronouns are filtered alongside the usual articles.
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "but": true, "by": true, "can": true, "do": true, "does": true,
	"for": true, "from": true, "have": true, "how": true, "if": true,
	"in": true, "is": true, "it": true, "my": true, "of": true, "on": true,
	"or": true, "our": true, "that": true, "the": true, "their": true,
	"there": true, "this": true, "to": true, "was": true, "we": true,
	"what": true, "when": true, "where": true, "which": true, "who": true,
	"why": true, "will": true, "with": true, "you": true, "your": true,
}

// Intent vocabularies consulted by the scoring rules below.
var (
	pricingWords = []string{
		"price", "prices", "pricing", "cost", "costs", "fee", "fees",
		"charge", "charges", "pay", "payment", "expensive", "cheap",
		"plan", "plans", "subscription",
	}
	contactWords = []string{
		"contact", "email", "phone", "call", "reach", "address",
		"location", "hours",
	}
	supportWords = []string{
		"help", "support", "problem", "issue", "issues", "broken",
		"trouble", "error", "assist", "assistance",
	}
	servicesWords = []string{
		"service", "services", "offer", "offers", "provide", "product",
		"products", "feature", "features",
	}
)

// queryProfile is the per-query context the scoring rules evaluate against.
// Built once per search so rule predicates stay cheap in the per-entry loop.
type queryProfile struct {
	lowered   string
	keywords  []string
	words     map[string]bool
	sentiment models.Sentiment
}

func (p *queryProfile) containsAny(vocabulary []string) bool {
	for _, word := range vocabulary {
		if p.words[word] {
			return true
		}
	}
	return false
}

// scoringRule is one row of the keyword-tier alignment table: when the query
// predicate holds, every entry satisfying the entry predicate earns the
// weight on top of its occurrence score. Keeping the rules in a table makes
// each one testable in isolation.
type scoringRule struct {
	name   string
	query  func(p *queryProfile) bool
	entry  func(p *queryProfile, entry *models.KnowledgeEntry) bool
	weight float64
}

func categoryIs(category string) func(*queryProfile, *models.KnowledgeEntry) bool {
	return func(_ *queryProfile, entry *models.KnowledgeEntry) bool {
		return entry.Category == category
	}
}

var scoringRules = []scoringRule{
	{
		name:   "pricing_intent",
		query:  func(p *queryProfile) bool { return p.containsAny(pricingWords) },
		entry:  categoryIs("pricing"),
		weight: 4,
	},
	{
		name:   "contact_intent",
		query:  func(p *queryProfile) bool { return p.containsAny(contactWords) },
		entry:  categoryIs("contact"),
		weight: 4,
	},
	{
		name:   "support_intent",
		query:  func(p *queryProfile) bool { return p.containsAny(supportWords) },
		entry:  categoryIs("support"),
		weight: 4,
	},
	{
		name:   "services_intent",
		query:  func(p *queryProfile) bool { return p.containsAny(servicesWords) },
		entry:  categoryIs("services"),
		weight: 4,
	},
	{
		name:  "topic_overlap",
		query: func(p *queryProfile) bool { return len(p.keywords) > 0 },
		entry: func(p *queryProfile, entry *models.KnowledgeEntry) bool {
			for _, topic := range entry.Analysis.Topics {
				for _, keyword := range p.keywords {
					if topic == keyword {
						return true
					}
				}
			}
			return false
		},
		weight: 3,
	},
	{
		name:   "frustration_to_support",
		query:  func(p *queryProfile) bool { return p.sentiment == models.SentimentNegative },
		entry:  categoryIs("support"),
		weight: 2,
	},
}

// Service ranks a company's knowledge against a query. The vector tier runs
// first; the keyword tier takes over whenever no chunk clears the similarity
// threshold, so a degraded embedding backend narrows quality instead of
// emptying results.
type Service struct {
	knowledge interfaces.KnowledgeService
	embedder  *embeddings.Service
	analyzer  *analysis.Service
	config    *common.RetrievalConfig
	logger    arbor.ILogger
}

var _ interfaces.RetrievalService = (*Service)(nil)

// NewService creates a new retrieval service
func NewService(knowledge interfaces.KnowledgeService, embedder *embeddings.Service, analyzer *analysis.Service, config *common.RetrievalConfig, logger arbor.ILogger) *Service {
	return &Service{
		knowledge: knowledge,
		embedder:  embedder,
		analyzer:  analyzer,
		config:    config,
		logger:    logger,
	}
}

// Search returns the best matches for a query, highest score first, capped
// at the configured maximum. An empty query or an empty knowledge base
// yields an empty list; only storage failures surface as errors.
func (s *Service) Search(ctx context.Context, companyID, query, category string) ([]models.Match, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.Match{}, nil
	}

	entries, err := s.listEntries(ctx, companyID, category)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return []models.Match{}, nil
	}

	candidates := s.vectorTier(ctx, query, entries)
	if len(candidates) > 0 {
		s.logger.Debug().
			Str("company_id", companyID).
			Int("matches", len(candidates)).
			Msg("Vector tier matched")
		return s.rank(candidates), nil
	}

	candidates = s.keywordTier(query, entries)
	s.logger.Debug().
		Str("company_id", companyID).
		Int("matches", len(candidates)).
		Msg("Keyword tier matched")
	return s.rank(candidates), nil
}

func (s *Service) listEntries(ctx context.Context, companyID, category string) ([]*models.KnowledgeEntry, error) {
	if category != "" {
		return s.knowledge.ListByCategory(ctx, companyID, category)
	}
	return s.knowledge.List(ctx, companyID)
}

// candidate carries the tie-break keys alongside the match. Ordering is
// score descending, then created_at ascending (older entries are usually
// the foundational ones), then entry id, then chunk index, so ranking is
// deterministic for identical scores.
type candidate struct {
	match      models.Match
	createdAt  time.Time
	chunkIndex int
}

// vectorTier scores every comparable chunk vector against the query
// embedding. The tier is skipped entirely when the query embedding is a
// pseudo-embedding: hash-derived vectors only measure shared spelling, and
// ranking on them would dress noise up as similarity.
func (s *Service) vectorTier(ctx context.Context, query string, entries []*models.KnowledgeEntry) []candidate {
	queryVector, queryModel := s.embedder.EmbedQuery(ctx, query)
	if queryModel == models.VectorModelNone || queryModel == models.VectorModelFallback {
		s.logger.Debug().Str("vector_model", queryModel).Msg("No query embedding, skipping vector tier")
		return nil
	}

	candidates := make([]candidate, 0)
	for _, entry := range entries {
		for _, chunk := range entry.Chunks {
			if chunk.IsFallbackVector() || chunk.VectorModel != queryModel {
				continue
			}
			score := embeddings.CosineSimilarity(queryVector, chunk.Vector)
			if score < s.config.SimilarityThreshold {
				continue
			}
			if score > 1.0 {
				score = 1.0
			}
			candidates = append(candidates, candidate{
				match: models.Match{
					EntryID:  entry.ID,
					ChunkID:  chunk.Chunk.ID,
					Content:  chunk.Chunk.Content,
					Score:    score,
					Source:   models.MatchSourceVector,
					Category: entry.Category,
					Metadata: entry.Metadata,
				},
				createdAt:  entry.CreatedAt,
				chunkIndex: chunk.Chunk.ChunkIndex,
			})
		}
	}
	return candidates
}

// keywordTier scores whole entries: +2 per keyword occurrence, +10 for the
// exact query as a substring, plus the alignment bonuses from the rule
// table, normalized by keywordScale and floored at the configured minimum.
func (s *Service) keywordTier(query string, entries []*models.KnowledgeEntry) []candidate {
	profile := s.buildProfile(query)
	if len(profile.keywords) == 0 && profile.lowered == "" {
		return nil
	}

	active := make([]scoringRule, 0, len(scoringRules))
	for _, rule := range scoringRules {
		if rule.query(profile) {
			active = append(active, rule)
		}
	}

	candidates := make([]candidate, 0)
	for _, entry := range entries {
		contentLower := strings.ToLower(entry.Content)

		raw := 0.0
		for _, keyword := range profile.keywords {
			raw += 2.0 * float64(strings.Count(contentLower, keyword))
		}
		if profile.lowered != "" && strings.Contains(contentLower, profile.lowered) {
			raw += 10.0
		}
		for _, rule := range active {
			if rule.entry(profile, entry) {
				raw += rule.weight
			}
		}

		score := raw / keywordScale
		if score > 1.0 {
			score = 1.0
		}
		if score < s.config.KeywordFloor {
			continue
		}

		candidates = append(candidates, candidate{
			match: models.Match{
				EntryID:  entry.ID,
				Content:  entry.Content,
				Score:    score,
				Source:   models.MatchSourceKeyword,
				Category: entry.Category,
				Metadata: entry.Metadata,
			},
			createdAt: entry.CreatedAt,
		})
	}
	return candidates
}

func (s *Service) buildProfile(query string) *queryProfile {
	result := s.analyzer.Analyze(query)

	words := make(map[string]bool)
	for _, word := range strings.Fields(strings.ToLower(query)) {
		word = strings.Trim(word, ".,;:!?()[]{}\"'")
		if word != "" {
			words[word] = true
		}
	}

	return &queryProfile{
		lowered:   strings.ToLower(strings.TrimSpace(query)),
		keywords:  extractKeywords(query),
		words:     words,
		sentiment: result.Sentiment,
	}
}

// extractKeywords tokenizes a query into distinct significant words:
// lowercased, punctuation-trimmed, stopword-filtered, longer than two
// characters. Duplicates are dropped so a repeated word cannot double its
// occurrence score.
func extractKeywords(query string) []string {
	seen := make(map[string]bool)
	keywords := make([]string, 0)
	for _, word := range strings.Fields(strings.ToLower(query)) {
		word = strings.Trim(word, ".,;:!?()[]{}\"'")
		if len(word) <= 2 || stopwords[word] || seen[word] {
			continue
		}
		seen[word] = true
		keywords = append(keywords, word)
	}
	return keywords
}

// rank orders candidates, applies the result cap and projects matches.
func (s *Service) rank(candidates []candidate) []models.Match {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].match.Score != candidates[j].match.Score {
			return candidates[i].match.Score > candidates[j].match.Score
		}
		if !candidates[i].createdAt.Equal(candidates[j].createdAt) {
			return candidates[i].createdAt.Before(candidates[j].createdAt)
		}
		if candidates[i].match.EntryID != candidates[j].match.EntryID {
			return candidates[i].match.EntryID < candidates[j].match.EntryID
		}
		return candidates[i].chunkIndex < candidates[j].chunkIndex
	})

	limit := s.config.MaxResults
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	matches := make([]models.Match, 0, len(candidates))
	for _, c := range candidates {
		matches = append(matches, c.match)
	}
	return matches
}
