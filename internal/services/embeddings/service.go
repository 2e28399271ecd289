package embeddings

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondo/internal/interfaces"
	"github.com/ternarybob/respondo/internal/models"
	"github.com/ternarybob/respondo/internal/services/workers"
)

// Dimension is the embedding vector size. Pseudo-embeddings share it so
// stored vectors stay comparable regardless of origin.
const Dimension = 768

// Per-chunk embed calls are bounded so a slow backend cannot stall ingestion
const embedTimeout = 30 * time.Second

// embedWorkers bounds concurrent backend calls per batch. The provider
// rate limiter still paces call starts; workers only overlap latency.
const embedWorkers = 4

// Service turns chunks and queries into vectors. A cloud backend produces
// real embeddings; without one, or on any backend failure, a deterministic
// hash-derived pseudo-embedding keeps ingestion alive. Fallback vectors are
// tagged so retrieval never ranks them as real.
type Service struct {
	llm       interfaces.LLMService
	logger    arbor.ILogger
	modelName string
}

// NewService creates an embedding service. llm may be nil, which pins the
// service to pseudo-embeddings tagged "none".
func NewService(llm interfaces.LLMService, modelName string, logger arbor.ILogger) *Service {
	return &Service{
		llm:       llm,
		logger:    logger,
		modelName: modelName,
	}
}

// EmbedChunks vectorizes chunks; the result keeps the input order. With a
// live backend the chunks are embedded concurrently over a bounded pool.
// It never fails; individual backend errors downgrade that chunk to a
// fallback vector.
func (s *Service) EmbedChunks(ctx context.Context, chunks []models.TextChunk) []models.VectorizedChunk {
	vectorized := make([]models.VectorizedChunk, len(chunks))
	if len(chunks) == 0 {
		return vectorized
	}

	if s.llm == nil || s.llm.GetMode() == interfaces.LLMModeDisabled {
		for i, chunk := range chunks {
			vectorized[i] = models.VectorizedChunk{
				Chunk:       chunk,
				Vector:      PseudoEmbedding(chunk.Content),
				VectorModel: models.VectorModelNone,
				EmbeddedAt:  time.Now().UTC(),
			}
		}
		return vectorized
	}

	pool := workers.NewPool(ctx, embedWorkers, s.logger)
	pool.Start()

	for i, chunk := range chunks {
		job := func(jobCtx context.Context) error {
			vector, model, err := s.embed(jobCtx, chunk.Content)
			vectorized[i] = models.VectorizedChunk{
				Chunk:       chunk,
				Vector:      vector,
				VectorModel: model,
				EmbeddedAt:  time.Now().UTC(),
			}
			if err != nil {
				return fmt.Errorf("chunk %d: %w", chunk.ChunkIndex, err)
			}
			return nil
		}

		// Submit only fails on cancellation; the chunk still gets a vector
		if err := pool.Submit(job); err != nil {
			vectorized[i] = models.VectorizedChunk{
				Chunk:       chunk,
				Vector:      PseudoEmbedding(chunk.Content),
				VectorModel: models.VectorModelFallback,
				EmbeddedAt:  time.Now().UTC(),
			}
		}
	}
	pool.Wait()

	if errs := pool.Errors(); len(errs) > 0 {
		s.logger.Warn().
			Int("fallback_chunks", len(errs)).
			Int("total_chunks", len(chunks)).
			Msg("Some chunks use pseudo-embeddings")
	}

	return vectorized
}

// EmbedQuery vectorizes a search query, returning the vector and the model
// tag that produced it
func (s *Service) EmbedQuery(ctx context.Context, query string) ([]float32, string) {
	vector, model, err := s.embed(ctx, query)
	if err != nil {
		s.logger.Debug().
			Err(err).
			Msg("Embedding backend failed, using pseudo-embedding")
	}
	return vector, model
}

// embed vectorizes one text. On backend failure it returns the fallback
// vector alongside the error so callers decide how loudly to report it.
func (s *Service) embed(ctx context.Context, text string) ([]float32, string, error) {
	if s.llm == nil || s.llm.GetMode() == interfaces.LLMModeDisabled {
		return PseudoEmbedding(text), models.VectorModelNone, nil
	}

	embedCtx, cancel := context.WithTimeout(ctx, embedTimeout)
	defer cancel()

	vector, err := s.llm.Embed(embedCtx, text)
	if err != nil {
		return PseudoEmbedding(text), models.VectorModelFallback, err
	}
	return vector, s.modelName, nil
}

// PseudoEmbedding derives a deterministic vector from word hashes. It is a
// positional word fingerprint, not a semantic embedding; cosine similarity
// between pseudo-vectors is close to meaningless, which is why retrieval
// skips the vector tier for them.
func PseudoEmbedding(text string) []float32 {
	vector := make([]float32, Dimension)

	words := strings.Fields(strings.ToLower(text))
	for i, word := range words {
		if i >= Dimension {
			break
		}
		h := fnv.New32a()
		h.Write([]byte(word))
		vector[i] = float32(h.Sum32()%100) / 100.0
	}

	return normalize(vector)
}

// normalize scales a vector to unit length. Zero vectors pass through.
func normalize(vector []float32) []float32 {
	var sum float64
	for _, v := range vector {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return vector
	}

	norm := float32(math.Sqrt(sum))
	for i := range vector {
		vector[i] /= norm
	}
	return vector
}

// CosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched dimensions or zero vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
