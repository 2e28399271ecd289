package models

import "time"

// ChunkType records which chunking stage produced a chunk.
type ChunkType string

const (
	// ChunkTypeParagraph marks a chunk taken whole from a blank-line
	// delimited paragraph.
	ChunkTypeParagraph ChunkType = "paragraph"
	// ChunkTypeSentenceGroup marks a chunk assembled from more than three
	// accumulated sentences.
	ChunkTypeSentenceGroup ChunkType = "sentence_group"
	// ChunkTypeSentence marks a chunk of at most three sentences, including
	// word-window slices of oversized sentences.
	ChunkTypeSentence ChunkType = "sentence"
)

// TextChunk is a sub-piece of a knowledge entry sized for embedding and
// retrieval. Chunks are immutable once created; re-ingestion replaces the
// whole chunk set for an entry.
type TextChunk struct {
	ID            string    `json:"id"`
	Content       string    `json:"content"`
	ChunkIndex    int       `json:"chunk_index"`
	TotalChunks   int       `json:"total_chunks"`
	WordCount     int       `json:"word_count"`
	SourceSection string    `json:"source_section,omitempty"`
	ChunkType     ChunkType `json:"chunk_type"`

	// OverlapWithPrevious is the size of the set intersection between the
	// trailing overlap words of the previous chunk and the leading overlap
	// words of this one. A coarse continuity measurement, not a guarantee.
	OverlapWithPrevious int `json:"overlap_with_previous"`
}

// Vector model tags for embeddings that did not come from a real backend.
// Retrieval must not rank these as if they were real embeddings.
const (
	VectorModelNone     = "none"
	VectorModelFallback = "fallback"
)

// VectorizedChunk pairs a chunk with its embedding. All vectors of a company
// must share the same dimension and model to be comparable; mixing models
// requires re-vectorization.
type VectorizedChunk struct {
	Chunk       TextChunk `json:"chunk"`
	Vector      []float32 `json:"vector"`
	VectorModel string    `json:"vector_model"`
	EmbeddedAt  time.Time `json:"embedded_at"`
}

// IsFallbackVector reports whether the chunk carries a hash-derived
// pseudo-embedding rather than a real model embedding.
func (v *VectorizedChunk) IsFallbackVector() bool {
	return v.VectorModel == "" || v.VectorModel == VectorModelNone || v.VectorModel == VectorModelFallback
}
