package chunking

import (
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondo/internal/models"
)

const (
	defaultChunkSize = 500
	defaultOverlap   = 50

	// Sentence groups above this size are tagged sentence_group
	sentenceGroupMin = 3
)

// Service splits content into retrieval-sized chunks. Splitting is staged:
// whole paragraphs when they fit, sentence accumulation when they don't,
// and a word window as the last resort for a single oversized sentence.
// The same input always produces the same chunks.
type Service struct {
	logger    arbor.ILogger
	chunkSize int
	overlap   int
}

// NewService creates a chunking service. chunkSize and overlap are in words;
// non-positive values fall back to defaults.
func NewService(logger arbor.ILogger, chunkSize, overlap int) *Service {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	if overlap < 0 {
		overlap = defaultOverlap
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 10
	}
	return &Service{
		logger:    logger,
		chunkSize: chunkSize,
		overlap:   overlap,
	}
}

type piece struct {
	content   string
	chunkType models.ChunkType
	section   string
}

// Chunk splits text into ordered chunks. Every word of the input appears in
// at least one chunk and no chunk exceeds the configured size.
func (s *Service) Chunk(text string) []models.TextChunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var pieces []piece

	paragraphIndex := 0
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		section := fmt.Sprintf("paragraph_%d", paragraphIndex)
		paragraphIndex++

		if len(strings.Fields(para)) <= s.chunkSize {
			pieces = append(pieces, piece{para, models.ChunkTypeParagraph, section})
			continue
		}

		pieces = append(pieces, s.splitParagraph(para, section)...)
	}

	total := len(pieces)
	chunks := make([]models.TextChunk, 0, total)
	var prevWords []string
	for i, p := range pieces {
		words := strings.Fields(p.content)
		overlapCount := 0
		if i > 0 {
			overlapCount = overlapIntersection(prevWords, words, s.overlap)
		}
		chunks = append(chunks, models.TextChunk{
			ID:                  fmt.Sprintf("chunk_%d", i),
			Content:             p.content,
			ChunkIndex:          i,
			TotalChunks:         total,
			WordCount:           len(words),
			SourceSection:       p.section,
			ChunkType:           p.chunkType,
			OverlapWithPrevious: overlapCount,
		})
		prevWords = words
	}

	s.logger.Debug().
		Int("chunks", total).
		Int("chunk_size", s.chunkSize).
		Msg("Content chunked")

	return chunks
}

// splitParagraph breaks an oversized paragraph into sentence groups, word
// windowing any single sentence that alone exceeds the chunk size.
func (s *Service) splitParagraph(para, section string) []piece {
	var pieces []piece

	var group []string
	groupWords := 0

	flush := func() {
		if len(group) == 0 {
			return
		}
		chunkType := models.ChunkTypeSentence
		if len(group) > sentenceGroupMin {
			chunkType = models.ChunkTypeSentenceGroup
		}
		pieces = append(pieces, piece{strings.Join(group, " "), chunkType, section})
		group = nil
		groupWords = 0
	}

	for _, sentence := range splitIntoSentences(para) {
		words := strings.Fields(sentence)
		if len(words) == 0 {
			continue
		}

		if len(words) > s.chunkSize {
			flush()
			pieces = append(pieces, s.windowWords(words, section)...)
			continue
		}

		if groupWords+len(words) > s.chunkSize {
			flush()
		}
		group = append(group, sentence)
		groupWords += len(words)
	}
	flush()

	return pieces
}

// windowWords slides a chunk-sized window over words with a stride of
// chunkSize-overlap so adjacent windows share context.
func (s *Service) windowWords(words []string, section string) []piece {
	stride := s.chunkSize - s.overlap
	if stride < 1 {
		stride = 1
	}

	var pieces []piece
	for start := 0; start < len(words); start += stride {
		end := start + s.chunkSize
		if end > len(words) {
			end = len(words)
		}
		pieces = append(pieces, piece{strings.Join(words[start:end], " "), models.ChunkTypeSentence, section})
		if end == len(words) {
			break
		}
	}
	return pieces
}

// splitIntoSentences splits on terminal punctuation, keeping the punctuation
// attached to its sentence
func splitIntoSentences(text string) []string {
	var sentences []string
	var b strings.Builder

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		b.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			// Absorb the rest of the punctuation run ("..." or "?!")
			for i+1 < len(runes) && (runes[i+1] == '.' || runes[i+1] == '!' || runes[i+1] == '?') {
				i++
				b.WriteRune(runes[i])
			}
			if sent := strings.TrimSpace(b.String()); sent != "" {
				sentences = append(sentences, sent)
			}
			b.Reset()
		}
	}
	if sent := strings.TrimSpace(b.String()); sent != "" {
		sentences = append(sentences, sent)
	}
	return sentences
}

// overlapIntersection counts distinct words shared between the tail of the
// previous chunk and the head of the current one, each window sized by the
// configured overlap
func overlapIntersection(prev, cur []string, overlap int) int {
	if overlap <= 0 || len(prev) == 0 || len(cur) == 0 {
		return 0
	}

	tailStart := len(prev) - overlap
	if tailStart < 0 {
		tailStart = 0
	}
	tail := make(map[string]bool)
	for _, w := range prev[tailStart:] {
		tail[w] = true
	}

	headEnd := overlap
	if headEnd > len(cur) {
		headEnd = len(cur)
	}
	seen := make(map[string]bool)
	count := 0
	for _, w := range cur[:headEnd] {
		if tail[w] && !seen[w] {
			seen[w] = true
			count++
		}
	}
	return count
}
