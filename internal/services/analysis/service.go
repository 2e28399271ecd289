package analysis

import (
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondo/internal/models"
)

// Content quality deductions and band boundaries. Kept together so the
// scoring scheme reads as one table.
const (
	shortContentWords    = 10
	shortContentPenalty  = 0.3
	longSentenceWords    = 50
	longSentencePenalty  = 0.2
	noPunctuationPenalty = 0.2
	lowVarietyRatio      = 0.5
	lowVarietyPenalty    = 0.1

	fleschSimpleFloor   = 80.0
	fleschModerateFloor = 60.0
	fleschComplexFloor  = 30.0

	maxTopics      = 5
	topicMinLength = 4

	tooShortWords    = 5
	longSingleBlock  = 200
	qualityThreshold = 0.5
)

var positiveWords = map[string]bool{
	"good": true, "great": true, "excellent": true, "amazing": true,
	"wonderful": true, "fantastic": true, "best": true,
}

var negativeWords = map[string]bool{
	"bad": true, "terrible": true, "awful": true, "worst": true,
	"horrible": true, "disappointing": true,
}

// Service profiles raw content before it enters the knowledge base.
// Analysis is advisory: low scores are flagged, never rejected.
type Service struct {
	logger arbor.ILogger
}

// NewService creates a new content analysis service
func NewService(logger arbor.ILogger) *Service {
	return &Service{
		logger: logger,
	}
}

// Analyze computes the structural and lexical profile of content.
// Deterministic: the same content always yields the same result.
func (s *Service) Analyze(content string) models.AnalysisResult {
	words := strings.Fields(content)
	wordCount := len(words)
	sentenceCount := countSentences(content)
	paragraphCount := countParagraphs(content)
	flesch := fleschReadingEase(words, sentenceCount)

	effectiveSentences := sentenceCount
	if effectiveSentences < 1 {
		effectiveSentences = 1
	}

	result := models.AnalysisResult{
		WordCount:         wordCount,
		SentenceCount:     sentenceCount,
		ParagraphCount:    paragraphCount,
		AvgSentenceLength: float64(wordCount) / float64(effectiveSentences),
		ReadabilityScore:  flesch,
		QualityScore:      qualityScore(content, words, sentenceCount),
		Complexity:        complexityBand(flesch),
		Topics:            extractTopics(words),
		Sentiment:         classifySentiment(words),
	}
	result.Issues = findIssues(content, wordCount, result.QualityScore)

	s.logger.Debug().
		Int("words", wordCount).
		Float64("quality", result.QualityScore).
		Str("complexity", string(result.Complexity)).
		Msg("Content analyzed")

	return result
}

// countSentences counts non-empty segments between terminal punctuation marks
func countSentences(content string) int {
	count := 0
	for _, segment := range splitSentences(content) {
		if strings.TrimSpace(segment) != "" {
			count++
		}
	}
	return count
}

// splitSentences splits on runs of '.', '!' and '?'
func splitSentences(content string) []string {
	return strings.FieldsFunc(content, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
}

func countParagraphs(content string) int {
	count := 0
	for _, para := range strings.Split(content, "\n\n") {
		if strings.TrimSpace(para) != "" {
			count++
		}
	}
	return count
}

// qualityScore starts at 1.0 and applies flat deductions, floored at zero
func qualityScore(content string, words []string, sentenceCount int) float64 {
	score := 1.0
	wordCount := len(words)

	if wordCount < shortContentWords {
		score -= shortContentPenalty
	}

	effectiveSentences := sentenceCount
	if effectiveSentences < 1 {
		effectiveSentences = 1
	}
	if float64(wordCount)/float64(effectiveSentences) > longSentenceWords {
		score -= longSentencePenalty
	}

	if !strings.ContainsAny(content, ".!?") {
		score -= noPunctuationPenalty
	}

	if wordCount > 0 {
		distinct := make(map[string]bool, wordCount)
		for _, w := range words {
			distinct[strings.ToLower(w)] = true
		}
		if float64(len(distinct))/float64(wordCount) < lowVarietyRatio {
			score -= lowVarietyPenalty
		}
	}

	if score < 0 {
		score = 0
	}
	return score
}

// fleschReadingEase estimates readability; empty content scores 0
func fleschReadingEase(words []string, sentenceCount int) float64 {
	wordCount := len(words)
	if wordCount == 0 {
		return 0
	}

	effectiveSentences := sentenceCount
	if effectiveSentences < 1 {
		effectiveSentences = 1
	}

	syllables := 0
	for _, w := range words {
		syllables += countSyllables(w)
	}

	avgWordsPerSentence := float64(wordCount) / float64(effectiveSentences)
	avgSyllablesPerWord := float64(syllables) / float64(wordCount)

	return 206.835 - 1.015*avgWordsPerSentence - 84.6*avgSyllablesPerWord
}

// countSyllables approximates syllables as maximal vowel runs, with the
// usual silent-e adjustment. Every word counts at least one.
func countSyllables(word string) int {
	word = strings.ToLower(strings.Trim(word, ".,!?;:'\"()[]"))
	if word == "" {
		return 1
	}

	count := 0
	prevVowel := false
	for _, r := range word {
		isVowel := strings.ContainsRune("aeiouy", r)
		if isVowel && !prevVowel {
			count++
		}
		prevVowel = isVowel
	}

	if strings.HasSuffix(word, "e") && count > 1 {
		count--
	}
	if count < 1 {
		count = 1
	}
	return count
}

func complexityBand(flesch float64) models.ComplexityLevel {
	switch {
	case flesch >= fleschSimpleFloor:
		return models.ComplexitySimple
	case flesch >= fleschModerateFloor:
		return models.ComplexityModerate
	case flesch >= fleschComplexFloor:
		return models.ComplexityComplex
	default:
		return models.ComplexityVeryComplex
	}
}

// extractTopics returns the top recurring significant words by frequency.
// Ties resolve in first-appearance order so the result is stable.
func extractTopics(words []string) []string {
	counts := make(map[string]int)
	order := make([]string, 0)

	for _, w := range words {
		cleaned := strings.ToLower(strings.Trim(w, ".,!?;:'\"()[]"))
		if len(cleaned) < topicMinLength {
			continue
		}
		if counts[cleaned] == 0 {
			order = append(order, cleaned)
		}
		counts[cleaned]++
	}

	// Frequency > 1 keeps one-off words out of the topic list
	candidates := make([]string, 0, len(order))
	for _, w := range order {
		if counts[w] > 1 {
			candidates = append(candidates, w)
		}
	}

	// Selection sort by count descending; first-appearance order breaks ties
	for i := 0; i < len(candidates); i++ {
		best := i
		for j := i + 1; j < len(candidates); j++ {
			if counts[candidates[j]] > counts[candidates[best]] {
				best = j
			}
		}
		candidates[i], candidates[best] = candidates[best], candidates[i]
	}

	if len(candidates) > maxTopics {
		candidates = candidates[:maxTopics]
	}
	return candidates
}

func classifySentiment(words []string) models.Sentiment {
	positive, negative := 0, 0
	for _, w := range words {
		cleaned := strings.ToLower(strings.Trim(w, ".,!?;:'\"()[]"))
		if positiveWords[cleaned] {
			positive++
		}
		if negativeWords[cleaned] {
			negative++
		}
	}

	switch {
	case positive > negative:
		return models.SentimentPositive
	case negative > positive:
		return models.SentimentNegative
	default:
		return models.SentimentNeutral
	}
}

func findIssues(content string, wordCount int, quality float64) []string {
	var issues []string

	if strings.TrimSpace(content) == "" {
		issues = append(issues, models.IssueEmptyContent)
		return issues
	}
	if wordCount < tooShortWords {
		issues = append(issues, models.IssueContentTooShort)
	}
	if quality < qualityThreshold {
		issues = append(issues, models.IssueLowQualityScore)
	}
	if !strings.Contains(content, "\n") && wordCount > longSingleBlock {
		issues = append(issues, models.IssueNoParagraphBreaks)
	}

	return issues
}
