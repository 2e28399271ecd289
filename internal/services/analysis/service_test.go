package analysis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondo/internal/models"
)

func newTestService() *Service {
	return NewService(arbor.NewLogger())
}

func TestAnalyze_Counts(t *testing.T) {
	svc := newTestService()

	result := svc.Analyze("First sentence here. The second one follows!\n\nNew paragraph. Done?")

	assert.Equal(t, 10, result.WordCount)
	assert.Equal(t, 4, result.SentenceCount)
	assert.Equal(t, 2, result.ParagraphCount)
	assert.InDelta(t, 2.5, result.AvgSentenceLength, 0.001)
}

func TestAnalyze_QualityInRange(t *testing.T) {
	svc := newTestService()

	inputs := []string{
		"",
		"word",
		"A perfectly normal sentence with reasonable length and punctuation.",
		strings.Repeat("same ", 300),
		"We ship orders within two business days. Returns are accepted for thirty days.",
	}

	for _, input := range inputs {
		result := svc.Analyze(input)
		assert.GreaterOrEqual(t, result.QualityScore, 0.0, "input: %.40q", input)
		assert.LessOrEqual(t, result.QualityScore, 1.0, "input: %.40q", input)
	}
}

func TestAnalyze_QualityDeductions(t *testing.T) {
	svc := newTestService()

	// Well-formed content keeps the full score
	good := svc.Analyze("Our support team responds within one business day. You can reach us by email or phone at any time.")
	assert.Equal(t, 1.0, good.QualityScore)

	// Short content loses the brevity deduction
	short := svc.Analyze("Too short to score.")
	assert.InDelta(t, 0.7, short.QualityScore, 0.001)

	// No terminal punctuation and low variety stack
	repetitive := svc.Analyze(strings.Repeat("repeat repeat ", 30))
	assert.Less(t, repetitive.QualityScore, 0.7)
}

func TestAnalyze_EmptyContent(t *testing.T) {
	svc := newTestService()

	result := svc.Analyze("   ")

	assert.Equal(t, 0, result.WordCount)
	assert.Equal(t, 0.0, result.ReadabilityScore)
	assert.Equal(t, []string{models.IssueEmptyContent}, result.Issues)
	assert.Equal(t, models.SentimentNeutral, result.Sentiment)
	assert.Empty(t, result.Topics)
}

func TestAnalyze_Issues(t *testing.T) {
	svc := newTestService()

	tooShort := svc.Analyze("Only four words here")
	assert.True(t, tooShort.HasIssue(models.IssueContentTooShort))

	// A long single line without breaks
	wall := strings.Repeat("word ", 250)
	wallResult := svc.Analyze(wall)
	assert.True(t, wallResult.HasIssue(models.IssueNoParagraphBreaks))

	// Paragraph breaks clear the flag
	broken := strings.Repeat("word ", 125) + "\n" + strings.Repeat("word ", 125)
	brokenResult := svc.Analyze(broken)
	assert.False(t, brokenResult.HasIssue(models.IssueNoParagraphBreaks))
}

func TestAnalyze_Complexity(t *testing.T) {
	svc := newTestService()

	simple := svc.Analyze("The cat sat. The dog ran. We all had fun.")
	assert.Equal(t, models.ComplexitySimple, simple.Complexity)
	assert.GreaterOrEqual(t, simple.ReadabilityScore, 80.0)

	dense := svc.Analyze("Notwithstanding administrative reorganization, interdepartmental collaboration methodologies necessitate comprehensive infrastructural reconceptualization initiatives.")
	assert.Equal(t, models.ComplexityVeryComplex, dense.Complexity)
	assert.Less(t, dense.ReadabilityScore, 30.0)
}

func TestAnalyze_Topics(t *testing.T) {
	svc := newTestService()

	result := svc.Analyze("Shipping takes three days. Shipping costs depend on weight. Returns need a receipt, returns are free. Weight matters for shipping.")

	assert.Contains(t, result.Topics, "shipping")
	assert.Contains(t, result.Topics, "returns")
	assert.NotContains(t, result.Topics, "days") // appears once only
	assert.LessOrEqual(t, len(result.Topics), 5)

	// Highest frequency word leads
	assert.Equal(t, "shipping", result.Topics[0])
}

func TestAnalyze_TopicsDeterministic(t *testing.T) {
	svc := newTestService()
	content := "alpha alpha bravo bravo charlie charlie delta delta echo echo foxtrot foxtrot"

	first := svc.Analyze(content).Topics
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, svc.Analyze(content).Topics)
	}
}

func TestAnalyze_Sentiment(t *testing.T) {
	svc := newTestService()

	tests := []struct {
		content string
		want    models.Sentiment
	}{
		{"This product is great and the service was excellent.", models.SentimentPositive},
		{"Terrible experience, the worst support I have seen.", models.SentimentNegative},
		{"The office opens at nine and closes at five.", models.SentimentNeutral},
		{"Good product but terrible delivery.", models.SentimentNeutral}, // tie
	}

	for _, tt := range tests {
		result := svc.Analyze(tt.content)
		assert.Equal(t, tt.want, result.Sentiment, "content: %s", tt.content)
	}
}

func TestCountSyllables(t *testing.T) {
	tests := []struct {
		word string
		want int
	}{
		{"cat", 1},
		{"hello", 2},
		{"beautiful", 3},
		{"a", 1},
		{"rhythm", 1},
		{"", 1},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, countSyllables(tt.word), "word: %s", tt.word)
	}
}
