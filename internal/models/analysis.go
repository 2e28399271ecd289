package models

// ComplexityLevel buckets readability into coarse bands derived from a
// Flesch reading-ease estimate.
type ComplexityLevel string

const (
	ComplexitySimple      ComplexityLevel = "simple"
	ComplexityModerate    ComplexityLevel = "moderate"
	ComplexityComplex     ComplexityLevel = "complex"
	ComplexityVeryComplex ComplexityLevel = "very_complex"
)

// Sentiment is a lexicon-based polarity classification.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// Content issue codes reported by analysis. Issues never block ingestion,
// they surface as advisory findings on the stored entry.
const (
	IssueEmptyContent      = "empty_content"
	IssueContentTooShort   = "content_too_short"
	IssueLowQualityScore   = "low_quality_score"
	IssueNoParagraphBreaks = "no_paragraph_breaks"
)

// AnalysisResult holds the structural and lexical profile of a piece of
// content, computed once at ingestion and stored with the entry.
type AnalysisResult struct {
	WordCount         int             `json:"word_count"`
	SentenceCount     int             `json:"sentence_count"`
	ParagraphCount    int             `json:"paragraph_count"`
	AvgSentenceLength float64         `json:"avg_sentence_length"`
	ReadabilityScore  float64         `json:"readability_score"`
	QualityScore      float64         `json:"quality_score"`
	Complexity        ComplexityLevel `json:"complexity"`
	Topics            []string        `json:"topics,omitempty"`
	Sentiment         Sentiment       `json:"sentiment"`
	Issues            []string        `json:"issues,omitempty"`
}

// HasIssue reports whether the analysis flagged the given issue code.
func (a *AnalysisResult) HasIssue(code string) bool {
	for _, issue := range a.Issues {
		if issue == code {
			return true
		}
	}
	return false
}
