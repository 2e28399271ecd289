package models

// MatchSource identifies which retrieval tier produced a match.
type MatchSource string

const (
	MatchSourceVector  MatchSource = "vector"
	MatchSourceKeyword MatchSource = "keyword"
)

// Match is a scored retrieval hit against a company's knowledge base.
// Score is normalized to [0,1] regardless of which tier produced it so
// downstream confidence thresholds apply uniformly.
type Match struct {
	EntryID  string                 `json:"entry_id"`
	ChunkID  string                 `json:"chunk_id,omitempty"`
	Content  string                 `json:"content"`
	Score    float64                `json:"score"`
	Source   MatchSource            `json:"source"`
	Category string                 `json:"category,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}
