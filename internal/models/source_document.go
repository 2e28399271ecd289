package models

// SourceDocument is a unit of trainable content pulled from an external
// source. Scraped pages, GitHub files, emails and PDF pages all reduce to
// this shape before ingestion. Source identifies origin (URL, repo path,
// message ID, file path) and lands on the stored entry for attribution.
type SourceDocument struct {
	Source   string                 `json:"source"`
	Title    string                 `json:"title,omitempty"`
	Content  string                 `json:"content"`
	Category string                 `json:"category,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}
