package models

import (
	"crypto/md5"
	"encoding/gob"
	"encoding/hex"
	"time"
)

func init() {
	// Metadata values pass through gob when entries are persisted.
	gob.Register(map[string]interface{}{})
	gob.Register(map[string]string{})
	gob.Register([]interface{}{})
	gob.Register([]map[string]interface{}{})
	gob.Register([]string{})
	gob.Register(time.Time{})
}

// KnowledgeEntry is one unit of company-supplied text (a manual note, a
// scraped page, a connector-sourced document). An entry, its chunks and
// their vectors are created together at ingestion and persisted as one unit;
// content updates are modeled as delete-and-recreate of the chunk set.
type KnowledgeEntry struct {
	// Identity
	ID        string `json:"id"`
	CompanyID string `json:"company_id" badgerhold:"index"`

	// Content
	Content  string `json:"content"`
	Source   string `json:"source"`   // "manual", "website", "github", "email", "pdf", or a URL
	Category string `json:"category"` // "general", "pricing", "support", "contact", "services", ...

	// ContentHash deduplicates byte-identical content per company. A hash
	// match on Add updates the existing entry instead of creating a new one.
	ContentHash string `json:"content_hash" badgerhold:"index"`

	// Derived at ingestion
	Chunks   []VectorizedChunk `json:"chunks"`
	Analysis AnalysisResult    `json:"analysis"`

	Metadata map[string]interface{} `json:"metadata,omitempty"`

	// Timestamps
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HashContent returns the md5 hex digest used for per-company content
// deduplication.
func HashContent(content string) string {
	sum := md5.Sum([]byte(content))
	return hex.EncodeToString(sum[:])
}

// KnowledgeStats summarizes a company's knowledge base.
type KnowledgeStats struct {
	TotalEntries         int            `json:"total_entries"`
	Categories           map[string]int `json:"categories"`
	Sources              map[string]int `json:"sources"`
	TotalContentLength   int            `json:"total_content_length"`
	AverageContentLength float64        `json:"average_content_length"`
	LatestUpdate         *time.Time     `json:"latest_update,omitempty"`
}
