package models

import "time"

// Interaction is one recorded chat exchange, persisted for analytics.
// Replies are not stored verbatim; the record keeps enough to build usage
// and quality distributions without retaining conversation content.
type Interaction struct {
	ID                 string    `json:"id"`
	CompanyID          string    `json:"company_id" badgerhold:"index"`
	SessionID          string    `json:"session_id"`
	Query              string    `json:"query"`
	QueryLength        int       `json:"query_length"`
	Confidence         float64   `json:"confidence"`
	Matched            bool      `json:"matched"`
	NeedsClarification bool      `json:"needs_clarification"`
	Sources            []string  `json:"sources,omitempty"`
	DurationMs         int64     `json:"duration_ms"`
	CreatedAt          time.Time `json:"created_at" badgerhold:"index"`
}
