package models

// Reply is the composed answer returned to a chat caller. Confidence is the
// score of the best retrieval match that informed the message, or zero when
// the reply is a clarification prompt or an apology fallback.
type Reply struct {
	Message            string   `json:"message"`
	Sources            []string `json:"sources,omitempty"`
	Confidence         float64  `json:"confidence"`
	NeedsClarification bool     `json:"needs_clarification"`
}
