package domain

import (
	"time"
)

// TranscriptEntry is one persisted line of a conversation. Entries are an
// audit trail only; a live conversation is never rebuilt from them.
type TranscriptEntry struct {
	ID             int64     `json:"id"`
	VisitorID      string    `json:"visitor_id"`
	SessionID      string    `json:"session_id"`
	ConversationID string    `json:"conversation_id"`
	Seq            int       `json:"seq"`
	Speaker        string    `json:"speaker"`
	Text           string    `json:"text"`
	Step           string    `json:"step"`
	CreatedAt      time.Time `json:"created_at"`
}

// TranscriptFilter selects transcript rows.
type TranscriptFilter struct {
	VisitorID      string
	SessionID      string
	ConversationID string // optional
	Limit          int    // <= 0 means no limit
}
