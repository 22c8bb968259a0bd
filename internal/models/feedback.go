package models

import (
	"fmt"
	"time"
)

// LowRating is the highest rating still counted as unhelpful.
const LowRating = 2

// Feedback is a student's rating of one answer.
type Feedback struct {
	ID        string    `json:"id" db:"id"`
	SessionID string    `json:"session_id" db:"session_id"`
	Query     string    `json:"query,omitempty" db:"query"`
	Rating    int       `json:"rating" db:"rating"`
	Comment   string    `json:"comment,omitempty" db:"comment"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Validate checks the rating range.
func (f *Feedback) Validate() error {
	if f.SessionID == "" {
		return fmt.Errorf("session_id is required")
	}
	if f.Rating < 1 || f.Rating > 5 {
		return fmt.Errorf("rating must be between 1 and 5, got %d", f.Rating)
	}
	return nil
}

// HandoffStatus tracks whether an advisor has picked up a ticket.
type HandoffStatus string

const (
	HandoffOpen     HandoffStatus = "open"
	HandoffResolved HandoffStatus = "resolved"
)

// HandoffTicket is a persisted escalation awaiting a human advisor.
type HandoffTicket struct {
	ID                  string        `json:"id" db:"id"`
	SessionID           string        `json:"session_id" db:"session_id"`
	Query               string        `json:"original_query" db:"query"`
	Reason              string        `json:"escalation_reason" db:"reason"`
	ConversationSummary string        `json:"conversation_summary" db:"summary"`
	Concerns            []string      `json:"concerns" db:"concerns"`
	Confidence          float64       `json:"confidence" db:"confidence"`
	SuggestedAction     string        `json:"suggested_action" db:"suggested_action"`
	Status              HandoffStatus `json:"status" db:"status"`
	CreatedAt           time.Time     `json:"created_at" db:"created_at"`
	ResolvedAt          *time.Time    `json:"resolved_at,omitempty" db:"resolved_at"`
}
