package handoff

import (
	"strings"
	"time"

	"github.com/akumar23/HAL-AI-AdvisorBot/internal/models"
	"github.com/akumar23/HAL-AI-AdvisorBot/internal/scoring"
	"github.com/akumar23/HAL-AI-AdvisorBot/pkg/utils"
)

const (
	summaryTurns    = 6
	summaryTurnSize = 100
	noConversation  = "No prior conversation"
)

// ConfidenceDetails is the part of the score an advisor needs.
type ConfidenceDetails struct {
	Overall  float64  `json:"overall"`
	Concerns []string `json:"concerns"`
}

// Context is the payload handed to a human advisor.
type Context struct {
	SessionID           string            `json:"session_id"`
	Timestamp           time.Time         `json:"timestamp"`
	OriginalQuery       string            `json:"original_query"`
	ConversationSummary string            `json:"conversation_summary"`
	EscalationReason    scoring.Reason    `json:"escalation_reason"`
	ConfidenceDetails   ConfidenceDetails `json:"confidence_details"`
	SuggestedAction     string            `json:"suggested_action"`
}

// BuildContext packages an escalation for an advisor.
func BuildContext(sessionID, query string, history []models.Message, reason scoring.Reason, score *scoring.Score, now time.Time) *Context {
	hc := &Context{
		SessionID:           sessionID,
		Timestamp:           now.UTC(),
		OriginalQuery:       query,
		ConversationSummary: Summarize(history),
		EscalationReason:    reason,
		SuggestedAction:     SuggestedAction(reason),
	}
	if score != nil {
		hc.ConfidenceDetails = ConfidenceDetails{Overall: score.Overall, Concerns: score.Concerns}
	}
	return hc
}

// Summarize renders the last six turns as speaker-labelled lines of at most 100 characters.
func Summarize(history []models.Message) string {
	if len(history) == 0 {
		return noConversation
	}
	if len(history) > summaryTurns {
		history = history[len(history)-summaryTurns:]
	}
	lines := make([]string, len(history))
	for i, m := range history {
		speaker := "Bot"
		if m.Role == models.RoleUser {
			speaker = "Student"
		}
		lines[i] = speaker + ": " + utils.Truncate(m.Content, summaryTurnSize)
	}
	return strings.Join(lines, "\n")
}

// Ticket converts the payload into a persisted ticket.
func (hc *Context) Ticket() *models.HandoffTicket {
	return &models.HandoffTicket{
		SessionID:           hc.SessionID,
		Query:               hc.OriginalQuery,
		Reason:              string(hc.EscalationReason),
		ConversationSummary: hc.ConversationSummary,
		Concerns:            hc.ConfidenceDetails.Concerns,
		Confidence:          hc.ConfidenceDetails.Overall,
		SuggestedAction:     hc.SuggestedAction,
		Status:              models.HandoffOpen,
		CreatedAt:           hc.Timestamp,
	}
}
