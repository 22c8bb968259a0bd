package models

import (
	"errors"
	"strings"
)

// ErrEmptyQuery is returned when an ask request has no query text.
var ErrEmptyQuery = errors.New("query cannot be empty")

// AskRequest is the single entry point into the advising pipeline.
type AskRequest struct {
	Query     string    `json:"query"`
	SessionID string    `json:"session_id,omitempty"`
	History   []Message `json:"history,omitempty"`
}

// Validate trims the query and rejects empty input.
func (r *AskRequest) Validate() error {
	r.Query = strings.TrimSpace(r.Query)
	if r.Query == "" {
		return ErrEmptyQuery
	}
	r.SessionID = strings.TrimSpace(r.SessionID)
	return nil
}

// Source is one retrieval candidate surfaced to the caller.
type Source struct {
	Type     SourceType             `json:"type"`
	Score    float64                `json:"score"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// AskResponse is the shaped answer returned by the pipeline.
type AskResponse struct {
	Answer            string   `json:"response"`
	Confidence        float64  `json:"confidence"`
	ConfidenceLevel   string   `json:"confidence_level"`
	Intent            string   `json:"intent"`
	Sources           []Source `json:"sources"`
	EscalateToHuman   bool     `json:"escalate_to_human"`
	EscalationReason  string   `json:"escalation_reason,omitempty"`
	EscalationMessage string   `json:"escalation_message,omitempty"`
	QueryRewritten    bool     `json:"query_rewritten"`
	ResolvedQuery     string   `json:"resolved_query,omitempty"`
	ContextResolved   bool     `json:"context_resolved"`
	QuickReplies      []string `json:"quick_replies,omitempty"`
	HandoffID         string   `json:"handoff_id,omitempty"`
	SessionID         string   `json:"session_id,omitempty"`
	Model             string   `json:"model,omitempty"`
	QueryTime         int64    `json:"query_time_ms"`
}
