package intent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/akumar23/HAL-AI-AdvisorBot/internal/models"
)

const classificationPrompt = `You are an intent classifier for HAL, an academic advising chatbot for SJSU CMPE/SE students.

Analyze the student's query and classify it. Return ONLY valid JSON (no markdown, no explanation).

Available intents:
- prerequisite: Questions about course prerequisites
- course_info: Questions about what a course covers
- advisor_lookup: Finding who their advisor is
- enrollment: How to add/enroll in classes
- drop_class: How to drop classes
- refund: Questions about refunds
- grades: Questions about grades, GPA, transcripts
- graduation: Graduation requirements and applications
- transfer: Transferring credits or majors
- units: Questions about unit limits
- waitlist: Waitlist questions
- greeting: Simple greetings (hi, hello)
- general_question: Other advising questions we can answer
- out_of_scope: Questions we cannot answer (not about CMPE/SE advising)
- unclear: Ambiguous or incomplete questions

Escalation rules - set escalate_to_human=true if:
- Query is about a specific personal situation we can't generalize
- Student seems distressed or mentions academic probation
- Query requires access to student records
- Confidence is very low (< 0.5)
- Query is about appeals, exceptions, or special circumstances

Extract entities:
- course_codes: List of course codes mentioned (e.g., ["CS 149", "CMPE 131"])
- last_name_initial: If asking about advisor by name

JSON format:
{
  "intent": "prerequisite",
  "confidence_score": 0.95,
  "entities": {"course_codes": ["CS 149"]},
  "requires_context": false,
  "escalate_to_human": false,
  "escalation_reason": null
}

Student query: `

// historyTurns is how many prior messages the model tier sees.
const historyTurns = 4

// BuildPrompt renders the classification prompt with up to the last four history turns prepended.
func BuildPrompt(query string, history []models.Message) string {
	prompt := classificationPrompt + query
	if len(history) == 0 {
		return prompt
	}
	if len(history) > historyTurns {
		history = history[len(history)-historyTurns:]
	}
	lines := make([]string, 0, len(history))
	for _, m := range history {
		lines = append(lines, fmt.Sprintf("%s: %s", m.Role, m.Content))
	}
	return "Recent conversation:\n" + strings.Join(lines, "\n") + "\n\n" + prompt
}

type modelOutput struct {
	Intent           string          `json:"intent"`
	ConfidenceScore  *float64        `json:"confidence_score"`
	Entities         json.RawMessage `json:"entities"`
	RequiresContext  bool            `json:"requires_context"`
	EscalateToHuman  bool            `json:"escalate_to_human"`
	EscalationReason *string         `json:"escalation_reason"`
}

// ParseModelOutput decodes the classifier model's JSON reply. Unknown intents become general_question.
func ParseModelOutput(raw string) (*Result, error) {
	cleaned := extractJSON(raw)
	var out modelOutput
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		return nil, fmt.Errorf("invalid classification JSON: %w", err)
	}

	i, err := Parse(strings.ToLower(strings.TrimSpace(out.Intent)))
	if err != nil {
		i = GeneralQuestion
	}
	score := 0.5
	if out.ConfidenceScore != nil {
		score = clamp(*out.ConfidenceScore)
	}

	res := newResult(i, score, parseEntities(out.Entities), out.RequiresContext, "model")
	res.EscalateToHuman = out.EscalateToHuman
	if out.EscalationReason != nil {
		res.EscalationReason = *out.EscalationReason
	}
	res.Raw = raw
	return res, nil
}

// parseEntities accepts both string and list values, dropping nulls.
func parseEntities(raw json.RawMessage) map[string][]string {
	entities := map[string][]string{}
	if len(raw) == 0 {
		return entities
	}
	var loose map[string]interface{}
	if err := json.Unmarshal(raw, &loose); err != nil {
		return entities
	}
	for k, v := range loose {
		switch val := v.(type) {
		case string:
			if val != "" {
				entities[k] = []string{val}
			}
		case []interface{}:
			var vals []string
			for _, item := range val {
				if s, ok := item.(string); ok && s != "" {
					vals = append(vals, s)
				}
			}
			if len(vals) > 0 {
				entities[k] = vals
			}
		}
	}
	return entities
}

// extractJSON strips markdown fences and any prose around the outermost object.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
