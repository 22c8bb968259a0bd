// Package intent classifies student queries into a closed set of advising intents.
package intent

import "fmt"

// Intent is the closed set of advising question categories.
type Intent string

const (
	Prerequisite    Intent = "prerequisite"
	CourseInfo      Intent = "course_info"
	AdvisorLookup   Intent = "advisor_lookup"
	Enrollment      Intent = "enrollment"
	DropClass       Intent = "drop_class"
	Refund          Intent = "refund"
	Grades          Intent = "grades"
	Graduation      Intent = "graduation"
	Transfer        Intent = "transfer"
	Units           Intent = "units"
	Waitlist        Intent = "waitlist"
	Greeting        Intent = "greeting"
	GeneralQuestion Intent = "general_question"
	OutOfScope      Intent = "out_of_scope"
	Unclear         Intent = "unclear"
)

// All lists every intent in prompt order.
var All = []Intent{
	Prerequisite, CourseInfo, AdvisorLookup, Enrollment, DropClass, Refund, Grades,
	Graduation, Transfer, Units, Waitlist, Greeting, GeneralQuestion, OutOfScope, Unclear,
}

// Parse maps a label to an Intent.
func Parse(s string) (Intent, error) {
	switch i := Intent(s); i {
	case Prerequisite, CourseInfo, AdvisorLookup, Enrollment, DropClass, Refund, Grades,
		Graduation, Transfer, Units, Waitlist, Greeting, GeneralQuestion, OutOfScope, Unclear:
		return i, nil
	}
	return "", fmt.Errorf("unknown intent %q", s)
}

// SourceFilter returns the knowledge source type an intent narrows retrieval to, or "" for unfiltered.
func (i Intent) SourceFilter() string {
	switch i {
	case Prerequisite, CourseInfo:
		return "course"
	case AdvisorLookup:
		return "advisor"
	case Enrollment, DropClass, Refund, Grades, Graduation, Units, Waitlist:
		return "policy"
	case Transfer, Greeting, GeneralQuestion, OutOfScope, Unclear:
		return ""
	}
	return ""
}

// Level is a three-tier confidence bucket.
type Level string

const (
	High   Level = "high"
	Medium Level = "medium"
	Low    Level = "low"
)

// Thresholds for High and Medium. Shared by classification and overall confidence.
const (
	HighThreshold   = 0.8
	MediumThreshold = 0.5
)

// LevelFor buckets score using the default thresholds.
func LevelFor(score float64) Level {
	return LevelWith(score, HighThreshold, MediumThreshold)
}

// LevelWith buckets score using explicit thresholds.
func LevelWith(score, high, medium float64) Level {
	switch {
	case score >= high:
		return High
	case score >= medium:
		return Medium
	default:
		return Low
	}
}

// Entity keys.
const (
	EntityCourseCodes     = "course_codes"
	EntityLastNameInitial = "last_name_initial"
)

// Result is the outcome of classifying one query. It is built once and not modified afterwards.
type Result struct {
	Intent           Intent              `json:"intent"`
	Confidence       float64             `json:"confidence_score"`
	Level            Level               `json:"confidence_level"`
	Entities         map[string][]string `json:"entities"`
	RequiresContext  bool                `json:"requires_context"`
	EscalateToHuman  bool                `json:"escalate_to_human"`
	EscalationReason string              `json:"escalation_reason,omitempty"`
	// Source is "rules" or "model".
	Source string `json:"source"`
	Raw    string `json:"-"`
}

// CourseCodes returns the extracted course codes, if any.
func (r *Result) CourseCodes() []string {
	return r.Entities[EntityCourseCodes]
}

// LastNameInitial returns the extracted advisor last-name initial.
func (r *Result) LastNameInitial() string {
	if v := r.Entities[EntityLastNameInitial]; len(v) > 0 {
		return v[0]
	}
	return ""
}

func newResult(i Intent, score float64, entities map[string][]string, requiresContext bool, source string) *Result {
	if entities == nil {
		entities = map[string][]string{}
	}
	return &Result{
		Intent:          i,
		Confidence:      score,
		Level:           LevelFor(score),
		Entities:        entities,
		RequiresContext: requiresContext,
		Source:          source,
	}
}
