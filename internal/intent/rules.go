package intent

import (
	"regexp"
	"strings"

	"github.com/akumar23/HAL-AI-AdvisorBot/internal/entity"
)

var greetings = map[string]bool{
	"hi": true, "hello": true, "hey": true, "hi!": true, "hello!": true, "hey there": true,
}

var (
	prereqKeywords = []string{
		"prereq", "prerequisite", "before i take", "need to take before", "required before", "what do i need for",
	}
	advisorPatterns = []*regexp.Regexp{
		regexp.MustCompile(`who is my advisor`),
		regexp.MustCompile(`my advisor`),
		regexp.MustCompile(`advisor for`),
		regexp.MustCompile(`book.*advisor`),
		regexp.MustCompile(`appointment.*advisor`),
		regexp.MustCompile(`advisor.*appointment`),
	}
	enrollKeywords = []string{"add a class", "add class", "enroll", "how do i add"}
	dropKeywords   = []string{"drop a class", "drop class", "how do i drop"}
	unitsKeywords  = []string{"how many units", "max units", "maximum units", "unit limit", "units can i take"}
	contextRe      = regexp.MustCompile(`\b(that class|that course|it|those|the same|what about|and also|another question)\b`)
)

// Rules is the deterministic first tier.
type Rules struct {
	extractor entity.Extractor
}

// NewRules creates the rule tier around a course-code extractor.
func NewRules(extractor entity.Extractor) *Rules {
	if extractor == nil {
		extractor = entity.NewExtractor(nil)
	}
	return &Rules{extractor: extractor}
}

// Match returns the first matching rule's result, or nil when no rule applies.
func (r *Rules) Match(query string) *Result {
	lower := strings.ToLower(strings.TrimSpace(query))

	if greetings[lower] {
		return newResult(Greeting, 0.99, nil, false, "rules")
	}

	codes := r.extractor.CourseCodes(query)
	withCodes := map[string][]string{EntityCourseCodes: codes}

	if containsAny(lower, prereqKeywords) {
		return newResult(Prerequisite, 0.95, withCodes, len(codes) == 0, "rules")
	}

	for _, re := range advisorPatterns {
		if !re.MatchString(lower) {
			continue
		}
		entities := map[string][]string{}
		if initial, ok := entity.LastNameInitial(lower); ok {
			entities[EntityLastNameInitial] = []string{initial}
		}
		return newResult(AdvisorLookup, 0.95, entities, false, "rules")
	}

	if containsAny(lower, enrollKeywords) {
		return newResult(Enrollment, 0.95, withCodes, false, "rules")
	}
	if containsAny(lower, dropKeywords) {
		return newResult(DropClass, 0.95, withCodes, false, "rules")
	}
	if strings.Contains(lower, "refund") {
		return newResult(Refund, 0.95, nil, false, "rules")
	}
	if containsAny(lower, unitsKeywords) {
		return newResult(Units, 0.95, nil, false, "rules")
	}

	if contextRe.MatchString(lower) {
		return newResult(GeneralQuestion, 0.7, withCodes, true, "rules")
	}

	if len(codes) > 0 {
		return newResult(CourseInfo, 0.75, withCodes, false, "rules")
	}
	return nil
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
