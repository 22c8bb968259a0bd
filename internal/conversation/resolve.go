package conversation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/akumar23/HAL-AI-AdvisorBot/internal/entity"
	"github.com/akumar23/HAL-AI-AdvisorBot/internal/models"
	"github.com/akumar23/HAL-AI-AdvisorBot/pkg/utils"
)

type referenceClass int

const (
	refCourse referenceClass = iota
	refTopic
	refCourses
)

// referenceClasses maps each lower-cased reference phrase to what it stands for.
var referenceClasses = map[string]referenceClass{
	"that class":  refCourse,
	"that course": refCourse,
	"the class":   refCourse,
	"the course":  refCourse,
	"same one":    refTopic,
	"the same":    refTopic,
	"it":          refTopic,
	"this":        refTopic,
	"them":        refCourses,
	"those":       refCourses,
}

// Alternation is leftmost-first, so multi-word phrases come before the bare pronouns.
var referenceRe = regexp.MustCompile(`(?i)\b(that class|that course|the class|the course|same one|the same|it|this|them|those)\b`)

// courseNumberRe matches the number that follows a department prefix such as "IT" in "IT 101".
var courseNumberRe = regexp.MustCompile(`^\s*\d{2,3}[A-Za-z]?\b`)

// references returns the spans of reference phrases in query, skipping words that are
// the department of a course code.
func references(query string) [][]int {
	var spans [][]int
	for _, m := range referenceRe.FindAllStringIndex(query, -1) {
		if courseNumberRe.MatchString(query[m[1]:]) {
			continue
		}
		spans = append(spans, m)
	}
	return spans
}

var followUpStarters = []*regexp.Regexp{
	regexp.MustCompile(`^what about\b`),
	regexp.MustCompile(`^how about\b`),
	regexp.MustCompile(`^and\b`),
	regexp.MustCompile(`^also\b`),
	regexp.MustCompile(`^another\b`),
	regexp.MustCompile(`^same\b`),
	regexp.MustCompile(`^can i\b`),
	regexp.MustCompile(`^what's`),
	regexp.MustCompile(`^is there\b`),
}

// pluralWindow is how many recent course mentions replace "them"/"those".
const pluralWindow = 3

// Resolve substitutes reference phrases in query using c in a single pass over the original text,
// so substituted topics are never rescanned. Phrases without an antecedent are left as-is.
func (c *Context) Resolve(query string) (string, bool) {
	var (
		b        strings.Builder
		last     int
		modified bool
	)
	for _, m := range references(query) {
		target := c.referent(referenceClasses[strings.ToLower(query[m[0]:m[1]])])
		if target == "" {
			continue
		}
		b.WriteString(query[last:m[0]])
		b.WriteString(target)
		last = m[1]
		modified = true
	}
	if !modified {
		return query, false
	}
	b.WriteString(query[last:])
	return b.String(), true
}

func (c *Context) referent(class referenceClass) string {
	switch class {
	case refCourse, refTopic:
		return c.CurrentTopic
	case refCourses:
		recent := c.MentionedCourses
		if len(recent) > pluralWindow {
			recent = recent[len(recent)-pluralWindow:]
		}
		return strings.Join(recent, ", ")
	}
	return ""
}

// NeedsContext reports whether query likely depends on earlier turns.
func NeedsContext(query string) bool {
	if len(references(query)) > 0 {
		return true
	}
	lower := strings.ToLower(strings.TrimSpace(query))
	for _, re := range followUpStarters {
		if re.MatchString(lower) {
			return true
		}
	}
	return len(strings.Fields(query)) <= 3
}

// keepRecent is how many trailing messages survive history compression verbatim.
const keepRecent = 4

// TruncateHistory returns the last maxMessages of messages. When their estimated token cost exceeds
// maxTokens, all but the last four are collapsed into one system message naming the courses discussed.
func TruncateHistory(messages []models.Message, maxMessages, maxTokens int, extractor entity.Extractor) []models.Message {
	if maxMessages > 0 && len(messages) > maxMessages {
		messages = messages[len(messages)-maxMessages:]
	}
	var all strings.Builder
	for _, m := range messages {
		all.WriteString(m.Content)
	}
	out := make([]models.Message, 0, len(messages))
	if utils.EstimateTokens(all.String()) <= maxTokens || len(messages) <= keepRecent {
		for _, m := range messages {
			out = append(out, models.Message{Role: m.Role, Content: m.Content})
		}
		return out
	}

	older := messages[:len(messages)-keepRecent]
	out = append(out, models.Message{
		Role:    models.RoleSystem,
		Content: "Earlier in this conversation: " + summarizeOlder(older, extractor),
	})
	for _, m := range messages[len(messages)-keepRecent:] {
		out = append(out, models.Message{Role: m.Role, Content: m.Content})
	}
	return out
}

func summarizeOlder(messages []models.Message, extractor entity.Extractor) string {
	var topics []string
	for _, m := range messages {
		if m.Role == models.RoleUser && extractor != nil {
			topics = append(topics, extractor.CourseCodes(m.Content)...)
		}
	}
	topics = distinct(topics)
	if len(topics) == 0 {
		return "General advising questions"
	}
	if len(topics) > 5 {
		topics = topics[:5]
	}
	return fmt.Sprintf("Discussed: %s", strings.Join(topics, ", "))
}
