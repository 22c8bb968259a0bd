package advisor

import (
	"strings"

	"github.com/akumar23/HAL-AI-AdvisorBot/internal/intent"
)

type replyCategory string

const (
	categoryGreeting   replyCategory = "greeting"
	categoryCourse     replyCategory = "course"
	categoryAdvisor    replyCategory = "advisor"
	categoryEnrollment replyCategory = "enrollment"
	categoryGeneral    replyCategory = "general"
)

var defaultReplies = map[replyCategory][]string{
	categoryGreeting: {
		"What are the prerequisites for CS 146?",
		"How do I find my academic advisor?",
		"What's the deadline to add classes?",
	},
	categoryCourse: {
		"What are the prerequisites?",
		"When is this course offered?",
		"Who teaches this course?",
	},
	categoryAdvisor: {
		"How do I schedule an appointment?",
		"What are office hours?",
		"Can I change my advisor?",
	},
	categoryEnrollment: {
		"When is the last day to add?",
		"How do I get a permission number?",
		"What's the waitlist process?",
	},
	categoryGeneral: {
		"Tell me about course prerequisites",
		"Help me find my advisor",
		"What are important deadlines?",
	},
}

var escalationReplies = []string{
	"Schedule an appointment",
	"Find my advisor's contact",
	"Start a new question",
}

var intentCategories = map[intent.Intent]replyCategory{
	intent.Prerequisite:  categoryCourse,
	intent.CourseInfo:    categoryCourse,
	intent.AdvisorLookup: categoryAdvisor,
	intent.Enrollment:    categoryEnrollment,
	intent.DropClass:     categoryEnrollment,
	intent.Waitlist:      categoryEnrollment,
	intent.Greeting:      categoryGreeting,
}

// QuickReplies suggests follow-up questions. The answer text overrides the intent's
// category when it mentions prerequisites, advisors or deadlines.
func QuickReplies(i intent.Intent, answer string, escalated bool) []string {
	if escalated {
		return clone(escalationReplies)
	}
	category, ok := intentCategories[i]
	if !ok {
		category = categoryGeneral
	}
	if category != categoryGreeting {
		lower := strings.ToLower(answer)
		switch {
		case strings.Contains(lower, "prerequisite"), strings.Contains(lower, "before taking"):
			category = categoryCourse
		case strings.Contains(lower, "advisor"), strings.Contains(lower, "appointment"):
			category = categoryAdvisor
		case strings.Contains(lower, "deadline"), strings.Contains(lower, "last day"):
			category = categoryEnrollment
		}
	}
	return clone(defaultReplies[category])
}

func clone(s []string) []string {
	return append([]string(nil), s...)
}
