// Package handoff turns escalations into student-facing messages and advisor tickets.
package handoff

import (
	"github.com/akumar23/HAL-AI-AdvisorBot/internal/scoring"
)

// messages are fixed, reviewed texts; they are never generated.
var messages = map[scoring.Reason]string{
	scoring.LowConfidence: "I'm not confident I can answer this accurately. " +
		"For reliable information, please schedule an appointment with your advisor.",
	scoring.NoRelevantDocs: "I don't have specific information about this in my knowledge base. " +
		"Your academic advisor can help you with this question.",
	scoring.PersonalSituation: "This seems like a personal situation that requires individual attention. " +
		"An advisor can provide personalized guidance for your specific circumstances.",
	scoring.AppealsExceptions: "Questions about appeals, exceptions, or petitions require direct advisor assistance. " +
		"They can guide you through the process and review your specific case.",
	scoring.AcademicStanding: "Questions about academic standing are sensitive and best discussed directly with an advisor. " +
		"They can review your records and provide appropriate guidance.",
	scoring.OutOfScope: "This question is outside my area of expertise as a CMPE/SE advisor. " +
		"Please contact the appropriate department or your general academic advisor.",
	scoring.ComplexQuery: "This seems like a complex situation that would benefit from a detailed discussion. " +
		"An advisor can give you the time and attention your question deserves.",
	scoring.UserRequested: "I understand you'd like to speak with a human advisor. " +
		"You can schedule an appointment using the link below.",
	scoring.RepeatedLowRatings: "I apologize that my responses haven't been helpful. " +
		"Please speak with an advisor who can better assist you.",
}

var suggestedActions = map[scoring.Reason]string{
	scoring.AcademicStanding:  "Review student's academic record",
	scoring.AppealsExceptions: "Discuss petition process",
	scoring.PersonalSituation: "Schedule extended consultation",
	scoring.ComplexQuery:      "Clarify requirements and options",
	scoring.LowConfidence:     "Answer student's question directly",
	scoring.NoRelevantDocs:    "Provide accurate information",
}

const defaultAction = "Review and respond to student inquiry"

// Message returns the fixed text for reason, falling back to the low-confidence text.
func Message(reason scoring.Reason) string {
	if m, ok := messages[reason]; ok {
		return m
	}
	return messages[scoring.LowConfidence]
}

// Compose appends the booking link and named advisor, when given, to the fixed message.
func Compose(reason scoring.Reason, bookingURL, advisorName string) string {
	msg := Message(reason)
	if bookingURL != "" {
		msg += "\n\nBook an appointment: " + bookingURL
	}
	if advisorName != "" {
		msg += "\n\nYour advisor: " + advisorName
	}
	return msg
}

// SuggestedAction tells the human advisor what to do first.
func SuggestedAction(reason scoring.Reason) string {
	if a, ok := suggestedActions[reason]; ok {
		return a
	}
	return defaultAction
}
