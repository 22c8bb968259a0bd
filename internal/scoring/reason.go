package scoring

// Reason is why a query was handed to a human advisor.
type Reason string

const (
	LowConfidence      Reason = "low_confidence"
	NoRelevantDocs     Reason = "no_relevant_documents"
	PersonalSituation  Reason = "personal_situation"
	AppealsExceptions  Reason = "appeals_or_exceptions"
	AcademicStanding   Reason = "academic_standing"
	OutOfScope         Reason = "out_of_scope"
	ComplexQuery       Reason = "complex_multi_part_query"
	UserRequested      Reason = "user_requested_human"
	RepeatedLowRatings Reason = "repeated_low_ratings"
)

// Reasons lists every escalation reason.
var Reasons = []Reason{
	LowConfidence, NoRelevantDocs, PersonalSituation, AppealsExceptions, AcademicStanding,
	OutOfScope, ComplexQuery, UserRequested, RepeatedLowRatings,
}

// ParseReason maps a label to a Reason.
func ParseReason(s string) (Reason, bool) {
	switch r := Reason(s); r {
	case LowConfidence, NoRelevantDocs, PersonalSituation, AppealsExceptions, AcademicStanding,
		OutOfScope, ComplexQuery, UserRequested, RepeatedLowRatings:
		return r, true
	}
	return "", false
}
