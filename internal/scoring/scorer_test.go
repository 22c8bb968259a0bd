package scoring

import (
	"math"
	"testing"

	"github.com/akumar23/HAL-AI-AdvisorBot/internal/intent"
	"github.com/akumar23/HAL-AI-AdvisorBot/internal/models"
	"github.com/akumar23/HAL-AI-AdvisorBot/internal/retrieval"
)

const cs149 = "Course: CS 149 - Operating Systems\nPrerequisites: CS 146 with a C- or better."

func cands(scores ...float64) []retrieval.Candidate {
	out := make([]retrieval.Candidate, len(scores))
	for i, s := range scores {
		out[i] = retrieval.Candidate{Content: cs149, SourceType: models.SourceCourse, Score: s}
	}
	return out
}

func turns(n int) []models.Message {
	return make([]models.Message, n)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func TestCalculate_WeightedSum(t *testing.T) {
	s := NewScorer(DefaultConfig())
	got := s.Calculate("operating systems prerequisites", cands(0.9, 0.8, 0.7, 0.1), 0.95, true, nil)

	if math.Abs(got.Retrieval-0.8) > 1e-9 {
		t.Errorf("Retrieval = %v, want mean of top 3", got.Retrieval)
	}
	if got.Relevance != 1 {
		t.Errorf("Relevance = %v", got.Relevance)
	}
	if math.Abs(got.Overall-0.9175) > 1e-9 {
		t.Errorf("Overall = %v, want 0.9175", got.Overall)
	}
	if got.Level != intent.High || got.ShouldEscalate || len(got.Concerns) != 0 {
		t.Errorf("unexpected verdict %+v", got)
	}
}

func TestCalculate_NoCandidates(t *testing.T) {
	s := NewScorer(DefaultConfig())
	got := s.Calculate("What's the prerequisite for CS 149?", nil, 1.0, true, nil)

	if got.Retrieval != 0 || got.Relevance != 0 {
		t.Errorf("sub-scores = %v, %v", got.Retrieval, got.Relevance)
	}
	if !contains(got.Concerns, ConcernNoDocuments) || !contains(got.Concerns, ConcernIrrelevant) {
		t.Errorf("concerns = %v", got.Concerns)
	}
	if !got.ShouldEscalate || got.Reason != NoRelevantDocs {
		t.Errorf("escalation = %v %q, want no_relevant_documents", got.ShouldEscalate, got.Reason)
	}
	if got.Overall != 0.4 {
		t.Errorf("Overall = %v", got.Overall)
	}
}

func TestCalculate_EscalationPriority(t *testing.T) {
	s := NewScorer(DefaultConfig())
	tests := []struct {
		name       string
		query      string
		candidates []retrieval.Candidate
		intent     float64
		history    []models.Message
		want       Reason
	}{
		{"human request beats low score", "this is not helpful, talk to a human", cands(0.05), 0.3, nil, UserRequested},
		{"probation", "I was put on academic probation, what do I do", cands(0.9), 0.95, nil, AcademicStanding},
		{"dismissed", "I got dismissed from the program", nil, 0.5, nil, AcademicStanding},
		{"waiver", "can I get a prerequisite waiver for CS 149", cands(0.9), 0.95, nil, AppealsExceptions},
		{"petition", "how do I petition a grade", cands(0.9), 0.95, nil, AppealsExceptions},
		{"financial aid", "will dropping affect my financial aid", cands(0.9), 0.95, nil, PersonalSituation},
		{"low confidence", "zebra quantum", cands(0.2), 0.3, nil, LowConfidence},
		{"all candidates weak", "operating systems", cands(0.25, 0.2), 1.0, nil, NoRelevantDocs},
		{"long conversation", "operating systems", cands(0.9), 0.95, turns(6), ComplexQuery},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Calculate(tt.query, tt.candidates, tt.intent, true, tt.history)
			if !got.ShouldEscalate || got.Reason != tt.want {
				t.Errorf("got %v %q, want %q (overall %v)", got.ShouldEscalate, got.Reason, tt.want, got.Overall)
			}
		})
	}
}

func TestCalculate_ComplexTurnsDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ComplexTurns = 0
	got := NewScorer(cfg).Calculate("operating systems", cands(0.9), 0.95, true, turns(12))
	if got.ShouldEscalate {
		t.Errorf("unexpected escalation %q", got.Reason)
	}
}

func TestCalculate_EscalationConcernOnlyWhenNoneRecorded(t *testing.T) {
	s := NewScorer(DefaultConfig())
	got := s.Calculate("operating systems", cands(0.9), 0.95, true, turns(7))
	if len(got.Concerns) != 1 || got.Concerns[0] != "Escalation triggered: complex_multi_part_query" {
		t.Errorf("concerns = %v", got.Concerns)
	}

	got = s.Calculate("operating systems", cands(0.9), 0.5, true, turns(7))
	if len(got.Concerns) != 1 || got.Concerns[0] != ConcernIntent {
		t.Errorf("concerns = %v", got.Concerns)
	}
}

func TestCalculate_ContextUnresolved(t *testing.T) {
	got := NewScorer(DefaultConfig()).Calculate("that class", cands(0.5), 0.7, false, nil)
	if got.Context != 0.5 {
		t.Errorf("Context = %v, want 0.5", got.Context)
	}
	if !contains(got.Concerns, ConcernContext) {
		t.Errorf("concerns = %v", got.Concerns)
	}
}

func TestTokenOverlap(t *testing.T) {
	rel := TokenOverlap(0.5)
	tests := []struct {
		name     string
		query    string
		passages []string
		want     float64
	}{
		{"no passages", "operating systems", nil, 0},
		{"generic query", "what is the", []string{cs149}, 0.5},
		{"punctuation stripped", "What's the prerequisite for CS 149?", []string{cs149}, 0.75},
		{"best passage wins", "drop deadline", []string{cs149, "The drop deadline is Feb 10"}, 1},
		{"no overlap", "parking permit", []string{cs149}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rel(tt.query, tt.passages); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWithRelevance(t *testing.T) {
	s := NewScorer(DefaultConfig(), WithRelevance(func(string, []string) float64 { return 2 }))
	if got := s.Calculate("x", cands(0.9), 0.9, true, nil); got.Relevance != 1 {
		t.Errorf("relevance not clamped: %v", got.Relevance)
	}
}

func TestReason(t *testing.T) {
	for _, r := range Reasons {
		if got, ok := ParseReason(string(r)); !ok || got != r {
			t.Errorf("ParseReason(%q) failed", r)
		}
	}
	if _, ok := ParseReason("bored"); ok {
		t.Error("unknown reason parsed")
	}
}
