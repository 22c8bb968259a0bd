// Package scoring blends retrieval, relevance, intent and context signals into one
// confidence score and decides whether a human advisor should take over.
package scoring

import (
	"strings"

	"github.com/akumar23/HAL-AI-AdvisorBot/internal/intent"
	"github.com/akumar23/HAL-AI-AdvisorBot/internal/models"
	"github.com/akumar23/HAL-AI-AdvisorBot/internal/retrieval"
	"github.com/akumar23/HAL-AI-AdvisorBot/pkg/utils"
)

// Concern texts recorded when a sub-score is reduced.
const (
	ConcernNoDocuments = "No relevant documents found"
	ConcernIrrelevant  = "Retrieved documents may not be relevant"
	ConcernIntent      = "Unclear what type of question this is"
	ConcernContext     = "Unable to resolve context references"
)

const topN = 3

// Score is the scorer's verdict for one answer.
type Score struct {
	Overall        float64      `json:"overall_score"`
	Retrieval      float64      `json:"retrieval_score"`
	Relevance      float64      `json:"relevance_score"`
	Intent         float64      `json:"intent_score"`
	Context        float64      `json:"context_score"`
	Level          intent.Level `json:"level"`
	Concerns       []string     `json:"concerns"`
	ShouldEscalate bool         `json:"should_escalate"`
	Reason         Reason       `json:"escalation_reason,omitempty"`
}

// Weights of the four sub-scores; they sum to 1.
type Weights struct {
	Retrieval float64
	Relevance float64
	Intent    float64
	Context   float64
}

// Config holds the scoring policy constants.
type Config struct {
	Weights             Weights
	HighThreshold       float64
	MediumThreshold     float64
	EscalationThreshold float64
	// NoDocsScore is the candidate score below which every candidate counts as irrelevant.
	NoDocsScore      float64
	GenericRelevance float64
	// ComplexTurns escalates once the history reaches this many turns; 0 disables it.
	ComplexTurns int
}

// DefaultConfig returns the standard advising policy.
func DefaultConfig() Config {
	return Config{
		Weights:             Weights{Retrieval: 0.35, Relevance: 0.25, Intent: 0.25, Context: 0.15},
		HighThreshold:       intent.HighThreshold,
		MediumThreshold:     intent.MediumThreshold,
		EscalationThreshold: 0.4,
		NoDocsScore:         0.3,
		GenericRelevance:    0.5,
		ComplexTurns:        6,
	}
}

var humanPhrases = []string{
	"talk to a human",
	"speak to someone",
	"real person",
	"human advisor",
	"talk to advisor",
	"contact advisor",
	"not helpful",
	"you're not helping",
	"actual help",
}

type sensitiveKeyword struct {
	phrase string
	reason Reason
}

// checked in order; the first phrase found decides the reason
var sensitiveKeywords = []sensitiveKeyword{
	{"academic probation", AcademicStanding},
	{"expelled", AcademicStanding},
	{"dismissed", AcademicStanding},
	{"appeal", AppealsExceptions},
	{"exception", AppealsExceptions},
	{"waiver", AppealsExceptions},
	{"petition", AppealsExceptions},
	{"special circumstance", PersonalSituation},
	{"disability", PersonalSituation},
	{"accommodation", PersonalSituation},
	{"emergency", PersonalSituation},
	{"urgent", PersonalSituation},
	{"crisis", PersonalSituation},
	{"mental health", PersonalSituation},
	{"financial aid", PersonalSituation},
	{"scholarship", PersonalSituation},
}

// Scorer computes confidence scores. It is safe for concurrent use.
type Scorer struct {
	cfg       Config
	relevance RelevanceFunc
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithRelevance replaces the token-overlap relevance heuristic.
func WithRelevance(fn RelevanceFunc) Option {
	return func(s *Scorer) { s.relevance = fn }
}

// NewScorer creates a scorer with cfg.
func NewScorer(cfg Config, opts ...Option) *Scorer {
	s := &Scorer{cfg: cfg, relevance: TokenOverlap(cfg.GenericRelevance)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the scorer's policy.
func (s *Scorer) Config() Config { return s.cfg }

// Calculate scores an answer built from candidates. history is the caller-supplied
// prior conversation; only its length is used.
func (s *Scorer) Calculate(query string, candidates []retrieval.Candidate, intentConfidence float64, contextResolved bool, history []models.Message) *Score {
	var concerns []string
	top := candidates
	if len(top) > topN {
		top = top[:topN]
	}

	retrievalScore := 0.0
	if len(top) > 0 {
		for _, c := range top {
			retrievalScore += c.Score
		}
		retrievalScore /= float64(len(top))
	} else {
		concerns = append(concerns, ConcernNoDocuments)
	}

	passages := make([]string, len(top))
	for i, c := range top {
		passages[i] = c.Content
	}
	relevance := utils.Clamp01(s.relevance(query, passages))
	if relevance < 0.5 {
		concerns = append(concerns, ConcernIrrelevant)
	}

	intentScore := utils.Clamp01(intentConfidence)
	if intentScore < 0.6 {
		concerns = append(concerns, ConcernIntent)
	}

	contextScore := 1.0
	if !contextResolved {
		contextScore = 0.5
		concerns = append(concerns, ConcernContext)
	}

	w := s.cfg.Weights
	overall := utils.Round(w.Retrieval*retrievalScore+w.Relevance*relevance+w.Intent*intentScore+w.Context*contextScore, 9)

	score := &Score{
		Overall:   overall,
		Retrieval: retrievalScore,
		Relevance: relevance,
		Intent:    intentScore,
		Context:   contextScore,
		Level:     intent.LevelWith(overall, s.cfg.HighThreshold, s.cfg.MediumThreshold),
	}
	score.Reason, score.ShouldEscalate = s.escalation(query, overall, candidates, len(history))
	if score.ShouldEscalate && len(concerns) == 0 {
		concerns = append(concerns, "Escalation triggered: "+string(score.Reason))
	}
	score.Concerns = concerns
	return score
}

// escalation applies the triggers in priority order; the first match wins.
func (s *Scorer) escalation(query string, overall float64, candidates []retrieval.Candidate, turns int) (Reason, bool) {
	q := strings.ToLower(query)
	for _, p := range humanPhrases {
		if strings.Contains(q, p) {
			return UserRequested, true
		}
	}
	for _, k := range sensitiveKeywords {
		if strings.Contains(q, k.phrase) {
			return k.reason, true
		}
	}
	if overall < s.cfg.EscalationThreshold {
		return LowConfidence, true
	}
	if !anyAtLeast(candidates, s.cfg.NoDocsScore) {
		return NoRelevantDocs, true
	}
	if s.cfg.ComplexTurns > 0 && turns >= s.cfg.ComplexTurns {
		return ComplexQuery, true
	}
	return "", false
}

func anyAtLeast(candidates []retrieval.Candidate, min float64) bool {
	for _, c := range candidates {
		if c.Score >= min {
			return true
		}
	}
	return false
}
