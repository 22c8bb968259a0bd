// Package retrieval finds the knowledge passages most similar to a student query.
package retrieval

import (
	"context"
	"sort"
	"strings"

	"github.com/akumar23/HAL-AI-AdvisorBot/internal/models"
)

// Candidate is one scored knowledge passage. Score is in [0, 1], 1 being an exact match.
type Candidate struct {
	ID         string                 `json:"id"`
	Content    string                 `json:"content"`
	SourceType models.SourceType      `json:"source_type"`
	Score      float64                `json:"score"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// Retriever returns up to k candidates for query. An empty filter searches every source type.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int, filter models.SourceType) ([]Candidate, error)
}

// RetrieverFunc adapts a function to Retriever.
type RetrieverFunc func(ctx context.Context, query string, k int, filter models.SourceType) ([]Candidate, error)

// Retrieve calls f.
func (f RetrieverFunc) Retrieve(ctx context.Context, query string, k int, filter models.SourceType) ([]Candidate, error) {
	return f(ctx, query, k, filter)
}

// PreferLastNameRange moves advisor candidates whose last_name_range covers initial to the
// front, keeping relative order otherwise.
func PreferLastNameRange(candidates []Candidate, initial string) []Candidate {
	if initial == "" || len(candidates) < 2 {
		return candidates
	}
	out := make([]Candidate, len(candidates))
	copy(out, candidates)
	sort.SliceStable(out, func(i, j int) bool {
		return coversInitial(out[i], initial) && !coversInitial(out[j], initial)
	})
	return out
}

func coversInitial(c Candidate, initial string) bool {
	if c.SourceType != models.SourceAdvisor || c.Metadata == nil {
		return false
	}
	rng, _ := c.Metadata["last_name_range"].(string)
	lo, hi, ok := strings.Cut(strings.ToUpper(rng), "-")
	if !ok || lo == "" || hi == "" {
		return false
	}
	in := strings.ToUpper(initial)
	return in >= lo[:1] && in <= hi[:1]
}
