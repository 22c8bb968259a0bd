// Package keyword provides full-text search over knowledge documents. Retrieval falls back to it
// when the vector path is unavailable, and the admin search endpoint uses it directly.
package keyword

import (
	"context"

	"github.com/akumar23/HAL-AI-AdvisorBot/internal/models"
)

// SearchOptions narrows a keyword search. Nil means defaults.
type SearchOptions struct {
	// SourceType restricts hits to one document category when non-empty.
	SourceType models.SourceType
	// TitleBoost multiplies matches in the title field (course code, advisor name, policy question).
	TitleBoost float64
	// Fuzziness enables typo-tolerant matching with the given edit distance (1 or 2). Zero disables it.
	Fuzziness int
}

// Index defines keyword search operations.
type Index interface {
	Index(ctx context.Context, doc *models.Document) error
	Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]Result, error)
	Delete(ctx context.Context, id string) error
	DocCount() (uint64, error)
	Close() error
}

// Result is a single keyword hit. Score is the raw BM25-style score, unbounded above.
type Result struct {
	ID         string
	SourceType models.SourceType
	Score      float64
}
