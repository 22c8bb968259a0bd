package retrieval

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/akumar23/HAL-AI-AdvisorBot/internal/embedding"
	"github.com/akumar23/HAL-AI-AdvisorBot/internal/keyword"
	"github.com/akumar23/HAL-AI-AdvisorBot/internal/models"
	"github.com/akumar23/HAL-AI-AdvisorBot/internal/storage"
	"github.com/akumar23/HAL-AI-AdvisorBot/internal/vector"
)

// Gateway embeds the query, searches the vector index and hydrates hits from storage.
// When the vector path fails or finds nothing, it falls back to the keyword index.
type Gateway struct {
	store     storage.Storage
	embedder  embedding.Embedder
	vectors   vector.Index
	keywords  keyword.Index
	fuzziness int
	logger    *zap.Logger
}

var _ Retriever = (*Gateway)(nil)

// Option configures a Gateway.
type Option func(*Gateway)

// WithKeywordFallback enables the keyword index as a fallback.
func WithKeywordFallback(idx keyword.Index, fuzziness int) Option {
	return func(g *Gateway) {
		g.keywords = idx
		g.fuzziness = fuzziness
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(g *Gateway) { g.logger = l }
}

// NewGateway creates a retrieval gateway.
func NewGateway(store storage.Storage, embedder embedding.Embedder, vectors vector.Index, opts ...Option) *Gateway {
	g := &Gateway{store: store, embedder: embedder, vectors: vectors, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = zap.NewNop()
	}
	return g
}

// Retrieve returns up to k candidates, best first.
func (g *Gateway) Retrieve(ctx context.Context, query string, k int, filter models.SourceType) ([]Candidate, error) {
	if k <= 0 {
		k = 5
	}
	candidates, vecErr := g.semantic(ctx, query, k, filter)
	if vecErr == nil && len(candidates) > 0 {
		return candidates, nil
	}
	if g.keywords == nil {
		return candidates, vecErr
	}
	if vecErr != nil {
		g.logger.Warn("vector retrieval failed, using keyword index", zap.Error(vecErr))
	}
	kwCandidates, kwErr := g.lexical(ctx, query, k, filter)
	if kwErr != nil {
		if vecErr != nil {
			return nil, errors.Join(vecErr, kwErr)
		}
		return nil, kwErr
	}
	return kwCandidates, nil
}

func (g *Gateway) semantic(ctx context.Context, query string, k int, filter models.SourceType) ([]Candidate, error) {
	vec, err := g.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	hits, err := g.vectors.Search(ctx, vec, k, string(filter))
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	ids := make([]string, len(hits))
	scores := make(map[string]float64, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
		scores[h.ID] = vector.Similarity(h.Distance)
	}
	return g.hydrate(ctx, ids, scores)
}

func (g *Gateway) lexical(ctx context.Context, query string, k int, filter models.SourceType) ([]Candidate, error) {
	hits, err := g.keywords.Search(ctx, query, k, &keyword.SearchOptions{SourceType: filter, Fuzziness: g.fuzziness})
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	ids := make([]string, len(hits))
	scores := make(map[string]float64, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
		// bleve scores are unbounded; squash into [0, 1)
		scores[h.ID] = h.Score / (1 + h.Score)
	}
	return g.hydrate(ctx, ids, scores)
}

// hydrate loads documents for ids, preserving order and dropping IDs no longer stored.
func (g *Gateway) hydrate(ctx context.Context, ids []string, scores map[string]float64) ([]Candidate, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	docs, err := g.store.GetDocuments(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}
	out := make([]Candidate, 0, len(ids))
	for _, id := range ids {
		doc, ok := docs[id]
		if !ok {
			g.logger.Debug("index entry without document", zap.String("id", id))
			continue
		}
		out = append(out, Candidate{
			ID:         doc.ID,
			Content:    doc.Content,
			SourceType: doc.SourceType,
			Score:      scores[id],
			Metadata:   doc.Metadata,
		})
	}
	return out, nil
}
