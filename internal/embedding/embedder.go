// Package embedding converts text to fixed-dimension vectors for knowledge retrieval.
package embedding

import (
	"context"
	"fmt"

	"github.com/akumar23/HAL-AI-AdvisorBot/internal/config"
)

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// New builds the embedder selected by cfg.Provider, fronted by an in-process LRU cache.
func New(cfg config.EmbeddingConfig) (Embedder, error) {
	var base Embedder
	switch cfg.Provider {
	case "hash", "":
		base = NewHashEmbedder(cfg.Dimensions)
	case "onnx":
		e, err := NewONNXEmbedder(cfg.ModelPath, cfg.Dimensions, cfg.MaxTokens)
		if err != nil {
			return nil, err
		}
		base = e
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: hash, onnx)", cfg.Provider)
	}
	if cfg.CacheSize > 0 {
		return NewCachedEmbedder(base, NewEmbeddingCache(cfg.CacheSize), nil), nil
	}
	return base, nil
}

func embedEach(ctx context.Context, e Embedder, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = emb
	}
	return out, nil
}
