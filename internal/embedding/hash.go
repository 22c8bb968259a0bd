package embedding

import (
	"context"

	"github.com/akumar23/HAL-AI-AdvisorBot/pkg/utils"
)

// HashEmbedder is a deterministic, offline embedder: each lower-cased word and adjacent word pair
// is hashed into a bucket, and the bucket counts are L2-normalised. Texts sharing vocabulary land
// close together, which is enough for small advising knowledge bases and for tests.
type HashEmbedder struct {
	dimensions int
}

// NewHashEmbedder creates a hash embedder; non-positive dimensions default to 384.
func NewHashEmbedder(dimensions int) *HashEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &HashEmbedder{dimensions: dimensions}
}

func (e *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	emb := make([]float32, e.dimensions)
	words := Words(text)
	for i, w := range words {
		emb[HashString(w)%e.dimensions] += 1
		if i > 0 {
			emb[HashString(words[i-1]+" "+w)%e.dimensions] += 0.5
		}
	}
	utils.NormalizeL2(emb)
	return emb, nil
}

func (e *HashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, e, texts)
}

func (e *HashEmbedder) Dimensions() int { return e.dimensions }

func (e *HashEmbedder) Close() error { return nil }
