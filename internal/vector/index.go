// Package vector provides the nearest-neighbour index over knowledge-document embeddings.
package vector

import "context"

// Item is one indexed vector. Tag carries the document source type for filtered search.
type Item struct {
	ID     string
	Tag    string
	Vector []float32
}

// Index stores vectors and answers k-nearest-neighbour queries by L2 distance.
type Index interface {
	// Upsert adds items, replacing any existing entries with the same ID.
	Upsert(ctx context.Context, items []Item) error
	// Search returns up to k nearest items. A non-empty tag restricts results to that tag.
	Search(ctx context.Context, query []float32, k int, tag string) ([]Result, error)
	Remove(ctx context.Context, ids []string) error
	Save(path string) error
	Load(path string) error
	Size() int
	Close() error
}

// Result is one search hit. Smaller Distance is closer.
type Result struct {
	ID       string
	Tag      string
	Distance float64
}
