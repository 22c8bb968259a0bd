package indexer

import (
	"strings"
)

// Chunker splits long policy text into overlapping word windows.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker creates a chunker with the given size and overlap in words.
func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = 200
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	return &Chunker{size: size, overlap: overlap}
}

// Chunk returns the windows of text. Text that fits in one window is returned whole,
// line breaks included.
func (c *Chunker) Chunk(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if len(words) <= c.size {
		return []string{strings.TrimSpace(text)}
	}
	step := c.size - c.overlap
	var chunks []string
	for start := 0; start < len(words); start += step {
		end := start + c.size
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
		if end == len(words) {
			break
		}
	}
	return chunks
}
