package indexer

import (
	"strings"
	"testing"
)

func TestChunker_Chunk(t *testing.T) {
	c := NewChunker(3, 1)
	chunks := c.Chunk("one two three four five six seven")
	want := []string{"one two three", "three four five", "five six seven"}
	if len(chunks) != len(want) {
		t.Fatalf("got %d chunks: %q", len(chunks), chunks)
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Errorf("chunk %d = %q, want %q", i, chunks[i], want[i])
		}
	}
}

func TestChunker_ShortTextKeepsLines(t *testing.T) {
	c := NewChunker(50, 5)
	chunks := c.Chunk("Question: How do I drop?\nAnswer: Use MySJSU.")
	if len(chunks) != 1 || !strings.Contains(chunks[0], "\n") {
		t.Errorf("chunks = %q", chunks)
	}
	if got := c.Chunk("   \n\t "); got != nil {
		t.Errorf("blank text should give nil, got %q", got)
	}
}

func TestChunker_InvalidOverlap(t *testing.T) {
	c := NewChunker(2, 5)
	if got := c.Chunk("a b c d"); len(got) != 2 {
		t.Errorf("overlap >= size should fall back to no overlap, got %q", got)
	}
}

func TestPreprocess(t *testing.T) {
	got := Preprocess("  Drop   policy \t\n\n\n\n  Line two  ")
	if got != "Drop policy\n\nLine two" {
		t.Errorf("Preprocess = %q", got)
	}
}

func TestHumanTitle(t *testing.T) {
	if got := humanTitle("grad_policy-2025.pdf"); got != "grad policy 2025" {
		t.Errorf("humanTitle = %q", got)
	}
}
