package chunker

import (
	"strings"
	"testing"
)

func TestChunkShortText(t *testing.T) {
	c := NewChunker(500, 256)
	passages := c.Chunk("d1", "short text")

	if len(passages) != 1 {
		t.Fatalf("got %d passages, want 1", len(passages))
	}
	if passages[0].Text != "short text" || passages[0].DocID != "d1" {
		t.Errorf("passage = %+v", passages[0])
	}
}

func TestChunkEmptyText(t *testing.T) {
	c := NewChunker(500, 256)
	if got := c.Chunk("d1", ""); got != nil {
		t.Errorf("expected nil for empty text, got %v", got)
	}
}

func TestChunkOverlap(t *testing.T) {
	c := NewChunker(100, 256)
	text := strings.Repeat("x", 250)
	passages := c.Chunk("d1", text)

	// Starts advance by chunk minus a tenth: 0, 90, 180.
	if len(passages) != 3 {
		t.Fatalf("got %d passages, want 3", len(passages))
	}
	if len(passages[0].Text) != 100 || len(passages[1].Text) != 100 {
		t.Errorf("chunk lengths = %d, %d; want 100", len(passages[0].Text), len(passages[1].Text))
	}
	if len(passages[2].Text) != 70 {
		t.Errorf("tail length = %d, want 70", len(passages[2].Text))
	}
}

func TestChunkMaxChunks(t *testing.T) {
	c := NewChunker(10, 3)
	passages := c.Chunk("d1", strings.Repeat("x", 1000))

	if len(passages) != 3 {
		t.Errorf("got %d passages, want 3", len(passages))
	}
}

func TestChunkIDsStable(t *testing.T) {
	c := NewChunker(100, 256)
	text := strings.Repeat("y", 300)

	first := c.Chunk("d1", text)
	second := c.Chunk("d1", text)

	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("chunk %d id changed between runs", i)
		}
	}

	other := c.Chunk("d2", text)
	if first[0].ID == other[0].ID {
		t.Error("different documents share chunk ids")
	}
}

func TestDocIDStable(t *testing.T) {
	if DocID("/docs/a.md") != DocID("/docs/a.md") {
		t.Error("DocID not stable")
	}
	if DocID("/docs/a.md") == DocID("/docs/b.md") {
		t.Error("DocID collides across paths")
	}
}
