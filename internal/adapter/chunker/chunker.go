package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"grounder/internal/domain"
)

// Chunker slices document text into fixed-size character chunks with a
// small overlap so phrases spanning a boundary stay searchable.
type Chunker struct {
	chunkChars int
	maxChunks  int
}

func NewChunker(chunkChars, maxChunks int) *Chunker {
	if chunkChars <= 0 {
		chunkChars = 500
	}
	if maxChunks <= 0 {
		maxChunks = 256
	}
	return &Chunker{
		chunkChars: chunkChars,
		maxChunks:  maxChunks,
	}
}

// Chunk splits text into passages for the given document. The overlap is
// a tenth of the chunk size. Chunking stops at maxChunks per document.
func (c *Chunker) Chunk(docID, text string) []domain.StoredPassage {
	if text == "" {
		return nil
	}

	overlap := c.chunkChars / 10

	var passages []domain.StoredPassage
	start := 0
	for start < len(text) && len(passages) < c.maxChunks {
		end := start + c.chunkChars
		if end > len(text) {
			end = len(text)
		}
		chunkText := text[start:end]
		passages = append(passages, domain.StoredPassage{
			ID:    passageID(docID, len(passages)),
			DocID: docID,
			Text:  chunkText,
		})
		if end == len(text) {
			break
		}
		start = end - overlap
	}

	return passages
}

func passageID(docID string, idx int) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", docID, idx)))
	return hex.EncodeToString(h[:16])
}

// DocID derives a stable document identifier from its path.
func DocID(path string) string {
	h := sha256.Sum256([]byte(path))
	return hex.EncodeToString(h[:16])
}
