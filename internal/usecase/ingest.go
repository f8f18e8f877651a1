package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"grounder/internal/adapter/analyzer"
	"grounder/internal/adapter/chunker"
	"grounder/internal/adapter/fs"
	"grounder/internal/adapter/store"
	"grounder/internal/domain"
)

// IngestUseCase walks a knowledge directory, chunks each file and writes
// the resulting passages and term postings to the local store. Runs are
// incremental: unchanged files are skipped, modified files replace their
// old entries and files removed from disk are dropped from the index.
type IngestUseCase struct {
	walker    *fs.Walker
	chunker   *chunker.Chunker
	tokenizer *analyzer.Tokenizer
	store     *store.BoltStore
	logger    *zap.Logger
}

func NewIngestUseCase(walker *fs.Walker, c *chunker.Chunker, tokenizer *analyzer.Tokenizer, s *store.BoltStore, logger *zap.Logger) *IngestUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IngestUseCase{
		walker:    walker,
		chunker:   c,
		tokenizer: tokenizer,
		store:     s,
		logger:    logger,
	}
}

// Progress reports ingestion advancement, called once per visited file
// whether it was indexed or skipped.
type Progress func(done, total int)

// Run ingests every matching file under root. Files that fail to read are
// logged and skipped; a previously indexed copy stays in place. Returns
// the refreshed index stats.
func (u *IngestUseCase) Run(ctx context.Context, root string, progress Progress) (domain.Stats, error) {
	files, err := u.walker.Walk(root)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	existing, err := u.store.ListDocs()
	if err != nil {
		return domain.Stats{}, fmt.Errorf("failed to list indexed docs: %w", err)
	}
	existingByPath := make(map[string]domain.Document, len(existing))
	for _, doc := range existing {
		existingByPath[doc.Path] = doc
	}

	seen := make(map[string]bool, len(files))
	var batch []store.IngestedFile
	stats := domain.Stats{}
	totalLen := 0

	for i, file := range files {
		if err := ctx.Err(); err != nil {
			return domain.Stats{}, err
		}
		seen[file.Path] = true

		if prev, ok := existingByPath[file.Path]; ok && prev.ModTime >= file.ModTime {
			// Unchanged since last run: keep the stored passages and
			// only fold them into the stats.
			kept, err := u.store.GetPassagesByDoc(prev.ID)
			if err == nil {
				stats.TotalDocs++
				stats.TotalPassages += len(kept)
				for _, p := range kept {
					totalLen += len(p.Text)
				}
			}
			reportProgress(progress, i+1, len(files))
			continue
		}

		ingested, err := u.ingestFile(file)
		if err != nil {
			u.logger.Warn("skipping unreadable file",
				zap.String("path", file.Path), zap.Error(err))
			reportProgress(progress, i+1, len(files))
			continue
		}

		if prev, ok := existingByPath[file.Path]; ok {
			if err := u.store.DeleteDoc(prev.ID); err != nil {
				return domain.Stats{}, fmt.Errorf("failed to drop stale entries for %s: %w", file.Path, err)
			}
		}

		batch = append(batch, ingested)
		stats.TotalDocs++
		stats.TotalPassages += len(ingested.Passages)
		for _, p := range ingested.Passages {
			totalLen += len(p.Text)
		}
		reportProgress(progress, i+1, len(files))
	}

	for path, doc := range existingByPath {
		if seen[path] {
			continue
		}
		if err := u.store.DeleteDoc(doc.ID); err != nil {
			u.logger.Warn("failed to remove deleted file from index",
				zap.String("path", path), zap.Error(err))
		}
	}

	if err := u.store.BatchIngest(batch); err != nil {
		return domain.Stats{}, fmt.Errorf("failed to write index: %w", err)
	}

	if stats.TotalPassages > 0 {
		stats.AvgPassageLen = float64(totalLen) / float64(stats.TotalPassages)
	}
	if err := u.store.UpdateStats(stats); err != nil {
		return domain.Stats{}, fmt.Errorf("failed to update stats: %w", err)
	}

	u.logger.Info("ingestion complete",
		zap.Int("docs", stats.TotalDocs),
		zap.Int("passages", stats.TotalPassages))
	return stats, nil
}

// ingestFile reads and chunks a single file and builds its term postings.
func (u *IngestUseCase) ingestFile(file fs.FileInfo) (store.IngestedFile, error) {
	text, err := fs.ReadFile(file.Path)
	if err != nil {
		return store.IngestedFile{}, err
	}

	docID := chunker.DocID(file.Path)
	passages := u.chunker.Chunk(docID, text)

	postings := make(map[string]map[string]int)
	for pi := range passages {
		tokens := u.tokenizer.Tokenize(passages[pi].Text)
		passages[pi].Tokens = tokens
		for _, token := range tokens {
			if postings[token] == nil {
				postings[token] = make(map[string]int)
			}
			postings[token][passages[pi].ID]++
		}
	}

	return store.IngestedFile{
		Doc: domain.Document{
			ID:      docID,
			Path:    file.Path,
			ModTime: file.ModTime,
		},
		Passages: passages,
		Postings: postings,
	}, nil
}

func reportProgress(progress Progress, done, total int) {
	if progress != nil {
		progress(done, total)
	}
}
