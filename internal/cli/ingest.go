package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"grounder/config"
	"grounder/internal/adapter/analyzer"
	"grounder/internal/adapter/chunker"
	"grounder/internal/adapter/fs"
	"grounder/internal/adapter/store"
	"grounder/internal/usecase"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [path]",
	Short: "Index local knowledge files for evidence retrieval",
	Long: `Index files in the specified directory as the local evidence base.
The index is stored in .grounder/index.db within the root directory.

Examples:
  grounder ingest .              # Index current directory
  grounder ingest /path/to/docs  # Index a knowledge directory`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	path := GetRootDir()
	if len(args) > 0 {
		var err error
		path, err = filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("invalid path: %w", err)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	cfg := GetConfig()

	if err := config.EnsureDataDir(GetRootDir()); err != nil {
		return fmt.Errorf("failed to create .grounder directory: %w", err)
	}

	dbPath := config.IndexDBPath(GetRootDir())
	st, err := store.NewBoltStore(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open index store: %w", err)
	}
	defer st.Close()

	tokenizer := analyzer.NewTokenizer()
	walker := fs.NewWalker(cfg.Ingest.Includes, cfg.Ingest.Excludes)
	chk := chunker.NewChunker(cfg.Ingest.ChunkChars, cfg.Ingest.MaxChunks)

	ingestUC := usecase.NewIngestUseCase(walker, chk, tokenizer, st, GetLogger())

	fmt.Printf("Scanning %s...\n", path)

	var bar *progressbar.ProgressBar
	progress := func(done, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]Ingesting[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Println()
				}),
			)
		}
		bar.Set(done)
	}

	stats, err := ingestUC.Run(cmd.Context(), path, progress)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Printf("\nIngestion complete:\n")
	fmt.Printf("  Documents:       %d\n", stats.TotalDocs)
	fmt.Printf("  Passages:        %d\n", stats.TotalPassages)
	fmt.Printf("  Avg passage len: %.0f chars\n", stats.AvgPassageLen)
	fmt.Printf("\nIndex stored at: %s\n", dbPath)
	return nil
}
