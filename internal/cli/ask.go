package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"grounder/config"
	"grounder/internal/adapter/analyzer"
	"grounder/internal/adapter/cache"
	"grounder/internal/adapter/gate"
	"grounder/internal/adapter/llm"
	"grounder/internal/adapter/local"
	"grounder/internal/adapter/merge"
	"grounder/internal/adapter/planner"
	"grounder/internal/adapter/ranker"
	"grounder/internal/adapter/search"
	"grounder/internal/adapter/store"
	"grounder/internal/adapter/webfetch"
	"grounder/internal/domain"
	"grounder/internal/port"
	"grounder/internal/usecase"
)

var askJSON bool

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question from local evidence and, if needed, the web",
	Long: `Answer a question. Local indexed evidence is consulted first; when it
cannot carry the answer, a bounded web retrieval pass gathers more.

Examples:
  grounder ask "how does request signing work"
  grounder ask --json "latest acme pricing changes"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")

	uc, closeFn, err := buildAnswerPipeline(GetConfig(), GetRootDir())
	if err != nil {
		return err
	}
	defer closeFn()

	answer, err := uc.Answer(cmd.Context(), []domain.Message{
		{Role: "user", Content: question},
	})
	if err != nil {
		return fmt.Errorf("answering failed: %w", err)
	}

	if askJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(answer)
	}

	fmt.Println(answer.Text)
	if len(answer.Citations) > 0 {
		fmt.Println("\nSources:")
		for i, c := range answer.Citations {
			line := c.URL
			if c.Title != "" {
				line = fmt.Sprintf("%s (%s)", c.Title, c.URL)
			}
			fmt.Printf("  [%d] %s\n", i+1, line)
		}
	}
	return nil
}

// buildAnswerPipeline wires the full pipeline from configuration. The
// returned close function releases the index store if one was opened.
func buildAnswerPipeline(cfg *config.Config, rootDir string) (*usecase.AnswerUseCase, func(), error) {
	log := GetLogger()
	tokenizer := analyzer.NewTokenizer()

	closeFn := func() {}
	var localSource port.EvidenceSource
	var pageCache webfetch.PageCache
	dbPath := config.IndexDBPath(rootDir)
	if _, err := os.Stat(dbPath); err == nil {
		st, err := store.NewBoltStore(dbPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open index store: %w", err)
		}
		closeFn = func() { st.Close() }
		localSource = local.NewStoreSource(st, cfg.Ingest.LocalTopK)
		pageCache = st
	}

	var providers []port.SearchProvider
	if cfg.Search.Provider == "tavily" {
		if key := cfg.SearchAPIKey(); key != "" {
			providers = append(providers, search.NewTavilyProvider(key, searchTimeout(cfg)))
		}
	}
	providers = append(providers, search.NewDuckDuckGoProvider(searchTimeout(cfg)))

	searchCache := cache.NewSearchCache(cfg.Search.CacheSize,
		time.Duration(cfg.Search.CacheTTLMinutes)*time.Minute)
	executor := search.NewExecutor(providers, searchCache, searchTimeout(cfg), cfg.Search.MaxResults, log)

	fetcher := webfetch.NewFetcher(webfetch.Options{
		Concurrency:     cfg.Fetch.Concurrency,
		PerPageTimeout:  time.Duration(cfg.Fetch.TimeoutMS) * time.Millisecond,
		WindowChars:     cfg.Fetch.WindowChars,
		OverlapChars:    cfg.Fetch.OverlapChars,
		MinPassageChars: cfg.Fetch.MinPassageChars,
		Cache:           pageCache,
		CacheTTL:        time.Duration(cfg.Fetch.CacheTTLMinutes) * time.Minute,
	}, log)

	var generator port.Generator
	if cfg.LLM.Enabled {
		key := cfg.LLMAPIKey()
		if key == "" {
			log.Warn("llm enabled but no api key resolved, answering extractively")
		} else {
			gen, err := llm.NewOpenAIGenerator(llm.Options{
				APIKey:      key,
				Model:       cfg.LLM.Model,
				BaseURL:     cfg.LLM.BaseURL,
				Temperature: cfg.LLM.Temperature,
				MaxTokens:   cfg.LLM.MaxTokens,
			})
			if err != nil {
				return nil, nil, fmt.Errorf("failed to create generator: %w", err)
			}
			generator = gen
			log.Debug("generator ready", zap.String("model", generator.ModelName()))
		}
	}

	uc := usecase.NewAnswerUseCase(usecase.Options{
		Tokenizer: tokenizer,
		Local:     localSource,
		Gate:      gate.NewGate(cfg.Gate.MinLocalHits, cfg.Gate.MinPassageChars),
		Planner:   planner.NewPlanner(tokenizer, cfg.Planner.AnchorTerms),
		Executor:  executor,
		Fetcher:   fetcher,
		Ranker:    ranker.NewRanker(cfg.Rank.TopK),
		Merger:    merge.NewMerger(cfg.Merge.MergeTop, cfg.Merge.MaxContextChars),
		Generator: generator,
		Budget:    cfg.Budget(),
		Extended:  cfg.Retrieval.Extended,
		Logger:    log,
	})

	return uc, closeFn, nil
}

func searchTimeout(cfg *config.Config) time.Duration {
	return time.Duration(cfg.Search.TimeoutMS) * time.Millisecond
}
