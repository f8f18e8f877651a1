package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"grounder/internal/adapter/analyzer"
	"grounder/internal/adapter/cache"
	"grounder/internal/adapter/planner"
	"grounder/internal/adapter/search"
	"grounder/internal/port"
)

var searchJSON bool

var searchCmd = &cobra.Command{
	Use:   "search [question]",
	Short: "Run a planned web search and print the raw results",
	Long: `Plan and execute a web search for a question without fetching pages or
building an answer. Useful for inspecting provider behavior.

Examples:
  grounder search "acme outage report"
  grounder search --json "latest go release"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "print results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")
	cfg := GetConfig()
	log := GetLogger()

	p := planner.NewPlanner(analyzer.NewTokenizer(), cfg.Planner.AnchorTerms)
	plan := p.BuildPlan(question)

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

	results := executor.Execute(cmd.Context(), plan, cfg.Budget())

	if searchJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Println("No results.")
		return nil
	}
	for i, r := range results {
		fmt.Printf("%d. %s\n   %s\n", i+1, r.Title, r.URL)
		if r.Snippet != "" {
			fmt.Printf("   %s\n", r.Snippet)
		}
	}
	return nil
}
