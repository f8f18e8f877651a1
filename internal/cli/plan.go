package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"grounder/internal/adapter/analyzer"
	"grounder/internal/adapter/planner"
)

var planJSON bool

var planCmd = &cobra.Command{
	Use:   "plan [question]",
	Short: "Show the search plan for a question without executing it",
	Long: `Build and print the search plan a question would produce: the query
variants, any site restriction and whether recent results are preferred.

Examples:
  grounder plan "latest acme pricing"
  grounder plan --json "outage report site:acme.com"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPlan,
}

func init() {
	planCmd.Flags().BoolVar(&planJSON, "json", false, "print the plan as JSON")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")
	cfg := GetConfig()

	p := planner.NewPlanner(analyzer.NewTokenizer(), cfg.Planner.AnchorTerms)
	plan := p.BuildPlan(question)

	if planJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(plan)
	}

	fmt.Println("Variants:")
	for i, v := range plan.Variants {
		fmt.Printf("  %d. %s\n", i+1, v)
	}
	if len(plan.IncludeDomains) > 0 {
		fmt.Printf("Domains: %s\n", strings.Join(plan.IncludeDomains, ", "))
	}
	fmt.Printf("Recent:  %v\n", plan.Recent)
	return nil
}
