package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/GonzoDMX/citation-index/internal/logger"
	"github.com/GonzoDMX/citation-index/internal/models"
	"github.com/GonzoDMX/citation-index/internal/search"
)

var searchJSON bool

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search stored citations",
	Long: `Runs a ranked full-text search over headnotes, keywords, parties, court,
sections and journal. Each word matches on its own; words of three or more
characters also match as prefixes.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, err := openEnv(ctx, false)
	if err != nil {
		return err
	}
	defer e.Close()

	if _, err := e.store.EnsureIndex(ctx); err != nil {
		return err
	}

	exec := search.NewExecutor(e.store.DB(), e.cfg.Search.Weights, e.cfg.Search.Limit)
	return searchAndPrint(cmd, exec, e.log, args[0])
}

// searchAndPrint runs the query and writes the results. A query the index
// rejects prints a notice on stderr and an empty result.
func searchAndPrint(cmd *cobra.Command, exec *search.Executor, log *logger.Logger, query string) error {
	results, err := exec.Search(cmd.Context(), query)
	if errors.Is(err, search.ErrQuery) {
		log.Warn("search query rejected", "error", err.Error())
		fmt.Fprintln(cmd.ErrOrStderr(), "Search failed for this query; try different terms.")
		results = []models.SearchResult{}
	} else if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, results)
	}
	return outputSearchTable(cmd, results)
}

func outputSearchJSON(cmd *cobra.Command, results []models.SearchResult) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, results []models.SearchResult) error {
	out := cmd.OutOrStdout()
	if len(results) == 0 {
		fmt.Fprintln(out, "No results found.")
		return nil
	}

	fmt.Fprintln(out, "Results:")
	fmt.Fprintln(out)
	for i := range results {
		c := results[i].Citation
		// Format: [N] Parties - Journal (Score)
		fmt.Fprintf(out, "  [%d] %s - %s (%.2f)\n", i+1, c.Parties, c.Journal, results[i].Score)
		fmt.Fprintf(out, "      %s, %s\n", c.Court, c.DateOfJudgement)
		fmt.Fprintf(out, "      %s\n", snippet(c.Description, 160))
		fmt.Fprintln(out)
	}
	return nil
}

func snippet(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
