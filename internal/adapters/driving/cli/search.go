package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/counselstack/corpus/internal/core/domain"
)

var (
	searchTenant   string
	searchTopK     int
	searchMode     string
	searchMinScore float64
	searchNoRerank bool
	searchNoCache  bool
	searchJSON     bool
	searchFilters  []string
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search a tenant's indexed documents",
	Long: `Runs a hybrid search over the tenant's index: semantic similarity and
BM25 keyword matching fused with reciprocal rank fusion. Use --mode to
restrict the search to a single signal.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&searchTenant, "tenant", "t", "default", "tenant identifier")
	searchCmd.Flags().IntVarP(&searchTopK, "top", "n", 5, "maximum number of results")
	searchCmd.Flags().StringVarP(&searchMode, "mode", "m", "hybrid", "search mode: semantic, keyword or hybrid")
	searchCmd.Flags().Float64Var(&searchMinScore, "min-score", 0, "drop results scoring below this value")
	searchCmd.Flags().BoolVar(&searchNoRerank, "no-rerank", false, "skip the cross-encoder rerank pass")
	searchCmd.Flags().BoolVar(&searchNoCache, "no-cache", false, "bypass the query cache")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	searchCmd.Flags().StringSliceVar(&searchFilters, "filter", nil, "metadata filter, key=value (repeatable)")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if searcher == nil {
		return errors.New("search service not configured")
	}

	mode := domain.SearchMode(searchMode)
	if !mode.Valid() {
		return fmt.Errorf("invalid mode %q: want semantic, keyword or hybrid", searchMode)
	}

	filter, err := parseFilters(searchFilters)
	if err != nil {
		return err
	}

	opts := domain.SearchOptions{
		TopK:     searchTopK,
		Mode:     mode,
		MinScore: searchMinScore,
		Rerank:   !searchNoRerank,
		UseCache: !searchNoCache,
		Filter:   filter,
	}

	results, err := searcher.Search(cmd.Context(), searchTenant, args[0], opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal results: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	printResults(cmd, results)
	return nil
}

// parseFilters converts key=value pairs into a metadata filter.
// Repeating a key turns the constraint into set membership.
func parseFilters(pairs []string) (domain.MetadataFilter, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	filter := make(domain.MetadataFilter)
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid filter %q: want key=value", pair)
		}
		switch existing := filter[key].(type) {
		case nil:
			filter[key] = value
		case string:
			filter[key] = []string{existing, value}
		case []string:
			filter[key] = append(existing, value)
		}
	}
	return filter, nil
}

func printResults(cmd *cobra.Command, results []domain.RetrievalResult) {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return
	}

	cmd.Println("Results:")
	cmd.Println()
	for i, r := range results {
		marker := ""
		if r.Reranked {
			marker = " reranked"
		}
		cmd.Printf("  [%d] %s (%.4f, %s%s)\n", i+1, r.Filename, r.Score, r.Origin, marker)
		cmd.Printf("      %s\n", snippet(r.Content, 160))
		cmd.Println()
	}
}

// snippet truncates content to a display-friendly single line.
func snippet(content string, max int) string {
	content = strings.Join(strings.Fields(content), " ")
	if len(content) <= max {
		return content
	}
	cut := content[:max]
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return cut + "…"
}
