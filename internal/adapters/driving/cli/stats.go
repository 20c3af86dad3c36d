package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

var statsTenant string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show a tenant's index statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().StringVarP(&statsTenant, "tenant", "t", "default", "tenant identifier")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	if searcher == nil {
		return errors.New("search service not configured")
	}

	stats, err := searcher.Stats(cmd.Context(), statsTenant)
	if err != nil {
		return err
	}

	cmd.Printf("Tenant:  %s\n", statsTenant)
	cmd.Printf("Chunks:  %d\n", stats.TotalChunks)
	cmd.Printf("Vectors: %d\n", stats.VectorCount)
	return nil
}
