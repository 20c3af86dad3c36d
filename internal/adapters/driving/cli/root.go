// Package cli implements the corpus command-line interface: thin
// cobra commands over the core ingestion and retrieval services.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/counselstack/corpus/internal/core/ports/driving"
	"github.com/counselstack/corpus/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

var verbose bool

// Injected services. Commands check for nil and fail with a clear
// message when the stack was not wired.
var (
	ingestor driving.Ingestor
	searcher driving.Searcher
)

var rootCmd = &cobra.Command{
	Use:   "corpus",
	Short: "Multi-tenant document ingestion and hybrid retrieval",
	Long: `Corpus ingests documents (PDF, Office, HTML, images and more) into a
tenant-scoped index and answers queries with hybrid retrieval:
semantic similarity fused with BM25 keyword matching, optionally
reranked by a cross-encoder.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// SetServices injects the core services used by the commands.
func SetServices(i driving.Ingestor, s driving.Searcher) {
	ingestor = i
	searcher = s
}

// SetVersion overrides the reported version string.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
