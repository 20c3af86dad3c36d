package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var ingestTenant string

var ingestCmd = &cobra.Command{
	Use:   "ingest [file...]",
	Short: "Ingest documents into a tenant's index",
	Long: `Parses, chunks and embeds the given files and adds them to the
tenant's index. Each file is processed independently; a failure on one
file does not stop the others.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestTenant, "tenant", "t", "default", "tenant identifier")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestor == nil {
		return errors.New("ingestion service not configured")
	}

	ctx := cmd.Context()
	failures := 0

	for _, path := range args {
		info, err := os.Stat(path)
		if err != nil {
			cmd.PrintErrf("%s: %v\n", path, err)
			failures++
			continue
		}

		doc, err := ingestor.Accept(ctx, ingestTenant, filepath.Base(path), info.Size())
		if err != nil {
			cmd.PrintErrf("%s: %v\n", path, err)
			failures++
			continue
		}

		if err := ingestor.Process(ctx, doc.ID, path, ingestTenant); err != nil {
			cmd.PrintErrf("%s: ingestion failed: %v\n", path, err)
			failures++
			continue
		}

		stored, err := ingestor.List(ctx, ingestTenant)
		chunkCount := 0
		quality := ""
		if err == nil {
			for i := range stored {
				if stored[i].ID == doc.ID {
					chunkCount = stored[i].ChunkCount
					if stored[i].Quality != nil {
						quality = fmt.Sprintf(" (quality %s)", stored[i].Quality.Level)
					}
					break
				}
			}
		}
		cmd.Printf("Ingested %s: %d chunks%s [%s]\n", filepath.Base(path), chunkCount, quality, doc.ID)
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d files failed", failures, len(args))
	}
	return nil
}
