package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

var documentsTenant string

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "Manage a tenant's documents",
}

var documentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List documents and their ingestion state",
	Args:  cobra.NoArgs,
	RunE:  runDocumentsList,
}

var documentsDeleteCmd = &cobra.Command{
	Use:   "delete [document-id]",
	Short: "Delete a document, its chunks and its vectors",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentsDelete,
}

func init() {
	documentsCmd.PersistentFlags().StringVarP(&documentsTenant, "tenant", "t", "default", "tenant identifier")
	documentsCmd.AddCommand(documentsListCmd)
	documentsCmd.AddCommand(documentsDeleteCmd)
	rootCmd.AddCommand(documentsCmd)
}

func runDocumentsList(cmd *cobra.Command, _ []string) error {
	if ingestor == nil {
		return errors.New("ingestion service not configured")
	}

	docs, err := ingestor.List(cmd.Context(), documentsTenant)
	if err != nil {
		return err
	}

	if len(docs) == 0 {
		cmd.Println("No documents.")
		return nil
	}

	for _, doc := range docs {
		line := ""
		if doc.Error != "" {
			line = " — " + doc.Error
		}
		cmd.Printf("%s  %-12s %-9s %4d chunks%s\n", doc.ID, doc.Filename, doc.Status, doc.ChunkCount, line)
	}
	return nil
}

func runDocumentsDelete(cmd *cobra.Command, args []string) error {
	if ingestor == nil {
		return errors.New("ingestion service not configured")
	}

	if err := ingestor.Delete(cmd.Context(), documentsTenant, args[0]); err != nil {
		return err
	}
	cmd.Printf("Deleted %s\n", args[0])
	return nil
}
