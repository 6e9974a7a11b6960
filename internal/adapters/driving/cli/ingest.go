package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [corpus-file]",
	Short: "Import a guideline corpus file",
	Long: `Imports a pre-chunked guideline corpus from a JSON file. Each chunk
is embedded (when an embedding service is configured), persisted and
added to the vector index.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	path := args[0]

	if corpusService == nil {
		return errors.New("corpus service not configured")
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open corpus file: %w", err)
	}
	defer f.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	n, err := corpusService.Import(ctx, f)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	cmd.Printf("Ingested %d chunks from %s\n", n, path)
	return nil
}
