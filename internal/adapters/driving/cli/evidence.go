package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/triage-cli/internal/core/domain"
)

var (
	evidenceTopK int
	evidenceJSON bool
)

var evidenceCmd = &cobra.Command{
	Use:   "evidence [query]",
	Short: "Search the guideline corpus",
	Long: `Retrieves guideline evidence for a clinical query. Results are
ranked by semantic relevance with diversity-aware re-ranking, falling
back to keyword search when no embedding service is configured.`,
	Args: cobra.ExactArgs(1),
	RunE: runEvidence,
}

func init() {
	evidenceCmd.Flags().IntVarP(&evidenceTopK, "top-k", "k", 0, "maximum number of results (0 = default)")
	evidenceCmd.Flags().BoolVar(&evidenceJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(evidenceCmd)
}

func runEvidence(cmd *cobra.Command, args []string) error {
	query := args[0]

	if evidenceService == nil {
		return errors.New("evidence service not configured")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	chunks, err := evidenceService.Search(ctx, query, evidenceTopK)
	if err != nil {
		return fmt.Errorf("evidence search failed: %w", err)
	}

	if evidenceJSON {
		data, err := json.MarshalIndent(chunks, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal results: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	return outputEvidenceList(cmd, chunks)
}

func outputEvidenceList(cmd *cobra.Command, chunks []domain.EvidenceChunk) error {
	if len(chunks) == 0 {
		cmd.Println("No evidence found.")
		return nil
	}

	cmd.Println("Evidence:")
	cmd.Println()
	for i := range chunks {
		page := "?"
		if chunks[i].Page != nil {
			page = fmt.Sprintf("%d", *chunks[i].Page)
		}

		cmd.Printf("  [%d] %s p.%s", i+1, chunks[i].Source, page)
		if chunks[i].Referral != "" {
			cmd.Printf(" (%s)", chunks[i].Referral)
		}
		cmd.Println()
		cmd.Printf("      %s\n", chunks[i].Text)
		cmd.Println()
	}

	return nil
}
