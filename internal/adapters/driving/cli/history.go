package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past assessments",
	Long:  `Lists the audit trail of completed assessments, newest first.`,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum number of records (0 = all)")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	if assessmentService == nil {
		return errors.New("assessment service not configured")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	records, err := assessmentService.History(ctx, historyLimit)
	if err != nil {
		return fmt.Errorf("listing history failed: %w", err)
	}

	if len(records) == 0 {
		cmd.Println("No assessments recorded.")
		return nil
	}

	cmd.Println("Assessments:")
	cmd.Println()
	for i := range records {
		cmd.Printf("  %s  %-8s  %s\n",
			records[i].CreatedAt.Format("2006-01-02 15:04"),
			records[i].PatientID,
			records[i].Decision.Label())
		if records[i].Imaging != "" {
			cmd.Printf("    Imaging: %s\n", records[i].Imaging)
		}
	}

	return nil
}
