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
	assessTopK int
	assessJSON bool
)

var assessCmd = &cobra.Command{
	Use:   "assess [patient-id]",
	Short: "Assess a patient against the referral guideline",
	Long: `Runs the full agentic assessment for one patient: symptoms are
normalised, guideline evidence is retrieved and the referral decision is
returned with page-attributed citations.`,
	Args: cobra.ExactArgs(1),
	RunE: runAssess,
}

func init() {
	assessCmd.Flags().IntVarP(&assessTopK, "top-k", "k", 0, "number of evidence chunks to retrieve (0 = default)")
	assessCmd.Flags().BoolVar(&assessJSON, "json", false, "output the decision as JSON")
	rootCmd.AddCommand(assessCmd)
}

func runAssess(cmd *cobra.Command, args []string) error {
	patientID := args[0]

	if assessmentService == nil {
		return errors.New("assessment service not configured")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	result, err := assessmentService.Assess(ctx, patientID, assessTopK)
	if err != nil {
		var malformed *domain.MalformedOutputError
		if errors.As(err, &malformed) {
			return fmt.Errorf("assessment produced no valid decision: %w", err)
		}
		return fmt.Errorf("assessment failed: %w", err)
	}

	if assessJSON {
		return outputAssessJSON(cmd, result)
	}

	return outputAssessText(cmd, result)
}

func outputAssessJSON(cmd *cobra.Command, result *domain.AssessmentResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputAssessText(cmd *cobra.Command, result *domain.AssessmentResult) error {
	cmd.Printf("Patient:  %s\n", result.PatientID)
	cmd.Printf("Decision: %s\n", result.Decision.Label())
	if result.Imaging != "" {
		cmd.Printf("Imaging:  %s\n", result.Imaging)
	}
	cmd.Println()
	cmd.Println(result.Rationale)

	if len(result.Citations) == 0 {
		return nil
	}

	cmd.Println()
	cmd.Println("Citations:")
	for i, c := range result.Citations {
		page := "?"
		if c.Page != nil {
			page = fmt.Sprintf("%d", *c.Page)
		}
		cmd.Printf("  [%d] %s p.%s: %s\n", i+1, c.Source, page, c.Excerpt)
	}

	return nil
}
