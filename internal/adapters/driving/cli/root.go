// Package cli provides the command-line interface adapter for Triage.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/triage-cli/internal/core/ports/driving"
	"github.com/custodia-labs/triage-cli/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Services injected by the composition root before Execute.
var (
	assessmentService driving.AssessmentService
	evidenceService   driving.EvidenceService
	corpusService     driving.CorpusService
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "triage",
	Short: "Guideline-grounded referral triage from the command line",
	Long: `Triage assesses patients against the NICE NG12 suspected-cancer
referral guideline using an evidence-grounded agent. Every decision is
backed by page-attributed citations from the ingested guideline corpus.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

// SetServices injects the driving services. Call before Execute.
func SetServices(
	assessment driving.AssessmentService,
	evidence driving.EvidenceService,
	corpus driving.CorpusService,
) {
	assessmentService = assessment
	evidenceService = evidence
	corpusService = corpus
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

// ExecuteContext runs the root command with the given context, so
// long-running commands stop on cancellation.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
