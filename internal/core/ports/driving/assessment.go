package driving

import (
	"context"

	"github.com/custodia-labs/triage-cli/internal/core/domain"
)

// AssessmentService assesses whether a patient meets urgent-referral
// criteria against the guideline corpus.
type AssessmentService interface {
	// Assess runs the full agentic assessment for one patient.
	// topK bounds evidence retrieval; values <= 0 use the default.
	// Returns domain.ErrPatientNotFound, domain.ErrExhausted or a
	// *domain.MalformedOutputError on failure; no failure is retried.
	Assess(ctx context.Context, patientID string, topK int) (*domain.AssessmentResult, error)

	// History returns past assessments, newest first. limit <= 0 means
	// no limit. Returns an empty slice when no audit log is configured.
	History(ctx context.Context, limit int) ([]domain.AssessmentRecord, error)
}
