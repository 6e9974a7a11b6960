package driven

import (
	"context"

	"github.com/custodia-labs/triage-cli/internal/core/domain"
)

// AssessmentLog persists completed assessments for audit. Logging is
// best-effort from the assessor's perspective: a failed write is
// reported but does not invalidate the decision.
type AssessmentLog interface {
	// Save persists an assessment record.
	Save(ctx context.Context, record *domain.AssessmentRecord) error

	// List returns the most recent records, newest first.
	List(ctx context.Context, limit int) ([]domain.AssessmentRecord, error)

	// Close releases resources.
	Close() error
}
