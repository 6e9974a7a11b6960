package driven

import (
	"context"

	"github.com/custodia-labs/triage-cli/internal/core/domain"
)

// PatientStore provides keyed lookup of patient records from the static
// patient dataset. The dataset is loaded once at startup and never
// rewritten by the core.
type PatientStore interface {
	// Get returns the patient record for the given id.
	// Returns domain.ErrPatientNotFound if the id is absent.
	Get(ctx context.Context, patientID string) (*domain.PatientRecord, error)

	// Count returns the number of loaded patient records.
	Count() int
}
