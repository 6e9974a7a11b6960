package driving

import (
	"context"

	"github.com/custodia-labs/triage-cli/internal/core/domain"
)

// EvidenceService retrieves guideline evidence for a query.
type EvidenceService interface {
	// Search returns up to topK evidence chunks for the query, ranked
	// by relevance with diversity-aware re-ranking. An empty result is
	// not an error.
	Search(ctx context.Context, query string, topK int) ([]domain.EvidenceChunk, error)
}
