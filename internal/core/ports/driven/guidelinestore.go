package driven

import (
	"context"

	"github.com/custodia-labs/triage-cli/internal/core/domain"
)

// GuidelineStore persists the chunked guideline corpus. Ingestion is
// the only writer; assessment-time access is read-only and safe for
// concurrent use.
type GuidelineStore interface {
	// SaveChunks inserts or replaces corpus chunks.
	SaveChunks(ctx context.Context, chunks []domain.GuidelineChunk) error

	// GetChunk returns a chunk by id.
	// Returns domain.ErrNotFound if the id is absent.
	GetChunk(ctx context.Context, chunkID string) (*domain.GuidelineChunk, error)

	// AllChunks returns every stored chunk in insertion order.
	AllChunks(ctx context.Context) ([]domain.GuidelineChunk, error)

	// Count returns the number of stored chunks.
	Count(ctx context.Context) (int, error)

	// Close releases resources.
	Close() error
}
