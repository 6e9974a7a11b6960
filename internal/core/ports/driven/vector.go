package driven

import "context"

// VectorIndex provides semantic similarity search operations over the
// guideline corpus embeddings. Concurrent reads are safe; writes only
// happen during ingestion.
type VectorIndex interface {
	// Add inserts a vector for the given chunk ID.
	Add(ctx context.Context, chunkID string, embedding []float32) error

	// Search finds the k nearest neighbours to the query vector.
	// Hits carry their stored vectors so callers can re-rank the fetch
	// window (e.g. maximal-marginal-relevance) without a second lookup.
	Search(ctx context.Context, query []float32, k int) ([]VectorHit, error)

	// Close releases resources.
	Close() error
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// Similarity is the cosine similarity score (0-1).
	Similarity float64

	// Vector is the stored embedding for the matched chunk.
	Vector []float32
}
