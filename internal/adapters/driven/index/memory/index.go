// Package memory provides an in-memory brute-force implementation of
// the vector index port. Guideline corpora are small (hundreds to low
// thousands of chunks), so exact cosine scan is fast enough and avoids
// an approximate-nearest-neighbour dependency.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/triage-cli/internal/core/domain"
	"github.com/custodia-labs/triage-cli/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Index is an exact cosine-similarity vector index.
type Index struct {
	mu      sync.RWMutex
	vectors map[string][]float32
	order   []string
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{
		vectors: make(map[string][]float32),
	}
}

// BuildFromStore creates an index pre-loaded with every embedded chunk
// in the guideline store. Chunks without embeddings are skipped.
func BuildFromStore(ctx context.Context, store driven.GuidelineStore) (*Index, error) {
	idx := NewIndex()

	chunks, err := store.AllChunks(ctx)
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}
	for _, chunk := range chunks {
		if len(chunk.Embedding) == 0 {
			continue
		}
		if err := idx.Add(ctx, chunk.ID, chunk.Embedding); err != nil {
			return nil, err
		}
	}
	return idx, nil
}

// Add inserts a vector for the given chunk ID.
func (idx *Index) Add(_ context.Context, chunkID string, embedding []float32) error {
	if chunkID == "" {
		return fmt.Errorf("%w: chunk id is required", domain.ErrInvalidInput)
	}
	if len(embedding) == 0 {
		return fmt.Errorf("%w: empty embedding for chunk %s", domain.ErrInvalidInput, chunkID)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	vec := make([]float32, len(embedding))
	copy(vec, embedding)
	if _, exists := idx.vectors[chunkID]; !exists {
		idx.order = append(idx.order, chunkID)
	}
	idx.vectors[chunkID] = vec
	return nil
}

// Search finds the k nearest neighbours to the query vector by exact
// cosine scan. Hits carry their stored vectors for re-ranking.
func (idx *Index) Search(_ context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	if k <= 0 || len(query) == 0 {
		return nil, nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	hits := make([]driven.VectorHit, 0, len(idx.order))
	for _, id := range idx.order {
		vec := idx.vectors[id]
		hits = append(hits, driven.VectorHit{
			ChunkID:    id,
			Similarity: cosine(query, vec),
			Vector:     vec,
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Similarity > hits[j].Similarity
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Len returns the number of indexed vectors.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.vectors)
}

// Close releases resources.
func (idx *Index) Close() error {
	return nil
}

// cosine computes cosine similarity, 0 for mismatched or zero vectors.
func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
