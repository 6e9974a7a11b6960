// Package memory provides in-memory implementations of the driven
// store ports for testing.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/triage-cli/internal/core/domain"
	"github.com/custodia-labs/triage-cli/internal/core/ports/driven"
)

// Ensure GuidelineStore implements the interface.
var _ driven.GuidelineStore = (*GuidelineStore)(nil)

// GuidelineStore is an in-memory implementation of driven.GuidelineStore.
type GuidelineStore struct {
	mu     sync.RWMutex
	chunks map[string]domain.GuidelineChunk
	order  []string
}

// NewGuidelineStore creates a new in-memory guideline store.
func NewGuidelineStore() *GuidelineStore {
	return &GuidelineStore{
		chunks: make(map[string]domain.GuidelineChunk),
	}
}

// SaveChunks inserts or replaces corpus chunks.
func (s *GuidelineStore) SaveChunks(_ context.Context, chunks []domain.GuidelineChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, chunk := range chunks {
		if chunk.ID == "" {
			return fmt.Errorf("%w: chunk id is required", domain.ErrInvalidInput)
		}
		if _, exists := s.chunks[chunk.ID]; !exists {
			s.order = append(s.order, chunk.ID)
		}
		s.chunks[chunk.ID] = chunk
	}
	return nil
}

// GetChunk returns a chunk by id.
func (s *GuidelineStore) GetChunk(_ context.Context, chunkID string) (*domain.GuidelineChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chunk, ok := s.chunks[chunkID]
	if !ok {
		return nil, fmt.Errorf("chunk %s: %w", chunkID, domain.ErrNotFound)
	}
	return &chunk, nil
}

// AllChunks returns every stored chunk in insertion order.
func (s *GuidelineStore) AllChunks(_ context.Context) ([]domain.GuidelineChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]domain.GuidelineChunk, 0, len(s.order))
	for _, id := range s.order {
		all = append(all, s.chunks[id])
	}
	return all, nil
}

// Count returns the number of stored chunks.
func (s *GuidelineStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks), nil
}

// Close releases resources.
func (s *GuidelineStore) Close() error {
	return nil
}
