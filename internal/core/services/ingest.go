package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/triage-cli/internal/core/domain"
	"github.com/custodia-labs/triage-cli/internal/core/ports/driven"
	"github.com/custodia-labs/triage-cli/internal/core/ports/driving"
	"github.com/custodia-labs/triage-cli/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.CorpusService = (*IngestService)(nil)

// IngestService imports pre-chunked guideline corpus files: each chunk
// is embedded (when an embedding service is configured), persisted and
// added to the vector index. Document format parsing happens upstream;
// the input here is already-chunked JSON.
type IngestService struct {
	store      driven.GuidelineStore
	vectors    driven.VectorIndex
	embeddings driven.EmbeddingService
}

// NewIngestService creates an ingest service. The vectors and
// embeddings parameters are optional (can be nil); chunks are then
// stored for keyword retrieval only.
func NewIngestService(
	store driven.GuidelineStore,
	vectors driven.VectorIndex,
	embeddings driven.EmbeddingService,
) *IngestService {
	return &IngestService{
		store:      store,
		vectors:    vectors,
		embeddings: embeddings,
	}
}

// Import reads a JSON array of guideline chunks and ingests them.
// Chunks without ids are assigned fresh ones. Returns the number of
// chunks ingested.
func (s *IngestService) Import(ctx context.Context, r io.Reader) (int, error) {
	logger.Section("Corpus Ingestion")

	var chunks []domain.GuidelineChunk
	if err := json.NewDecoder(r).Decode(&chunks); err != nil {
		return 0, fmt.Errorf("%w: decode corpus: %v", domain.ErrInvalidInput, err)
	}

	kept := make([]domain.GuidelineChunk, 0, len(chunks))
	for _, chunk := range chunks {
		if strings.TrimSpace(chunk.Text) == "" {
			continue
		}
		if chunk.ID == "" {
			chunk.ID = uuid.NewString()
		}
		kept = append(kept, chunk)
	}
	if len(kept) == 0 {
		return 0, nil
	}
	logger.Info("Ingesting %d chunks", len(kept))

	if s.embeddings != nil {
		texts := make([]string, len(kept))
		for i := range kept {
			texts[i] = kept[i].Text
		}

		vectors, err := s.embeddings.EmbedBatch(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("embed corpus: %w", err)
		}
		if len(vectors) != len(kept) {
			return 0, fmt.Errorf("embed corpus: got %d vectors for %d chunks", len(vectors), len(kept))
		}
		for i := range kept {
			kept[i].Embedding = vectors[i]
		}
	} else {
		logger.Warn("No embedding service configured; corpus will be keyword-searchable only")
	}

	if err := s.store.SaveChunks(ctx, kept); err != nil {
		return 0, fmt.Errorf("save corpus: %w", err)
	}

	if s.vectors != nil && s.embeddings != nil {
		for i := range kept {
			if err := s.vectors.Add(ctx, kept[i].ID, kept[i].Embedding); err != nil {
				return 0, fmt.Errorf("index chunk %s: %w", kept[i].ID, err)
			}
		}
	}

	return len(kept), nil
}
