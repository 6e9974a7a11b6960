package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/custodia-labs/triage-cli/internal/core/domain"
	"github.com/custodia-labs/triage-cli/internal/core/ports/driven"
	"github.com/custodia-labs/triage-cli/internal/core/ports/driving"
	"github.com/custodia-labs/triage-cli/internal/logger"
)

// Ensure EvidenceService implements the interface.
var _ driving.EvidenceService = (*EvidenceService)(nil)

// Retrieval tuning defaults.
const (
	// DefaultFetchK is the nearest-neighbour fetch window re-ranked by
	// MMR, independent of the requested top_k.
	DefaultFetchK = 50

	// DefaultLambdaMult is the MMR relevance/diversity trade-off.
	DefaultLambdaMult = 0.6

	// MaxTopK is the upper clamp on requested result counts.
	MaxTopK = 20
)

// querySynonyms appends known clinical/lay variants to queries to
// improve recall against guideline prose. The original query's terms
// are never altered, only extended.
var querySynonyms = map[string][]string{
	"haematuria":          {"hematuria", "blood in urine"},
	"blood in urine":      {"visible haematuria"},
	"shortness of breath": {"breathlessness", "dyspnoea"},
	"coughing up blood":   {"haemoptysis"},
	"haemoptysis":         {"hemoptysis", "coughing up blood"},
	"difficulty swallowing": {"dysphagia"},
	"dysphagia":           {"difficulty swallowing"},
	"weight loss":         {"unexplained weight loss"},
	"tiredness":           {"fatigue"},
	"bruising":            {"petechiae"},
	"ex-smoker":           {"former smoker", "smoking history"},
	"anaemia":             {"anemia", "low haemoglobin"},
}

// EvidenceService retrieves guideline evidence chunks for a query.
//
// With an embedding service configured it performs nearest-neighbour
// retrieval over a fixed fetch window and re-ranks it with maximal-
// marginal-relevance so near-duplicate chunks don't dominate the
// results. Without embeddings it degrades to keyword-overlap scoring
// over the stored corpus.
type EvidenceService struct {
	store      driven.GuidelineStore
	vectors    driven.VectorIndex
	embeddings driven.EmbeddingService

	fetchK     int
	lambdaMult float64
}

// NewEvidenceService creates an evidence service. The vectors and
// embeddings parameters are optional (can be nil); retrieval then runs
// keyword-only.
func NewEvidenceService(
	store driven.GuidelineStore,
	vectors driven.VectorIndex,
	embeddings driven.EmbeddingService,
) *EvidenceService {
	return &EvidenceService{
		store:      store,
		vectors:    vectors,
		embeddings: embeddings,
		fetchK:     DefaultFetchK,
		lambdaMult: DefaultLambdaMult,
	}
}

// Search returns up to topK evidence chunks for the query. topK is
// clamped to [1, MaxTopK]. An empty or signal-free query returns an
// empty result, never an error.
func (s *EvidenceService) Search(ctx context.Context, query string, topK int) ([]domain.EvidenceChunk, error) {
	logger.Section("Evidence Retrieval")

	query = strings.TrimSpace(query)
	if query == "" {
		logger.Debug("Empty query, returning no results")
		return []domain.EvidenceChunk{}, nil
	}

	if topK < 1 {
		topK = 1
	}
	if topK > MaxTopK {
		topK = MaxTopK
	}

	expanded := ExpandQuery(query)
	if expanded != query {
		logger.Debug("Query expanded: %q", expanded)
	}

	var (
		chunks []domain.GuidelineChunk
		err    error
	)
	if s.vectors != nil && s.embeddings != nil {
		logger.Debug("Executing vector search with MMR re-ranking")
		chunks, err = s.vectorSearch(ctx, expanded, topK)
	} else {
		logger.Debug("Embeddings unavailable, executing keyword search")
		chunks, err = s.keywordSearch(ctx, expanded, topK)
	}
	if err != nil {
		return nil, fmt.Errorf("evidence search: %w", err)
	}

	logger.Info("Retrieved %d evidence chunks", len(chunks))

	results := make([]domain.EvidenceChunk, len(chunks))
	for i, chunk := range chunks {
		results[i] = domain.EvidenceChunk{
			Text:     chunk.Text,
			Source:   chunk.Source,
			Page:     chunk.Page,
			Referral: chunk.Referral,
			Metadata: chunk.Metadata,
		}
	}
	return results, nil
}

// ExpandQuery appends synonym/spelling variants for known clinical
// terms found in the query. The original query always comes first.
func ExpandQuery(query string) string {
	lower := strings.ToLower(query)
	var extra []string
	seen := make(map[string]bool)

	for term, variants := range querySynonyms {
		if !strings.Contains(lower, term) {
			continue
		}
		for _, v := range variants {
			if !strings.Contains(lower, v) && !seen[v] {
				extra = append(extra, v)
				seen[v] = true
			}
		}
	}

	if len(extra) == 0 {
		return query
	}
	sort.Strings(extra) // deterministic expansion order
	return query + " " + strings.Join(extra, " ")
}

// vectorSearch embeds the query, fetches the MMR window from the vector
// index and selects topK diverse results.
func (s *EvidenceService) vectorSearch(ctx context.Context, query string, topK int) ([]domain.GuidelineChunk, error) {
	queryVec, err := s.embeddings.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := s.vectors.Search(ctx, queryVec, s.fetchK)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	logger.Debug("Fetch window: %d candidates", len(hits))
	if len(hits) == 0 {
		return nil, nil
	}

	selected := maximalMarginalRelevance(queryVec, hits, s.lambdaMult, topK)
	logger.Debug("MMR selected %d of %d candidates", len(selected), len(hits))

	chunks := make([]domain.GuidelineChunk, 0, len(selected))
	for _, hit := range selected {
		chunk, err := s.store.GetChunk(ctx, hit.ChunkID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("get chunk %s: %w", hit.ChunkID, err)
		}
		chunks = append(chunks, *chunk)
	}
	return chunks, nil
}

// keywordSearch scores corpus chunks by query-term overlap. It is the
// degraded mode when no embedding service is configured.
func (s *EvidenceService) keywordSearch(ctx context.Context, query string, topK int) ([]domain.GuidelineChunk, error) {
	all, err := s.store.AllChunks(ctx)
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}

	terms := queryTerms(query)
	if len(terms) == 0 {
		return nil, nil
	}

	type scored struct {
		chunk domain.GuidelineChunk
		score float64
	}
	var matches []scored
	for _, chunk := range all {
		text := strings.ToLower(chunk.Text)
		var score float64
		for _, term := range terms {
			if strings.Contains(text, term) {
				score++
			}
		}
		if score > 0 {
			matches = append(matches, scored{chunk: chunk, score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})

	if len(matches) > topK {
		matches = matches[:topK]
	}
	chunks := make([]domain.GuidelineChunk, len(matches))
	for i, m := range matches {
		chunks[i] = m.chunk
	}
	return chunks, nil
}

// queryTerms tokenises a query into lowercase terms, dropping very
// short tokens that carry no lexical signal.
func queryTerms(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,;:()[]\"'")
		if len(f) >= 3 {
			terms = append(terms, f)
		}
	}
	return terms
}

// maximalMarginalRelevance greedily selects k hits balancing query
// relevance against dissimilarity from already-selected hits.
// score = lambda*sim(query, c) - (1-lambda)*max sim(c, selected).
func maximalMarginalRelevance(queryVec []float32, hits []driven.VectorHit, lambda float64, k int) []driven.VectorHit {
	if k >= len(hits) {
		k = len(hits)
	}

	selected := make([]driven.VectorHit, 0, k)
	remaining := make([]driven.VectorHit, len(hits))
	copy(remaining, hits)

	for len(selected) < k && len(remaining) > 0 {
		bestIdx := -1
		bestScore := math.Inf(-1)

		for i, cand := range remaining {
			relevance := cosineSimilarity(queryVec, cand.Vector)

			redundancy := 0.0
			for _, sel := range selected {
				if sim := cosineSimilarity(cand.Vector, sel.Vector); sim > redundancy {
					redundancy = sim
				}
			}

			score := lambda*relevance - (1-lambda)*redundancy
			if score > bestScore {
				bestScore = score
				bestIdx = i
			}
		}

		selected = append(selected, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}

	return selected
}

// cosineSimilarity computes the cosine similarity of two vectors.
// Returns 0 for mismatched or zero-magnitude vectors.
func cosineSimilarity(a, b []float32) float64 {
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
