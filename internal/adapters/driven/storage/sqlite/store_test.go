package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/triage-cli/internal/core/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestGuidelineStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	guidelines := newTestStore(t).GuidelineStore()

	chunks := []domain.GuidelineChunk{
		{
			ID:        "c1",
			Source:    "ng12.pdf",
			Page:      domain.IntPtr(12),
			Referral:  "urgent",
			Text:      "Refer people aged 45 and over with unexplained visible haematuria.",
			Metadata:  map[string]any{"section": "1.6"},
			Embedding: []float32{0.25, -1.5, 3},
		},
		{
			ID:     "c2",
			Source: "ng12.pdf",
			Text:   "Consider non-urgent referral for persistent cough.",
		},
	}
	require.NoError(t, guidelines.SaveChunks(ctx, chunks))

	got, err := guidelines.GetChunk(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "ng12.pdf", got.Source)
	require.NotNil(t, got.Page)
	assert.Equal(t, 12, *got.Page)
	assert.Equal(t, "urgent", got.Referral)
	assert.Equal(t, []float32{0.25, -1.5, 3}, got.Embedding)
	assert.Equal(t, "1.6", got.Metadata["section"])

	got, err = guidelines.GetChunk(ctx, "c2")
	require.NoError(t, err)
	assert.Nil(t, got.Page)
	assert.Empty(t, got.Embedding)

	count, err := guidelines.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	all, err := guidelines.AllChunks(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestGuidelineStoreUpsert(t *testing.T) {
	ctx := context.Background()
	guidelines := newTestStore(t).GuidelineStore()

	require.NoError(t, guidelines.SaveChunks(ctx, []domain.GuidelineChunk{
		{ID: "c1", Source: "ng12.pdf", Text: "original"},
	}))
	require.NoError(t, guidelines.SaveChunks(ctx, []domain.GuidelineChunk{
		{ID: "c1", Source: "ng12.pdf", Text: "revised", Referral: "urgent"},
	}))

	got, err := guidelines.GetChunk(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "revised", got.Text)
	assert.Equal(t, "urgent", got.Referral)

	count, err := guidelines.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestGuidelineStoreNotFound(t *testing.T) {
	guidelines := newTestStore(t).GuidelineStore()

	_, err := guidelines.GetChunk(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGuidelineStoreRejectsMissingID(t *testing.T) {
	guidelines := newTestStore(t).GuidelineStore()

	err := guidelines.SaveChunks(context.Background(), []domain.GuidelineChunk{{Text: "no id"}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAssessmentLogRoundTrip(t *testing.T) {
	ctx := context.Background()
	log := newTestStore(t).AssessmentLog()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"a1", "a2", "a3"} {
		require.NoError(t, log.Save(ctx, &domain.AssessmentRecord{
			ID:        id,
			PatientID: "P001",
			Decision:  domain.DecisionUrgent,
			Rationale: "Visible haematuria aged 58.",
			Citations: []domain.Citation{
				{Source: "ng12.pdf", Page: domain.IntPtr(12), Excerpt: "Refer urgently."},
			},
			Imaging:   "urgent CT recommended",
			ModelName: "test-model",
			StepsUsed: 6,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	records, err := log.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a3", records[0].ID)
	assert.Equal(t, "a2", records[1].ID)

	rec := records[0]
	assert.Equal(t, domain.DecisionUrgent, rec.Decision)
	assert.Equal(t, "urgent CT recommended", rec.Imaging)
	assert.Equal(t, "test-model", rec.ModelName)
	assert.Equal(t, 6, rec.StepsUsed)
	require.Len(t, rec.Citations, 1)
	require.NotNil(t, rec.Citations[0].Page)
	assert.Equal(t, 12, *rec.Citations[0].Page)

	all, err := log.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.GuidelineStore().SaveChunks(ctx, []domain.GuidelineChunk{
		{ID: "c1", Source: "ng12.pdf", Text: "persisted"},
	}))
	require.NoError(t, store.Close())

	reopened, err := NewStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.GuidelineStore().GetChunk(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "persisted", got.Text)
}
