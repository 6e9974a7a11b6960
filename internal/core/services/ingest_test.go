package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	indexmem "github.com/custodia-labs/triage-cli/internal/adapters/driven/index/memory"
	"github.com/custodia-labs/triage-cli/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/triage-cli/internal/core/domain"
)

const corpusJSON = `[
	{"text": "Refer people aged 45 and over with unexplained visible haematuria urgently.", "source": "ng12.pdf", "page": 12, "referral": "urgent"},
	{"text": "Consider non-urgent referral for persistent unexplained cough.", "source": "ng12.pdf", "page": 21, "referral": "non-urgent"},
	{"text": "   ", "source": "ng12.pdf"},
	{"id": "keep-me", "text": "Offer safety netting advice.", "source": "ng12.pdf"}
]`

func TestImportAssignsIDsAndSkipsEmpty(t *testing.T) {
	ctx := context.Background()
	store := memory.NewGuidelineStore()
	svc := NewIngestService(store, nil, nil)

	n, err := svc.Import(ctx, strings.NewReader(corpusJSON))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	chunks, err := store.AllChunks(ctx)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	for _, chunk := range chunks {
		assert.NotEmpty(t, chunk.ID)
		assert.NotEmpty(t, strings.TrimSpace(chunk.Text))
	}

	// A supplied id is kept, not regenerated.
	kept, err := store.GetChunk(ctx, "keep-me")
	require.NoError(t, err)
	assert.Equal(t, "Offer safety netting advice.", kept.Text)
}

func TestImportEmbedsAndIndexes(t *testing.T) {
	ctx := context.Background()
	store := memory.NewGuidelineStore()
	idx := indexmem.NewIndex()
	emb := newMockEmbedder(3)

	svc := NewIngestService(store, idx, emb)

	n, err := svc.Import(ctx, strings.NewReader(corpusJSON))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, idx.Len())

	chunks, err := store.AllChunks(ctx)
	require.NoError(t, err)
	for _, chunk := range chunks {
		assert.NotEmpty(t, chunk.Embedding, chunk.ID)
	}
}

func TestImportInvalidJSON(t *testing.T) {
	svc := NewIngestService(memory.NewGuidelineStore(), nil, nil)

	_, err := svc.Import(context.Background(), strings.NewReader("not json"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestImportEmptyCorpus(t *testing.T) {
	store := memory.NewGuidelineStore()
	svc := NewIngestService(store, nil, nil)

	n, err := svc.Import(context.Background(), strings.NewReader(`[{"text":"  "}]`))
	require.NoError(t, err)
	assert.Zero(t, n)

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}
