package cli

import (
	"context"
	"io"
	"time"

	"github.com/custodia-labs/triage-cli/internal/core/domain"
)

// mockAssessmentService is a canned driving.AssessmentService.
type mockAssessmentService struct {
	result  *domain.AssessmentResult
	records []domain.AssessmentRecord
	err     error
}

func (m *mockAssessmentService) Assess(_ context.Context, _ string, _ int) (*domain.AssessmentResult, error) {
	return m.result, m.err
}

func (m *mockAssessmentService) History(_ context.Context, _ int) ([]domain.AssessmentRecord, error) {
	return m.records, m.err
}

// mockEvidenceService is a canned driving.EvidenceService.
type mockEvidenceService struct {
	chunks []domain.EvidenceChunk
	err    error
}

func (m *mockEvidenceService) Search(_ context.Context, _ string, _ int) ([]domain.EvidenceChunk, error) {
	return m.chunks, m.err
}

// mockCorpusService is a canned driving.CorpusService.
type mockCorpusService struct {
	n   int
	err error
}

func (m *mockCorpusService) Import(_ context.Context, _ io.Reader) (int, error) {
	return m.n, m.err
}

// setupTestServices injects mock services into the command tree and
// returns a cleanup that restores the previous state.
func setupTestServices() func() {
	page := 12

	prevAssess := assessmentService
	prevEvidence := evidenceService
	prevCorpus := corpusService

	SetServices(
		&mockAssessmentService{
			result: &domain.AssessmentResult{
				PatientID: "P001",
				Decision:  domain.DecisionUrgent,
				Rationale: "Visible haematuria aged 58 meets the urgent referral criteria.",
				Citations: []domain.Citation{
					{Source: "ng12.pdf", Page: &page, Excerpt: "Refer adults aged 45 and over..."},
				},
				Imaging: "CT urogram with contrast",
			},
			records: []domain.AssessmentRecord{
				{
					ID:        "a1",
					PatientID: "P001",
					Decision:  domain.DecisionUrgent,
					Imaging:   "CT urogram with contrast",
					CreatedAt: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
				},
			},
		},
		&mockEvidenceService{
			chunks: []domain.EvidenceChunk{
				{
					Source:   "ng12.pdf",
					Page:     &page,
					Text:     "Refer adults aged 45 and over with unexplained visible haematuria.",
					Referral: "Urgent",
				},
			},
		},
		&mockCorpusService{n: 3},
	)

	return func() {
		SetServices(prevAssess, prevEvidence, prevCorpus)
	}
}
