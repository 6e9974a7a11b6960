package mcp

import (
	"context"

	"github.com/custodia-labs/triage-cli/internal/core/domain"
)

// mockAssessmentService is a mock implementation of driving.AssessmentService.
type mockAssessmentService struct {
	result  *domain.AssessmentResult
	records []domain.AssessmentRecord
	err     error
}

func (m *mockAssessmentService) Assess(
	_ context.Context,
	_ string,
	_ int,
) (*domain.AssessmentResult, error) {
	return m.result, m.err
}

func (m *mockAssessmentService) History(
	_ context.Context,
	_ int,
) ([]domain.AssessmentRecord, error) {
	return m.records, m.err
}

// mockEvidenceService is a mock implementation of driving.EvidenceService.
type mockEvidenceService struct {
	chunks []domain.EvidenceChunk
	err    error
}

func (m *mockEvidenceService) Search(
	_ context.Context,
	_ string,
	_ int,
) ([]domain.EvidenceChunk, error) {
	return m.chunks, m.err
}
