package mcp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/triage-cli/internal/core/domain"
)

// Helper to create a ReadResourceRequest with the given URI.
func readRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func TestServer_handleAssessmentsResource(t *testing.T) {
	ctx := context.Background()

	t.Run("returns recent records as JSON", func(t *testing.T) {
		mockAssess := &mockAssessmentService{
			records: []domain.AssessmentRecord{
				{
					ID:        "a1",
					PatientID: "P001",
					Decision:  domain.DecisionUrgent,
					Imaging:   "CT urogram with contrast",
					ModelName: "claude-3-5-sonnet-latest",
					CreatedAt: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
				},
			},
		}

		server := newTestServer(t, mockAssess, &mockEvidenceService{})

		result, err := server.handleAssessmentsResource(ctx, readRequest("triage://assessments"))
		require.NoError(t, err)
		require.Len(t, result.Contents, 1)

		assert.Equal(t, "triage://assessments", result.Contents[0].URI)
		assert.Equal(t, "application/json", result.Contents[0].MIMEType)
		assert.Contains(t, result.Contents[0].Text, `"patient_id": "P001"`)
		assert.Contains(t, result.Contents[0].Text, `"decision": "Urgent Referral"`)
		assert.Contains(t, result.Contents[0].Text, "2026-08-30T12:00:00Z")
	})

	t.Run("empty history yields empty list", func(t *testing.T) {
		server := newTestServer(t, &mockAssessmentService{}, &mockEvidenceService{})

		result, err := server.handleAssessmentsResource(ctx, readRequest("triage://assessments"))
		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "[]", result.Contents[0].Text)
	})

	t.Run("propagates history failure", func(t *testing.T) {
		mockAssess := &mockAssessmentService{err: errors.New("db closed")}
		server := newTestServer(t, mockAssess, &mockEvidenceService{})

		_, err := server.handleAssessmentsResource(ctx, readRequest("triage://assessments"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "db closed")
	})
}
