package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// uriScheme is the custom URI scheme for Triage resources.
const uriScheme = "triage://"

// assessmentResourceLimit caps how many audit records the resource
// exposes in one read.
const assessmentResourceLimit = 50

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "assessments",
		Name:        "assessments",
		Description: "Audit trail of completed referral assessments, newest first",
		MIMEType:    "application/json",
	}, s.handleAssessmentsResource)
}

// handleAssessmentsResource returns the recent assessment audit trail.
func (s *Server) handleAssessmentsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	records, err := s.ports.Assessment.History(ctx, assessmentResourceLimit)
	if err != nil {
		return nil, fmt.Errorf("listing assessments: %w", err)
	}

	// Build simplified record list.
	type recordInfo struct {
		ID        string `json:"id"`
		PatientID string `json:"patient_id"`
		Decision  string `json:"decision"`
		Imaging   string `json:"imaging,omitempty"`
		Model     string `json:"model"`
		CreatedAt string `json:"created_at"`
	}

	infos := make([]recordInfo, len(records))
	for i := range records {
		infos[i] = recordInfo{
			ID:        records[i].ID,
			PatientID: records[i].PatientID,
			Decision:  records[i].Decision.Label(),
			Imaging:   records[i].Imaging,
			Model:     records[i].ModelName,
			CreatedAt: records[i].CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
	}

	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling assessments: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
