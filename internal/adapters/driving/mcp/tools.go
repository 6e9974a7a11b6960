package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/triage-cli/internal/core/domain"
)

// AssessInput is the input schema for the assess_patient tool.
type AssessInput struct {
	PatientID string `json:"patient_id" jsonschema:"the identifier of the patient to assess"`
	TopK      int    `json:"top_k,omitempty" jsonschema:"number of evidence chunks to retrieve (default 8)"`
}

// AssessOutput is the output schema for the assess_patient tool.
type AssessOutput struct {
	PatientID string           `json:"patient_id"`
	Decision  string           `json:"decision"`
	Rationale string           `json:"rationale"`
	Citations []CitationOutput `json:"citations"`
	Imaging   string           `json:"imaging,omitempty"`
}

// CitationOutput is a page-attributed guideline excerpt.
type CitationOutput struct {
	Source  string `json:"source"`
	Page    *int   `json:"page"`
	Excerpt string `json:"excerpt"`
}

// SearchInput is the input schema for the search_guidelines tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the clinical query to search the guideline corpus with"`
	TopK  int    `json:"top_k,omitempty" jsonschema:"maximum number of evidence chunks to return (default 8)"`
}

// SearchOutput is the output schema for the search_guidelines tool.
type SearchOutput struct {
	Results []EvidenceOutput `json:"results"`
	Count   int              `json:"count"`
}

// EvidenceOutput is a single retrieved guideline chunk.
type EvidenceOutput struct {
	Source   string `json:"source"`
	Page     *int   `json:"page"`
	Text     string `json:"text"`
	Referral string `json:"referral,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "assess_patient",
		Description: "Assess whether a patient meets urgent referral criteria under the NG12 guideline",
	}, s.handleAssess)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_guidelines",
		Description: "Search the guideline corpus for clinical evidence",
	}, s.handleSearch)
}

// handleAssess handles the assess_patient tool invocation.
func (s *Server) handleAssess(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AssessInput,
) (*mcp.CallToolResult, AssessOutput, error) {
	result, err := s.ports.Assessment.Assess(ctx, input.PatientID, input.TopK)
	if err != nil {
		return nil, AssessOutput{}, err
	}

	output := AssessOutput{
		PatientID: result.PatientID,
		Decision:  result.Decision.Label(),
		Rationale: result.Rationale,
		Citations: make([]CitationOutput, len(result.Citations)),
		Imaging:   result.Imaging,
	}
	for i, c := range result.Citations {
		output.Citations[i] = CitationOutput{
			Source:  c.Source,
			Page:    c.Page,
			Excerpt: c.Excerpt,
		}
	}

	return nil, output, nil
}

// handleSearch handles the search_guidelines tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	chunks, err := s.ports.Evidence.Search(ctx, input.Query, input.TopK)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results: make([]EvidenceOutput, len(chunks)),
		Count:   len(chunks),
	}
	for i := range chunks {
		output.Results[i] = evidenceOutput(chunks[i])
	}

	return nil, output, nil
}

func evidenceOutput(chunk domain.EvidenceChunk) EvidenceOutput {
	return EvidenceOutput{
		Source:   chunk.Source,
		Page:     chunk.Page,
		Text:     chunk.Text,
		Referral: chunk.Referral,
	}
}
