package mcp

import (
	"github.com/custodia-labs/triage-cli/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Assessment runs referral assessments and serves the audit trail.
	Assessment driving.AssessmentService

	// Evidence searches the guideline corpus.
	Evidence driving.EvidenceService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Assessment == nil {
		return ErrMissingAssessmentService
	}
	if p.Evidence == nil {
		return ErrMissingEvidenceService
	}
	return nil
}
