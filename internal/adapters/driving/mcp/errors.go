// Package mcp provides an MCP (Model Context Protocol) server adapter
// for Triage. It lets AI assistants run guideline-grounded referral
// assessments and search the guideline corpus.
package mcp

import "errors"

// ErrMissingAssessmentService is returned when the assessment service is not provided.
var ErrMissingAssessmentService = errors.New("mcp: assessment service is required")

// ErrMissingEvidenceService is returned when the evidence service is not provided.
var ErrMissingEvidenceService = errors.New("mcp: evidence service is required")
