package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrPatientNotFound indicates the requested patient id is absent
	// from the patient dataset. Surfaced to the caller, never retried.
	ErrPatientNotFound = errors.New("patient not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnknownTool indicates the model requested a tool name outside
	// the registered catalogue. Fatal to the current assessment: it
	// means the advertised schema and the registry have diverged.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrExhausted indicates the agent step budget ran out without a
	// final answer, even after the forced tool-free finalisation turn.
	ErrExhausted = errors.New("agent step budget exhausted")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	// Assessment cannot run without a model.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured. Evidence retrieval degrades to keyword scoring.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")
)

// MalformedOutputError indicates the agent's final text could not be
// parsed into an AssessmentResult, even after code-fence stripping and
// JSON-substring extraction. The raw text is carried for diagnosis;
// callers must surface it rather than fabricate a decision.
type MalformedOutputError struct {
	// Raw is the unparsed agent output.
	Raw string

	// Err is the underlying parse failure, if any.
	Err error
}

// Error implements the error interface.
func (e *MalformedOutputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed agent output: %v", e.Err)
	}
	return "malformed agent output"
}

// Unwrap returns the underlying parse error.
func (e *MalformedOutputError) Unwrap() error {
	return e.Err
}
