package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/triage-cli/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/triage-cli/internal/core/domain"
	"github.com/custodia-labs/triage-cli/internal/core/ports/driven"
)

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "json fence",
			in:   "```json\n{\"a\":1}\n```",
			want: `{"a":1}`,
		},
		{
			name: "bare fence",
			in:   "```\n{\"a\":1}\n```",
			want: `{"a":1}`,
		},
		{
			name: "no closing fence",
			in:   "```json\n{\"a\":1}",
			want: `{"a":1}`,
		},
		{
			name: "no fence at all",
			in:   `{"a":1}`,
			want: `{"a":1}`,
		},
		{
			name: "surrounding whitespace",
			in:   "  ```json\n{\"a\":1}\n```  ",
			want: `{"a":1}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripCodeFences(tt.in))
		})
	}
}

func TestExtractJSONObject(t *testing.T) {
	obj, ok := ExtractJSONObject(`Here is the result: {"decision":"Urgent Referral"} hope that helps`)
	require.True(t, ok)
	assert.Equal(t, `{"decision":"Urgent Referral"}`, obj)

	// Braces inside string values don't unbalance the scan.
	obj, ok = ExtractJSONObject(`{"rationale":"matches {NG12} rule","x":{"y":1}}`)
	require.True(t, ok)
	assert.Equal(t, `{"rationale":"matches {NG12} rule","x":{"y":1}}`, obj)

	// Escaped quotes inside strings are honoured.
	obj, ok = ExtractJSONObject(`{"a":"quote \" and } brace"}`)
	require.True(t, ok)
	assert.Equal(t, `{"a":"quote \" and } brace"}`, obj)

	_, ok = ExtractJSONObject("no json here")
	assert.False(t, ok)

	_, ok = ExtractJSONObject(`{"unclosed": true`)
	assert.False(t, ok)
}

func newAssessor(t *testing.T, llm driven.LLMService) (*Assessor, *memory.PatientStore, *memory.AssessmentLog) {
	t.Helper()
	registry, patients := newTestRegistry(t)
	orch := NewAgentOrchestrator(llm, registry, nil)
	audit := memory.NewAssessmentLog()
	return NewAssessor(orch, registry, nil, audit), patients, audit
}

func finalAnswer(text string) driven.ToolChatResponse {
	return driven.ToolChatResponse{Text: text}
}

func TestAssessEmptyPatientID(t *testing.T) {
	assessor, _, _ := newAssessor(t, &mockLLM{})

	_, err := assessor.Assess(context.Background(), "   ", 8)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAssessHappyPath(t *testing.T) {
	answer := `{"patient_id":"P001","decision":"Urgent Referral","rationale":"Visible haematuria aged 58.","citations":[{"source":"ng12.pdf","page":12,"excerpt":"Refer urgently."}],"imaging":"urgent CT recommended"}`
	llm := &mockLLM{script: []driven.ToolChatResponse{finalAnswer("```json\n" + answer + "\n```")}}
	assessor, _, audit := newAssessor(t, llm)

	result, err := assessor.Assess(context.Background(), "P001", 8)
	require.NoError(t, err)
	assert.Equal(t, "P001", result.PatientID)
	assert.Equal(t, domain.DecisionUrgent, result.Decision)
	assert.Equal(t, "urgent CT recommended", result.Imaging)
	require.Len(t, result.Citations, 1)
	require.NotNil(t, result.Citations[0].Page)
	assert.Equal(t, 12, *result.Citations[0].Page)

	// The audit record was written alongside.
	records, err := audit.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "P001", records[0].PatientID)
	assert.Equal(t, domain.DecisionUrgent, records[0].Decision)
	assert.Equal(t, "mock-llm", records[0].ModelName)
	assert.NotEmpty(t, records[0].ID)
	assert.False(t, records[0].CreatedAt.IsZero())
}

func TestAssessRecordsStepsConsumed(t *testing.T) {
	answer := `{"patient_id":"P001","decision":"Not Met / Insufficient Evidence","rationale":"No matching criteria.","citations":[]}`
	llm := &mockLLM{script: []driven.ToolChatResponse{
		{ToolCalls: []driven.ToolCall{{ID: "c1", Name: "normalize_symptoms", Arguments: map[string]any{"symptoms": []any{"tiredness"}}}}},
		finalAnswer(answer),
	}}
	assessor, _, audit := newAssessor(t, llm)

	_, err := assessor.Assess(context.Background(), "P001", 8)
	require.NoError(t, err)

	// The record carries the turns actually consumed, not the
	// configured maximum.
	records, err := audit.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 2, records[0].StepsUsed)
}

func TestAssessFillsMissingPatientID(t *testing.T) {
	answer := `{"decision":"Not Met / Insufficient Evidence","rationale":"No matching guidance retrieved.","citations":[]}`
	llm := &mockLLM{script: []driven.ToolChatResponse{finalAnswer(answer)}}
	assessor, _, _ := newAssessor(t, llm)

	result, err := assessor.Assess(context.Background(), "P002", 0)
	require.NoError(t, err)
	assert.Equal(t, "P002", result.PatientID)
	assert.Equal(t, domain.DecisionInsufficient, result.Decision)
}

func TestAssessMalformedOutputCarriesRaw(t *testing.T) {
	llm := &mockLLM{script: []driven.ToolChatResponse{finalAnswer("I could not decide, sorry.")}}
	assessor, _, audit := newAssessor(t, llm)

	_, err := assessor.Assess(context.Background(), "P001", 8)
	require.Error(t, err)

	var malformed *domain.MalformedOutputError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, "I could not decide, sorry.", malformed.Raw)

	// Nothing is audited for a failed parse.
	records, err := audit.List(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestHistoryReturnsAuditTrail(t *testing.T) {
	answer := `{"patient_id":"P001","decision":"Urgent Referral","rationale":"Visible haematuria.","citations":[{"source":"ng12.pdf","page":12,"excerpt":"Refer urgently."}]}`
	llm := &mockLLM{script: []driven.ToolChatResponse{finalAnswer(answer)}}
	assessor, _, _ := newAssessor(t, llm)

	_, err := assessor.Assess(context.Background(), "P001", 8)
	require.NoError(t, err)

	records, err := assessor.History(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "P001", records[0].PatientID)
}

func TestHistoryWithoutAuditLog(t *testing.T) {
	registry, _ := newTestRegistry(t)
	assessor := NewAssessor(NewAgentOrchestrator(&mockLLM{}, registry, nil), registry, nil, nil)

	records, err := assessor.History(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestAssessRejectsUnrecognisedDecision(t *testing.T) {
	answer := `{"patient_id":"P001","decision":"","rationale":"x","citations":[]}`
	llm := &mockLLM{script: []driven.ToolChatResponse{finalAnswer(answer)}}
	assessor, _, _ := newAssessor(t, llm)

	_, err := assessor.Assess(context.Background(), "P001", 8)
	var malformed *domain.MalformedOutputError
	require.True(t, errors.As(err, &malformed))
}

func TestAssessRejectsUngroundedReferral(t *testing.T) {
	// A referral decision with zero citations is refused outright.
	answer := `{"patient_id":"P001","decision":"Urgent Referral","rationale":"Trust me.","citations":[]}`
	llm := &mockLLM{script: []driven.ToolChatResponse{finalAnswer(answer)}}
	assessor, _, _ := newAssessor(t, llm)

	_, err := assessor.Assess(context.Background(), "P001", 8)
	var malformed *domain.MalformedOutputError
	require.True(t, errors.As(err, &malformed))
	assert.Contains(t, malformed.Err.Error(), "no citations")
}

// TestAssessEndToEndNonUrgent drives the whole pipeline with a scripted
// model that follows the tool protocol: fetch the patient, retrieve
// evidence, evaluate it, then answer with citations drawn from the
// corpus it actually saw.
func TestAssessEndToEndNonUrgent(t *testing.T) {
	registry, patients := newTestRegistry(t)
	patients.Put(domain.PatientRecord{
		PatientID: "P010",
		Name:      "Ash Reed",
		Age:       domain.IntPtr(41),
		Symptoms:  []string{"persistent cough"},
	})

	// Re-point the registry's evidence service at a populated corpus.
	store := memory.NewGuidelineStore()
	require.NoError(t, store.SaveChunks(context.Background(), []domain.GuidelineChunk{
		{ID: "g1", Source: "ng12.pdf", Page: domain.IntPtr(21), Text: "Consider non-urgent chest review for persistent cough.", Referral: "non-urgent"},
	}))
	registry.evidence = NewEvidenceService(store, nil, nil)

	llm := &mockLLM{script: []driven.ToolChatResponse{
		{ToolCalls: []driven.ToolCall{{ID: "c1", Name: "get_patient", Arguments: map[string]any{"patient_id": "P010"}}}},
		{ToolCalls: []driven.ToolCall{{ID: "c2", Name: "retrieve_guideline_evidence", Arguments: map[string]any{"query": "persistent cough", "top_k": float64(4)}}}},
		{ToolCalls: []driven.ToolCall{{ID: "c3", Name: "evaluate_referral_criteria", Arguments: map[string]any{
			"evidence": []any{map[string]any{"source": "ng12.pdf", "page": float64(21), "excerpt": "Consider non-urgent chest review for persistent cough.", "referral": "non-urgent"}},
		}}}},
		finalAnswer(`{"patient_id":"P010","decision":"Non-urgent Referral","rationale":"Persistent cough without urgent markers.","citations":[{"source":"ng12.pdf","page":21,"excerpt":"Consider non-urgent chest review for persistent cough."}]}`),
	}}

	orch := NewAgentOrchestrator(llm, registry, nil)
	audit := memory.NewAssessmentLog()
	assessor := NewAssessor(orch, registry, nil, audit)

	result, err := assessor.Assess(context.Background(), "P010", 4)
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionNonUrgent, result.Decision)
	require.Len(t, result.Citations, 1)
	assert.Equal(t, "ng12.pdf", result.Citations[0].Source)
	require.NotNil(t, result.Citations[0].Page)
	assert.Equal(t, 21, *result.Citations[0].Page)

	// The evidence tool's outcome carried the corpus text back to the
	// model with its inferred source and page intact.
	var sawEvidence bool
	for _, turns := range llm.turnHistory {
		for _, turn := range turns {
			for _, outcome := range turn.ToolOutcomes {
				if outcome.Name == "retrieve_guideline_evidence" {
					sawEvidence = true
					assert.Contains(t, outcome.Content, "ng12.pdf")
					assert.Contains(t, outcome.Content, "persistent cough")
				}
				if outcome.Name == "evaluate_referral_criteria" {
					assert.Contains(t, outcome.Content, "Non-urgent Referral")
				}
			}
		}
	}
	assert.True(t, sawEvidence)
}
