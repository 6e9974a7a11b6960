package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/triage-cli/internal/core/domain"
	"github.com/custodia-labs/triage-cli/internal/core/ports/driven"
	"github.com/custodia-labs/triage-cli/internal/core/ports/driving"
	"github.com/custodia-labs/triage-cli/internal/logger"
)

// Ensure Assessor implements the interface.
var _ driving.AssessmentService = (*Assessor)(nil)

// DefaultTopK is the evidence retrieval bound when the caller does not
// specify one.
const DefaultTopK = 8

// defaultAssessorSystemPrompt constrains the model to evidence-grounded
// clinical decision-making. Used when no PromptStore is configured.
const defaultAssessorSystemPrompt = `You are a precise clinical AI assistant providing decision support for direct patient care.
Your task is to determine whether the presented patient requires an urgent referral, grounding every
clinical claim in the guideline corpus: the National Institute for Health and Care Excellence (NICE)
guideline for suspected cancer recognition and referral (NG12).

Rules:
- Do not make up information. Verify every answer with retrieved evidence.
- Every clinical claim in your rationale must be supported by at least one citation excerpt.
- Citations are objects of the form {source, page, excerpt}.
- If the patient does not meet urgent referral criteria, do not recommend any medical imaging.`

// defaultAssessorUserPrompt is the structured multi-step instruction.
// Placeholders: %s patient id, %d top_k.
const defaultAssessorUserPrompt = `Assess the patient with patient_id=%q against the guideline corpus.

Step 1: Call get_patient with that patient_id.
Step 2: Call normalize_symptoms with the returned symptoms.
Step 3: Call build_retrieval_query with the normalized symptoms plus the patient's age,
smoking_history and symptom_duration_days.
Step 4: Call retrieve_guideline_evidence with that query and top_k=%d.
Step 5: Call evaluate_referral_criteria with the retrieved evidence records.
Step 6: Call recommend_imaging with the decision and the evidence records.
Step 7: Call extract_citations with the evidence records.
Step 8: Return JSON ONLY with keys: patient_id, decision, rationale, citations, imaging.
- decision is one of "Urgent Referral", "Non-urgent Referral", "Not Met / Insufficient Evidence".
- citations is a list of {source, page, excerpt} objects; every clinical claim in rationale must be
  supported by at least one of them.
- If evidence is insufficient, say so and choose "Not Met / Insufficient Evidence".

Return JSON only, no markdown.`

// Assessor composes the agent loop, the tool registry and the audit
// log into the single use case "assess patient X".
type Assessor struct {
	orchestrator *AgentOrchestrator
	registry     *ToolRegistry
	prompts      driven.PromptStore
	auditLog     driven.AssessmentLog

	maxSteps   int
	defaultTop int
}

// NewAssessor creates an assessor. The prompts store and audit log are
// optional (can be nil).
func NewAssessor(
	orchestrator *AgentOrchestrator,
	registry *ToolRegistry,
	prompts driven.PromptStore,
	auditLog driven.AssessmentLog,
) *Assessor {
	return &Assessor{
		orchestrator: orchestrator,
		registry:     registry,
		prompts:      prompts,
		auditLog:     auditLog,
		maxSteps:     DefaultMaxSteps,
		defaultTop:   DefaultTopK,
	}
}

// SetMaxSteps overrides the agent step budget. Values <= 0 are ignored.
func (a *Assessor) SetMaxSteps(n int) {
	if n > 0 {
		a.maxSteps = n
	}
}

// SetDefaultTopK overrides the default evidence retrieval bound.
// Values <= 0 are ignored.
func (a *Assessor) SetDefaultTopK(n int) {
	if n > 0 {
		a.defaultTop = n
	}
}

// Assess runs the full agentic assessment for one patient and parses
// the model's final text into a structured decision.
func (a *Assessor) Assess(ctx context.Context, patientID string, topK int) (*domain.AssessmentResult, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return nil, fmt.Errorf("%w: patient id is required", domain.ErrInvalidInput)
	}
	if topK <= 0 {
		topK = a.defaultTop
	}
	if topK > MaxTopK {
		topK = MaxTopK
	}

	logger.Section("Assessment")
	logger.Info("Assessing patient %s (top_k=%d)", patientID, topK)

	systemPrompt := a.loadPrompt(driven.PromptAssessorSystem, defaultAssessorSystemPrompt)
	userPrompt := fmt.Sprintf(a.loadPrompt(driven.PromptAssessorUser, defaultAssessorUserPrompt), patientID, topK)

	raw, steps, err := a.orchestrator.Run(ctx, systemPrompt, userPrompt, a.registry.Names(), a.maxSteps)
	if err != nil {
		return nil, err
	}

	result, err := a.parseResult(raw, patientID)
	if err != nil {
		return nil, err
	}

	logger.Info("Decision for %s: %s (%d steps)", patientID, result.Decision, steps)
	a.record(ctx, result, steps)

	return result, nil
}

// parseResult sanitises the agent's final text and parses it into an
// AssessmentResult. Failures carry the raw text; they are surfaced,
// never coerced into a fabricated decision.
func (a *Assessor) parseResult(raw, patientID string) (*domain.AssessmentResult, error) {
	text := StripCodeFences(raw)
	jsonText, ok := ExtractJSONObject(text)
	if !ok {
		return nil, &domain.MalformedOutputError{Raw: raw}
	}

	var result domain.AssessmentResult
	if err := json.Unmarshal([]byte(jsonText), &result); err != nil {
		return nil, &domain.MalformedOutputError{Raw: raw, Err: err}
	}

	if result.PatientID == "" {
		result.PatientID = patientID
	}
	if !result.Decision.IsValid() {
		return nil, &domain.MalformedOutputError{
			Raw: raw,
			Err: fmt.Errorf("missing or unrecognised decision"),
		}
	}

	// A referral decision with no citations is ungrounded: the system
	// promises every claim is evidence-backed.
	if result.Decision != domain.DecisionInsufficient && len(result.Citations) == 0 {
		return nil, &domain.MalformedOutputError{
			Raw: raw,
			Err: fmt.Errorf("decision %q has no citations", result.Decision),
		}
	}

	return &result, nil
}

// History returns past assessments from the audit log, newest first.
func (a *Assessor) History(ctx context.Context, limit int) ([]domain.AssessmentRecord, error) {
	if a.auditLog == nil {
		return nil, nil
	}
	return a.auditLog.List(ctx, limit)
}

// record persists the assessment for audit. Logging is best-effort: a
// failed write is reported but does not invalidate the decision.
func (a *Assessor) record(ctx context.Context, result *domain.AssessmentResult, steps int) {
	if a.auditLog == nil {
		return
	}

	rec := &domain.AssessmentRecord{
		ID:        uuid.NewString(),
		PatientID: result.PatientID,
		Decision:  result.Decision,
		Rationale: result.Rationale,
		Citations: result.Citations,
		Imaging:   result.Imaging,
		ModelName: a.modelName(),
		StepsUsed: steps,
		CreatedAt: time.Now().UTC(),
	}
	if err := a.auditLog.Save(ctx, rec); err != nil {
		logger.Warn("Audit log write failed: %v", err)
	}
}

// modelName reports the underlying model for audit records.
func (a *Assessor) modelName() string {
	if a.orchestrator == nil || a.orchestrator.llm == nil {
		return ""
	}
	return a.orchestrator.llm.ModelName()
}

// loadPrompt loads a prompt from the store, falling back to the default
// if unavailable.
func (a *Assessor) loadPrompt(name, fallback string) string {
	if a.prompts == nil {
		return fallback
	}
	prompt, err := a.prompts.Load(name)
	if err != nil || strings.TrimSpace(prompt) == "" {
		return fallback
	}
	return prompt
}

// StripCodeFences removes a wrapping Markdown code fence from text.
// Models sometimes wrap "JSON only" answers in fences anyway.
func StripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	lines := strings.Split(text, "\n")
	if len(lines) < 2 {
		return text
	}

	// Drop the opening fence line (which may carry a language tag).
	lines = lines[1:]

	// Drop the closing fence line if present.
	last := strings.TrimSpace(lines[len(lines)-1])
	if last == "```" {
		lines = lines[:len(lines)-1]
	}

	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// ExtractJSONObject returns the first balanced JSON object substring,
// tolerating extraneous text around it. String literals and escapes are
// honoured so braces inside values don't unbalance the scan.
func ExtractJSONObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		c := text[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}

	return "", false
}
