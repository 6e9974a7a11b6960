package services

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/custodia-labs/triage-cli/internal/core/domain"
	"github.com/custodia-labs/triage-cli/internal/core/ports/driven"
	"github.com/custodia-labs/triage-cli/internal/logger"
)

// DefaultMaxCitations caps the citation list extracted for the final
// answer when the model does not ask for a different bound.
const DefaultMaxCitations = 4

// toolName enumerates the closed set of tools the registry dispatches.
// The set is fixed at compile time; the model-facing catalogue in
// Declarations is generated from the same constants, so the two cannot
// drift apart.
type toolName string

const (
	toolGetPatient          toolName = "get_patient"
	toolNormalizeSymptoms   toolName = "normalize_symptoms"
	toolBuildRetrievalQuery toolName = "build_retrieval_query"
	toolRetrieveEvidence    toolName = "retrieve_guideline_evidence"
	toolEvaluateReferral    toolName = "evaluate_referral_criteria"
	toolExtractCitations    toolName = "extract_citations"
	toolRecommendImaging    toolName = "recommend_imaging"
)

// symptomSynonyms is the fixed table mapping lay symptom phrasings to
// canonical clinical phrases. Unmapped terms pass through unchanged.
var symptomSynonyms = map[string]string{
	"blood in urine":        "visible haematuria",
	"peeing blood":          "visible haematuria",
	"blood in pee":          "visible haematuria",
	"coughing up blood":     "haemoptysis",
	"blood in sputum":       "haemoptysis",
	"difficulty swallowing": "dysphagia",
	"trouble swallowing":    "dysphagia",
	"short of breath":       "shortness of breath",
	"breathlessness":        "shortness of breath",
	"tummy pain":            "abdominal pain",
	"stomach pain":          "abdominal pain",
	"tiredness":             "fatigue",
	"losing weight":         "unexplained weight loss",
	"heartburn":             "reflux",
}

// urgencyMarkers are referral-tag fragments that signal an urgent
// pathway. Scan order over evidence is input order; the first match
// wins.
var urgencyMarkers = []string{
	"very urgent",
	"urgent",
	"suspected cancer pathway",
	"immediate",
	"2 week",
	"two week",
	"2-week",
	"two-week",
}

// ctPattern matches the CT modality as a standalone token so words
// like "suspected" don't register as a CT mention.
var ctPattern = regexp.MustCompile(`(?i)\bct\b`)

// NoImagingStatement is returned whenever the decision does not signal
// urgency.
const NoImagingStatement = "no imaging recommended"

// ToolRegistry holds the closed set of assessment tools and their
// model-facing JSON-schema declarations. All dispatch goes through one
// exhaustive switch; an unregistered name is a fatal condition for the
// current assessment.
type ToolRegistry struct {
	patients     driven.PatientStore
	evidence     *EvidenceService
	formatter    *CitationFormatter
	maxCitations int
}

// NewToolRegistry creates the registry. maxCitations <= 0 uses the
// default bound.
func NewToolRegistry(
	patients driven.PatientStore,
	evidence *EvidenceService,
	formatter *CitationFormatter,
	maxCitations int,
) *ToolRegistry {
	if maxCitations <= 0 {
		maxCitations = DefaultMaxCitations
	}
	return &ToolRegistry{
		patients:     patients,
		evidence:     evidence,
		formatter:    formatter,
		maxCitations: maxCitations,
	}
}

// Names returns all registered tool names.
func (r *ToolRegistry) Names() []string {
	return []string{
		string(toolGetPatient),
		string(toolNormalizeSymptoms),
		string(toolBuildRetrievalQuery),
		string(toolRetrieveEvidence),
		string(toolEvaluateReferral),
		string(toolExtractCitations),
		string(toolRecommendImaging),
	}
}

// Has reports whether name is a registered tool.
func (r *ToolRegistry) Has(name string) bool {
	switch toolName(name) {
	case toolGetPatient, toolNormalizeSymptoms, toolBuildRetrievalQuery,
		toolRetrieveEvidence, toolEvaluateReferral, toolExtractCitations,
		toolRecommendImaging:
		return true
	default:
		return false
	}
}

// Execute dispatches a tool call by name and returns the JSON-encoded
// result. Tool failures abort the assessment; nothing here retries.
func (r *ToolRegistry) Execute(ctx context.Context, name string, args map[string]any) (string, error) {
	logger.Debug("Tool call: %s", name)

	switch toolName(name) {
	case toolGetPatient:
		return r.execGetPatient(ctx, args)
	case toolNormalizeSymptoms:
		return r.execNormalizeSymptoms(args)
	case toolBuildRetrievalQuery:
		return r.execBuildRetrievalQuery(args)
	case toolRetrieveEvidence:
		return r.execRetrieveEvidence(ctx, args)
	case toolEvaluateReferral:
		return r.execEvaluateReferral(args)
	case toolExtractCitations:
		return r.execExtractCitations(args)
	case toolRecommendImaging:
		return r.execRecommendImaging(args)
	default:
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownTool, name)
	}
}

func (r *ToolRegistry) execGetPatient(ctx context.Context, args map[string]any) (string, error) {
	patientID := argString(args, "patient_id")
	if patientID == "" {
		return "", fmt.Errorf("%w: get_patient requires patient_id", domain.ErrInvalidInput)
	}

	record, err := r.patients.Get(ctx, patientID)
	if err != nil {
		return "", err
	}
	return marshalResult(record)
}

func (r *ToolRegistry) execNormalizeSymptoms(args map[string]any) (string, error) {
	raw := argStrings(args, "symptoms")

	normalized := NormalizeSymptoms(raw)
	return marshalResult(map[string]any{"symptoms": normalized})
}

func (r *ToolRegistry) execBuildRetrievalQuery(args map[string]any) (string, error) {
	patient := args
	if nested, ok := args["patient"].(map[string]any); ok {
		patient = nested
	}

	query := BuildRetrievalQuery(
		anyStrings(patient["symptoms"]),
		domain.OptionalInt(patient["age"]),
		strings.TrimSpace(fmt.Sprint(valueOr(patient["smoking_history"], ""))),
		domain.OptionalInt(patient["symptom_duration_days"]),
	)
	return marshalResult(map[string]any{"query": query})
}

func (r *ToolRegistry) execRetrieveEvidence(ctx context.Context, args map[string]any) (string, error) {
	query := argString(args, "query")
	topK := 8
	if n := domain.OptionalInt(args["top_k"]); n != nil {
		topK = *n
	}

	chunks, err := r.evidence.Search(ctx, query, topK)
	if err != nil {
		return "", err
	}

	records := r.formatter.Records(chunks)
	return marshalResult(records)
}

func (r *ToolRegistry) execEvaluateReferral(args map[string]any) (string, error) {
	records, err := decodeRecords(args["evidence"])
	if err != nil {
		return "", fmt.Errorf("%w: evaluate_referral_criteria evidence: %v", domain.ErrInvalidInput, err)
	}

	decision := EvaluateReferralCriteria(records)
	return marshalResult(map[string]any{"decision": decision.Label()})
}

func (r *ToolRegistry) execExtractCitations(args map[string]any) (string, error) {
	records, err := decodeRecords(args["evidence"])
	if err != nil {
		return "", fmt.Errorf("%w: extract_citations evidence: %v", domain.ErrInvalidInput, err)
	}

	maxCitations := r.maxCitations
	if n := domain.OptionalInt(args["max_citations"]); n != nil && *n > 0 {
		maxCitations = *n
	}

	return marshalResult(ExtractCitations(records, maxCitations))
}

func (r *ToolRegistry) execRecommendImaging(args map[string]any) (string, error) {
	decision := argString(args, "decision")
	records, err := decodeRecords(args["evidence"])
	if err != nil {
		return "", fmt.Errorf("%w: recommend_imaging evidence: %v", domain.ErrInvalidInput, err)
	}

	return marshalResult(map[string]any{"imaging": RecommendImaging(decision, records)})
}

// NormalizeSymptoms maps raw symptom strings to canonical clinical
// phrases using the fixed synonym table. Order is preserved, empty and
// whitespace-only entries are dropped, unmapped terms pass through
// unchanged.
func NormalizeSymptoms(raw []string) []string {
	normalized := make([]string, 0, len(raw))
	for _, symptom := range raw {
		symptom = strings.TrimSpace(symptom)
		if symptom == "" {
			continue
		}
		if canonical, ok := symptomSynonyms[strings.ToLower(symptom)]; ok {
			normalized = append(normalized, canonical)
			continue
		}
		normalized = append(normalized, symptom)
	}
	return normalized
}

// BuildRetrievalQuery concatenates symptoms with age, smoking history
// and duration phrased in natural language for better lexical match
// against guideline prose.
func BuildRetrievalQuery(symptoms []string, age *int, smokingHistory string, durationDays *int) string {
	var parts []string
	for _, s := range symptoms {
		s = strings.TrimSpace(s)
		if s != "" {
			parts = append(parts, s)
		}
	}
	if age != nil {
		parts = append(parts, fmt.Sprintf("aged %d years", *age))
	}
	if smokingHistory != "" {
		parts = append(parts, smokingHistory)
	}
	if durationDays != nil {
		parts = append(parts, fmt.Sprintf("symptoms for %d days", *durationDays))
	}
	return strings.Join(parts, ", ")
}

// EvaluateReferralCriteria applies the priority rule over evidence
// records: any record tagged with an urgency marker decides
// UrgentReferral (first match wins, scan order is input order); any
// evidence at all decides NonUrgentReferral; no evidence decides
// InsufficientEvidence.
func EvaluateReferralCriteria(records []domain.EvidenceRecord) domain.Decision {
	if len(records) == 0 {
		return domain.DecisionInsufficient
	}
	for _, rec := range records {
		if isUrgencyMarker(rec.Referral) {
			return domain.DecisionUrgent
		}
	}
	return domain.DecisionNonUrgent
}

// isUrgencyMarker reports whether a referral tag signals an urgent
// pathway. "Non-urgent" and "Routine" tags never do, even though they
// contain "urgent" as a substring.
func isUrgencyMarker(referral string) bool {
	tag := strings.ToLower(strings.TrimSpace(referral))
	if tag == "" {
		return false
	}
	if strings.Contains(tag, "non-urgent") || strings.Contains(tag, "non urgent") ||
		strings.Contains(tag, "nonurgent") || strings.Contains(tag, "routine") {
		return false
	}
	for _, marker := range urgencyMarkers {
		if strings.Contains(tag, marker) {
			return true
		}
	}
	return false
}

// ExtractCitations derives citations from evidence records, dropping
// empty excerpts and truncating at maxCitations.
func ExtractCitations(records []domain.EvidenceRecord, maxCitations int) []domain.Citation {
	citations := make([]domain.Citation, 0, len(records))
	for _, rec := range records {
		if strings.TrimSpace(rec.Excerpt) == "" {
			continue
		}
		citations = append(citations, domain.Citation{
			Source:  rec.Source,
			Page:    rec.Page,
			Excerpt: rec.Excerpt,
		})
		if len(citations) >= maxCitations {
			break
		}
	}
	return citations
}

// RecommendImaging produces a post-referral imaging recommendation.
// Only an urgent decision yields one; otherwise the explicit no-imaging
// statement is returned regardless of evidence content. When urgent,
// the joined excerpt text is scanned for modality keywords, most
// specific first.
func RecommendImaging(decision string, records []domain.EvidenceRecord) string {
	parsed, ok := domain.ParseDecision(decision)
	if !ok || parsed != domain.DecisionUrgent {
		return NoImagingStatement
	}

	var joined strings.Builder
	for _, rec := range records {
		joined.WriteString(strings.ToLower(rec.Excerpt))
		joined.WriteString(" ")
	}
	text := joined.String()

	switch {
	case strings.Contains(text, "contrast ct") ||
		strings.Contains(text, "ct with contrast") ||
		strings.Contains(text, "contrast-enhanced"):
		return "urgent contrast-enhanced CT recommended"
	case ctPattern.MatchString(text):
		return "urgent CT recommended"
	case strings.Contains(text, "x-ray") || strings.Contains(text, "xray") ||
		strings.Contains(text, "radiograph") || strings.Contains(text, "chest film"):
		return "urgent X-ray recommended"
	default:
		return "imaging as indicated by the suspected cancer pathway"
	}
}

// schemaBound returns a pointer for schema numeric bounds.
func schemaBound(v float64) *float64 {
	return &v
}

// marshalResult serialises a tool result for the model.
func marshalResult(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal tool result: %w", err)
	}
	return string(data), nil
}

// decodeRecords converts a loosely-typed tool argument into evidence
// records via a JSON round trip.
func decodeRecords(v any) ([]domain.EvidenceRecord, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var records []domain.EvidenceRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// argString extracts a trimmed string argument.
func argString(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return strings.TrimSpace(s)
}

// argStrings extracts a string-slice argument, tolerating []any.
func argStrings(args map[string]any, key string) []string {
	return anyStrings(args[key])
}

// anyStrings converts a loosely-typed value into a string slice.
func anyStrings(v any) []string {
	switch vals := v.(type) {
	case []string:
		return vals
	case []any:
		out := make([]string, 0, len(vals))
		for _, item := range vals {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return []string{vals}
	default:
		return nil
	}
}

// valueOr returns v unless it is nil.
func valueOr(v, fallback any) any {
	if v == nil {
		return fallback
	}
	return v
}

// Declarations returns the model-facing tool catalogue. The schemas
// mirror the Execute dispatch exactly.
func (r *ToolRegistry) Declarations() []driven.ToolDecl {
	evidenceArray := &jsonschema.Schema{
		Type:        "array",
		Description: "Evidence records as returned by retrieve_guideline_evidence",
		Items: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"source":   {Type: "string"},
				"page":     {Types: []string{"integer", "null"}},
				"excerpt":  {Type: "string"},
				"referral": {Type: "string"},
			},
		},
	}

	return []driven.ToolDecl{
		{
			Name:        string(toolGetPatient),
			Description: "Fetch structured patient data from the patient dataset by patient_id.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"patient_id": {Type: "string", Description: "Unique patient identifier"},
				},
				Required: []string{"patient_id"},
			},
		},
		{
			Name:        string(toolNormalizeSymptoms),
			Description: "Map raw symptom strings to canonical clinical phrases.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"symptoms": {
						Type:        "array",
						Description: "Raw symptom phrases",
						Items:       &jsonschema.Schema{Type: "string"},
					},
				},
				Required: []string{"symptoms"},
			},
		},
		{
			Name:        string(toolBuildRetrievalQuery),
			Description: "Compose a guideline retrieval query from patient fields.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"symptoms": {
						Type:        "array",
						Description: "Canonical symptom phrases",
						Items:       &jsonschema.Schema{Type: "string"},
					},
					"age":                   {Types: []string{"integer", "null"}, Description: "Patient age in years"},
					"smoking_history":       {Type: "string", Description: "e.g. never smoked, ex-smoker"},
					"symptom_duration_days": {Types: []string{"integer", "null"}, Description: "Symptom duration in days"},
				},
				Required: []string{"symptoms"},
			},
		},
		{
			Name:        string(toolRetrieveEvidence),
			Description: "Retrieve relevant guideline text chunks for a query.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"query": {Type: "string", Description: "Search query"},
					"top_k": {
						Type:        "integer",
						Description: "Number of chunks to retrieve (default 8)",
						Minimum:     schemaBound(1),
						Maximum:     schemaBound(20),
					},
				},
				Required: []string{"query"},
			},
		},
		{
			Name:        string(toolEvaluateReferral),
			Description: "Decide the referral category from retrieved evidence records.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"evidence": evidenceArray,
				},
				Required: []string{"evidence"},
			},
		},
		{
			Name:        string(toolExtractCitations),
			Description: "Derive a bounded citation list from evidence records.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"evidence": evidenceArray,
					"max_citations": {
						Type:        "integer",
						Description: "Maximum citations to keep (default 4)",
						Minimum:     schemaBound(1),
					},
				},
				Required: []string{"evidence"},
			},
		},
		{
			Name:        string(toolRecommendImaging),
			Description: "Recommend post-referral imaging for an urgent decision.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"decision": {Type: "string", Description: "Referral decision label"},
					"evidence": evidenceArray,
				},
				Required: []string{"decision", "evidence"},
			},
		},
	}
}
