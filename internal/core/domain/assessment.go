package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Decision is the referral decision for an assessed patient.
type Decision string

// Available decisions.
const (
	// DecisionUrgent means the patient meets urgent-referral criteria.
	DecisionUrgent Decision = "UrgentReferral"

	// DecisionNonUrgent means evidence supports a routine referral only.
	DecisionNonUrgent Decision = "NonUrgentReferral"

	// DecisionInsufficient means the retrieved evidence does not support
	// a referral decision either way.
	DecisionInsufficient Decision = "InsufficientEvidence"
)

// IsValid returns true if the decision is recognised.
func (d Decision) IsValid() bool {
	switch d {
	case DecisionUrgent, DecisionNonUrgent, DecisionInsufficient:
		return true
	default:
		return false
	}
}

// Label returns the human-readable decision label used in guideline
// prose and in tool results.
func (d Decision) Label() string {
	switch d {
	case DecisionUrgent:
		return "Urgent Referral"
	case DecisionNonUrgent:
		return "Non-urgent Referral"
	case DecisionInsufficient:
		return "Not Met / Insufficient Evidence"
	default:
		return string(d)
	}
}

// ParseDecision maps a decision string to a Decision. It accepts both
// the canonical enum values and human phrasings the model may emit,
// such as "Urgent Referral" or "Not Met / Insufficient Evidence".
func ParseDecision(s string) (Decision, bool) {
	norm := strings.ToLower(s)
	norm = strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' {
			return r
		}
		return -1
	}, norm)

	switch {
	case norm == "":
		return "", false
	case strings.Contains(norm, "insufficient"), strings.Contains(norm, "notmet"):
		return DecisionInsufficient, true
	case strings.Contains(norm, "nonurgent"), strings.Contains(norm, "routine"):
		return DecisionNonUrgent, true
	case strings.Contains(norm, "urgent"):
		return DecisionUrgent, true
	default:
		return "", false
	}
}

// UnmarshalJSON parses a decision from JSON, accepting human labels.
func (d *Decision) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, ok := ParseDecision(s)
	if !ok {
		return fmt.Errorf("unrecognised decision %q", s)
	}
	*d = parsed
	return nil
}

// AssessmentResult is the structured outcome of assessing one patient.
type AssessmentResult struct {
	// PatientID identifies the assessed patient.
	PatientID string `json:"patient_id"`

	// Decision is the referral decision.
	Decision Decision `json:"decision"`

	// Rationale explains the decision. Every factual claim in it must
	// be traceable to at least one entry in Citations.
	Rationale string `json:"rationale"`

	// Citations is the evidence backing the rationale, in rank order.
	// Non-empty unless Decision is DecisionInsufficient.
	Citations []Citation `json:"citations"`

	// Imaging is the post-referral imaging recommendation, if any.
	Imaging string `json:"imaging,omitempty"`
}

// AssessmentRecord is a persisted audit entry for a completed assessment.
type AssessmentRecord struct {
	// ID is the unique record identifier.
	ID string

	// PatientID identifies the assessed patient.
	PatientID string

	// Decision is the referral decision reached.
	Decision Decision

	// Rationale is the decision rationale.
	Rationale string

	// Citations is the evidence list in rank order.
	Citations []Citation

	// Imaging is the imaging recommendation, if any.
	Imaging string

	// ModelName is the language model that produced the assessment.
	ModelName string

	// StepsUsed is the number of agent steps consumed.
	StepsUsed int

	// CreatedAt is when the assessment completed.
	CreatedAt time.Time
}
