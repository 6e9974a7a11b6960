package domain

import (
	"strconv"
	"strings"
)

// PatientRecord represents a structured patient case loaded from the
// static patient dataset. Records are immutable once loaded and are
// looked up by PatientID.
type PatientRecord struct {
	// PatientID is the unique patient identifier.
	PatientID string `json:"patient_id"`

	// Name is the patient's display name.
	Name string `json:"name"`

	// Age in years, nil when unknown.
	Age *int `json:"age"`

	// Gender as recorded in the dataset.
	Gender string `json:"gender"`

	// SmokingHistory is free text, e.g. "Never smoked" or "Ex-Smoker".
	SmokingHistory string `json:"smoking_history"`

	// Symptoms is the ordered list of presenting symptom phrases.
	Symptoms []string `json:"symptoms"`

	// SymptomDurationDays is how long symptoms have persisted, nil when unknown.
	SymptomDurationDays *int `json:"symptom_duration_days"`
}

// OptionalInt parses a loosely-typed value into an optional integer.
// Datasets record ages and durations inconsistently (numbers, numeric
// strings, missing fields), so every such field goes through this one
// parser: nil on absence or failure, never a zero stand-in.
func OptionalInt(v any) *int {
	switch n := v.(type) {
	case nil:
		return nil
	case int:
		return &n
	case int64:
		i := int(n)
		return &i
	case float64:
		i := int(n)
		return &i
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return nil
		}
		i, err := strconv.Atoi(s)
		if err != nil {
			return nil
		}
		return &i
	default:
		return nil
	}
}

// IntPtr returns a pointer to v. Convenience for building records.
func IntPtr(v int) *int {
	return &v
}
