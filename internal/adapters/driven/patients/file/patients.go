// Package file provides a read-only patient store backed by a JSON
// dataset file. The dataset is loaded once; missing or malformed files
// fail fast at construction.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/custodia-labs/triage-cli/internal/core/domain"
	"github.com/custodia-labs/triage-cli/internal/core/ports/driven"
	"github.com/custodia-labs/triage-cli/internal/logger"
)

// Ensure PatientStore implements the interface.
var _ driven.PatientStore = (*PatientStore)(nil)

// PatientStore serves patient records from a JSON file. The file is
// either an array of records or an object keyed by patient id. Field
// types are coerced leniently: numbers may arrive as strings, symptoms
// as a single string or an array.
type PatientStore struct {
	mu      sync.RWMutex
	records map[string]domain.PatientRecord
	path    string
}

// NewPatientStore loads the dataset at path.
func NewPatientStore(path string) (*PatientStore, error) {
	s := &PatientStore{
		records: make(map[string]domain.PatientRecord),
		path:    path,
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Get returns the patient record for the given id.
func (s *PatientStore) Get(_ context.Context, patientID string) (*domain.PatientRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[patientID]
	if !ok {
		return nil, fmt.Errorf("patient %q: %w", patientID, domain.ErrPatientNotFound)
	}
	return &record, nil
}

// Count returns the number of loaded patient records.
func (s *PatientStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Reload re-reads the dataset from disk.
func (s *PatientStore) Reload() error {
	return s.load()
}

func (s *PatientStore) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("reading patient dataset: %w", err)
	}

	raw := strings.TrimSpace(string(data))
	if raw == "" {
		return fmt.Errorf("%w: patient dataset %s is empty", domain.ErrInvalidInput, s.path)
	}

	records := make(map[string]domain.PatientRecord)

	switch raw[0] {
	case '[':
		var entries []map[string]any
		if err := json.Unmarshal(data, &entries); err != nil {
			return fmt.Errorf("%w: decode patient dataset: %v", domain.ErrInvalidInput, err)
		}
		for _, entry := range entries {
			record := parseRecord(entry, "")
			if record.PatientID == "" {
				continue
			}
			records[record.PatientID] = record
		}
	case '{':
		var entries map[string]map[string]any
		if err := json.Unmarshal(data, &entries); err != nil {
			return fmt.Errorf("%w: decode patient dataset: %v", domain.ErrInvalidInput, err)
		}
		for id, entry := range entries {
			record := parseRecord(entry, id)
			records[record.PatientID] = record
		}
	default:
		return fmt.Errorf("%w: patient dataset must be a JSON array or object", domain.ErrInvalidInput)
	}

	if len(records) == 0 {
		return fmt.Errorf("%w: patient dataset %s contains no usable records", domain.ErrInvalidInput, s.path)
	}

	s.mu.Lock()
	s.records = records
	s.mu.Unlock()

	logger.Info("Loaded %d patient records from %s", len(records), s.path)
	return nil
}

// parseRecord coerces one loosely-typed dataset entry into a record.
// fallbackID is used when the entry itself carries no id (object form).
func parseRecord(entry map[string]any, fallbackID string) domain.PatientRecord {
	record := domain.PatientRecord{
		PatientID:           stringField(entry, "patient_id", "id"),
		Name:                stringField(entry, "name"),
		Gender:              stringField(entry, "gender", "sex"),
		SmokingHistory:      stringField(entry, "smoking_history", "smoking"),
		Age:                 domain.OptionalInt(firstOf(entry, "age")),
		SymptomDurationDays: domain.OptionalInt(firstOf(entry, "symptom_duration_days", "duration_days")),
		Symptoms:            symptomList(firstOf(entry, "symptoms", "symptom")),
	}
	if record.PatientID == "" {
		record.PatientID = fallbackID
	}
	return record
}

// stringField returns the first non-empty string among the given keys.
func stringField(entry map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := entry[key].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}

// firstOf returns the first present value among the given keys.
func firstOf(entry map[string]any, keys ...string) any {
	for _, key := range keys {
		if v, ok := entry[key]; ok && v != nil {
			return v
		}
	}
	return nil
}

// symptomList coerces a symptoms value: an array of strings, or a
// single string optionally comma-separated.
func symptomList(v any) []string {
	var out []string
	switch vals := v.(type) {
	case []any:
		for _, item := range vals {
			if s, ok := item.(string); ok {
				if s = strings.TrimSpace(s); s != "" {
					out = append(out, s)
				}
			}
		}
	case []string:
		for _, s := range vals {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	case string:
		for _, s := range strings.Split(vals, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
