package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/triage-cli/internal/core/domain"
	"github.com/custodia-labs/triage-cli/internal/core/ports/driven"
)

// Ensure PatientStore implements the interface.
var _ driven.PatientStore = (*PatientStore)(nil)

// PatientStore is an in-memory implementation of driven.PatientStore.
type PatientStore struct {
	mu      sync.RWMutex
	records map[string]domain.PatientRecord
}

// NewPatientStore creates a new in-memory patient store.
func NewPatientStore() *PatientStore {
	return &PatientStore{
		records: make(map[string]domain.PatientRecord),
	}
}

// Put stores a patient record, keyed by its PatientID.
func (s *PatientStore) Put(record domain.PatientRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.PatientID] = record
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
