package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/triage-cli/internal/core/domain"
	"github.com/custodia-labs/triage-cli/internal/core/ports/driven"
)

// Ensure AssessmentLog implements the interface.
var _ driven.AssessmentLog = (*AssessmentLog)(nil)

// AssessmentLog is an in-memory implementation of driven.AssessmentLog.
type AssessmentLog struct {
	mu      sync.RWMutex
	records []domain.AssessmentRecord
}

// NewAssessmentLog creates a new in-memory assessment log.
func NewAssessmentLog() *AssessmentLog {
	return &AssessmentLog{}
}

// Save persists an assessment record.
func (l *AssessmentLog) Save(_ context.Context, record *domain.AssessmentRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, *record)
	return nil
}

// List returns the most recent records, newest first.
func (l *AssessmentLog) List(_ context.Context, limit int) ([]domain.AssessmentRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if limit <= 0 || limit > len(l.records) {
		limit = len(l.records)
	}

	out := make([]domain.AssessmentRecord, 0, limit)
	for i := len(l.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, l.records[i])
	}
	return out, nil
}

// Close releases resources.
func (l *AssessmentLog) Close() error {
	return nil
}
