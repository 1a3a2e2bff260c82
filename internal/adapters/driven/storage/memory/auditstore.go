package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/embedscan/internal/core/domain"
	"github.com/custodia-labs/embedscan/internal/core/ports/driven"
)

// Ensure AuditStore implements the interface.
var _ driven.AuditStore = (*AuditStore)(nil)

// AuditStore is an in-memory implementation of driven.AuditStore.
type AuditStore struct {
	mu      sync.RWMutex
	records map[string]domain.AuditRecord
}

// NewAuditStore creates a new in-memory audit store.
func NewAuditStore() *AuditStore {
	return &AuditStore{
		records: make(map[string]domain.AuditRecord),
	}
}

// Save stores or replaces a record.
func (s *AuditStore) Save(_ context.Context, record domain.AuditRecord) error {
	if record.ID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.ID] = record
	return nil
}

// Get retrieves a record by ID.
func (s *AuditStore) Get(_ context.Context, id string) (*domain.AuditRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &record, nil
}

// List returns the most recent records, newest first.
func (s *AuditStore) List(_ context.Context, limit int) ([]domain.AuditRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]domain.AuditRecord, 0, len(s.records))
	for _, r := range s.records {
		records = append(records, r)
	}
	sortNewestFirst(records)
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// ListByTitle returns the records of one title, newest first.
func (s *AuditStore) ListByTitle(_ context.Context, title string) ([]domain.AuditRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []domain.AuditRecord
	for _, r := range s.records {
		if r.Title == title {
			records = append(records, r)
		}
	}
	sortNewestFirst(records)
	return records, nil
}

func sortNewestFirst(records []domain.AuditRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].ProcessedAt.Equal(records[j].ProcessedAt) {
			return records[i].ID < records[j].ID
		}
		return records[i].ProcessedAt.After(records[j].ProcessedAt)
	})
}
