package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/embedscan/internal/core/domain"
	"github.com/custodia-labs/embedscan/internal/core/ports/driven"
	"github.com/custodia-labs/embedscan/internal/core/ports/driving"
)

// Ensure AuditService implements the interface.
var _ driving.AuditService = (*AuditService)(nil)

// defaultAuditLimit is used when Recent is called without a limit.
const defaultAuditLimit = 20

// AuditService reads the audit trail.
type AuditService struct {
	store driven.AuditStore
}

// NewAuditService creates a new audit service.
func NewAuditService(store driven.AuditStore) *AuditService {
	return &AuditService{store: store}
}

// Recent returns the newest records.
func (s *AuditService) Recent(ctx context.Context, limit int) ([]domain.AuditRecord, error) {
	if limit <= 0 {
		limit = defaultAuditLimit
	}
	records, err := s.store.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit records: %w", err)
	}
	return records, nil
}

// ForTitle returns the records of one file.
func (s *AuditService) ForTitle(ctx context.Context, title string) ([]domain.AuditRecord, error) {
	if title == "" {
		return nil, fmt.Errorf("%w: empty title", domain.ErrInvalidInput)
	}
	records, err := s.store.ListByTitle(ctx, title)
	if err != nil {
		return nil, fmt.Errorf("list audit records for %s: %w", title, err)
	}
	return records, nil
}
