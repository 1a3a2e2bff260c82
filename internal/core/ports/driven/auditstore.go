package driven

import (
	"context"

	"github.com/custodia-labs/embedscan/internal/core/domain"
)

// AuditStore persists the outcome of processed events.
type AuditStore interface {
	// Save stores a record.
	Save(ctx context.Context, record domain.AuditRecord) error

	// Get retrieves a record by ID.
	// Returns domain.ErrNotFound if it doesn't exist.
	Get(ctx context.Context, id string) (*domain.AuditRecord, error)

	// List returns the most recent records, newest first.
	List(ctx context.Context, limit int) ([]domain.AuditRecord, error)

	// ListByTitle returns records for a title, newest first.
	ListByTitle(ctx context.Context, title string) ([]domain.AuditRecord, error)
}
