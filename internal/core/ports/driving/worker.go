package driving

import (
	"context"

	"github.com/custodia-labs/embedscan/internal/core/domain"
)

// Worker consumes change events one at a time.
type Worker interface {
	// Run processes events until ctx is done or the queue closes.
	// A failing event never stops the loop.
	Run(ctx context.Context) error

	// Process handles a single event end to end and returns its audit record.
	Process(ctx context.Context, event domain.ChangeEvent) (*domain.AuditRecord, error)

	// Enqueue pushes an event onto the queue the worker consumes.
	Enqueue(ctx context.Context, event domain.ChangeEvent) error
}

// AuditService reads the audit trail of processed events.
type AuditService interface {
	// Recent returns the newest records.
	Recent(ctx context.Context, limit int) ([]domain.AuditRecord, error)

	// ForTitle returns the records of one file.
	ForTitle(ctx context.Context, title string) ([]domain.AuditRecord, error)
}
