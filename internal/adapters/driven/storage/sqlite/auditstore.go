package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/embedscan/internal/core/domain"
	"github.com/custodia-labs/embedscan/internal/core/ports/driven"
)

// auditStore implements driven.AuditStore.
type auditStore struct {
	store *Store
}

var _ driven.AuditStore = (*auditStore)(nil)

const auditColumns = `id, title, revision_timestamp, uploader, digest, findings, action, outcome, error, processed_at`

// Save stores or replaces a record.
func (s *auditStore) Save(ctx context.Context, record domain.AuditRecord) error {
	if record.ID == "" {
		return domain.ErrInvalidInput
	}

	findings := record.Findings
	if findings == nil {
		findings = []domain.Finding{}
	}
	findingsJSON, err := json.Marshal(findings)
	if err != nil {
		return fmt.Errorf("marshalling findings: %w", err)
	}

	if record.ProcessedAt.IsZero() {
		record.ProcessedAt = time.Now()
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO audit_records (`+auditColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			revision_timestamp = excluded.revision_timestamp,
			uploader = excluded.uploader,
			digest = excluded.digest,
			findings = excluded.findings,
			action = excluded.action,
			outcome = excluded.outcome,
			error = excluded.error,
			processed_at = excluded.processed_at
	`, record.ID, record.Title, nullTime(record.RevisionTimestamp), record.Uploader, record.Digest,
		string(findingsJSON), string(record.Action), string(record.Outcome), record.Error,
		record.ProcessedAt.UTC())
	if err != nil {
		return fmt.Errorf("saving audit record: %w", err)
	}
	return nil
}

// Get retrieves a record by ID.
func (s *auditStore) Get(ctx context.Context, id string) (*domain.AuditRecord, error) {
	row := s.store.db.QueryRowContext(ctx, `SELECT `+auditColumns+` FROM audit_records WHERE id = ?`, id)
	record, err := scanAuditRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

// List returns the most recent records, newest first.
func (s *auditStore) List(ctx context.Context, limit int) ([]domain.AuditRecord, error) {
	query := `SELECT ` + auditColumns + ` FROM audit_records ORDER BY processed_at DESC, id ASC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.query(ctx, query, args...)
}

// ListByTitle returns records for a title, newest first.
func (s *auditStore) ListByTitle(ctx context.Context, title string) ([]domain.AuditRecord, error) {
	return s.query(ctx, `SELECT `+auditColumns+` FROM audit_records
		WHERE title = ? ORDER BY processed_at DESC, id ASC`, title)
}

func (s *auditStore) query(ctx context.Context, query string, args ...any) ([]domain.AuditRecord, error) {
	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit records: %w", err)
	}
	defer rows.Close()

	var records []domain.AuditRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		record, err := scanAuditRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit records: %w", err)
	}
	return records, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanAuditRecord(row scanner) (*domain.AuditRecord, error) {
	var (
		record       domain.AuditRecord
		revisionTime sql.NullTime
		findingsJSON string
		action       string
		outcome      string
	)
	err := row.Scan(&record.ID, &record.Title, &revisionTime, &record.Uploader, &record.Digest,
		&findingsJSON, &action, &outcome, &record.Error, &record.ProcessedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning audit record: %w", err)
	}

	if revisionTime.Valid {
		record.RevisionTimestamp = revisionTime.Time.UTC()
	}
	record.ProcessedAt = record.ProcessedAt.UTC()
	record.Action = domain.Action(action)
	record.Outcome = domain.Outcome(outcome)

	if err := json.Unmarshal([]byte(findingsJSON), &record.Findings); err != nil {
		return nil, fmt.Errorf("unmarshalling findings: %w", err)
	}
	if len(record.Findings) == 0 {
		record.Findings = nil
	}
	return &record, nil
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
