package domain

import "time"

// AuditRecord is the persisted trace of one processed change event.
type AuditRecord struct {
	ID                string
	Title             string
	RevisionTimestamp time.Time
	Uploader          string
	Digest            string
	Findings          []Finding
	Action            Action
	Outcome           Outcome
	Error             string
	ProcessedAt       time.Time
}
