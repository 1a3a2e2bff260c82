// Package domain defines the core business entities for embedscan.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Finding: A detected boundary and what follows it
//   - MIME: A coarse type tag produced by a classifier
//   - RevisionRef: One historical upload of a file
//   - ChangeEvent: A "file changed" notification from the queue
//   - Outcome: The terminal result of remediating one change event
//   - AuditRecord: The persisted trace of one processed event
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
