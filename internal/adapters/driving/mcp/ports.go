package mcp

import (
	"github.com/custodia-labs/embedscan/internal/core/ports/driving"
)

// Ports aggregates the driving ports the MCP server uses.
type Ports struct {
	// Detector inspects files for trailing data.
	Detector driving.Detector

	// Audit reads processed events. Optional.
	Audit driving.AuditService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Detector == nil {
		return ErrMissingDetector
	}
	return nil
}
