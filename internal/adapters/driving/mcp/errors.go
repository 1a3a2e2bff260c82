// Package mcp exposes embedded-data detection and the remediation audit log
// to MCP (Model Context Protocol) clients.
package mcp

import "errors"

// ErrMissingDetector is returned when the detector is not provided.
var ErrMissingDetector = errors.New("mcp: detector is required")
