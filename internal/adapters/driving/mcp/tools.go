package mcp

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/embedscan/internal/core/domain"
	"github.com/custodia-labs/embedscan/internal/core/services"
)

// DetectInput is the input schema for the detect tool.
type DetectInput struct {
	Path string `json:"path" jsonschema:"absolute path of a local file to inspect"`
}

// DetectOutput is the output schema for the detect tool.
type DetectOutput struct {
	Path       string           `json:"path"`
	Size       int64            `json:"size"`
	MIME       string           `json:"mime"`
	Suspicious bool             `json:"suspicious"`
	Findings   []domain.Finding `json:"findings"`
	Report     string           `json:"report,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "detect_embedded_data",
		Description: "Inspect a local file for data appended after the end of its declared format",
	}, s.handleDetect)
}

// handleDetect handles the detect tool invocation.
func (s *Server) handleDetect(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DetectInput,
) (*mcp.CallToolResult, DetectOutput, error) {
	if input.Path == "" {
		return nil, DetectOutput{}, errors.New("path is required")
	}

	detection, err := s.ports.Detector.DetectFile(ctx, input.Path)
	if err != nil {
		return nil, DetectOutput{}, err
	}

	output := DetectOutput{
		Path:       input.Path,
		Size:       detection.Size,
		MIME:       detection.MIME.String(),
		Suspicious: detection.Suspicious(),
		Findings:   detection.Findings,
	}
	if output.Findings == nil {
		output.Findings = []domain.Finding{}
	}
	if output.Suspicious {
		output.Report = services.ReportMessage(detection.Findings)
	}

	return nil, output, nil
}
