package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/embedscan/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for embedscan resources.
	uriScheme = "embedscan://"

	// recentLimit is how many records the recent resource lists.
	recentLimit = 50
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "audit/recent",
		Name:        "recent-outcomes",
		Description: "Most recently processed change events and their outcomes",
		MIMEType:    "application/json",
	}, s.handleRecentResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "audit/files/{title}",
		Name:        "file-outcomes",
		Description: "Processed change events of one file",
		MIMEType:    "application/json",
	}, s.handleFileResource)
}

// recordInfo is the JSON shape of an audit record.
type recordInfo struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Revision    string           `json:"revision,omitempty"`
	Uploader    string           `json:"uploader,omitempty"`
	Digest      string           `json:"digest,omitempty"`
	Findings    []domain.Finding `json:"findings,omitempty"`
	Action      string           `json:"action,omitempty"`
	Outcome     string           `json:"outcome"`
	Error       string           `json:"error,omitempty"`
	ProcessedAt string           `json:"processed_at"`
}

func toRecordInfos(records []domain.AuditRecord) []recordInfo {
	infos := make([]recordInfo, len(records))
	for i, r := range records {
		infos[i] = recordInfo{
			ID:          r.ID,
			Title:       r.Title,
			Uploader:    r.Uploader,
			Digest:      r.Digest,
			Findings:    r.Findings,
			Action:      string(r.Action),
			Outcome:     string(r.Outcome),
			Error:       r.Error,
			ProcessedAt: r.ProcessedAt.UTC().Format("2006-01-02T15:04:05Z"),
		}
		if !r.RevisionTimestamp.IsZero() {
			infos[i].Revision = r.RevisionTimestamp.UTC().Format("2006-01-02T15:04:05Z")
		}
	}
	return infos
}

func jsonResult(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling resource: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// handleRecentResource returns the newest audit records.
func (s *Server) handleRecentResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Audit == nil {
		return jsonResult(req.Params.URI, []recordInfo{})
	}

	records, err := s.ports.Audit.Recent(ctx, recentLimit)
	if err != nil {
		return nil, fmt.Errorf("listing audit records: %w", err)
	}
	return jsonResult(req.Params.URI, toRecordInfos(records))
}

// handleFileResource returns the audit records of one file.
func (s *Server) handleFileResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	title, err := extractTitle(req.Params.URI)
	if err != nil {
		return nil, err
	}
	if s.ports.Audit == nil {
		return jsonResult(req.Params.URI, []recordInfo{})
	}

	records, err := s.ports.Audit.ForTitle(ctx, title)
	if err != nil {
		return nil, fmt.Errorf("listing audit records of %s: %w", title, err)
	}
	return jsonResult(req.Params.URI, toRecordInfos(records))
}

// extractTitle extracts the file title from
// "embedscan://audit/files/{title}". The title may be percent-encoded.
func extractTitle(uri string) (string, error) {
	prefix := uriScheme + "audit/files/"
	if !strings.HasPrefix(uri, prefix) {
		return "", fmt.Errorf("invalid resource uri: %s", uri)
	}
	raw := strings.TrimPrefix(uri, prefix)
	title, err := url.PathUnescape(raw)
	if err != nil {
		return "", fmt.Errorf("invalid resource uri: %s: %w", uri, err)
	}
	if title == "" {
		return "", fmt.Errorf("invalid resource uri: %s", uri)
	}
	return title, nil
}
