package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/embedscan/internal/core/domain"
)

func readRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{Params: &mcp.ReadResourceParams{URI: uri}}
}

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		name    string
		uri     string
		want    string
		wantErr bool
	}{
		{name: "plain", uri: "embedscan://audit/files/File:A.jpg", want: "File:A.jpg"},
		{name: "escaped", uri: "embedscan://audit/files/File:A%20B.jpg", want: "File:A B.jpg"},
		{name: "wrong scheme", uri: "other://audit/files/File:A.jpg", wantErr: true},
		{name: "empty", uri: "embedscan://audit/files/", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractTitle(tt.uri)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestServer_handleRecentResource(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)

	t.Run("lists records", func(t *testing.T) {
		audit := &mockAuditService{records: []domain.AuditRecord{{
			ID:          "r1",
			Title:       "File:A.jpg",
			Outcome:     domain.OutcomeFlagged,
			Action:      domain.ActionFlag,
			ProcessedAt: at,
		}}}
		server, err := NewServer(&Ports{Detector: &mockDetector{}, Audit: audit})
		require.NoError(t, err)

		res, err := server.handleRecentResource(ctx, readRequest("embedscan://audit/recent"))
		require.NoError(t, err)
		require.Len(t, res.Contents, 1)
		assert.Equal(t, recentLimit, audit.limit)

		var infos []recordInfo
		require.NoError(t, json.Unmarshal([]byte(res.Contents[0].Text), &infos))
		require.Len(t, infos, 1)
		assert.Equal(t, "flagged", infos[0].Outcome)
		assert.Equal(t, "2026-04-01T08:00:00Z", infos[0].ProcessedAt)
		assert.Empty(t, infos[0].Revision)
	})

	t.Run("no audit service", func(t *testing.T) {
		server, err := NewServer(&Ports{Detector: &mockDetector{}})
		require.NoError(t, err)

		res, err := server.handleRecentResource(ctx, readRequest("embedscan://audit/recent"))
		require.NoError(t, err)
		assert.Equal(t, "[]", res.Contents[0].Text)
	})

	t.Run("store error", func(t *testing.T) {
		server, err := NewServer(&Ports{
			Detector: &mockDetector{},
			Audit:    &mockAuditService{err: errors.New("db down")},
		})
		require.NoError(t, err)

		_, err = server.handleRecentResource(ctx, readRequest("embedscan://audit/recent"))
		assert.Error(t, err)
	})
}

func TestServer_handleFileResource(t *testing.T) {
	audit := &mockAuditService{}
	server, err := NewServer(&Ports{Detector: &mockDetector{}, Audit: audit})
	require.NoError(t, err)

	_, err = server.handleFileResource(context.Background(), readRequest("embedscan://audit/files/File:A%20B.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "File:A B.jpg", audit.title)

	_, err = server.handleFileResource(context.Background(), readRequest("bad://x"))
	assert.Error(t, err)
}
