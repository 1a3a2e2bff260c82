package mcp

import (
	"context"
	"io"

	"github.com/custodia-labs/embedscan/internal/core/domain"
)

// mockDetector is a mock implementation of driving.Detector.
type mockDetector struct {
	detection *domain.Detection
	err       error
	path      string
}

func (m *mockDetector) Detect(_ context.Context, _ io.ReaderAt, _ int64) (*domain.Detection, error) {
	return m.detection, m.err
}

func (m *mockDetector) DetectFile(_ context.Context, path string) (*domain.Detection, error) {
	m.path = path
	return m.detection, m.err
}

// mockAuditService is a mock implementation of driving.AuditService.
type mockAuditService struct {
	records []domain.AuditRecord
	err     error
	title   string
	limit   int
}

func (m *mockAuditService) Recent(_ context.Context, limit int) ([]domain.AuditRecord, error) {
	m.limit = limit
	return m.records, m.err
}

func (m *mockAuditService) ForTitle(_ context.Context, title string) ([]domain.AuditRecord, error) {
	m.title = title
	return m.records, m.err
}
