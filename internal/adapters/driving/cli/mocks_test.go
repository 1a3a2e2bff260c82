package cli

import (
	"bytes"
	"context"
	"io"

	"github.com/custodia-labs/embedscan/internal/core/domain"
)

// mockDetector is a mock implementation of driving.Detector.
type mockDetector struct {
	detection *domain.Detection
	err       error
}

func (m *mockDetector) Detect(_ context.Context, _ io.ReaderAt, _ int64) (*domain.Detection, error) {
	return m.detection, m.err
}

func (m *mockDetector) DetectFile(_ context.Context, _ string) (*domain.Detection, error) {
	return m.detection, m.err
}

// mockWorker is a mock implementation of driving.Worker.
type mockWorker struct {
	runErr   error
	ran      bool
	record   *domain.AuditRecord
	err      error
	events   []domain.ChangeEvent
	enqueued []domain.ChangeEvent
}

func (m *mockWorker) Run(_ context.Context) error {
	m.ran = true
	return m.runErr
}

func (m *mockWorker) Process(_ context.Context, event domain.ChangeEvent) (*domain.AuditRecord, error) {
	m.events = append(m.events, event)
	return m.record, m.err
}

func (m *mockWorker) Enqueue(_ context.Context, event domain.ChangeEvent) error {
	if m.err != nil {
		return m.err
	}
	m.enqueued = append(m.enqueued, event)
	return nil
}

// mockAuditService is a mock implementation of driving.AuditService.
type mockAuditService struct {
	records []domain.AuditRecord
	err     error
	limit   int
	title   string
}

func (m *mockAuditService) Recent(_ context.Context, limit int) ([]domain.AuditRecord, error) {
	m.limit = limit
	return m.records, m.err
}

func (m *mockAuditService) ForTitle(_ context.Context, title string) ([]domain.AuditRecord, error) {
	m.title = title
	return m.records, m.err
}

// mockSettingsService is a mock implementation of driving.SettingsService.
type mockSettingsService struct {
	values      map[string]string
	setErr      error
	validateErr error
}

func (m *mockSettingsService) Get() (*domain.Settings, error) {
	s := domain.DefaultSettings()
	s.Wiki.AccessToken = m.values[accessTokenKey]
	return &s, nil
}

func (m *mockSettingsService) Set(key, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.values[key] = value
	return nil
}

func (m *mockSettingsService) Keys() []string {
	return []string{"queue.key", accessTokenKey}
}

func (m *mockSettingsService) Validate() error {
	return m.validateErr
}

func (m *mockSettingsService) GetDefaults() domain.Settings {
	return domain.DefaultSettings()
}

func (m *mockSettingsService) DisplayValue(key string) string {
	v := m.values[key]
	if key == accessTokenKey && v != "" {
		return "********"
	}
	return v
}

func (m *mockSettingsService) Path() string {
	return "/tmp/embedscan/config.toml"
}

// testServices holds the mocks installed by setupTestServices.
type testServices struct {
	detector *mockDetector
	worker   *mockWorker
	audit    *mockAuditService
	settings *mockSettingsService
}

// setupTestServices installs mocks and returns a cleanup function.
func setupTestServices() (*testServices, func()) {
	ts := &testServices{
		detector: &mockDetector{detection: &domain.Detection{
			Size: 100,
			MIME: domain.MIME{Type: "image", Subtype: "png"},
		}},
		worker:   &mockWorker{},
		audit:    &mockAuditService{},
		settings: &mockSettingsService{values: map[string]string{}},
	}

	oldDetector, oldWorker, oldAudit, oldSettings := detector, workerService, auditService, settingsService
	detector = ts.detector
	workerService = ts.worker
	auditService = ts.audit
	settingsService = ts.settings

	return ts, func() {
		detector, workerService, auditService, settingsService = oldDetector, oldWorker, oldAudit, oldSettings
	}
}

// execute runs the root command with args and returns its output.
func execute(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}
