package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"sync"

	"github.com/custodia-labs/embedscan/internal/core/domain"
	"github.com/custodia-labs/embedscan/internal/core/ports/driven"
	"github.com/custodia-labs/embedscan/internal/core/ports/driving"
)

// upload records one Upload call.
type upload struct {
	title   string
	content []byte
	comment string
}

// mockPlatform is an in-memory wiki. Deleting a page removes it and its
// history, so existence checks after a delete see it gone.
type mockPlatform struct {
	mu sync.Mutex

	username   string
	pages      map[string]bool
	history    map[string]domain.FileHistory
	historyErr error
	edits      map[string]int
	usage      []string
	usageErr   error
	content    map[string][]byte

	// Each *Errs slice is consumed one error per call; nil entries succeed.
	uploadErrs  []error
	deleteErrs  []error
	protectErrs map[driven.ProtectionType]error
	revdelErr   error
	prependErr  error

	historyCalls int
	revdelCalls  int
	uploads      []upload
	deletes      []string
	protections  []driven.Protection
	revdels      []string
	prepends     []string
}

func newMockPlatform() *mockPlatform {
	return &mockPlatform{
		username:    "Embedded Data Bot",
		pages:       make(map[string]bool),
		history:     make(map[string]domain.FileHistory),
		edits:       make(map[string]int),
		content:     make(map[string][]byte),
		protectErrs: make(map[driven.ProtectionType]error),
	}
}

func (m *mockPlatform) addFile(title string, hist domain.FileHistory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[title] = true
	m.history[title] = hist
}

func (m *mockPlatform) PageExists(_ context.Context, title string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pages[title], nil
}

func (m *mockPlatform) FileHistory(_ context.Context, title string) (domain.FileHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.historyCalls++
	if m.historyErr != nil {
		return nil, m.historyErr
	}
	hist, ok := m.history[title]
	if !ok || len(hist) == 0 {
		return nil, domain.ErrPageMissing
	}
	return append(domain.FileHistory(nil), hist...), nil
}

func (m *mockPlatform) EditCount(_ context.Context, user string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.edits[user], nil
}

func (m *mockPlatform) GlobalUsage(_ context.Context, _ string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.usage, m.usageErr
}

func (m *mockPlatform) Download(_ context.Context, rev domain.RevisionRef, w io.Writer) error {
	m.mu.Lock()
	data, ok := m.content[rev.URL]
	m.mu.Unlock()
	if !ok {
		return errors.New("404 not found")
	}
	_, err := w.Write(data)
	return err
}

func (m *mockPlatform) Upload(_ context.Context, title string, content io.Reader, comment string) error {
	data, err := io.ReadAll(content)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.uploadErrs) > 0 {
		err, m.uploadErrs = m.uploadErrs[0], m.uploadErrs[1:]
		if err != nil {
			return err
		}
	}
	m.uploads = append(m.uploads, upload{title: title, content: data, comment: comment})
	return nil
}

func (m *mockPlatform) Delete(_ context.Context, title, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.deleteErrs) > 0 {
		var err error
		err, m.deleteErrs = m.deleteErrs[0], m.deleteErrs[1:]
		if err != nil {
			return err
		}
	}
	m.deletes = append(m.deletes, title)
	delete(m.pages, title)
	delete(m.history, title)
	return nil
}

func (m *mockPlatform) Protect(_ context.Context, _ string, p driven.Protection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.protectErrs[p.Type]; err != nil {
		return err
	}
	m.protections = append(m.protections, p)
	return nil
}

func (m *mockPlatform) RevisionDelete(_ context.Context, _, archiveID, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revdelCalls++
	if m.revdelErr != nil {
		return m.revdelErr
	}
	m.revdels = append(m.revdels, archiveID)
	return nil
}

func (m *mockPlatform) Prepend(_ context.Context, _, text, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.prependErr != nil {
		return m.prependErr
	}
	m.prepends = append(m.prepends, text)
	return nil
}

func (m *mockPlatform) Username() string {
	return m.username
}

// mockClassifier classifies a window by its three-byte tag.
type mockClassifier struct {
	err error
}

var tagTypes = map[string]string{
	"JPG": "image/jpeg",
	"PNG": "image/png",
	"ZIP": "application/zip",
	"TXT": "text/plain",
}

func (m *mockClassifier) Name() string { return "mock" }

func (m *mockClassifier) Classify(_ context.Context, r io.Reader) (driven.Classification, error) {
	if m.err != nil {
		return driven.Classification{}, m.err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return driven.Classification{}, err
	}

	typ := domain.GenericBinary
	if len(data) >= 3 {
		if t, ok := tagTypes[string(data[:3])]; ok {
			typ = t
		}
	}
	mime, err := domain.ParseMIME(typ)
	if err != nil {
		return driven.Classification{}, err
	}
	return driven.Classification{MIME: mime, Description: "mock " + typ}, nil
}

// markerDecoder treats everything up to and including "EOI" as content.
// A stream without the marker decodes completely.
type markerDecoder struct {
	subtypes []string
	err      error
	exact    bool
}

func (d *markerDecoder) Name() string       { return "marker" }
func (d *markerDecoder) Subtypes() []string { return d.subtypes }
func (d *markerDecoder) Supported() bool    { return true }

func (d *markerDecoder) Probe(_ context.Context, src driven.Source) (driven.Probe, error) {
	if d.err != nil {
		return driven.Probe{}, d.err
	}
	data, err := io.ReadAll(io.NewSectionReader(src, 0, src.Size()))
	if err != nil {
		return driven.Probe{}, err
	}
	i := bytes.Index(data, []byte("EOI"))
	if i < 0 {
		return driven.Probe{Offset: src.Size(), Exact: d.exact}, nil
	}
	return driven.Probe{Offset: int64(i + 3), Exact: d.exact}, nil
}

// mockRegistry maps subtypes to decoders.
type mockRegistry struct {
	decoders map[string]driven.Decoder
}

func newMockRegistry(decoders ...driven.Decoder) *mockRegistry {
	r := &mockRegistry{decoders: make(map[string]driven.Decoder)}
	for _, d := range decoders {
		r.Register(d)
	}
	return r
}

func (r *mockRegistry) Register(d driven.Decoder) {
	for _, s := range d.Subtypes() {
		r.decoders[s] = d
	}
}

func (r *mockRegistry) Lookup(subtype string) (driven.Decoder, error) {
	d, ok := r.decoders[subtype]
	if !ok {
		return nil, domain.ErrUnexpectedFormat
	}
	return d, nil
}

func (r *mockRegistry) Subtypes() []string {
	out := make([]string, 0, len(r.decoders))
	for s := range r.decoders {
		out = append(out, s)
	}
	return out
}

// mockDetector returns a fixed detection.
type mockDetector struct {
	mu        sync.Mutex
	detection *domain.Detection
	err       error
	panicOn   string
	calls       int
	lastPath    string
	lastScratch string
}

func (m *mockDetector) Detect(_ context.Context, _ io.ReaderAt, _ int64) (*domain.Detection, error) {
	return m.detection, m.err
}

func (m *mockDetector) DetectFile(ctx context.Context, path string) (*domain.Detection, error) {
	m.mu.Lock()
	m.calls++
	m.lastPath = path
	m.lastScratch, _ = driven.ScratchDir(ctx)
	m.mu.Unlock()
	if m.panicOn != "" {
		data, _ := readFileString(path)
		if data == m.panicOn {
			panic("decoder bug")
		}
	}
	return m.detection, m.err
}

// mockRemediator records requests and reports when Wait ran.
type mockRemediator struct {
	result   driving.RemediationResult
	err      error
	requests []driving.RemediationRequest
	pathSeen bool
	waited   bool
}

func (m *mockRemediator) Decide(_ context.Context, _ driving.RemediationRequest) (domain.Action, error) {
	return m.result.Action, m.err
}

func (m *mockRemediator) Remediate(_ context.Context, req driving.RemediationRequest) (driving.RemediationResult, error) {
	m.requests = append(m.requests, req)
	_, err := readFileString(req.Path)
	m.pathSeen = err == nil
	return m.result, m.err
}

func (m *mockRemediator) Wait() {
	m.waited = true
}

func readFileString(path string) (string, error) {
	data, err := os.ReadFile(path)
	return string(data), err
}
