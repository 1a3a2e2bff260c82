package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/custodia-labs/embedscan/internal/core/domain"
	"github.com/custodia-labs/embedscan/internal/core/ports/driven"
	"github.com/custodia-labs/embedscan/internal/core/ports/driving"
	"github.com/custodia-labs/embedscan/internal/logger"
	"github.com/custodia-labs/embedscan/internal/stream"
)

// Ensure DetectionService implements the interface.
var _ driving.Detector = (*DetectionService)(nil)

// DetectionConfig tunes the boundary detection engine.
type DetectionConfig struct {
	// RemainderWindow is how many bytes of a stream are handed to the classifier.
	RemainderWindow int64

	// MajorityThreshold is the fraction of a stream the decoded part must
	// exceed for a generic-binary remainder to be ignored.
	MajorityThreshold float64

	// MaxDepth bounds how many nested payloads are followed.
	MaxDepth int
}

// DetectionConfigFromSettings extracts the engine configuration.
func DetectionConfigFromSettings(s domain.DetectionSettings) DetectionConfig {
	return DetectionConfig{
		RemainderWindow:   s.RemainderWindow,
		MajorityThreshold: s.MajorityThreshold,
		MaxDepth:          s.MaxDepth,
	}
}

// DetectionService is the boundary detection engine. It classifies a stream,
// probes it with the matching decoder, and classifies whatever the decoder
// left unexplained, descending into the remainder while its type resolves to
// another decoder.
type DetectionService struct {
	classifier driven.Classifier
	registry   driven.DecoderRegistry
	cfg        DetectionConfig
}

// NewDetectionService creates a new detection engine.
func NewDetectionService(
	classifier driven.Classifier,
	registry driven.DecoderRegistry,
	cfg DetectionConfig,
) *DetectionService {
	defaults := DetectionConfigFromSettings(domain.DefaultSettings().Detection)
	if cfg.RemainderWindow <= 0 {
		cfg.RemainderWindow = defaults.RemainderWindow
	}
	if cfg.MajorityThreshold <= 0 || cfg.MajorityThreshold >= 1 {
		cfg.MajorityThreshold = defaults.MajorityThreshold
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = defaults.MaxDepth
	}
	return &DetectionService{
		classifier: classifier,
		registry:   registry,
		cfg:        cfg,
	}
}

// DetectFile inspects a local file.
func (s *DetectionService) DetectFile(ctx context.Context, path string) (*domain.Detection, error) {
	f, err := stream.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return s.Detect(ctx, f, f.Size())
}

// Detect inspects size bytes of src. A stream that decodes completely yields
// a Detection without findings.
func (s *DetectionService) Detect(ctx context.Context, src io.ReaderAt, size int64) (*domain.Detection, error) {
	view := stream.NewSubRange(src, 0, size)

	cls, err := s.classify(ctx, view)
	if err != nil {
		return nil, err
	}
	logger.Debug("detect: %d bytes classified as %s (%s)", size, cls.MIME, cls.Description)

	findings, err := s.scan(ctx, view, 0, cls, 0)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidateFindings(findings, size); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrDetectionFailed, err)
	}

	return &domain.Detection{
		Size:        size,
		MIME:        cls.MIME,
		Description: cls.Description,
		Findings:    findings,
	}, nil
}

// scan probes view, whose type is cls and which starts at absolute offset
// base, and returns the findings inside it.
func (s *DetectionService) scan(
	ctx context.Context,
	view *stream.SubRange,
	base int64,
	cls driven.Classification,
	depth int,
) ([]domain.Finding, error) {
	decoder, err := s.registry.Lookup(cls.MIME.Subtype)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cls.MIME, err)
	}

	probe, err := decoder.Probe(ctx, view)
	if err != nil {
		if !errors.Is(err, domain.ErrDetectionFailed) && !errors.Is(err, domain.ErrUnsupportedFormat) {
			err = fmt.Errorf("%w: %w", domain.ErrDetectionFailed, err)
		}
		return nil, fmt.Errorf("%s via %s: %w", cls.MIME, decoder.Name(), err)
	}

	size := view.Size()
	pos := probe.Offset
	logger.Debug("detect: %s consumed %d of %d bytes at %d (exact=%t)", decoder.Name(), pos, size, base, probe.Exact)

	switch {
	case pos >= size:
		return nil, nil
	case pos <= 0:
		return nil, fmt.Errorf("%s via %s: %w: no content decoded", cls.MIME, decoder.Name(), domain.ErrDetectionFailed)
	}

	remainder := stream.NewSubRange(view, pos, size-pos)
	rcls, err := s.classify(ctx, remainder)
	if err != nil {
		return nil, err
	}

	finding := domain.Finding{
		Offset:      base + pos,
		Exact:       probe.Exact,
		Description: rcls.Description,
		Via:         []string{decoder.Name()},
	}

	if rcls.MIME.IsGenericBinary() {
		if float64(pos) > s.cfg.MajorityThreshold*float64(size) {
			logger.Debug("detect: ignoring %d unidentified trailing bytes after %d", size-pos, base+pos)
			return nil, nil
		}
		return []domain.Finding{finding}, nil
	}

	mime := rcls.MIME
	finding.MIME = &mime
	findings := []domain.Finding{finding}

	if depth+1 >= s.cfg.MaxDepth {
		return findings, nil
	}
	nested, err := s.scan(ctx, remainder, base+pos, rcls, depth+1)
	if err != nil {
		logger.Debug("detect: not descending into %s at %d: %v", rcls.MIME, base+pos, err)
		return findings, nil
	}
	return append(findings, nested...), nil
}

// classify hands the leading window of view to the classifier.
func (s *DetectionService) classify(ctx context.Context, view *stream.SubRange) (driven.Classification, error) {
	window := io.NewSectionReader(view, 0, min(view.Size(), s.cfg.RemainderWindow))
	cls, err := s.classifier.Classify(ctx, window)
	if err != nil {
		if !errors.Is(err, domain.ErrClassifierFailed) {
			err = fmt.Errorf("%w: %w", domain.ErrClassifierFailed, err)
		}
		return driven.Classification{}, err
	}
	return cls, nil
}
