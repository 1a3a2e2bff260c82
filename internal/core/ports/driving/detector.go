package driving

import (
	"context"
	"io"

	"github.com/custodia-labs/embedscan/internal/core/domain"
)

// Detector finds trailing data appended after the logical end of a file.
type Detector interface {
	// Detect inspects size bytes of src.
	// Returns domain.ErrUnsupportedFormat or domain.ErrUnexpectedFormat when
	// no decoder can handle the stream, and domain.ErrDetectionFailed when
	// the decoder could not establish a boundary.
	Detect(ctx context.Context, src io.ReaderAt, size int64) (*domain.Detection, error)

	// DetectFile inspects a local file.
	DetectFile(ctx context.Context, path string) (*domain.Detection, error)
}
