package driven

import (
	"context"
	"io"

	"github.com/custodia-labs/embedscan/internal/core/domain"
)

// Classification is the coarse type of a byte range.
type Classification struct {
	// MIME is the sniffed type, e.g. image/jpeg.
	MIME domain.MIME

	// Description is the classifier's long, human-readable description.
	Description string
}

// Classifier sniffs the type of a byte stream.
// Failures are reported, never retried.
type Classifier interface {
	// Name identifies the classifier in logs.
	Name() string

	// Classify reads r (typically a bounded window) and returns its type.
	Classify(ctx context.Context, r io.Reader) (Classification, error)
}
