// Package magic classifies byte streams in-process by their magic bytes.
// It serves hosts without the file(1) utility.
package magic

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/custodia-labs/embedscan/internal/core/domain"
	"github.com/custodia-labs/embedscan/internal/core/ports/driven"
)

// Name identifies the classifier.
const Name = "magic"

// Ensure Classifier implements the interface.
var _ driven.Classifier = (*Classifier)(nil)

// Classifier matches the leading bytes against the mimetype signature tree.
type Classifier struct{}

// New creates a magic classifier.
func New() *Classifier {
	return &Classifier{}
}

// Name returns the classifier name.
func (c *Classifier) Name() string {
	return Name
}

// Classify detects the type of r from its header.
func (c *Classifier) Classify(ctx context.Context, r io.Reader) (driven.Classification, error) {
	if err := ctx.Err(); err != nil {
		return driven.Classification{}, err
	}

	detected, err := mimetype.DetectReader(r)
	if err != nil {
		return driven.Classification{}, fmt.Errorf("%w: %w", domain.ErrClassifierFailed, err)
	}
	mime, err := domain.ParseMIME(detected.String())
	if err != nil {
		return driven.Classification{}, fmt.Errorf("%w: %w", domain.ErrClassifierFailed, err)
	}

	return driven.Classification{
		MIME:        mime,
		Description: describe(detected),
	}, nil
}

// describe builds a short description such as "ZIP data".
func describe(m *mimetype.MIME) string {
	ext := strings.TrimPrefix(m.Extension(), ".")
	if ext == "" || m.Is(domain.GenericBinary) {
		return "data"
	}
	return strings.ToUpper(ext) + " data"
}
