// Package file classifies byte streams with the file(1) utility.
package file

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/embedscan/internal/command"
	"github.com/custodia-labs/embedscan/internal/core/domain"
	"github.com/custodia-labs/embedscan/internal/core/ports/driven"
)

// Name identifies the classifier.
const Name = "file"

// maxInput bounds how much of the stream is handed to file(1).
const maxInput = 1 << 20

// Ensure Classifier implements the interface.
var _ driven.Classifier = (*Classifier)(nil)

// Classifier runs `file -b` over stdin, once for the MIME type and once for
// the long description.
type Classifier struct {
	binary string
	runner command.Runner
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithBinary sets the file executable.
func WithBinary(path string) Option {
	return func(c *Classifier) {
		c.binary = path
	}
}

// WithRunner replaces the command runner.
func WithRunner(r command.Runner) Option {
	return func(c *Classifier) {
		c.runner = r
	}
}

// New creates a file(1) classifier.
func New(opts ...Option) *Classifier {
	c := &Classifier{
		binary: "file",
		runner: command.ExecRunner{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the classifier name.
func (c *Classifier) Name() string {
	return Name
}

// Classify reads up to 1 MiB of r and classifies it.
func (c *Classifier) Classify(ctx context.Context, r io.Reader) (driven.Classification, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxInput))
	if err != nil {
		return driven.Classification{}, fmt.Errorf("%w: reading input: %w", domain.ErrClassifierFailed, err)
	}

	// Not -i: the charset parameter is not wanted.
	out, err := c.runner.Run(ctx, bytes.NewReader(data), c.binary, "--mime-type", "-b", "-")
	if err != nil {
		return driven.Classification{}, fmt.Errorf("%w: %w", domain.ErrClassifierFailed, err)
	}
	mime, err := domain.ParseMIME(string(out))
	if err != nil {
		return driven.Classification{}, fmt.Errorf("%w: %w", domain.ErrClassifierFailed, err)
	}

	out, err = c.runner.Run(ctx, bytes.NewReader(data), c.binary, "-b", "-")
	if err != nil {
		return driven.Classification{}, fmt.Errorf("%w: %w", domain.ErrClassifierFailed, err)
	}

	return driven.Classification{
		MIME:        mime,
		Description: strings.TrimSpace(string(out)),
	}, nil
}
