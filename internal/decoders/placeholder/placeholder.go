// Package placeholder registers formats that are recognised but have no
// working probe yet. Looking one up yields domain.ErrUnsupportedFormat, so the
// engine reports the file instead of silently skipping it.
package placeholder

import (
	"context"
	"fmt"

	"github.com/custodia-labs/embedscan/internal/core/domain"
	"github.com/custodia-labs/embedscan/internal/core/ports/driven"
)

// Ensure Decoder implements the interface.
var _ driven.Decoder = (*Decoder)(nil)

// Decoder stands in for an unimplemented format family.
type Decoder struct {
	name     string
	subtypes []string
}

// New creates a placeholder for the given subtypes.
func New(name string, subtypes ...string) *Decoder {
	return &Decoder{name: name, subtypes: subtypes}
}

// All returns the placeholders for every known but unimplemented family.
func All() []*Decoder {
	return []*Decoder{
		New("vector", "svg+xml", "svg"),
		New("document", "pdf"),
		New("djvu", "vnd.djvu", "djvu", "x-djvu"),
		New("layered", "x-xcf", "xcf"),
		New("deepzoom", "vnd.deepzoom+xml"),
		New("sequenced-audio", "midi", "mid", "x-midi"),
		New("container", "x-matroska", "mp4", "quicktime"),
	}
}

// Name returns the family name.
func (d *Decoder) Name() string {
	return d.name
}

// Subtypes returns the MIME subtypes of the family.
func (d *Decoder) Subtypes() []string {
	return d.subtypes
}

// Supported returns false.
func (d *Decoder) Supported() bool {
	return false
}

// Probe always fails with domain.ErrUnsupportedFormat.
func (d *Decoder) Probe(context.Context, driven.Source) (driven.Probe, error) {
	return driven.Probe{}, fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, d.name)
}
