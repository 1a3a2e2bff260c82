package driven

import (
	"context"
	"io"
)

// Source is a random-access byte source of known length.
// Files, sub-range views and chunked proxies all satisfy it.
type Source interface {
	io.ReaderAt
	Size() int64
}

// Probe is where a decoder found the legitimate content to end.
type Probe struct {
	// Offset is the boundary, relative to the start of the probed source.
	Offset int64

	// Exact is true when the boundary came from parsing to a structural end
	// marker, false when it was estimated from a re-encoded copy.
	Exact bool
}

// Decoder probes one family of formats.
type Decoder interface {
	// Name identifies the decoder in findings and logs.
	Name() string

	// Subtypes returns the MIME subtypes this decoder is registered for.
	Subtypes() []string

	// Supported is false for placeholder decoders whose probe is not implemented.
	Supported() bool

	// Probe decodes src and reports the boundary. Any error means the
	// boundary could not be determined.
	Probe(ctx context.Context, src Source) (Probe, error)
}

// DecoderRegistry maps MIME subtypes to decoders.
type DecoderRegistry interface {
	// Register adds a decoder for each of its subtypes.
	// A later registration for the same subtype replaces the earlier one.
	Register(decoder Decoder)

	// Lookup returns the decoder for subtype.
	// Returns domain.ErrUnsupportedFormat for placeholder decoders and
	// domain.ErrUnexpectedFormat for unregistered subtypes.
	Lookup(subtype string) (Decoder, error)

	// Subtypes returns every registered subtype, sorted.
	Subtypes() []string
}
