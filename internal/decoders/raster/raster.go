// Package raster probes raster images by decoding them in full through a
// chunked proxy and reporting the proxy's high-water mark.
package raster

import (
	"context"
	"fmt"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"

	"golang.org/x/image/tiff"

	"github.com/custodia-labs/embedscan/internal/core/domain"
	"github.com/custodia-labs/embedscan/internal/core/ports/driven"
	"github.com/custodia-labs/embedscan/internal/stream"
)

// Name identifies the decoder in findings.
const Name = "raster"

// Ensure Decoder implements the interface.
var _ driven.Decoder = (*Decoder)(nil)

type decodeFunc func(p *stream.ChunkedProxy) error

// Decoder probes JPEG, PNG, GIF and TIFF images.
type Decoder struct {
	chunkSize int
	formats   map[string]decodeFunc
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithChunkSize sets the proxy chunk size.
func WithChunkSize(n int) Option {
	return func(d *Decoder) {
		if n > 0 {
			d.chunkSize = n
		}
	}
}

// New creates a raster decoder.
func New(opts ...Option) *Decoder {
	d := &Decoder{
		chunkSize: stream.DefaultChunkSize,
		formats: map[string]decodeFunc{
			"jpeg": decodeJPEG,
			"jpg":  decodeJPEG,
			"png":  decodePNG,
			"gif":  decodeGIF,
			"tiff": decodeTIFF,
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Name returns the decoder name.
func (d *Decoder) Name() string {
	return Name
}

// Subtypes returns the MIME subtypes this decoder handles.
func (d *Decoder) Subtypes() []string {
	return []string{"gif", "jpeg", "jpg", "png", "tiff"}
}

// Supported returns true.
func (d *Decoder) Supported() bool {
	return true
}

// Probe decodes src completely and returns the furthest offset the decoder
// read. The format is sniffed from the leading bytes, so the subtype the
// caller classified does not need to be passed in.
func (d *Decoder) Probe(ctx context.Context, src driven.Source) (driven.Probe, error) {
	if err := ctx.Err(); err != nil {
		return driven.Probe{}, err
	}

	format, err := sniff(src)
	if err != nil {
		return driven.Probe{}, err
	}
	decode, ok := d.formats[format]
	if !ok {
		return driven.Probe{}, fmt.Errorf("%w: raster %s", domain.ErrUnsupportedFormat, format)
	}

	// One byte per Read keeps read-ahead buffers inside the decoders from
	// pulling the mark past the end marker.
	proxy := stream.NewChunkedProxy(src, src.Size(),
		stream.WithChunkSize(d.chunkSize), stream.WithMaxRead(1))

	if err := decode(proxy); err != nil {
		return driven.Probe{}, fmt.Errorf("%w: %s: %w", domain.ErrDetectionFailed, format, err)
	}
	return driven.Probe{Offset: proxy.HighWaterMark(), Exact: true}, nil
}

// sniff reads the magic bytes of src without a proxy.
func sniff(src io.ReaderAt) (string, error) {
	var head [8]byte
	n, err := src.ReadAt(head[:], 0)
	if err != nil && err != io.EOF {
		return "", err
	}
	b := head[:n]

	switch {
	case len(b) >= 3 && b[0] == 0xFF && b[1] == 0xD8 && b[2] == 0xFF:
		return "jpeg", nil
	case len(b) >= 8 && string(b) == "\x89PNG\r\n\x1a\n":
		return "png", nil
	case len(b) >= 6 && (string(b[:6]) == "GIF87a" || string(b[:6]) == "GIF89a"):
		return "gif", nil
	case len(b) >= 4 && (string(b[:4]) == "II*\x00" || string(b[:4]) == "MM\x00*"):
		return "tiff", nil
	default:
		return "", fmt.Errorf("%w: unrecognised raster signature % x", domain.ErrDetectionFailed, b)
	}
}

// The image packages decode pixel data in full, which drags the proxy
// cursor through every structure of the file. TIFF is read through the
// proxy's ReadAt and only touches the tags it needs for pixels, so its
// metadata is read separately.

func decodeJPEG(p *stream.ChunkedProxy) error {
	_, err := jpeg.Decode(p)
	return err
}

func decodePNG(p *stream.ChunkedProxy) error {
	_, err := png.Decode(p)
	return err
}

func decodeGIF(p *stream.ChunkedProxy) error {
	_, err := gif.DecodeAll(p)
	return err
}

func decodeTIFF(p *stream.ChunkedProxy) error {
	if _, err := tiff.Decode(p); err != nil {
		return err
	}
	return readTIFFMetadata(p)
}
