// Package media probes audio and video containers by re-multiplexing them
// with ffmpeg and measuring the output.
package media

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/custodia-labs/embedscan/internal/command"
	"github.com/custodia-labs/embedscan/internal/core/domain"
	"github.com/custodia-labs/embedscan/internal/core/ports/driven"
	"github.com/custodia-labs/embedscan/internal/logger"
)

// Name identifies the decoder in findings.
const Name = "ffmpeg"

// Ensure Decoder implements the interface.
var _ driven.Decoder = (*Decoder)(nil)

// Decoder probes Ogg, WAV, FLAC and WebM media.
type Decoder struct {
	binary     string
	scratchDir string
	runner     command.Runner
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithBinary sets the ffmpeg executable.
func WithBinary(path string) Option {
	return func(d *Decoder) {
		d.binary = path
	}
}

// WithScratchDir sets where transcoded outputs are written when the probe
// context carries no scratch directory.
func WithScratchDir(dir string) Option {
	return func(d *Decoder) {
		d.scratchDir = dir
	}
}

// WithRunner replaces the command runner.
func WithRunner(r command.Runner) Option {
	return func(d *Decoder) {
		d.runner = r
	}
}

// New creates a media decoder.
func New(opts ...Option) *Decoder {
	d := &Decoder{
		binary:     "ffmpeg",
		scratchDir: os.TempDir(),
		runner:     command.ExecRunner{},
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
	return []string{"flac", "ogg", "wav", "webm", "x-flac", "x-wav"}
}

// Supported returns true.
func (d *Decoder) Supported() bool {
	return true
}

// Probe copies the streams of src into a new container of the same family
// and returns the size of that container. The boundary is approximate:
// re-multiplexing is not byte-identical and ffmpeg may skip unreadable tails.
func (d *Decoder) Probe(ctx context.Context, src driven.Source) (driven.Probe, error) {
	muxer, err := sniff(src)
	if err != nil {
		return driven.Probe{}, err
	}

	dir := d.scratchDir
	if scratch, ok := driven.ScratchDir(ctx); ok {
		dir = scratch
	}
	out, err := os.CreateTemp(dir, "remux-*."+muxer)
	if err != nil {
		return driven.Probe{}, fmt.Errorf("creating transcode output: %w", err)
	}
	outPath := out.Name()
	out.Close()
	defer os.Remove(outPath)

	logger.Debug("ffmpeg: remuxing %d bytes as %s", src.Size(), muxer)
	args := []string{
		"-loglevel", "error",
		"-y",
		"-i", "pipe:0",
		"-map", "0",
		"-c", "copy",
		"-f", muxer,
		outPath,
	}
	stdin := io.NewSectionReader(src, 0, src.Size())
	if _, err := d.runner.Run(ctx, stdin, d.binary, args...); err != nil {
		return driven.Probe{}, fmt.Errorf("%w: %w", domain.ErrDetectionFailed, err)
	}

	info, err := os.Stat(outPath)
	if err != nil {
		return driven.Probe{}, fmt.Errorf("%w: %w", domain.ErrDetectionFailed, err)
	}
	if info.Size() == 0 {
		return driven.Probe{}, fmt.Errorf("%w: empty remux output", domain.ErrDetectionFailed)
	}
	return driven.Probe{Offset: info.Size(), Exact: false}, nil
}

// sniff maps the container signature of src to an ffmpeg muxer name.
func sniff(src io.ReaderAt) (string, error) {
	var head [12]byte
	n, err := src.ReadAt(head[:], 0)
	if err != nil && err != io.EOF {
		return "", err
	}
	b := head[:n]

	switch {
	case len(b) >= 4 && string(b[:4]) == "OggS":
		return "ogg", nil
	case len(b) >= 4 && string(b[:4]) == "fLaC":
		return "flac", nil
	case len(b) >= 12 && string(b[:4]) == "RIFF" && string(b[8:12]) == "WAVE":
		return "wav", nil
	case len(b) >= 4 && string(b[:4]) == "\x1a\x45\xdf\xa3":
		return "webm", nil
	default:
		return "", fmt.Errorf("%w: unrecognised media signature % x", domain.ErrDetectionFailed, b)
	}
}
