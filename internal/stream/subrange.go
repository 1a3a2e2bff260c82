package stream

import (
	"fmt"
	"io"

	"github.com/custodia-labs/embedscan/internal/core/domain"
)

// SubRange presents [start, start+size) of a source as an independent,
// 0-based seekable stream. Reads never leave the window.
type SubRange struct {
	src   io.ReaderAt
	start int64
	size  int64
	pos   int64
}

// NewSubRange creates a window of size bytes starting at start.
func NewSubRange(src io.ReaderAt, start, size int64) *SubRange {
	if size < 0 {
		size = 0
	}
	return &SubRange{src: src, start: start, size: size}
}

// Size returns the window length.
func (s *SubRange) Size() int64 {
	return s.size
}

// Start returns the absolute offset of the window in the underlying source.
func (s *SubRange) Start() int64 {
	return s.start
}

// Tell returns the cursor relative to the window start.
func (s *SubRange) Tell() int64 {
	return s.pos
}

// Read reads up to len(b) bytes, clamped to the bytes left in the window.
func (s *SubRange) Read(b []byte) (int, error) {
	if s.pos >= s.size {
		return 0, io.EOF
	}
	if remaining := s.size - s.pos; int64(len(b)) > remaining {
		b = b[:remaining]
	}
	n, err := s.src.ReadAt(b, s.start+s.pos)
	s.pos += int64(n)
	if err == io.EOF && n > 0 {
		err = nil
	}
	return n, err
}

// ReadAt reads at an offset relative to the window start.
func (s *SubRange) ReadAt(b []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("%w: negative offset %d", domain.ErrInvalidInput, off)
	}
	if off >= s.size {
		return 0, io.EOF
	}
	want := b
	if remaining := s.size - off; int64(len(want)) > remaining {
		want = want[:remaining]
	}
	n, err := s.src.ReadAt(want, s.start+off)
	if err == nil && n < len(b) {
		err = io.EOF
	}
	return n, err
}

// Seek moves the cursor. io.SeekStart and io.SeekCurrent clamp into the
// window; io.SeekEnd requires a non-positive offset.
func (s *SubRange) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = s.pos + offset
	case io.SeekEnd:
		if offset > 0 {
			return s.pos, fmt.Errorf("%w: positive offset %d from end", domain.ErrInvalidInput, offset)
		}
		abs = s.size + offset
	default:
		return s.pos, fmt.Errorf("%w: whence %d", domain.ErrInvalidInput, whence)
	}

	s.pos = min(max(abs, 0), s.size)
	return s.pos, nil
}
