package stream

import (
	"errors"
	"fmt"
	"io"

	"github.com/custodia-labs/embedscan/internal/core/domain"
)

// DefaultChunkSize is the chunk size used when none is configured.
const DefaultChunkSize = 1 << 16

// ProxyOption configures a ChunkedProxy.
type ProxyOption func(*ChunkedProxy)

// WithChunkSize sets the buffered chunk size.
func WithChunkSize(n int) ProxyOption {
	return func(p *ChunkedProxy) {
		if n > 0 {
			p.chunkSize = int64(n)
		}
	}
}

// WithMaxRead caps the number of bytes a single Read returns.
// Decoders that fill an internal buffer with one large Read would otherwise
// drag the high-water mark past the structure they actually parse.
func WithMaxRead(n int) ProxyOption {
	return func(p *ChunkedProxy) {
		if n > 0 {
			p.maxRead = n
		}
	}
}

// ChunkedProxy is a seekable view over a random-access source.
// It buffers one chunk aligned to a chunk boundary, reloading it only when the
// cursor crosses into another chunk, and tracks the high-water mark: the
// furthest cursor position reached by any read or seek.
//
// Seeking relative to the end of the stream is refused with domain.ErrSeekFromEnd.
// A ChunkedProxy is not safe for concurrent use.
type ChunkedProxy struct {
	src       io.ReaderAt
	size      int64
	chunkSize int64
	maxRead   int

	pos       int64
	chunkPos  int64
	chunk     []byte
	highWater int64
	loads     int
}

// NewChunkedProxy wraps src, whose readable length is size.
func NewChunkedProxy(src io.ReaderAt, size int64, opts ...ProxyOption) *ChunkedProxy {
	p := &ChunkedProxy{
		src:       src,
		size:      size,
		chunkSize: DefaultChunkSize,
		chunkPos:  -1,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.chunk = make([]byte, 0, p.chunkSize)
	return p
}

// Size returns the length of the underlying source.
func (p *ChunkedProxy) Size() int64 {
	return p.size
}

// Tell returns the current cursor.
func (p *ChunkedProxy) Tell() int64 {
	return p.pos
}

// HighWaterMark returns the furthest offset reached so far. It never decreases.
func (p *ChunkedProxy) HighWaterMark() int64 {
	return p.highWater
}

// loadChunk makes the chunk containing the cursor current.
func (p *ChunkedProxy) loadChunk() error {
	base := p.pos - p.pos%p.chunkSize
	if base == p.chunkPos {
		return nil
	}

	buf := p.chunk[:p.chunkSize]
	n, err := p.src.ReadAt(buf, base)
	if err != nil && !errors.Is(err, io.EOF) {
		p.chunkPos = -1
		p.chunk = p.chunk[:0]
		return fmt.Errorf("loading chunk at %d: %w", base, err)
	}
	p.chunk = buf[:n]
	p.chunkPos = base
	p.loads++
	return nil
}

// update raises the high-water mark to the cursor.
func (p *ChunkedProxy) update() {
	if p.pos > p.highWater {
		p.highWater = p.pos
	}
}

// Read reads up to len(p) bytes (capped by WithMaxRead) and advances the cursor.
func (p *ChunkedProxy) Read(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}
	if p.maxRead > 0 && len(b) > p.maxRead {
		b = b[:p.maxRead]
	}

	n := 0
	for n < len(b) && p.pos < p.size {
		if err := p.loadChunk(); err != nil {
			p.update()
			return n, err
		}
		off := p.pos - p.chunkPos
		if off >= int64(len(p.chunk)) {
			break // source shorter than advertised
		}
		c := copy(b[n:], p.chunk[off:])
		n += c
		p.pos += int64(c)
	}
	p.update()

	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

// ReadByte reads a single byte. Implementing io.ByteReader keeps decoders
// from wrapping the proxy in their own read-ahead buffers.
func (p *ChunkedProxy) ReadByte() (byte, error) {
	var b [1]byte
	if _, err := p.Read(b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// Seek moves the cursor. io.SeekEnd is refused: a decoder that reasons from
// the end of the stream cannot report where its own content ends. The cursor
// is clamped to the size of the source, so a seek never raises the mark past
// bytes that exist.
func (p *ChunkedProxy) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = p.pos + offset
	case io.SeekEnd:
		return p.pos, domain.ErrSeekFromEnd
	default:
		return p.pos, fmt.Errorf("%w: whence %d", domain.ErrInvalidInput, whence)
	}
	if abs < 0 {
		return p.pos, fmt.Errorf("%w: negative position %d", domain.ErrInvalidInput, abs)
	}
	if abs > p.size {
		abs = p.size
	}

	p.pos = abs
	p.update()
	return p.pos, nil
}

// ReadAt reads at an absolute offset without moving the cursor or the
// buffered chunk. The high-water mark is raised to off+n.
func (p *ChunkedProxy) ReadAt(b []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("%w: negative offset %d", domain.ErrInvalidInput, off)
	}
	if off >= p.size {
		return 0, io.EOF
	}

	want := b
	if remaining := p.size - off; int64(len(want)) > remaining {
		want = want[:remaining]
	}
	n, err := p.src.ReadAt(want, off)
	if end := off + int64(n); end > p.highWater {
		p.highWater = end
	}
	if err == nil && n < len(b) {
		err = io.EOF
	}
	return n, err
}
