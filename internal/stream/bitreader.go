package stream

import (
	"fmt"
	"io"

	"github.com/custodia-labs/embedscan/internal/core/domain"
)

// BitReader reads a byte stream one bit at a time, most significant bit first.
// It is forward-only: Seek and Tell always fail.
type BitReader struct {
	r    io.ByteReader
	cur  byte
	left uint
}

// NewBitReader creates a bit reader over r.
func NewBitReader(r io.Reader) *BitReader {
	br, ok := r.(io.ByteReader)
	if !ok {
		br = &byteReader{r: r}
	}
	return &BitReader{r: br}
}

// ReadBit returns the next bit (0 or 1).
func (b *BitReader) ReadBit() (uint8, error) {
	if b.left == 0 {
		c, err := b.r.ReadByte()
		if err != nil {
			return 0, err
		}
		b.cur = c
		b.left = 8
	}
	b.left--
	return (b.cur >> b.left) & 1, nil
}

// ReadBits folds the next n bits (n <= 64) into an unsigned value,
// most significant first.
func (b *BitReader) ReadBits(n int) (uint64, error) {
	if n < 0 || n > 64 {
		return 0, fmt.Errorf("%w: bit count %d", domain.ErrInvalidInput, n)
	}
	var v uint64
	for i := 0; i < n; i++ {
		bit, err := b.ReadBit()
		if err != nil {
			if i > 0 && err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return 0, err
		}
		v = v<<1 | uint64(bit)
	}
	return v, nil
}

// Seek is not supported.
func (b *BitReader) Seek(int64, int) (int64, error) {
	return 0, fmt.Errorf("bit reader seek: %w", domain.ErrNotSupported)
}

// Tell is not supported.
func (b *BitReader) Tell() (int64, error) {
	return 0, fmt.Errorf("bit reader tell: %w", domain.ErrNotSupported)
}

type byteReader struct {
	r   io.Reader
	buf [1]byte
}

func (b *byteReader) ReadByte() (byte, error) {
	if _, err := io.ReadFull(b.r, b.buf[:]); err != nil {
		return 0, err
	}
	return b.buf[0], nil
}
