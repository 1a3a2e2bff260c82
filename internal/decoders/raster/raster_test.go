package raster

import (
	"bytes"
	"context"
	"encoding/binary"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"

	"github.com/custodia-labs/embedscan/internal/core/domain"
	"github.com/custodia-labs/embedscan/internal/stream"
)

var zipTail = append([]byte("PK\x03\x04\x14\x00\x00\x00\x08\x00"), bytes.Repeat([]byte{0x5A}, 300)...)

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 32, 24))
	for y := 0; y < 24; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 8), G: uint8(y * 10), B: 128, A: 255})
		}
	}
	return img
}

func encodeJPEG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, testImage(), &jpeg.Options{Quality: 80}))
	return buf.Bytes()
}

func encodePNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage()))
	return buf.Bytes()
}

func encodeGIF(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, gif.Encode(&buf, testImage(), nil))
	return buf.Bytes()
}

func source(data []byte) *stream.SubRange {
	return stream.NewSubRange(bytes.NewReader(data), 0, int64(len(data)))
}

func TestDecoder_Metadata(t *testing.T) {
	d := New()
	assert.Equal(t, Name, d.Name())
	assert.True(t, d.Supported())
	assert.ElementsMatch(t, []string{"gif", "jpeg", "jpg", "png", "tiff"}, d.Subtypes())
}

func TestProbe_ExactBoundary(t *testing.T) {
	tests := []struct {
		name   string
		encode func(*testing.T) []byte
	}{
		{"jpeg", encodeJPEG},
		{"png", encodePNG},
		{"gif", encodeGIF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := tt.encode(t)
			d := New(WithChunkSize(256))

			clean, err := d.Probe(context.Background(), source(img))
			require.NoError(t, err)
			assert.Equal(t, int64(len(img)), clean.Offset)
			assert.True(t, clean.Exact)

			withTail := append(append([]byte{}, img...), zipTail...)
			probe, err := d.Probe(context.Background(), source(withTail))
			require.NoError(t, err)
			assert.Equal(t, int64(len(img)), probe.Offset)
			assert.True(t, probe.Exact)
		})
	}
}

func TestProbe_TIFF(t *testing.T) {
	tests := []struct {
		name string
		opts *tiff.Options
	}{
		{"uncompressed", nil},
		{"deflate", &tiff.Options{Compression: tiff.Deflate}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, tiff.Encode(&buf, testImage(), tt.opts))

			clean, err := New().Probe(context.Background(), source(buf.Bytes()))
			require.NoError(t, err)
			assert.Equal(t, int64(buf.Len()), clean.Offset)
			assert.True(t, clean.Exact)

			data := append(append([]byte{}, buf.Bytes()...), zipTail...)
			probe, err := New().Probe(context.Background(), source(data))
			require.NoError(t, err)
			assert.Equal(t, int64(buf.Len()), probe.Offset)
			assert.True(t, probe.Exact)
		})
	}
}

// smallTIFF builds a 1x1 grayscale TIFF whose strip is followed by an XMP
// packet and an EXIF IFD with an out-of-line user comment. valueShift moves
// the XMP offset, letting tests point it past the end of the file.
func smallTIFF(xmp, note []byte, valueShift uint32) []byte {
	le := binary.LittleEndian
	const ifd0 = 8
	const entries0 = 11
	strip := uint32(ifd0 + 2 + entries0*12 + 4)
	xmpOff := strip + 1
	exifOff := xmpOff + uint32(len(xmp))
	noteOff := exifOff + 2 + 12 + 4

	b := []byte{'I', 'I', 42, 0}
	b = le.AppendUint32(b, ifd0)
	entry := func(tag, typ uint16, count, value uint32) {
		b = le.AppendUint16(b, tag)
		b = le.AppendUint16(b, typ)
		b = le.AppendUint32(b, count)
		b = le.AppendUint32(b, value)
	}

	b = le.AppendUint16(b, entries0)
	entry(256, 3, 1, 1)
	entry(257, 3, 1, 1)
	entry(258, 3, 1, 8)
	entry(259, 3, 1, 1)
	entry(262, 3, 1, 1)
	entry(273, 4, 1, strip)
	entry(277, 3, 1, 1)
	entry(278, 3, 1, 1)
	entry(279, 4, 1, 1)
	entry(700, 1, uint32(len(xmp)), xmpOff+valueShift)
	entry(34665, 4, 1, exifOff)
	b = le.AppendUint32(b, 0)

	b = append(b, 0x80)
	b = append(b, xmp...)

	b = le.AppendUint16(b, 1)
	entry(37510, 7, uint32(len(note)), noteOff)
	b = le.AppendUint32(b, 0)
	return append(b, note...)
}

func TestProbe_TIFFMetadataAfterStrip(t *testing.T) {
	xmp := []byte(`<?xpacket begin="" id="W5M0MpCehiHzreSzNTczkc9d"?><x:xmpmeta xmlns:x="adobe:ns:meta/"></x:xmpmeta><?xpacket end="w"?>`)
	note := []byte("ASCII\x00\x00\x00scanned on a flatbed")
	img := smallTIFF(xmp, note, 0)

	clean, err := New().Probe(context.Background(), source(img))
	require.NoError(t, err)
	assert.Equal(t, int64(len(img)), clean.Offset)
	assert.True(t, clean.Exact)

	withTail := append(append([]byte{}, img...), zipTail...)
	probe, err := New().Probe(context.Background(), source(withTail))
	require.NoError(t, err)
	assert.Equal(t, int64(len(img)), probe.Offset)
}

func TestProbe_TIFFValueBeyondEnd(t *testing.T) {
	img := smallTIFF([]byte("<x:xmpmeta/>"), []byte("ASCII\x00\x00\x00note"), 4096)

	_, err := New().Probe(context.Background(), source(img))
	assert.ErrorIs(t, err, domain.ErrDetectionFailed)
}

func TestProbe_Truncated(t *testing.T) {
	img := encodeJPEG(t)

	_, err := New().Probe(context.Background(), source(img[:len(img)/2]))
	assert.ErrorIs(t, err, domain.ErrDetectionFailed)
}

func TestProbe_UnknownSignature(t *testing.T) {
	_, err := New().Probe(context.Background(), source([]byte("not an image at all")))
	assert.ErrorIs(t, err, domain.ErrDetectionFailed)
}

func TestProbe_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Probe(ctx, source(encodePNG(t)))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProbe_SubRange(t *testing.T) {
	img := encodePNG(t)
	data := append(append([]byte("leading junk"), img...), zipTail...)
	view := stream.NewSubRange(bytes.NewReader(data), 12, int64(len(data)-12))

	probe, err := New().Probe(context.Background(), view)
	require.NoError(t, err)
	assert.Equal(t, int64(len(img)), probe.Offset)
}
