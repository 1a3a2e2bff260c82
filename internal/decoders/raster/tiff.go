package raster

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/custodia-labs/embedscan/internal/stream"
)

// TIFF tags whose values point at further structures.
const (
	tagStripOffsets     = 273
	tagStripByteCounts  = 279
	tagTileOffsets      = 324
	tagTileByteCounts   = 325
	tagSubIFDs          = 330
	tagJPEGInterchange  = 513
	tagJPEGInterchangeN = 514
	tagExifIFD          = 34665
	tagGPSIFD           = 34853
	tagInteropIFD       = 40965

	typeIFD = 13

	maxIFDs = 1024
)

// tiffTypeSize maps a TIFF field type to its size in bytes. Fields of any
// other type cannot be sized and are skipped.
var tiffTypeSize = map[uint16]int64{
	1: 1, 2: 1, 3: 2, 4: 4, 5: 8, 6: 1, 7: 1, 8: 2, 9: 4, 10: 8, 11: 4, 12: 8, 13: 4,
}

// segmentTags pairs offset tags with their byte count tags.
var segmentTags = map[uint16]uint16{
	tagStripOffsets:    tagStripByteCounts,
	tagTileOffsets:     tagTileByteCounts,
	tagJPEGInterchange: tagJPEGInterchangeN,
}

var ifdPointerTags = map[uint16]bool{
	tagSubIFDs:    true,
	tagExifIFD:    true,
	tagGPSIFD:     true,
	tagInteropIFD: true,
}

type tiffWalker struct {
	r     *stream.ChunkedProxy
	order binary.ByteOrder
	seen  map[int64]bool
	queue []int64
}

// readTIFFMetadata reads every IFD of the file through p, following the
// next-IFD chain and the SubIFD, EXIF, GPS and interoperability pointers.
// Each out-of-line tag value and each strip, tile and thumbnail segment is
// read, so the mark covers every byte the file references.
func readTIFFMetadata(p *stream.ChunkedProxy) error {
	var head [8]byte
	if err := readFull(p, head[:], 0); err != nil {
		return err
	}

	w := &tiffWalker{r: p, seen: make(map[int64]bool)}
	switch string(head[:2]) {
	case "II":
		w.order = binary.LittleEndian
	case "MM":
		w.order = binary.BigEndian
	default:
		return fmt.Errorf("tiff: byte order %q", head[:2])
	}
	w.queue = append(w.queue, int64(w.order.Uint32(head[4:8])))

	for len(w.queue) > 0 {
		off := w.queue[0]
		w.queue = w.queue[1:]
		if off == 0 || w.seen[off] {
			continue
		}
		if len(w.seen) >= maxIFDs {
			return fmt.Errorf("tiff: more than %d IFDs", maxIFDs)
		}
		w.seen[off] = true
		if err := w.ifd(off); err != nil {
			return err
		}
	}
	return nil
}

func (w *tiffWalker) ifd(off int64) error {
	var count [2]byte
	if err := readFull(w.r, count[:], off); err != nil {
		return fmt.Errorf("tiff: IFD at %d: %w", off, err)
	}
	n := int64(w.order.Uint16(count[:]))

	entries := make([]byte, n*12+4)
	if err := readFull(w.r, entries, off+2); err != nil {
		return fmt.Errorf("tiff: IFD at %d: %w", off, err)
	}

	values := make(map[uint16][]int64)
	for i := int64(0); i < n; i++ {
		e := entries[i*12 : i*12+12]
		tag := w.order.Uint16(e[0:2])
		typ := w.order.Uint16(e[2:4])
		size, ok := tiffTypeSize[typ]
		if !ok {
			continue
		}

		raw := e[8:12]
		length := size * int64(w.order.Uint32(e[4:8]))
		if length > 4 {
			at := int64(w.order.Uint32(raw))
			if at+length > w.r.Size() {
				return fmt.Errorf("tiff: tag %d value at %d+%d beyond end of file", tag, at, length)
			}
			raw = make([]byte, length)
			if err := readFull(w.r, raw, at); err != nil {
				return fmt.Errorf("tiff: tag %d: %w", tag, err)
			}
		} else {
			raw = raw[:length]
		}

		if _, ok := segmentTags[tag]; ok || isCountTag(tag) || ifdPointerTags[tag] || typ == typeIFD {
			values[tag] = w.ints(typ, raw)
		}
		if ifdPointerTags[tag] || typ == typeIFD {
			w.queue = append(w.queue, values[tag]...)
		}
	}
	w.queue = append(w.queue, int64(w.order.Uint32(entries[n*12:])))

	for offTag, countTag := range segmentTags {
		if err := w.segments(values[offTag], values[countTag]); err != nil {
			return err
		}
	}
	return nil
}

// segments reads the last byte of every non-empty segment.
func (w *tiffWalker) segments(offsets, counts []int64) error {
	var last [1]byte
	for i, off := range offsets {
		if i >= len(counts) || counts[i] <= 0 {
			continue
		}
		end := off + counts[i]
		if end > w.r.Size() {
			return fmt.Errorf("tiff: segment at %d+%d beyond end of file", off, counts[i])
		}
		if err := readFull(w.r, last[:], end-1); err != nil {
			return err
		}
	}
	return nil
}

// ints decodes SHORT, LONG and IFD values.
func (w *tiffWalker) ints(typ uint16, raw []byte) []int64 {
	var out []int64
	switch typ {
	case 3:
		for i := 0; i+2 <= len(raw); i += 2 {
			out = append(out, int64(w.order.Uint16(raw[i:])))
		}
	case 4, typeIFD:
		for i := 0; i+4 <= len(raw); i += 4 {
			out = append(out, int64(w.order.Uint32(raw[i:])))
		}
	}
	return out
}

func isCountTag(tag uint16) bool {
	for _, c := range segmentTags {
		if c == tag {
			return true
		}
	}
	return false
}

func readFull(r io.ReaderAt, b []byte, off int64) error {
	n, err := r.ReadAt(b, off)
	if n == len(b) {
		return nil
	}
	if err == nil || err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return err
}
