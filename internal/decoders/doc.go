// Package decoders holds the format decoders of the boundary detection engine
// and the registry that selects one by MIME subtype.
//
// Each decoder delegates the decoding itself to a library or external tool
// and derives the boundary from how far that work had to read:
//
//   - raster: Go image decoders over a chunked proxy; exact boundaries
//   - media: ffmpeg re-multiplexing; approximate boundaries
//   - placeholder: recognised formats without a working probe
package decoders
