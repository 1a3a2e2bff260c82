// Package stream provides the byte-source views the boundary detectors read through.
//
//   - ChunkedProxy: a seekable view over a random-access source that buffers one
//     fixed-size chunk and records the furthest offset any operation reached
//     (the high-water mark). Decoders run against it, and the mark tells how
//     much of the input they actually needed.
//   - SubRange: an independent, 0-based window [start, start+size) over a source,
//     used to re-classify and re-probe a trailing remainder without copying it.
//   - BitReader: a forward-only most-significant-bit-first bit reader.
//   - File: an opened local file that knows its size.
//
// Every view owns its own cursor. None of them closes the source it wraps.
package stream
