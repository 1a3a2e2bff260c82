package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotSupported indicates an operation the implementation refuses to perform.
	ErrNotSupported = errors.New("operation not supported")

	// Detection Errors.

	// ErrUnsupportedFormat indicates a recognised format without a working decoder.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrUnexpectedFormat indicates a MIME subtype that no decoder is registered for.
	ErrUnexpectedFormat = errors.New("unexpected format")

	// ErrDetectionFailed indicates a decoder could not establish a boundary.
	ErrDetectionFailed = errors.New("detection failed")

	// ErrSeekFromEnd indicates a decoder attempted to seek relative to the end
	// of a tracked stream. Its boundary cannot be trusted.
	ErrSeekFromEnd = errors.New("seek relative to end of stream")

	// ErrClassifierFailed indicates the MIME classifier could not run.
	ErrClassifierFailed = errors.New("classifier failed")

	// Platform Errors.

	// ErrPlatformConflict indicates a transient conflict or lock on the wiki platform.
	// Operations failing with it may be retried.
	ErrPlatformConflict = errors.New("platform conflict")

	// ErrPageMissing indicates the target page does not exist (any more).
	ErrPageMissing = errors.New("page missing")

	// ErrRevisionMissing indicates an expected file revision is absent from history.
	ErrRevisionMissing = errors.New("revision missing")

	// ErrAttemptsExhausted indicates a bounded retry gave up.
	ErrAttemptsExhausted = errors.New("attempts exhausted")

	// ErrDownloadCorrupted indicates downloaded bytes do not match the recorded checksum.
	ErrDownloadCorrupted = errors.New("download corrupted")

	// ErrProtectionFailed indicates neither protection request succeeded.
	ErrProtectionFailed = errors.New("protection failed")

	// Queue Errors.

	// ErrQueueClosed indicates the event queue was closed while waiting.
	ErrQueueClosed = errors.New("queue closed")
)
