package flashtlv

import "errors"

// Error classification.
//
// Implementations MAY wrap these with additional context via fmt.Errorf's
// %w. Callers MUST classify using errors.Is.
var (
	// ErrNotFound indicates the tag is absent (Query/Delete).
	ErrNotFound = errors.New("flashtlv: tag not found")

	// ErrNoValidSector indicates sector discovery failed because reading
	// the device itself failed (not because the media is simply blank;
	// blank media is auto-formatted).
	ErrNoValidSector = errors.New("flashtlv: no valid sector")

	// ErrMetaSpaceLow indicates the scan reached the end of the sector
	// with no room left for another block's 8-byte meta.
	ErrMetaSpaceLow = errors.New("flashtlv: meta space low")

	// ErrDataSpaceLow indicates an empty slot was found but the
	// remaining tail is smaller than the requested payload plus its
	// 8-byte meta.
	ErrDataSpaceLow = errors.New("flashtlv: data space low")

	// ErrFull indicates Append could not make room even after running
	// GC once.
	ErrFull = errors.New("flashtlv: sector full after gc")

	// ErrInvalidInput indicates a caller-supplied argument violates an
	// engine invariant (e.g. a payload that can never fit a sector).
	ErrInvalidInput = errors.New("flashtlv: invalid input")

	// ErrWriteback indicates a readback check after a Program call did
	// not match what was just written. The half-written block is left
	// in place; a later scan classifies it as dirty and GC reclaims it.
	ErrWriteback = errors.New("flashtlv: writeback verification failed")
)
