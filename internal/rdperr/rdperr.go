// Package rdperr defines the closed set of error kinds the client surfaces
// across protocol layers, so callers can branch on errors.Is rather than
// string-matching messages.
package rdperr

import (
	"errors"
	"fmt"
)

// Kind is a sentinel error identifying a class of failure. Wrap attaches
// context to a Kind while keeping it matchable with errors.Is.
type Kind error

var (
	// InvalidConst indicates a fixed wire constant did not match what was read.
	InvalidConst Kind = errors.New("invalid constant")
	// InvalidSize indicates a length field disagreed with the data available.
	InvalidSize Kind = errors.New("invalid size")
	// InvalidCast indicates a sum-type variant could not be narrowed to the
	// requested concrete type.
	InvalidCast Kind = errors.New("invalid cast")
	// InvalidData indicates a field held a value outside its valid range.
	InvalidData Kind = errors.New("invalid data")
	// InvalidRespond indicates a peer's response did not grant what was
	// requested (e.g. a licensing error that isn't a valid-client transition).
	InvalidRespond Kind = errors.New("invalid respond")
	// NotImplemented indicates a recognized but unsupported wire feature.
	NotImplemented Kind = errors.New("not implemented")
	// RleDecode indicates a bitmap RLE/planar stream was malformed.
	RleDecode Kind = errors.New("rle decode error")
	// Disconnect indicates the peer closed the connection or requested
	// session teardown; callers treat this as a clean shutdown.
	Disconnect Kind = errors.New("disconnect")
	// WouldBlock indicates a non-blocking call could not proceed without
	// waiting and should be retried.
	WouldBlock Kind = errors.New("would block")
	// Unknown covers failures that don't fit any of the above.
	Unknown Kind = errors.New("unknown error")
)

// Wrap annotates kind with msg, preserving errors.Is(err, kind).
func Wrap(kind Kind, msg string) error {
	return fmt.Errorf("%s: %w", msg, kind)
}

// Wrapf is Wrap with fmt.Sprintf-style formatting.
func Wrapf(kind Kind, format string, args ...any) error {
	return fmt.Errorf(fmt.Sprintf(format, args...)+": %w", kind)
}
