// Package client implements the frame receive state machine over a
// single stream connection to an IP display server.
package client

import (
	"errors"

	"icc.tech/ipdisp-client/internal/protocol"
)

// Sentinel errors for the connection layer. These two, plus wrapped
// ErrIO, are the only errors that invalidate the stream handle; every
// protocol-level error is recoverable at the message level.
var (
	ErrConnectionClosed = errors.New("ipdisp: connection closed")
	ErrNotConnected     = errors.New("ipdisp: not connected")
	ErrIO               = errors.New("ipdisp: stream i/o failed")
)

// Fatal reports whether err invalidates the connection handle. After a
// fatal error the stream is torn down and every further receive or send
// fails with ErrNotConnected.
func Fatal(err error) bool {
	return errors.Is(err, ErrConnectionClosed) ||
		errors.Is(err, ErrNotConnected) ||
		errors.Is(err, ErrIO)
}

// Classify maps an error to its taxonomy class, used for metric labels
// and event reporting.
func Classify(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, protocol.ErrBadMagic),
		errors.Is(err, protocol.ErrBadVersion),
		errors.Is(err, protocol.ErrUnknownFormat),
		errors.Is(err, protocol.ErrHeaderTooShort):
		return "structural"
	case errors.Is(err, protocol.ErrDimensions):
		return "bounds"
	case errors.Is(err, protocol.ErrSizeMismatch):
		return "integrity"
	case errors.Is(err, protocol.ErrUnsupportedFormat):
		return "unsupported_format"
	case errors.Is(err, ErrConnectionClosed):
		return "connection_closed"
	case errors.Is(err, ErrNotConnected):
		return "not_connected"
	case errors.Is(err, ErrIO):
		return "io"
	default:
		return "other"
	}
}
