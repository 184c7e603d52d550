package protocol

import "errors"

// Sentinel errors for the IPDS wire protocol. Structural and bounds errors
// mean the header cannot be trusted; integrity errors mean a frame body
// contradicts its header. None of them imply the connection is unusable.
var (
	// Header structural errors
	ErrHeaderTooShort = errors.New("ipdisp: header too short")
	ErrBadMagic       = errors.New("ipdisp: invalid magic number")
	ErrBadVersion     = errors.New("ipdisp: unsupported protocol version")
	ErrUnknownFormat  = errors.New("ipdisp: unknown frame format")

	// Header bounds errors
	ErrDimensions = errors.New("ipdisp: invalid frame dimensions")

	// Frame integrity errors
	ErrSizeMismatch = errors.New("ipdisp: payload size mismatch")

	// Converter errors
	ErrUnsupportedFormat = errors.New("ipdisp: codec formats not yet supported")
)
