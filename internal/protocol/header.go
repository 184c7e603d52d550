// Package protocol implements the IPDS wire protocol: a fixed-size
// big-endian header optionally followed by a frame payload.
package protocol

import (
	"encoding/binary"
	"fmt"
	"time"
)

const (
	// Magic is the protocol signature, the four bytes "IPDS".
	Magic uint32 = 0x49504453

	// Version is the only protocol version this client speaks.
	Version uint32 = 1

	// HeaderSize is the fixed encoded header length in bytes:
	// five u32 fields, one u64 timestamp, then size and reserved.
	HeaderSize = 36

	// Dimension policy limits (8K display).
	MaxWidth  = 7680
	MaxHeight = 4320
)

// PacketHeader is the fixed header preceding every message.
// Field order and widths match the wire layout exactly.
type PacketHeader struct {
	Magic     uint32
	Version   uint32
	Width     uint32
	Height    uint32
	Format    FrameFormat
	Timestamp uint64 // producer capture time, nanoseconds since epoch, opaque
	Size      uint32 // payload length; 0 designates an info packet
	Reserved  uint32 // carried through unmodified
}

// NewHeader builds a header for an outbound announcement with the
// current time as capture timestamp.
func NewHeader(width, height uint32, format FrameFormat, size uint32) PacketHeader {
	return PacketHeader{
		Magic:     Magic,
		Version:   Version,
		Width:     width,
		Height:    height,
		Format:    format,
		Timestamp: uint64(time.Now().UnixNano()),
		Size:      size,
	}
}

// DecodeHeader decodes exactly HeaderSize bytes in network byte order.
// Magic and version are checked before the remaining fields are
// interpreted; the format tag must be a known value. Dimension and size
// invariants are left to Validate.
func DecodeHeader(data []byte) (PacketHeader, error) {
	if len(data) < HeaderSize {
		return PacketHeader{}, fmt.Errorf("%w: %d bytes", ErrHeaderTooShort, len(data))
	}

	magic := binary.BigEndian.Uint32(data[0:4])
	if magic != Magic {
		return PacketHeader{}, fmt.Errorf("%w: 0x%08x", ErrBadMagic, magic)
	}

	version := binary.BigEndian.Uint32(data[4:8])
	if version != Version {
		return PacketHeader{}, fmt.Errorf("%w: %d", ErrBadVersion, version)
	}

	format, err := ParseFrameFormat(binary.BigEndian.Uint32(data[16:20]))
	if err != nil {
		return PacketHeader{}, err
	}

	return PacketHeader{
		Magic:     magic,
		Version:   version,
		Width:     binary.BigEndian.Uint32(data[8:12]),
		Height:    binary.BigEndian.Uint32(data[12:16]),
		Format:    format,
		Timestamp: binary.BigEndian.Uint64(data[20:28]),
		Size:      binary.BigEndian.Uint32(data[28:32]),
		Reserved:  binary.BigEndian.Uint32(data[32:36]),
	}, nil
}

// Encode serializes the header into HeaderSize bytes in network byte
// order. Encode never validates; only DecodeHeader and Validate do.
func (h PacketHeader) Encode() []byte {
	buf := make([]byte, HeaderSize)

	binary.BigEndian.PutUint32(buf[0:4], h.Magic)
	binary.BigEndian.PutUint32(buf[4:8], h.Version)
	binary.BigEndian.PutUint32(buf[8:12], h.Width)
	binary.BigEndian.PutUint32(buf[12:16], h.Height)
	binary.BigEndian.PutUint32(buf[16:20], uint32(h.Format))
	binary.BigEndian.PutUint64(buf[20:28], h.Timestamp)
	binary.BigEndian.PutUint32(buf[28:32], h.Size)
	binary.BigEndian.PutUint32(buf[32:36], h.Reserved)

	return buf
}

// Validate re-checks magic, version and dimension bounds. It is called
// after every decode and may be called standalone against a header
// constructed programmatically. A header failing Validate must not be
// used to size a payload read.
func (h PacketHeader) Validate() error {
	if h.Magic != Magic {
		return fmt.Errorf("%w: 0x%08x", ErrBadMagic, h.Magic)
	}
	if h.Version != Version {
		return fmt.Errorf("%w: %d", ErrBadVersion, h.Version)
	}
	if h.Width == 0 || h.Height == 0 {
		return fmt.Errorf("%w: %dx%d", ErrDimensions, h.Width, h.Height)
	}
	if h.Width > MaxWidth || h.Height > MaxHeight {
		return fmt.Errorf("%w: %dx%d exceeds %dx%d", ErrDimensions, h.Width, h.Height, uint32(MaxWidth), uint32(MaxHeight))
	}
	return nil
}

// IsInfoPacket reports whether the header announces display dimensions
// only, with no payload following.
func (h PacketHeader) IsInfoPacket() bool {
	return h.Size == 0
}
