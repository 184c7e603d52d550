package protocol

import "fmt"

// FrameFormat is the pixel or codec format tag carried in a packet header.
// The wire encoding is a 4-byte unsigned integer.
type FrameFormat uint32

const (
	FormatRGBA32 FrameFormat = 0
	FormatRGB24  FrameFormat = 1
	FormatH264   FrameFormat = 2
	FormatH265   FrameFormat = 3
)

// ParseFrameFormat converts a raw wire value into a FrameFormat.
func ParseFrameFormat(v uint32) (FrameFormat, error) {
	switch FrameFormat(v) {
	case FormatRGBA32, FormatRGB24, FormatH264, FormatH265:
		return FrameFormat(v), nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrUnknownFormat, v)
	}
}

// String returns the format name.
func (f FrameFormat) String() string {
	switch f {
	case FormatRGBA32:
		return "rgba32"
	case FormatRGB24:
		return "rgb24"
	case FormatH264:
		return "h264"
	case FormatH265:
		return "h265"
	default:
		return fmt.Sprintf("format(%d)", uint32(f))
	}
}

// BytesPerPixel returns the per-pixel payload width for raw pixel formats.
// Codec formats have no fixed pixel geometry and return ok=false.
func (f FrameFormat) BytesPerPixel() (bpp int, ok bool) {
	switch f {
	case FormatRGBA32:
		return 4, true
	case FormatRGB24:
		return 3, true
	case FormatH264, FormatH265:
		return 0, false
	default:
		return 0, false
	}
}
