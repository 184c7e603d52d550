// Package pixel converts frame payloads between wire pixel formats and
// display surface formats.
package pixel

import (
	"fmt"

	"icc.tech/ipdisp-client/internal/protocol"
)

// ToRGBA converts a validated frame payload into packed 8-bit RGBA.
// The returned buffer is always freshly allocated; the frame payload is
// never aliased or mutated.
func ToRGBA(frame protocol.Frame) ([]byte, error) {
	switch frame.Header.Format {
	case protocol.FormatRGBA32:
		out := make([]byte, len(frame.Data))
		copy(out, frame.Data)
		return out, nil

	case protocol.FormatRGB24:
		// The frame invariant guarantees len(Data) is a multiple of 3.
		// Alpha is always fully opaque for this format.
		out := make([]byte, 0, len(frame.Data)/3*4)
		for i := 0; i+2 < len(frame.Data); i += 3 {
			out = append(out, frame.Data[i], frame.Data[i+1], frame.Data[i+2], 255)
		}
		return out, nil

	case protocol.FormatH264, protocol.FormatH265:
		return nil, fmt.Errorf("%w: %s", protocol.ErrUnsupportedFormat, frame.Header.Format)

	default:
		return nil, fmt.Errorf("%w: %s", protocol.ErrUnknownFormat, frame.Header.Format)
	}
}

// ToPremultipliedBGRA converts packed RGBA into the premultiplied,
// byte-order-reversed layout compositing surfaces expect. Each color
// channel is scaled by alpha and clamped to [0, a] so rounding never
// overshoots the alpha ceiling. Input length must be a multiple of 4.
func ToPremultipliedBGRA(rgba []byte) ([]byte, error) {
	if len(rgba)%4 != 0 {
		return nil, fmt.Errorf("%w: rgba buffer length %d is not a multiple of 4",
			protocol.ErrSizeMismatch, len(rgba))
	}

	out := make([]byte, len(rgba))
	for i := 0; i < len(rgba); i += 4 {
		r, g, b, a := rgba[i], rgba[i+1], rgba[i+2], rgba[i+3]
		alpha := float32(a) / 255.0

		out[i] = premultiply(b, alpha, a)
		out[i+1] = premultiply(g, alpha, a)
		out[i+2] = premultiply(r, alpha, a)
		out[i+3] = a
	}
	return out, nil
}

// premultiply scales one channel by alpha, clamped to the alpha value.
func premultiply(c uint8, alpha float32, a uint8) uint8 {
	v := uint8(float32(c) * alpha)
	if v > a {
		return a
	}
	return v
}
