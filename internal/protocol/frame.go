package protocol

import "fmt"

// Frame pairs a header with a payload whose length exactly equals the
// declared size. The frame owns its payload buffer; converters produce
// new buffers and never mutate it.
type Frame struct {
	Header PacketHeader
	Data   []byte
}

// NewFrame builds a frame and enforces the receiver-level size contract.
func NewFrame(header PacketHeader, data []byte) (Frame, error) {
	if len(data) != int(header.Size) {
		return Frame{}, fmt.Errorf("%w: header declares %d bytes, got %d",
			ErrSizeMismatch, header.Size, len(data))
	}
	return Frame{Header: header, Data: data}, nil
}

// ExpectedSize returns the payload length implied by the frame geometry.
// For codec formats the receiver-level size field is authoritative and
// the actual payload length is returned.
func (f Frame) ExpectedSize() int {
	bpp, ok := f.Header.Format.BytesPerPixel()
	if !ok {
		return len(f.Data)
	}
	return int(f.Header.Width) * int(f.Header.Height) * bpp
}

// Validate checks the header and, for raw pixel formats, that the
// payload length matches width*height*bytesPerPixel. Codec payloads are
// deliberately unconstrained beyond the size field.
func (f Frame) Validate() error {
	if err := f.Header.Validate(); err != nil {
		return err
	}

	if f.Header.IsInfoPacket() {
		return nil
	}

	if _, ok := f.Header.Format.BytesPerPixel(); ok {
		if expected := f.ExpectedSize(); len(f.Data) != expected {
			return fmt.Errorf("%w: format %s expects %d bytes for %dx%d, got %d",
				ErrSizeMismatch, f.Header.Format, expected,
				f.Header.Width, f.Header.Height, len(f.Data))
		}
	}

	return nil
}
