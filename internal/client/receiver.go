package client

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"

	"icc.tech/ipdisp-client/internal/protocol"
)

// Receiver turns the raw byte stream into validated frames. One receive
// operation processes at most one message: a header and, for data
// packets, one payload. The receiver never loops internally; the caller
// drives it.
type Receiver struct {
	stream *Stream
}

// NewReceiver creates a receiver over an established stream. The
// receiver assumes exclusive ownership of the read side.
func NewReceiver(stream *Stream) *Receiver {
	return &Receiver{stream: stream}
}

// Receive runs one header/payload cycle and returns exactly one event
// or exactly one error.
//
// Only connection-closed and i/o errors tear the stream down. A header
// that fails to decode or validate, or a frame that fails its size
// invariant, leaves the stream open: the bytes were framed correctly,
// so the caller may attempt the next message.
func (r *Receiver) Receive() (Event, error) {
	headerBuf := make([]byte, protocol.HeaderSize)
	n, err := r.stream.ReadExact(headerBuf)
	if err != nil {
		if errors.Is(err, io.EOF) && n == 0 {
			// Clean end-of-stream at a message boundary.
			return NoData{}, nil
		}
		return nil, r.teardown("header read", n, err)
	}

	header, err := protocol.DecodeHeader(headerBuf)
	if err != nil {
		return nil, err
	}
	if err := header.Validate(); err != nil {
		return nil, err
	}

	slog.Debug("received header",
		"width", header.Width,
		"height", header.Height,
		"format", header.Format.String(),
		"size", header.Size,
	)

	if header.IsInfoPacket() {
		slog.Info("display info announced", "width", header.Width, "height", header.Height)
		return DimensionUpdate{Width: header.Width, Height: header.Height}, nil
	}

	data := make([]byte, header.Size)
	if n, err := r.stream.ReadExact(data); err != nil {
		// Any end-of-stream here is mid-message.
		return nil, r.teardown("payload read", n, err)
	}

	frame, err := protocol.NewFrame(header, data)
	if err != nil {
		return nil, err
	}
	if err := frame.Validate(); err != nil {
		return nil, err
	}

	return FrameEvent{Frame: frame}, nil
}

// SendCommand writes a raw command buffer to the server. A failed write
// leaves the stream in an unknown state and tears it down.
func (r *Receiver) SendCommand(b []byte) error {
	if err := r.stream.WriteAll(b); err != nil {
		if errors.Is(err, ErrNotConnected) {
			return ErrNotConnected
		}
		r.stream.Shutdown()
		return fmt.Errorf("%w: command write: %v", ErrIO, err)
	}
	return nil
}

// Connected reports whether the underlying stream is still usable.
func (r *Receiver) Connected() bool {
	return r.stream.Connected()
}

// Shutdown tears down the underlying stream.
func (r *Receiver) Shutdown() error {
	return r.stream.Shutdown()
}

// teardown closes the stream and maps a read failure onto the error
// taxonomy. n is the number of bytes read before the failure.
func (r *Receiver) teardown(stage string, n int, err error) error {
	r.stream.Shutdown()

	switch {
	case errors.Is(err, ErrNotConnected):
		return ErrNotConnected
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		slog.Warn("connection closed by server", "stage", stage, "read", n)
		return fmt.Errorf("%w: during %s", ErrConnectionClosed, stage)
	case errors.Is(err, net.ErrClosed):
		// Local teardown while a read was in flight.
		return fmt.Errorf("%w: during %s", ErrConnectionClosed, stage)
	default:
		slog.Error("stream read failed", "stage", stage, "error", err)
		return fmt.Errorf("%w: %s: %v", ErrIO, stage, err)
	}
}
