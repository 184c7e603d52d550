package client

import "icc.tech/ipdisp-client/internal/protocol"

// Event is the result of one successful receive operation. The set of
// implementations is closed: FrameEvent, DimensionUpdate and NoData.
type Event interface {
	isEvent()
}

// FrameEvent carries one validated frame.
type FrameEvent struct {
	Frame protocol.Frame
}

// DimensionUpdate is emitted for info packets announcing the display
// dimensions. It carries no payload.
type DimensionUpdate struct {
	Width  uint32
	Height uint32
}

// NoData means the stream ended cleanly before any byte of the next
// header; the caller may poll again.
type NoData struct{}

func (FrameEvent) isEvent()      {}
func (DimensionUpdate) isEvent() {}
func (NoData) isEvent()          {}
