// Package display keeps the latest display-ready frame buffer for the
// presentation layer.
package display

import (
	"fmt"
	"sync"
	"time"

	"icc.tech/ipdisp-client/internal/metrics"
	"icc.tech/ipdisp-client/internal/pixel"
	"icc.tech/ipdisp-client/internal/protocol"
)

// Store holds the most recent premultiplied BGRA buffer. The receive
// loop writes, the presentation layer reads; neither side ever sees a
// buffer the other mutates.
type Store struct {
	mu     sync.RWMutex
	buf    []byte
	width  uint32
	height uint32
	frames uint64
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Convert transforms a validated frame into the premultiplied BGRA
// layout compositing surfaces expect.
func Convert(frame protocol.Frame) ([]byte, error) {
	start := time.Now()

	rgba, err := pixel.ToRGBA(frame)
	if err != nil {
		return nil, err
	}
	bgra, err := pixel.ToPremultipliedBGRA(rgba)
	if err != nil {
		return nil, err
	}

	metrics.ConvertSeconds.Observe(time.Since(start).Seconds())
	return bgra, nil
}

// Update converts the frame and swaps it in as the current buffer.
func (s *Store) Update(frame protocol.Frame) error {
	bgra, err := Convert(frame)
	if err != nil {
		return err
	}

	expected := int(frame.Header.Width) * int(frame.Header.Height) * 4
	if len(bgra) != expected {
		return fmt.Errorf("%w: display buffer is %d bytes, geometry wants %d",
			protocol.ErrSizeMismatch, len(bgra), expected)
	}

	s.mu.Lock()
	s.buf = bgra
	s.width = frame.Header.Width
	s.height = frame.Header.Height
	s.frames++
	s.mu.Unlock()

	return nil
}

// SetDimensions records an announced display size without touching the
// current buffer.
func (s *Store) SetDimensions(width, height uint32) {
	s.mu.Lock()
	s.width = width
	s.height = height
	s.mu.Unlock()
}

// Snapshot returns the current buffer and its dimensions. The buffer is
// shared read-only; callers must not mutate it.
func (s *Store) Snapshot() (buf []byte, width, height uint32) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.buf, s.width, s.height
}

// Dimensions returns the current display size.
func (s *Store) Dimensions() (width, height uint32) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.width, s.height
}

// Frames returns the number of buffers swapped in so far.
func (s *Store) Frames() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frames
}

// Clear drops the current buffer.
func (s *Store) Clear() {
	s.mu.Lock()
	s.buf = nil
	s.width = 0
	s.height = 0
	s.mu.Unlock()
}

// TestPattern fills the store with a gradient so the window shows
// something before the first frame arrives.
func (s *Store) TestPattern(width, height uint32) error {
	rgba := make([]byte, 0, int(width)*int(height)*4)
	for y := uint32(0); y < height; y++ {
		for x := uint32(0); x < width; x++ {
			r := byte(x * 255 / width)
			g := byte(y * 255 / height)
			b := byte((x + y) * 255 / (width + height))
			rgba = append(rgba, r, g, b, 255)
		}
	}

	header := protocol.NewHeader(width, height, protocol.FormatRGBA32, uint32(len(rgba)))
	frame, err := protocol.NewFrame(header, rgba)
	if err != nil {
		return err
	}
	return s.Update(frame)
}
