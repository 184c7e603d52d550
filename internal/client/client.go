package client

import (
	"context"
	"log/slog"
	"time"

	"icc.tech/ipdisp-client/internal/metrics"
)

// LoopConfig tunes the driving loop around the receive primitive.
type LoopConfig struct {
	IdleWait  time.Duration // wait after NoData before polling again
	ErrorWait time.Duration // wait after a recoverable error
}

// DefaultLoopConfig matches the upstream display server's frame pacing.
func DefaultLoopConfig() LoopConfig {
	return LoopConfig{
		IdleWait:  16 * time.Millisecond,
		ErrorWait: time.Second,
	}
}

// Client owns the stream connection exclusively and runs the driving
// loop. Other goroutines talk to the connection only through message
// passing: Send queues outbound command buffers, Events delivers
// decoded frames and dimension updates. This keeps the single-receiver
// invariant structural instead of lock-based.
type Client struct {
	recv   *Receiver
	loop   LoopConfig
	cmds   chan []byte
	events chan Event
}

// New creates a client around an established stream.
func New(stream *Stream, loop LoopConfig) *Client {
	if loop.IdleWait <= 0 {
		loop.IdleWait = DefaultLoopConfig().IdleWait
	}
	if loop.ErrorWait <= 0 {
		loop.ErrorWait = DefaultLoopConfig().ErrorWait
	}
	return &Client{
		recv:   NewReceiver(stream),
		loop:   loop,
		cmds:   make(chan []byte, 16),
		events: make(chan Event, 4),
	}
}

// Events is the outbound event queue. It is closed when Run returns.
func (c *Client) Events() <-chan Event {
	return c.events
}

// Send queues a raw command buffer for the display server. The write
// happens on the owner goroutine, serialized against receives.
func (c *Client) Send(ctx context.Context, b []byte) error {
	if !c.recv.Connected() {
		return ErrNotConnected
	}
	select {
	case c.cmds <- b:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Connected reports whether the connection handle is still usable.
func (c *Client) Connected() bool {
	return c.recv.Connected()
}

// Run drives receive cycles until the context is cancelled or the
// connection dies. Recoverable protocol errors are logged, counted and
// followed by the error wait; fatal errors end the loop.
func (c *Client) Run(ctx context.Context) error {
	defer close(c.events)

	// Cancellation tears the stream down, which surfaces in an
	// in-flight read as a connection-closed condition.
	stop := context.AfterFunc(ctx, func() {
		c.recv.Shutdown()
	})
	defer stop()

	metrics.Connected.Set(1)
	defer metrics.Connected.Set(0)

	for {
		c.drainCommands()

		event, err := c.recv.Receive()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			metrics.ReceiveErrorsTotal.WithLabelValues(Classify(err)).Inc()
			if Fatal(err) {
				slog.Error("connection lost", "error", err)
				return err
			}
			slog.Warn("receive failed, stream still open", "error", err)
			if !sleep(ctx, c.loop.ErrorWait) {
				return ctx.Err()
			}
			continue
		}

		switch ev := event.(type) {
		case NoData:
			if !sleep(ctx, c.loop.IdleWait) {
				return ctx.Err()
			}
			continue
		case FrameEvent:
			metrics.FramesTotal.WithLabelValues(ev.Frame.Header.Format.String()).Inc()
			metrics.FrameBytesTotal.Add(float64(len(ev.Frame.Data)))
		case DimensionUpdate:
			metrics.DimensionUpdatesTotal.Inc()
		}

		select {
		case c.events <- event:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// drainCommands writes queued command buffers between receive cycles.
func (c *Client) drainCommands() {
	for {
		select {
		case b := <-c.cmds:
			if err := c.recv.SendCommand(b); err != nil {
				slog.Error("command send failed", "error", err)
			}
		default:
			return
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
