package client

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"icc.tech/ipdisp-client/internal/protocol"
)

func pipeClient(t *testing.T) (*Client, net.Conn) {
	t.Helper()
	clientEnd, serverEnd := net.Pipe()
	t.Cleanup(func() {
		clientEnd.Close()
		serverEnd.Close()
	})
	loop := LoopConfig{IdleWait: time.Millisecond, ErrorWait: time.Millisecond}
	return New(NewStream(clientEnd), loop), serverEnd
}

func TestClientDeliversEvents(t *testing.T) {
	c, server := pipeClient(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	go func() {
		writeMessage(t, server, protocol.NewHeader(1920, 1080, protocol.FormatRGBA32, 0), nil)
		payload := make([]byte, 2*2*4)
		writeMessage(t, server, protocol.NewHeader(2, 2, protocol.FormatRGBA32, 16), payload)
	}()

	event := <-c.Events()
	if update, ok := event.(DimensionUpdate); !ok || update.Width != 1920 {
		t.Fatalf("Expected DimensionUpdate 1920x1080, got %#v", event)
	}

	event = <-c.Events()
	if frame, ok := event.(FrameEvent); !ok || len(frame.Frame.Data) != 16 {
		t.Fatalf("Expected 16-byte FrameEvent, got %#v", event)
	}

	cancel()
	if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
		t.Errorf("Run returned %v", err)
	}
}

func TestClientSendSerializedWithReceives(t *testing.T) {
	c, server := pipeClient(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Queue the command before the loop starts so the first drain
	// writes it.
	if err := c.Send(ctx, []byte("PING")); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	buf := make([]byte, 4)
	if _, err := io.ReadFull(server, buf); err != nil {
		t.Fatalf("Server read failed: %v", err)
	}
	if string(buf) != "PING" {
		t.Errorf("Expected PING, got %q", buf)
	}

	cancel()
	<-done
}

func TestClientStopsOnConnectionLoss(t *testing.T) {
	c, server := pipeClient(t)

	done := make(chan error, 1)
	go func() { done <- c.Run(context.Background()) }()

	// A torn header read is fatal and ends the loop.
	header := protocol.NewHeader(2, 2, protocol.FormatRGBA32, 16)
	server.Write(header.Encode()[:5])
	server.Close()

	select {
	case err := <-done:
		if !errors.Is(err, ErrConnectionClosed) {
			t.Errorf("Expected ErrConnectionClosed, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after connection loss")
	}

	if c.Connected() {
		t.Error("Client must report disconnected after a fatal error")
	}
}

func TestClientRecoversFromProtocolError(t *testing.T) {
	c, server := pipeClient(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	go func() {
		bad := protocol.NewHeader(0, 1080, protocol.FormatRGBA32, 0)
		writeMessage(t, server, bad, nil)
		good := protocol.NewHeader(800, 600, protocol.FormatRGBA32, 0)
		writeMessage(t, server, good, nil)
	}()

	// The bounds error is absorbed by the loop; the next message
	// still comes through.
	select {
	case event := <-c.Events():
		if update, ok := event.(DimensionUpdate); !ok || update.Width != 800 {
			t.Fatalf("Expected DimensionUpdate 800x600, got %#v", event)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("No event after recoverable error")
	}

	cancel()
	<-done
}

func TestClientSendAfterShutdown(t *testing.T) {
	c, _ := pipeClient(t)
	c.recv.Shutdown()

	if err := c.Send(context.Background(), []byte{1}); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Expected ErrNotConnected, got %v", err)
	}
}

func TestClientCancellationClosesStream(t *testing.T) {
	c, _ := pipeClient(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	// Cancel while the loop is blocked reading a header.
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}
