package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"golang.org/x/net/proxy"
)

// DialOptions configures how the stream connection is established.
type DialOptions struct {
	Timeout    time.Duration // connect timeout, 0 means no limit
	SOCKS5Addr string        // optional SOCKS5 proxy address, empty = direct
}

// Stream wraps a byte-stream connection to the display server. It is
// owned by exactly one receive loop; Shutdown may be called from any
// goroutine and causes in-flight and future operations to fail.
type Stream struct {
	mu   sync.Mutex
	conn net.Conn
}

// Dial establishes a TCP connection to addr, optionally through a
// SOCKS5 proxy.
func Dial(ctx context.Context, addr string, opts DialOptions) (*Stream, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	var conn net.Conn
	var err error
	if opts.SOCKS5Addr != "" {
		var dialer proxy.Dialer
		dialer, err = proxy.SOCKS5("tcp", opts.SOCKS5Addr, nil, &net.Dialer{})
		if err != nil {
			return nil, fmt.Errorf("ipdisp: socks5 dialer: %w", err)
		}
		conn, err = dialer.(proxy.ContextDialer).DialContext(ctx, "tcp", addr)
	} else {
		conn, err = (&net.Dialer{}).DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, fmt.Errorf("ipdisp: dial %s: %w", addr, err)
	}

	return &Stream{conn: conn}, nil
}

// NewStream wraps an already-established connection.
func NewStream(conn net.Conn) *Stream {
	return &Stream{conn: conn}
}

// Connected reports whether the stream has not been torn down.
func (s *Stream) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// ReadExact fills buf completely. It returns the number of bytes read
// so the caller can distinguish a clean end-of-stream (n == 0) from a
// torn mid-message read.
func (s *Stream) ReadExact(buf []byte) (int, error) {
	conn := s.handle()
	if conn == nil {
		return 0, ErrNotConnected
	}
	return io.ReadFull(conn, buf)
}

// WriteAll writes b atomically with respect to other WriteAll calls.
func (s *Stream) WriteAll(b []byte) error {
	conn := s.handle()
	if conn == nil {
		return ErrNotConnected
	}
	if _, err := conn.Write(b); err != nil {
		return err
	}
	return nil
}

// Shutdown tears down the connection. Safe to call more than once and
// from any goroutine; a blocked read or write fails immediately.
func (s *Stream) Shutdown() error {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	if conn == nil {
		return nil
	}
	if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

func (s *Stream) handle() net.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}
