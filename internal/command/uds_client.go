package command

import (
	"bufio"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net"
	"sync/atomic"
	"time"
)

// UDSClient talks JSON-RPC to a running daemon over its control socket.
type UDSClient struct {
	socketPath string
	timeout    time.Duration
	nextID     atomic.Int64
}

// NewUDSClient creates a client for the given socket path.
func NewUDSClient(socketPath string, timeout time.Duration) *UDSClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &UDSClient{
		socketPath: socketPath,
		timeout:    timeout,
	}
}

// Call sends a single request and waits for the matching response.
func (c *UDSClient) Call(method string, params interface{}) (*JSONRPCResponse, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon at %s: %w", c.socketPath, err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		return nil, fmt.Errorf("failed to set deadline: %w", err)
	}

	id := c.nextID.Add(1)

	var rawParams json.RawMessage
	if params != nil {
		rawParams, err = json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal params: %w", err)
		}
	}

	req := JSONRPCRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  rawParams,
		ID:      id,
	}

	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	data = append(data, '\n')

	if _, err := conn.Write(data); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}
		return nil, fmt.Errorf("connection closed before response")
	}

	var resp JSONRPCResponse
	if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if resp.Error != nil {
		return &resp, fmt.Errorf("daemon error %d: %s", resp.Error.Code, resp.Error.Message)
	}

	return &resp, nil
}

// Status fetches the daemon status snapshot.
func (c *UDSClient) Status() (*DaemonStatus, error) {
	resp, err := c.Call("daemon_status", nil)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(resp.Result)
	if err != nil {
		return nil, fmt.Errorf("failed to re-encode result: %w", err)
	}

	var status DaemonStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("failed to parse status: %w", err)
	}
	return &status, nil
}

// Stats fetches cumulative daemon counters.
func (c *UDSClient) Stats() (*DaemonStats, error) {
	resp, err := c.Call("daemon_stats", nil)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(resp.Result)
	if err != nil {
		return nil, fmt.Errorf("failed to re-encode result: %w", err)
	}

	var stats DaemonStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("failed to parse stats: %w", err)
	}
	return &stats, nil
}

// Shutdown asks the daemon to stop.
func (c *UDSClient) Shutdown() error {
	_, err := c.Call("daemon_shutdown", nil)
	return err
}

// SendCommand forwards a raw command buffer to the display server via
// the daemon.
func (c *UDSClient) SendCommand(payload []byte) error {
	_, err := c.Call("send_command", SendCommandParams{
		Payload: base64.StdEncoding.EncodeToString(payload),
	})
	return err
}
