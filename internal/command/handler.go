// Package command implements the local control plane: a JSON-RPC
// handler served over a Unix domain socket.
package command

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// DaemonController is the surface of the daemon the control plane may
// touch: a status snapshot, raw command forwarding to the display
// server, and graceful shutdown.
type DaemonController interface {
	Status() DaemonStatus
	Stats() DaemonStats
	ForwardCommand(ctx context.Context, payload []byte) error
	Shutdown()
}

// DaemonStatus is the daemon_status result payload.
type DaemonStatus struct {
	Version       string `json:"version"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Connected     bool   `json:"connected"`
	ServerAddr    string `json:"server_addr"`
	DisplayWidth  uint32 `json:"display_width"`
	DisplayHeight uint32 `json:"display_height"`
	FramesStored  uint64 `json:"frames_stored"`
}

// DaemonStats is the daemon_stats result payload: cumulative counters
// since the daemon started.
type DaemonStats struct {
	FramesTotal      uint64 `json:"frames_total"`
	FrameBytesTotal  uint64 `json:"frame_bytes_total"`
	DimensionUpdates uint64 `json:"dimension_updates"`
	ReceiveErrors    uint64 `json:"receive_errors"`
	Connects         uint64 `json:"connects"`
	FramesStored     uint64 `json:"frames_stored"`
}

// CommandHandler handles control plane commands.
type CommandHandler struct {
	daemon    DaemonController
	startTime time.Time
}

// NewCommandHandler creates a new command handler.
func NewCommandHandler(daemon DaemonController) *CommandHandler {
	return &CommandHandler{
		daemon:    daemon,
		startTime: time.Now(),
	}
}

// Command represents a control plane command.
type Command struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
	ID     string          `json:"id"`
}

// Response represents a command response.
type Response struct {
	ID     string      `json:"id"`
	Result interface{} `json:"result,omitempty"`
	Error  *ErrorInfo  `json:"error,omitempty"`
}

// ErrorInfo represents an error in the response.
type ErrorInfo struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error codes
const (
	ErrCodeParseError     = -32700 // Invalid JSON
	ErrCodeInvalidRequest = -32600 // Invalid request object
	ErrCodeMethodNotFound = -32601 // Method not found
	ErrCodeInvalidParams  = -32602 // Invalid method parameters
	ErrCodeInternalError  = -32603 // Internal error
)

// Handle processes a command and returns a response.
func (h *CommandHandler) Handle(ctx context.Context, cmd Command) Response {
	slog.Info("handling command", "method", cmd.Method, "id", cmd.ID)

	switch cmd.Method {
	case "daemon_status":
		return h.handleStatus(cmd)
	case "daemon_stats":
		return h.handleStats(cmd)
	case "daemon_shutdown":
		return h.handleShutdown(cmd)
	case "send_command":
		return h.handleSendCommand(ctx, cmd)
	default:
		return Response{
			ID: cmd.ID,
			Error: &ErrorInfo{
				Code:    ErrCodeMethodNotFound,
				Message: fmt.Sprintf("method %q not found", cmd.Method),
			},
		}
	}
}

func (h *CommandHandler) handleStatus(cmd Command) Response {
	status := h.daemon.Status()
	status.UptimeSeconds = int64(time.Since(h.startTime).Seconds())
	return Response{ID: cmd.ID, Result: status}
}

func (h *CommandHandler) handleStats(cmd Command) Response {
	return Response{ID: cmd.ID, Result: h.daemon.Stats()}
}

func (h *CommandHandler) handleShutdown(cmd Command) Response {
	h.daemon.Shutdown()
	return Response{ID: cmd.ID, Result: map[string]string{"status": "shutting down"}}
}

// SendCommandParams carries a base64-encoded raw command buffer for the
// display server.
type SendCommandParams struct {
	Payload string `json:"payload"`
}

func (h *CommandHandler) handleSendCommand(ctx context.Context, cmd Command) Response {
	var params SendCommandParams
	if err := json.Unmarshal(cmd.Params, &params); err != nil {
		return Response{
			ID: cmd.ID,
			Error: &ErrorInfo{
				Code:    ErrCodeInvalidParams,
				Message: fmt.Sprintf("invalid params: %v", err),
			},
		}
	}

	payload, err := base64.StdEncoding.DecodeString(params.Payload)
	if err != nil {
		return Response{
			ID: cmd.ID,
			Error: &ErrorInfo{
				Code:    ErrCodeInvalidParams,
				Message: fmt.Sprintf("payload is not valid base64: %v", err),
			},
		}
	}
	if len(payload) == 0 {
		return Response{
			ID: cmd.ID,
			Error: &ErrorInfo{
				Code:    ErrCodeInvalidParams,
				Message: "payload is empty",
			},
		}
	}

	if err := h.daemon.ForwardCommand(ctx, payload); err != nil {
		return Response{
			ID: cmd.ID,
			Error: &ErrorInfo{
				Code:    ErrCodeInternalError,
				Message: fmt.Sprintf("forward failed: %v", err),
			},
		}
	}

	return Response{ID: cmd.ID, Result: map[string]int{"bytes": len(payload)}}
}
