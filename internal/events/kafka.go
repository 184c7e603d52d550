// Package events publishes daemon lifecycle and frame statistics events
// to Kafka. The reporter is optional; when disabled every method is a
// cheap no-op.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/compress"

	"icc.tech/ipdisp-client/internal/config"
)

const (
	defaultBatchSize    = 100
	defaultBatchTimeout = 100 * time.Millisecond
	defaultMaxAttempts  = 3

	defaultFlushInterval = 10 * time.Second
)

// Reporter sends JSON events to a Kafka topic. A nil Reporter is valid
// and discards everything, so callers never have to branch on whether
// events are enabled.
type Reporter struct {
	writer        *kafka.Writer
	source        string
	flushInterval time.Duration

	mu         sync.Mutex
	frames     uint64
	frameBytes uint64
	dimUpdates uint64
	recvErrors uint64
}

// NewReporter builds a reporter from configuration. Returns nil when
// events are disabled.
func NewReporter(cfg config.EventsConfig) *Reporter {
	if !cfg.Enabled {
		return nil
	}

	hostname, _ := os.Hostname()

	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers:          cfg.Brokers,
		Topic:            cfg.Topic,
		Balancer:         &kafka.Hash{},
		BatchSize:        defaultBatchSize,
		BatchTimeout:     defaultBatchTimeout,
		MaxAttempts:      defaultMaxAttempts,
		CompressionCodec: compress.Snappy.Codec(),
		Async:            false,
	})

	return &Reporter{
		writer:        writer,
		source:        hostname,
		flushInterval: config.Duration(cfg.FlushInterval, defaultFlushInterval),
	}
}

// Run periodically flushes accumulated frame statistics until the
// context is cancelled, then emits a final batch and closes the writer.
func (r *Reporter) Run(ctx context.Context) {
	if r == nil {
		return
	}

	ticker := time.NewTicker(r.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.flushStats(context.Background())
			if err := r.writer.Close(); err != nil {
				slog.Error("error closing kafka writer", "error", err)
			}
			slog.Info("event reporter stopped")
			return
		case <-ticker.C:
			r.flushStats(ctx)
		}
	}
}

// Connected reports that the stream to the display server came up.
func (r *Reporter) Connected(ctx context.Context, serverAddr string) {
	r.publish(ctx, "connected", map[string]any{"server_addr": serverAddr})
}

// Disconnected reports that the stream went down.
func (r *Reporter) Disconnected(ctx context.Context, reason string) {
	r.publish(ctx, "disconnected", map[string]any{"reason": reason})
}

// DimensionUpdate reports a display geometry change.
func (r *Reporter) DimensionUpdate(ctx context.Context, width, height uint32) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.dimUpdates++
	r.mu.Unlock()
	r.publish(ctx, "dimension_update", map[string]any{
		"width":  width,
		"height": height,
	})
}

// FrameReceived accumulates per-frame counters for the next stats
// batch. Frames are far too frequent to publish individually.
func (r *Reporter) FrameReceived(size int) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.frames++
	r.frameBytes += uint64(size)
	r.mu.Unlock()
}

// ReceiveError accumulates receive error counts for the next stats batch.
func (r *Reporter) ReceiveError() {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.recvErrors++
	r.mu.Unlock()
}

func (r *Reporter) flushStats(ctx context.Context) {
	r.mu.Lock()
	frames, frameBytes := r.frames, r.frameBytes
	dims, errs := r.dimUpdates, r.recvErrors
	r.frames, r.frameBytes, r.dimUpdates, r.recvErrors = 0, 0, 0, 0
	r.mu.Unlock()

	if frames == 0 && dims == 0 && errs == 0 {
		return
	}

	r.publish(ctx, "frame_stats", map[string]any{
		"frames":            frames,
		"frame_bytes":       frameBytes,
		"dimension_updates": dims,
		"receive_errors":    errs,
	})
}

func (r *Reporter) publish(ctx context.Context, kind string, fields map[string]any) {
	if r == nil {
		return
	}

	payload := map[string]any{
		"event":     kind,
		"source":    r.source,
		"timestamp": time.Now().UnixMilli(),
	}
	for k, v := range fields {
		payload[k] = v
	}

	value, err := json.Marshal(payload)
	if err != nil {
		slog.Error("failed to serialize event", "event", kind, "error", err)
		return
	}

	msg := kafka.Message{
		Key:   []byte(fmt.Sprintf("%s:%s", r.source, kind)),
		Value: value,
		Time:  time.Now(),
	}

	if err := r.writer.WriteMessages(ctx, msg); err != nil {
		slog.Error("kafka write failed", "event", kind, "error", err)
	}
}
