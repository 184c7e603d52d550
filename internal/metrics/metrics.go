// Package metrics implements Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FramesTotal counts frames received, by declared format.
	FramesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ipdisp_client_frames_total",
			Help: "Total number of frames received",
		},
		[]string{"format"},
	)

	// FrameBytesTotal counts payload bytes received.
	FrameBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ipdisp_client_frame_bytes_total",
			Help: "Total number of frame payload bytes received",
		},
	)

	// DimensionUpdatesTotal counts info packets announcing dimensions.
	DimensionUpdatesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ipdisp_client_dimension_updates_total",
			Help: "Total number of display dimension updates",
		},
	)

	// ReceiveErrorsTotal counts failed receive attempts by error class.
	ReceiveErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ipdisp_client_receive_errors_total",
			Help: "Total number of failed receive attempts",
		},
		[]string{"class"},
	)

	// Connected tracks connection state (0=disconnected, 1=connected).
	Connected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ipdisp_client_connected",
			Help: "Whether the client currently holds a live connection",
		},
	)

	// ConvertSeconds measures pixel conversion latency.
	ConvertSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ipdisp_client_convert_seconds",
			Help:    "Latency of frame pixel format conversion in seconds",
			Buckets: prometheus.ExponentialBuckets(0.000001, 2, 20), // 1µs to ~1s
		},
	)
)
