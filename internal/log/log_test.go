package log

import (
	"log/slog"
	"testing"

	"icc.tech/ipdisp-client/internal/config"
)

func TestParseLevelValid(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level, err := parseLevel(tt.input)
			if err != nil {
				t.Errorf("parseLevel(%q) returned error: %v", tt.input, err)
			}
			if level != tt.expected {
				t.Errorf("parseLevel(%q) = %v, expected %v", tt.input, level, tt.expected)
			}
		})
	}
}

func TestParseLevelInvalid(t *testing.T) {
	if _, err := parseLevel("verbose"); err == nil {
		t.Error("Expected error for unknown level")
	}
}

func TestInitRejectsBadFormat(t *testing.T) {
	err := Init(config.LogConfig{Level: "info", Format: "xml"})
	if err == nil {
		t.Error("Expected error for unsupported format")
	}
}

func TestInitTextFormat(t *testing.T) {
	err := Init(config.LogConfig{Level: "debug", Format: "text"})
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
}
