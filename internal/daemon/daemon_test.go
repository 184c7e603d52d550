package daemon

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"icc.tech/ipdisp-client/internal/client"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

const minimalConfig = `
ipdisp-client:
  server:
    address: 192.168.1.50
    port: 9000
  display:
    width: 1280
    height: 720
`

func TestNewAppliesConfigDefaults(t *testing.T) {
	path := writeConfig(t, minimalConfig)

	d, err := New(path, "", "")
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer d.cancel()

	if d.socketPath != "/var/run/ipdisp-client.sock" {
		t.Errorf("socket path = %q, want default", d.socketPath)
	}
	if d.pidFile != "/var/run/ipdisp-client.pid" {
		t.Errorf("pid file = %q, want default", d.pidFile)
	}
}

func TestNewFlagOverrides(t *testing.T) {
	path := writeConfig(t, minimalConfig)

	d, err := New(path, "/tmp/custom.sock", "/tmp/custom.pid")
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer d.cancel()

	if d.socketPath != "/tmp/custom.sock" {
		t.Errorf("socket path = %q, want /tmp/custom.sock", d.socketPath)
	}
	if d.pidFile != "/tmp/custom.pid" {
		t.Errorf("pid file = %q, want /tmp/custom.pid", d.pidFile)
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	path := writeConfig(t, `
ipdisp-client:
  server:
    address: 192.168.1.50
    port: 99999
`)
	if _, err := New(path, "", ""); err == nil {
		t.Error("expected error for out-of-range port")
	}
}

func TestStatusBeforeConnect(t *testing.T) {
	path := writeConfig(t, minimalConfig)

	d, err := New(path, "", "")
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer d.cancel()

	status := d.Status()
	if status.Connected {
		t.Error("expected disconnected status before any session")
	}
	if status.ServerAddr != "192.168.1.50:9000" {
		t.Errorf("server addr = %q, want 192.168.1.50:9000", status.ServerAddr)
	}
	if status.DisplayWidth != 1280 || status.DisplayHeight != 720 {
		t.Errorf("dimensions = %dx%d, want 1280x720", status.DisplayWidth, status.DisplayHeight)
	}
	if status.Version != Version {
		t.Errorf("version = %q, want %q", status.Version, Version)
	}
}

func TestForwardCommandWithoutSession(t *testing.T) {
	path := writeConfig(t, minimalConfig)

	d, err := New(path, "", "")
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer d.cancel()

	err = d.ForwardCommand(context.Background(), []byte("PING"))
	if !errors.Is(err, client.ErrNotConnected) {
		t.Errorf("ForwardCommand error = %v, want ErrNotConnected", err)
	}
}

func TestStatsStartAtZero(t *testing.T) {
	path := writeConfig(t, minimalConfig)

	d, err := New(path, "", "")
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer d.cancel()

	stats := d.Stats()
	if stats.FramesTotal != 0 || stats.FrameBytesTotal != 0 || stats.Connects != 0 {
		t.Errorf("expected zeroed stats, got %+v", stats)
	}
}

func TestPIDFileLifecycle(t *testing.T) {
	path := writeConfig(t, minimalConfig)
	pidFile := filepath.Join(t.TempDir(), "test.pid")

	d, err := New(path, "", pidFile)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer d.cancel()

	if err := d.writePIDFile(); err != nil {
		t.Fatalf("writePIDFile() failed: %v", err)
	}
	if _, err := os.Stat(pidFile); err != nil {
		t.Fatalf("PID file not created: %v", err)
	}

	if err := d.removePIDFile(); err != nil {
		t.Fatalf("removePIDFile() failed: %v", err)
	}
	if _, err := os.Stat(pidFile); !os.IsNotExist(err) {
		t.Error("PID file still present after removal")
	}

	// Removing again is not an error.
	if err := d.removePIDFile(); err != nil {
		t.Errorf("second removePIDFile() failed: %v", err)
	}
}
