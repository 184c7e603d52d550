// Package daemon implements the daemon lifecycle manager.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"icc.tech/ipdisp-client/internal/client"
	"icc.tech/ipdisp-client/internal/command"
	"icc.tech/ipdisp-client/internal/config"
	"icc.tech/ipdisp-client/internal/display"
	"icc.tech/ipdisp-client/internal/events"
	logpkg "icc.tech/ipdisp-client/internal/log"
	"icc.tech/ipdisp-client/internal/metrics"
)

// Version is reported over the control plane.
const Version = "0.1.0"

// Daemon manages the ipdisp-client daemon process lifecycle: the
// connection session to the display server, the frame store, the
// metrics endpoint and the local control plane.
type Daemon struct {
	// Configuration
	config     *config.GlobalConfig
	configPath string
	socketPath string
	pidFile    string

	// Core components
	store         *display.Store
	udsServer     *command.UDSServer
	metricsServer *metrics.Server  // nil if metrics disabled
	reporter      *events.Reporter // nil if events disabled

	// Current session client; nil between sessions.
	mu     sync.Mutex
	client *client.Client

	// Cumulative counters for daemon_stats.
	framesTotal     atomic.Uint64
	frameBytesTotal atomic.Uint64
	dimUpdates      atomic.Uint64
	receiveErrors   atomic.Uint64
	connects        atomic.Uint64

	// Lifecycle management
	ctx          context.Context
	cancel       context.CancelFunc
	shutdownChan chan struct{}
	sigChan      chan os.Signal
	sessionsDone chan struct{}
}

// New creates a new Daemon instance. Empty socketPath or pidFile fall
// back to the values in the loaded configuration.
func New(configPath, socketPath, pidFile string) (*Daemon, error) {
	globalConfig, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if socketPath == "" {
		socketPath = globalConfig.Control.Socket
	}
	if pidFile == "" {
		pidFile = globalConfig.Control.PIDFile
	}

	d := &Daemon{
		config:       globalConfig,
		configPath:   configPath,
		socketPath:   socketPath,
		pidFile:      pidFile,
		store:        display.NewStore(),
		shutdownChan: make(chan struct{}),
		sessionsDone: make(chan struct{}),
	}

	d.ctx, d.cancel = context.WithCancel(context.Background())

	// Seed the frame store with configured dimensions; the server
	// overrides them with the first info packet.
	d.store.SetDimensions(globalConfig.Display.Width, globalConfig.Display.Height)

	return d, nil
}

// Start initializes and starts all daemon components.
func (d *Daemon) Start() error {
	slog.Info("starting ipdisp-client daemon",
		"version", Version,
		"server", d.config.Server.Addr(),
		"config", d.configPath,
		"socket", d.socketPath,
	)

	// 1. Initialize logging system
	if err := logpkg.Init(d.config.Log); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	// 2. Write PID file
	if err := d.writePIDFile(); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}

	// 3. Start metrics server
	if err := d.startMetrics(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	// 4. Optionally render a gradient until the first real frame arrives.
	if d.config.Display.TestPattern {
		if err := d.store.TestPattern(d.config.Display.Width, d.config.Display.Height); err != nil {
			slog.Warn("failed to render test pattern", "error", err)
		}
	}

	// 5. Start the optional Kafka event reporter
	d.reporter = events.NewReporter(d.config.Events)
	if d.reporter != nil {
		go d.reporter.Run(d.ctx)
		slog.Info("event reporter started",
			"brokers", d.config.Events.Brokers,
			"topic", d.config.Events.Topic,
		)
	}

	// 6. Start UDS server for CLI control
	d.udsServer = command.NewUDSServer(d.socketPath, command.NewCommandHandler(d))
	go func() {
		if err := d.udsServer.Start(d.ctx); err != nil && err != context.Canceled {
			slog.Error("uds server failed", "error", err)
		}
	}()

	// 7. Start the connection session loop
	go d.sessionLoop(d.ctx)

	slog.Info("daemon started successfully")
	return nil
}

// Run runs the daemon main loop, blocking until shutdown is triggered.
// Shutdown can be triggered by:
//  1. OS signals (SIGTERM, SIGINT)
//  2. daemon_shutdown command via the control socket
//  3. SIGHUP triggers config reload
func (d *Daemon) Run() error {
	d.sigChan = make(chan os.Signal, 1)
	signal.Notify(d.sigChan, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)

	slog.Info("daemon running, waiting for signals or commands")

	for {
		select {
		case sig := <-d.sigChan:
			switch sig {
			case syscall.SIGTERM, syscall.SIGINT:
				slog.Info("received shutdown signal", "signal", sig)
				d.Stop()
				return nil

			case syscall.SIGHUP:
				slog.Info("received reload signal")
				if err := d.Reload(); err != nil {
					slog.Error("failed to reload config", "error", err)
				}
			}

		case <-d.shutdownChan:
			slog.Info("shutdown triggered by command")
			d.Stop()
			return nil

		case <-d.ctx.Done():
			slog.Info("context cancelled", "error", d.ctx.Err())
			d.Stop()
			return d.ctx.Err()
		}
	}
}

// Stop performs graceful shutdown of all daemon components.
func (d *Daemon) Stop() {
	slog.Info("initiating graceful shutdown")

	// 1. Cancel context: tears down the session, the reporter and the
	// accept loop.
	d.cancel()

	// 2. Wait for the session loop to release the connection.
	select {
	case <-d.sessionsDone:
	case <-time.After(5 * time.Second):
		slog.Warn("session loop did not stop in time")
	}

	// 3. Stop UDS server (no new CLI commands)
	if d.udsServer != nil {
		d.udsServer.Stop()
	}

	// 4. Stop metrics server
	if d.metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := d.metricsServer.Stop(shutdownCtx); err != nil {
			slog.Error("error stopping metrics server", "error", err)
		}
	}

	// 5. Unregister signal handler to prevent goroutine leak
	if d.sigChan != nil {
		signal.Stop(d.sigChan)
	}

	// 6. Remove PID file
	if err := d.removePIDFile(); err != nil {
		slog.Error("error removing PID file", "error", err)
	}

	// 7. Flush logs
	logpkg.Flush()

	slog.Info("daemon stopped gracefully")
}

// Reload reloads the global configuration.
// Hot-reloadable: log level/format.
// Cold (requires restart): server address, listen addresses, sockets.
func (d *Daemon) Reload() error {
	slog.Info("reloading configuration", "path", d.configPath)

	newConfig, err := config.Load(d.configPath)
	if err != nil {
		return fmt.Errorf("failed to load new config: %w", err)
	}

	hotReloaded := []string{}
	if newConfig.Log.Level != d.config.Log.Level || newConfig.Log.Format != d.config.Log.Format {
		if err := logpkg.Init(newConfig.Log); err != nil {
			slog.Error("failed to reinitialize logging", "error", err)
		} else {
			hotReloaded = append(hotReloaded, "log")
		}
	}

	requiresRestart := []string{}
	if newConfig.Server.Addr() != d.config.Server.Addr() {
		requiresRestart = append(requiresRestart, "server")
	}
	if newConfig.Metrics.Listen != d.config.Metrics.Listen {
		requiresRestart = append(requiresRestart, "metrics.listen")
	}
	if newConfig.Control.Socket != d.config.Control.Socket {
		requiresRestart = append(requiresRestart, "control.socket")
	}

	d.config.Log = newConfig.Log

	slog.Info("configuration reloaded",
		"hot_reloaded", hotReloaded,
		"requires_restart", requiresRestart,
	)

	return nil
}

// ─── Control plane surface (command.DaemonController) ───

// Status returns a snapshot for the daemon_status command.
func (d *Daemon) Status() command.DaemonStatus {
	width, height := d.store.Dimensions()
	cl := d.currentClient()
	return command.DaemonStatus{
		Version:       Version,
		Connected:     cl != nil && cl.Connected(),
		ServerAddr:    d.config.Server.Addr(),
		DisplayWidth:  width,
		DisplayHeight: height,
		FramesStored:  d.store.Frames(),
	}
}

// Stats returns cumulative counters for the daemon_stats command.
func (d *Daemon) Stats() command.DaemonStats {
	return command.DaemonStats{
		FramesTotal:      d.framesTotal.Load(),
		FrameBytesTotal:  d.frameBytesTotal.Load(),
		DimensionUpdates: d.dimUpdates.Load(),
		ReceiveErrors:    d.receiveErrors.Load(),
		Connects:         d.connects.Load(),
		FramesStored:     d.store.Frames(),
	}
}

// ForwardCommand queues a raw command buffer for the display server.
func (d *Daemon) ForwardCommand(ctx context.Context, payload []byte) error {
	cl := d.currentClient()
	if cl == nil {
		return client.ErrNotConnected
	}
	return cl.Send(ctx, payload)
}

// Shutdown triggers graceful shutdown from the daemon_shutdown command.
func (d *Daemon) Shutdown() {
	select {
	case d.shutdownChan <- struct{}{}:
	default:
	}
}

// ─── Connection sessions ───

// sessionLoop dials the display server and drives receive sessions,
// reconnecting after the error wait whenever the connection drops.
func (d *Daemon) sessionLoop(ctx context.Context) {
	defer close(d.sessionsDone)

	errorWait := config.Duration(d.config.Receiver.ErrorWait, time.Second)

	for ctx.Err() == nil {
		if err := d.runSession(ctx); err != nil && ctx.Err() == nil {
			slog.Error("session ended", "error", err)
			if d.reporter != nil {
				d.reporter.Disconnected(ctx, err.Error())
			}
		}
		if !sleepCtx(ctx, errorWait) {
			return
		}
	}
}

// runSession owns one connection from dial to teardown.
func (d *Daemon) runSession(ctx context.Context) error {
	addr := d.config.Server.Addr()

	stream, err := client.Dial(ctx, addr, client.DialOptions{
		Timeout:    config.Duration(d.config.Server.ConnectTimeout, 10*time.Second),
		SOCKS5Addr: d.config.Server.SOCKS5Proxy,
	})
	if err != nil {
		return err
	}

	slog.Info("connected to display server", "addr", addr)
	d.connects.Add(1)
	if d.reporter != nil {
		d.reporter.Connected(ctx, addr)
	}

	cl := client.New(stream, client.LoopConfig{
		IdleWait:  config.Duration(d.config.Receiver.IdleWait, 16*time.Millisecond),
		ErrorWait: config.Duration(d.config.Receiver.ErrorWait, time.Second),
	})
	d.setClient(cl)
	defer d.setClient(nil)

	done := make(chan error, 1)
	go func() { done <- cl.Run(ctx) }()

	for event := range cl.Events() {
		switch ev := event.(type) {
		case client.FrameEvent:
			if err := d.store.Update(ev.Frame); err != nil {
				slog.Warn("dropping frame", "error", err)
				d.receiveErrors.Add(1)
				continue
			}
			d.framesTotal.Add(1)
			d.frameBytesTotal.Add(uint64(len(ev.Frame.Data)))
			if d.reporter != nil {
				d.reporter.FrameReceived(len(ev.Frame.Data))
			}
		case client.DimensionUpdate:
			slog.Info("display dimensions changed", "width", ev.Width, "height", ev.Height)
			d.store.SetDimensions(ev.Width, ev.Height)
			d.dimUpdates.Add(1)
			if d.reporter != nil {
				d.reporter.DimensionUpdate(ctx, ev.Width, ev.Height)
			}
		}
	}

	return <-done
}

func (d *Daemon) setClient(cl *client.Client) {
	d.mu.Lock()
	d.client = cl
	d.mu.Unlock()
}

func (d *Daemon) currentClient() *client.Client {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.client
}

// ─── Infrastructure ───

// startMetrics starts the metrics HTTP server if enabled.
func (d *Daemon) startMetrics() error {
	if !d.config.Metrics.Enabled {
		slog.Info("metrics server disabled")
		return nil
	}

	d.metricsServer = metrics.NewServer(d.config.Metrics.Listen, d.config.Metrics.Path)
	if err := d.metricsServer.Start(d.ctx); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	slog.Info("metrics server started",
		"addr", d.config.Metrics.Listen,
		"path", d.config.Metrics.Path,
	)

	return nil
}

// writePIDFile writes the current process ID to the PID file.
func (d *Daemon) writePIDFile() error {
	if d.pidFile == "" {
		return nil
	}

	pid := os.Getpid()
	data := []byte(strconv.Itoa(pid) + "\n")

	if err := os.WriteFile(d.pidFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write PID file %s: %w", d.pidFile, err)
	}

	slog.Debug("PID file written", "path", d.pidFile, "pid", pid)
	return nil
}

// removePIDFile removes the PID file.
func (d *Daemon) removePIDFile() error {
	if d.pidFile == "" {
		return nil
	}

	if err := os.Remove(d.pidFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove PID file %s: %w", d.pidFile, err)
	}

	slog.Debug("PID file removed", "path", d.pidFile)
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
