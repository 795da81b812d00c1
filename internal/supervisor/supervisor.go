// Package supervisor implements the process root: it owns every
// connector's lifecycle, the control-plane socket, the liveness notifier
// and signal handling, grounded on the original daemon's main/MeteoServer
// startup sequence and the teacher's internal/daemon.Daemon shape.
package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"meteodata.example/meteodata-server/internal/connector"
	"meteodata.example/meteodata-server/internal/control"
	"meteodata.example/meteodata-server/internal/liveness"
	"meteodata.example/meteodata-server/internal/metrics"
)

// connectorHandle adapts a connector.Connector plus its Capability into the
// narrow control.ConnectorInfo surface the control plane is allowed to
// drive — start, stop, reload, and status only.
type connectorHandle struct {
	c    connector.Connector
	caps connector.Capability
}

func (h *connectorHandle) Name() string   { return h.c.Name() }
func (h *connectorHandle) State() string  { return h.c.State().String() }
func (h *connectorHandle) Status() string { return h.c.Status().String() }

func (h *connectorHandle) Start(ctx context.Context) error {
	return h.c.Start(ctx, h.caps)
}

func (h *connectorHandle) Stop(ctx context.Context) error {
	return h.c.Stop(ctx)
}

// Reload delegates to the connector's own Reload, which picks up
// registry/configuration changes; connectors with nothing cheaper
// implement it as connector.DefaultReload (stop, then start again).
func (h *connectorHandle) Reload(ctx context.Context) error {
	return h.c.Reload(ctx, h.caps)
}

var _ control.ConnectorInfo = (*connectorHandle)(nil)

// Supervisor owns every connector, the control-plane socket, the metrics
// server, and the liveness notifier for one process lifetime.
type Supervisor struct {
	connectors map[string]*connectorHandle

	control       *control.Server
	metricsServer *metrics.Server
	liveness      *liveness.Notifier
	pidFile       string
	shutdownGrace time.Duration

	mu           sync.Mutex
	shutdownOnce sync.Once
	shutdownCh   chan struct{}
	sigCh        chan os.Signal
}

// Option configures an optional Supervisor component.
type Option func(*Supervisor)

// WithMetricsServer attaches an already-constructed metrics HTTP server
// whose lifecycle the supervisor will manage.
func WithMetricsServer(s *metrics.Server) Option {
	return func(sv *Supervisor) { sv.metricsServer = s }
}

// WithLiveness attaches the systemd watchdog notifier (nil-safe: a nil
// *liveness.Notifier is simply never started).
func WithLiveness(n *liveness.Notifier) Option {
	return func(sv *Supervisor) { sv.liveness = n }
}

// WithPIDFile records where to write the process PID; empty disables it.
func WithPIDFile(path string) Option {
	return func(sv *Supervisor) { sv.pidFile = path }
}

// WithShutdownGrace bounds how long Stop waits for every connector to
// finish stopping before giving up.
func WithShutdownGrace(d time.Duration) Option {
	return func(sv *Supervisor) { sv.shutdownGrace = d }
}

// New builds a Supervisor over connectors (name -> connector, each paired
// with the Capability it should be started with) and a control socket path.
func New(connectors map[string]connector.Connector, caps connector.Capability, controlSocket string, opts ...Option) *Supervisor {
	handles := make(map[string]*connectorHandle, len(connectors))
	for name, c := range connectors {
		handles[name] = &connectorHandle{c: c, caps: caps}
	}

	sv := &Supervisor{
		connectors:    handles,
		shutdownCh:    make(chan struct{}),
		shutdownGrace: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(sv)
	}

	generalHandler := control.NewGeneralHandler(sv)
	connectorsHandler := control.NewConnectorsHandler(sv)
	sv.control = control.New(controlSocket, generalHandler, connectorsHandler)

	return sv
}

// List implements control.ConnectorRegistry.
func (sv *Supervisor) List() []control.ConnectorInfo {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	out := make([]control.ConnectorInfo, 0, len(sv.connectors))
	for _, h := range sv.connectors {
		out = append(out, h)
	}
	return out
}

// Get implements control.ConnectorRegistry.
func (sv *Supervisor) Get(name string) (control.ConnectorInfo, bool) {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	h, ok := sv.connectors[name]
	return h, ok
}

// Shutdown implements control.Server: it is called from the control-plane
// "general shutdown" verb to begin a graceful stop.
func (sv *Supervisor) Shutdown() {
	sv.shutdownOnce.Do(func() { close(sv.shutdownCh) })
}

// Start brings up every connector, the control socket, the metrics server
// and the liveness notifier, then notifies systemd that the daemon is
// ready. ctx governs the lifetime of all of these background services.
func (sv *Supervisor) Start(ctx context.Context) error {
	if err := sv.writePIDFile(); err != nil {
		return err
	}

	if sv.metricsServer != nil {
		if err := sv.metricsServer.Start(ctx); err != nil {
			return fmt.Errorf("supervisor: metrics server: %w", err)
		}
	}

	for name, h := range sv.connectors {
		if err := h.Start(ctx); err != nil {
			return fmt.Errorf("supervisor: start connector %s: %w", name, err)
		}
		metrics.ConnectorState.WithLabelValues(name).Set(float64(h.c.State()))
	}

	go func() {
		if err := sv.control.Start(ctx); err != nil {
			slog.Error("supervisor: control server exited", "error", err)
		}
	}()

	if sv.liveness != nil {
		go sv.liveness.Run(ctx)
	}

	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady+"\nSTATUS=Data collection started\nMAINPID="+fmt.Sprint(os.Getpid()))

	return nil
}

// Run blocks until a shutdown signal (SIGTERM/SIGINT), a SIGHUP reload
// request, or a control-plane shutdown command is received.
func (sv *Supervisor) Run(ctx context.Context) error {
	sv.sigCh = make(chan os.Signal, 1)
	signal.Notify(sv.sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)
	defer signal.Stop(sv.sigCh)

	for {
		select {
		case sig := <-sv.sigCh:
			switch sig {
			case syscall.SIGTERM, syscall.SIGINT:
				slog.Info("supervisor: received shutdown signal", "signal", sig)
				return sv.Stop(ctx)
			case syscall.SIGHUP:
				slog.Info("supervisor: received reload signal")
				sv.reloadAll(ctx)
			}
		case <-sv.shutdownCh:
			slog.Info("supervisor: shutdown requested via control plane")
			return sv.Stop(ctx)
		case <-ctx.Done():
			return sv.Stop(ctx)
		}
	}
}

func (sv *Supervisor) reloadAll(ctx context.Context) {
	sv.mu.Lock()
	handles := make([]*connectorHandle, 0, len(sv.connectors))
	for _, h := range sv.connectors {
		handles = append(handles, h)
	}
	sv.mu.Unlock()

	for _, h := range handles {
		if err := h.Reload(ctx); err != nil {
			slog.Error("supervisor: reload failed", "connector", h.Name(), "error", err)
		}
	}
}

// Stop tears down every connector concurrently, the control socket and the
// metrics server, bounded by shutdownGrace.
func (sv *Supervisor) Stop(ctx context.Context) error {
	stopCtx, cancel := context.WithTimeout(ctx, sv.shutdownGrace)
	defer cancel()

	var wg sync.WaitGroup
	sv.mu.Lock()
	for name, h := range sv.connectors {
		wg.Add(1)
		go func(name string, h *connectorHandle) {
			defer wg.Done()
			if err := h.Stop(stopCtx); err != nil {
				slog.Error("supervisor: connector stop failed", "connector", name, "error", err)
			}
		}(name, h)
	}
	sv.mu.Unlock()

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-stopCtx.Done():
		slog.Warn("supervisor: shutdown grace period exceeded, some connectors may not have stopped cleanly")
	}

	if err := sv.control.Stop(); err != nil {
		slog.Error("supervisor: control server stop failed", "error", err)
	}
	if sv.metricsServer != nil {
		msCtx, msCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer msCancel()
		_ = sv.metricsServer.Stop(msCtx)
	}

	sv.removePIDFile()
	slog.Info("supervisor: stopped")
	return nil
}

// NotifyFatal reports a fatal, unrecoverable error to systemd so the
// service manager can decide whether to restart the unit, matching the
// original daemon's sd_notifyf(STATUS=...critical.../ERRNO=255) call.
func NotifyFatal(err error) {
	_, _ = daemon.SdNotify(false, fmt.Sprintf("STATUS=Critical error met: %v, bailing off\nERRNO=255", err))
}

func (sv *Supervisor) writePIDFile() error {
	if sv.pidFile == "" {
		return nil
	}
	return os.WriteFile(sv.pidFile, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0644)
}

func (sv *Supervisor) removePIDFile() {
	if sv.pidFile == "" {
		return
	}
	if err := os.Remove(sv.pidFile); err != nil && !os.IsNotExist(err) {
		slog.Error("supervisor: remove pid file failed", "error", err)
	}
}
