// Command supplicantd tracks the live state of the host's wpa_supplicant
// peer over the system D-Bus and exposes it as a Prometheus-instrumented
// process for an upstream connection manager to consume in-process
// (see internal/supplicant).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/godbus/dbus/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/dantte-lp/gosupplicant/internal/config"
	suppmetrics "github.com/dantte-lp/gosupplicant/internal/metrics"
	"github.com/dantte-lp/gosupplicant/internal/supplicant"
	appversion "github.com/dantte-lp/gosupplicant/internal/version"
)

// shutdownTimeout bounds how long the metrics HTTP server is given to drain
// active connections on graceful shutdown.
const shutdownTimeout = 10 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to configuration file (YAML)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.New(slog.NewTextHandler(os.Stderr, nil)).Error("failed to load configuration",
			slog.String("error", err.Error()),
		)
		return 1
	}

	logLevel := new(slog.LevelVar)
	logLevel.Set(config.ParseLogLevel(cfg.Log.Level))
	logger := newLoggerWithLevel(cfg.Log, logLevel)

	logger.Info("supplicantd starting",
		slog.String("version", appversion.Version),
		slog.String("bus_service_name", cfg.Bus.ServiceName),
		slog.String("metrics_addr", cfg.Metrics.Addr),
	)

	reg := prometheus.NewRegistry()
	collector := suppmetrics.NewCollector(reg)

	if err := runDaemon(cfg, collector, reg, logger); err != nil {
		logger.Error("supplicantd exited with error", slog.String("error", err.Error()))
		return 1
	}

	logger.Info("supplicantd stopped")
	return 0
}

// runDaemon dials the system bus, constructs the replica, and runs the
// replica's dispatch loop alongside the metrics HTTP server under a single
// errgroup with signal-aware shutdown.
func runDaemon(cfg *config.Config, collector *suppmetrics.Collector, reg *prometheus.Registry, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := dbus.SystemBus()
	if err != nil {
		return fmt.Errorf("dial system bus: %w", err)
	}
	defer conn.Close()

	// replHolder lets SystemReady push the initial debug level back through
	// the very replica it fires from, even though the replica doesn't exist
	// yet at the point its Callbacks are built: the callback reads through
	// the pointer-to-pointer at call time, by which point replHolder has
	// been filled in below.
	var replHolder *supplicant.Replica
	repl := supplicant.NewReplica(supplicant.ReplicaConfig{
		Conn:        conn,
		ServiceName: cfg.Bus.ServiceName,
		Logger:      logger,
		Metrics:     collector,
		Callbacks:   daemonCallbacks(cfg, &replHolder, logger),
	})
	replHolder = repl

	g, gCtx := errgroup.WithContext(ctx)

	metricsSrv := newMetricsServer(cfg.Metrics, reg)
	g.Go(func() error {
		logger.Info("metrics server listening", slog.String("addr", cfg.Metrics.Addr))
		return listenAndServe(gCtx, metricsSrv, cfg.Metrics.Addr)
	})

	g.Go(func() error {
		return repl.Run(gCtx)
	})

	g.Go(func() error {
		<-gCtx.Done()
		notifyStopping(logger)
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gCtx), shutdownTimeout)
		defer cancel()
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown metrics server: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("run daemon: %w", err)
	}
	return nil
}

// daemonCallbacks wires the replica's outward callback surface to
// structured logging, systemd readiness notification, and a debug-level
// push on every SystemReady (including each time the peer returns).
func daemonCallbacks(cfg *config.Config, repl **supplicant.Replica, logger *slog.Logger) supplicant.Callbacks {
	return supplicant.Callbacks{
		SystemReady: func() {
			logger.Info("peer ready")
			notifyReady(logger)
			if err := (*repl).SetDebugLevel(cfg.Debug.Level); err != nil {
				logger.Warn("failed to push initial debug level", slog.String("error", err.Error()))
			}
		},
		SystemKilled: func() {
			logger.Warn("peer lost")
		},
		InterfaceAdded: func(iface *supplicant.Interface) {
			logger.Info("interface added",
				slog.String("path", iface.Path),
				slog.String("ifname", iface.Ifname),
				slog.String("state", iface.State.String()),
			)
		},
		InterfaceRemoved: func(iface *supplicant.Interface) {
			logger.Info("interface removed", slog.String("path", iface.Path), slog.String("ifname", iface.Ifname))
		},
		ScanStarted: func(iface *supplicant.Interface) {
			logger.Debug("scan started", slog.String("ifname", iface.Ifname))
		},
		ScanFinished: func(iface *supplicant.Interface) {
			logger.Debug("scan finished", slog.String("ifname", iface.Ifname))
		},
		NetworkAdded: func(net *supplicant.Network) {
			logger.Info("network added", slog.String("group", net.Group), slog.String("name", net.Name), slog.String("mode", net.Mode.String()))
		},
		NetworkRemoved: func(net *supplicant.Network) {
			logger.Info("network removed", slog.String("group", net.Group))
		},
	}
}

// -------------------------------------------------------------------------
// Systemd Integration
// -------------------------------------------------------------------------

func notifyReady(logger *slog.Logger) {
	sent, err := daemon.SdNotify(false, daemon.SdNotifyReady)
	if err != nil {
		logger.Warn("failed to notify systemd readiness", slog.String("error", err.Error()))
		return
	}
	if sent {
		logger.Info("notified systemd: READY")
	}
}

func notifyStopping(logger *slog.Logger) {
	sent, err := daemon.SdNotify(false, daemon.SdNotifyStopping)
	if err != nil {
		logger.Warn("failed to notify systemd stopping", slog.String("error", err.Error()))
		return
	}
	if sent {
		logger.Info("notified systemd: STOPPING")
	}
}

// -------------------------------------------------------------------------
// Server Setup
// -------------------------------------------------------------------------

func listenAndServe(ctx context.Context, srv *http.Server, addr string) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve on %s: %w", addr, err)
	}
	return nil
}

func newMetricsServer(cfg config.MetricsConfig, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("load config from %s: %w", path, err)
		}
		return cfg, nil
	}
	return config.DefaultConfig(), nil
}

func newLoggerWithLevel(cfg config.LogConfig, level *slog.LevelVar) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch cfg.Format {
	case "text":
		handler = slog.NewTextHandler(os.Stdout, opts)
	default:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
