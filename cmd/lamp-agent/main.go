// Command lamp-agent runs the lamp agent on a Raspberry Pi unit.
//
// The agent drives the unit's output channels, runs the power-up
// sequence, and keeps a UDP heartbeat with the supervisor until the
// supervisor sends END, at which point it switches every output off and
// powers the unit down.
//
// Usage:
//
//	lamp-agent [flags]
//
// Flags:
//
//	-config string      Configuration file path (YAML)
//	-variant string     Board variant: nth, sth, or a wiring file (default: from hostname)
//	-driver string      Output driver: rpio, sim (default "rpio")
//	-host string        Supervisor host (default "SIGCNTRL.local")
//	-port int           Heartbeat port (default 65433)
//	-discover           Locate the supervisor with mDNS
//	-log-level string   Log level: debug, info, warn, error (default "info")
//	-capture string     Protocol capture file (.llog)
//	-state string       Statistics snapshot file (JSON)
//	-metrics-addr       Prometheus listen address
//	-testing            Never power the unit down on END
//	-interactive        Start the console (sim driver only)
//
// Examples:
//
//	# Production unit, variant from hostname
//	lamp-agent -state /var/lib/lamp-agent/state.json
//
//	# Development host with the console
//	lamp-agent -driver sim -variant nth -host 127.0.0.1 -testing -interactive
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sigcntrl/lampagent/cmd/lamp-agent/interactive"
	"github.com/sigcntrl/lampagent/pkg/agent"
	"github.com/sigcntrl/lampagent/pkg/board"
	"github.com/sigcntrl/lampagent/pkg/discovery"
	"github.com/sigcntrl/lampagent/pkg/heartbeat"
	"github.com/sigcntrl/lampagent/pkg/log"
	"github.com/sigcntrl/lampagent/pkg/metrics"
	"github.com/sigcntrl/lampagent/pkg/output"
	"github.com/sigcntrl/lampagent/pkg/persistence"
	"github.com/sigcntrl/lampagent/pkg/version"
)

// Power-down action run after END.
var (
	shutdownCommand = []string{"/usr/bin/sudo", "/sbin/shutdown", "-h", "now"}
	shutdownDelay   = time.Second
)

func main() {
	config, err := parseConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err := run(config); err != nil {
		fmt.Fprintln(os.Stderr, "lamp-agent:", err)
		os.Exit(1)
	}
}

func run(config Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	level := new(slog.LevelVar)
	l, _ := parseLevel(config.LogLevel)
	level.Set(l)

	var console *interactive.Console
	logOut := io.Writer(os.Stderr)
	if config.Interactive {
		c, err := interactive.New()
		if err != nil {
			return err
		}
		console = c
		defer console.Close()
		logOut = console.Stdout()
	}
	if config.LogFile != "" {
		f, err := os.OpenFile(config.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		logOut = io.MultiWriter(logOut, f)
	}
	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: level}))

	if config.ConfigFile != "" {
		stopWatch, err := watchLogLevel(ctx, config.ConfigFile, level, logger)
		if err != nil {
			logger.Warn("config reload disabled", "error", err)
		} else {
			defer func() { _ = stopWatch() }()
		}
	}

	// The variant is resolved before any socket or hardware is touched.
	variant, err := resolveVariant(config.Variant)
	if err != nil {
		return err
	}
	logger.Info("lamp agent", "version", version.Current, "variant", variant.Name, "driver", config.Driver)

	kind, err := output.ParseDriverKind(config.Driver)
	if err != nil {
		return err
	}
	driver, err := output.NewDriver(kind)
	if err != nil {
		return err
	}
	sim, _ := driver.(*output.SimDriver)

	remote, err := resolveSupervisor(ctx, config, logger)
	if err != nil {
		return err
	}

	conn, err := heartbeat.Listen(ctx, fmt.Sprintf(":%d", config.Port))
	if err != nil {
		return err
	}

	protocolLogger, closeCapture, err := openCapture(config, logger)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer closeCapture()

	var collector *metrics.Collector
	if config.MetricsAddr != "" {
		collector, err = startMetrics(ctx, config.MetricsAddr, logger)
		if err != nil {
			_ = conn.Close()
			return err
		}
	}

	if config.Advertise {
		adv := discovery.NewMDNSAdvertiser(discovery.AdvertiserConfig{
			Interface: config.Interface,
			Logger:    logger,
		})
		host, _ := os.Hostname()
		err := adv.Advertise(ctx, &discovery.AgentInfo{
			Instance: host,
			Port:     uint16(config.Port),
			Version:  version.Current,
			Variant:  variant.Name,
			Channels: len(variant.Channels),
		})
		if err != nil {
			logger.Warn("mDNS advertising failed", "error", err)
		} else {
			defer func() { _ = adv.Stop() }()
		}
	}

	var store *persistence.StateStore
	if config.StateFile != "" {
		store = persistence.NewStateStore(config.StateFile)
	}

	a, err := agent.New(agent.Config{
		Variant:        variant,
		Driver:         driver,
		Conn:           conn,
		Remote:         remote,
		Seed:           config.Seed,
		CancelGrace:    config.CancelGrace,
		StateStore:     store,
		Metrics:        collector,
		Logger:         logger,
		ProtocolLogger: protocolLogger,
	})
	if err != nil {
		_ = conn.Close()
		return err
	}

	if console != nil {
		console.Attach(a, sim)
		go console.Run(ctx, cancel)
	}

	res, err := a.Run(ctx)
	if err != nil {
		return err
	}
	logger.Info("agent finished",
		"session", res.SessionID,
		"shutdown_requested", res.ShutdownRequested,
		"duration", res.EndedAt.Sub(res.StartedAt).Round(time.Second))

	if res.ShutdownRequested {
		return powerDown(config.Testing, logger)
	}
	return nil
}

// resolveVariant loads the named variant or wiring file, or picks a
// variant by hostname.
func resolveVariant(name string) (*board.Variant, error) {
	if strings.HasSuffix(name, ".yaml") {
		return board.LoadFile(name)
	}
	if name != "" {
		return board.Load(name)
	}
	host, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("hostname: %w", err)
	}
	return board.Resolve(host)
}

// resolveSupervisor returns the heartbeat peer, browsing mDNS when asked to.
func resolveSupervisor(ctx context.Context, config Config, logger *slog.Logger) (net.Addr, error) {
	if config.Discover {
		browser := discovery.NewMDNSBrowser(discovery.BrowserConfig{Interface: config.Interface})
		svc, err := discovery.LocateSupervisor(ctx, browser, discovery.DefaultBrowseTimeout)
		if err == nil {
			logger.Info("supervisor located", "instance", svc.InstanceName, "addr", svc.Addr())
			return net.ResolveUDPAddr("udp4", svc.Addr())
		}
		if !errors.Is(err, discovery.ErrNotFound) {
			return nil, err
		}
		logger.Warn("no supervisor advertised, using host", "host", config.Host)
	}

	addr, err := heartbeat.ResolveRemote(config.Host, config.Port)
	if err != nil {
		return nil, fmt.Errorf("resolve supervisor %s: %w", net.JoinHostPort(config.Host, strconv.Itoa(config.Port)), err)
	}
	return addr, nil
}

// openCapture builds the protocol logger: the capture file, plus a debug
// log line per event when the level is debug.
func openCapture(config Config, logger *slog.Logger) (log.Logger, func(), error) {
	var loggers []log.Logger
	closeFn := func() {}

	if config.CaptureFile != "" {
		fl, err := log.NewFileLogger(config.CaptureFile, log.WithErrorLogger(logger))
		if err != nil {
			return nil, closeFn, fmt.Errorf("open capture: %w", err)
		}
		loggers = append(loggers, fl)
		closeFn = func() {
			if n := fl.Dropped(); n > 0 {
				logger.Warn("protocol capture incomplete", "path", fl.Path(), "dropped", n, "error", fl.Err())
			}
			_ = fl.Close()
		}
		logger.Info("protocol capture enabled", "path", config.CaptureFile)
	}
	if config.LogLevel == "debug" {
		loggers = append(loggers, log.NewSlogAdapter(logger))
	}

	m := log.NewMultiLogger(loggers...)
	switch m.Len() {
	case 0:
		return nil, closeFn, nil
	case 1:
		return loggers[0], closeFn, nil
	default:
		return m, closeFn, nil
	}
}

func startMetrics(ctx context.Context, addr string, logger *slog.Logger) (*metrics.Collector, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	collector, err := metrics.NewCollector(reg)
	if err != nil {
		return nil, err
	}
	srv, err := metrics.NewServer(addr, reg, logger)
	if err != nil {
		return nil, err
	}
	go func() {
		if err := srv.Serve(ctx); err != nil {
			logger.Warn("metrics server stopped", "error", err)
		}
	}()
	logger.Info("metrics listening", "addr", srv.Addr())
	return collector, nil
}

// powerDown halts the unit after END unless testing.
func powerDown(testing bool, logger *slog.Logger) error {
	if testing {
		logger.Info("END received, testing mode: not powering down")
		return nil
	}
	logger.Info("END received, powering down")
	time.Sleep(shutdownDelay)
	cmd := exec.Command(shutdownCommand[0], shutdownCommand[1:]...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("power down: %w", err)
	}
	return nil
}
