// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/arc/arc"
	"github.com/bureau-foundation/arc/bridge"
	"github.com/bureau-foundation/arc/lib/clock"
	"github.com/bureau-foundation/arc/lib/config"
	"github.com/bureau-foundation/arc/lib/process"
	"github.com/bureau-foundation/arc/lib/sequence"
	"github.com/bureau-foundation/arc/lib/service"
	"github.com/bureau-foundation/arc/lib/version"
	"github.com/bureau-foundation/arc/sessionmanager"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		process.Fatal(err)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("arc-daemon", pflag.ContinueOnError)
	configPath := flags.String("config", "", "path to arc.yaml (default: $ARC_CONFIG, then built-in defaults)")
	showVersion := flags.Bool("version", false, "print version information and exit")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return &process.ExitError{Code: 2, Err: err}
	}

	if *showVersion {
		version.Print(os.Stdout, "arc-daemon")
		return nil
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel()}))
	slog.SetDefault(logger)

	if err := cfg.EnsurePaths(); err != nil {
		return err
	}
	defaultMode, err := arc.ParseMode(cfg.Daemon.DefaultMode)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The loop outlives ctx so the final Shutdown can run on it.
	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()
	loop := sequence.NewLoop()
	go loop.Run(loopCtx)

	transport, err := sessionmanager.Dial(cfg.SessionManager.Bus, sessionmanager.Options{
		Sequence:    loop,
		CallTimeout: cfg.CallTimeout(),
		Logger:      logger.With("component", "sessionmanager"),
	})
	if err != nil {
		return err
	}
	defer transport.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	runner := arc.NewRunner(arc.RunnerOptions{
		Sequence:    loop,
		Transport:   transport,
		Connector:   &bridge.Connector{Logger: logger.With("component", "bridge")},
		Clock:       clock.Real(),
		Logger:      logger,
		StopTimeout: cfg.StopTimeout(),
		Observers:   []arc.Observer{arc.NewMetrics(registry)},
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	daemon := &Daemon{
		sequence:    loop,
		runner:      runner,
		defaultMode: defaultMode,
		logger:      logger,
		shutdown:    cancel,
	}

	socketServer := service.NewSocketServer(cfg.Daemon.ControlSocket, logger)
	daemon.registerActions(socketServer)
	socketDone := make(chan error, 1)
	go func() {
		socketDone <- socketServer.Serve(ctx)
	}()

	var metricsServer *http.Server
	if cfg.Daemon.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
		metricsServer = &http.Server{
			Addr:              cfg.Daemon.MetricsAddress,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "address", cfg.Daemon.MetricsAddress, "error", err)
			}
		}()
	}

	logger.Info("arc-daemon running",
		"version", version.Info(),
		"environment", cfg.Environment,
		"socket", cfg.Daemon.ControlSocket,
		"metrics", cfg.Daemon.MetricsAddress,
		"default_mode", defaultMode,
	)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := loop.Do(shutdownCtx, runner.Shutdown); err != nil {
		logger.Error("session shutdown did not complete", "error", err)
	}
	// The deferred Close drops the bus connection; let StopArcInstance
	// go out first.
	if err := transport.Flush(shutdownCtx); err != nil {
		logger.Error("session_manager calls still pending at exit", "error", err)
	}
	if err := <-socketDone; err != nil {
		logger.Error("socket server error", "error", err)
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown", "error", err)
		}
	}
	return nil
}

// loadConfig reads path, falls back to ARC_CONFIG, and then to the
// built-in defaults, and validates the result.
func loadConfig(path string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	switch {
	case path != "":
		cfg, err = config.LoadFile(path)
	case os.Getenv("ARC_CONFIG") != "":
		cfg, err = config.Load()
	default:
		cfg = config.Default()
		cfg.Resolve()
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
