// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Beacon-loadgen drives synthetic sessions through the beaconkit SDK
// against a collector (a real one, or beacon-collector-mock) for a fixed
// duration, then shuts the SDK down so every buffered beacon is
// flushed. While it runs it serves the SDK's cache and sender metrics
// on /metrics.
//
// Configuration comes from --config, else from the file named by
// BEACONKIT_CONFIG, else from BEACONKIT_* variables. Explicit flags
// override all three.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/bureau-foundation/beaconkit/lib/clock"
	"github.com/bureau-foundation/beaconkit/lib/config"
	"github.com/bureau-foundation/beaconkit/lib/httpserver"
	"github.com/bureau-foundation/beaconkit/lib/metrics"
	"github.com/bureau-foundation/beaconkit/lib/process"
	"github.com/bureau-foundation/beaconkit/lib/sdk"
	"github.com/bureau-foundation/beaconkit/lib/version"
)

// initTimeout bounds the wait for the first status response before
// load starts regardless.
const initTimeout = 10 * time.Second

func main() {
	if err := run(os.Args[1:]); err != nil {
		process.Fatal(err)
	}
}

// flags holds the command line of the load generator.
type flags struct {
	configPath    string
	endpoint      string
	applicationID string
	compression   string
	sessions      int
	actions       int
	pause         time.Duration
	duration      time.Duration
	metricsListen string
	showVersion   bool
}

func parseFlags(args []string) (flags, error) {
	var f flags
	set := pflag.NewFlagSet("beacon-loadgen", pflag.ContinueOnError)
	set.StringVarP(&f.configPath, "config", "c", "", "configuration file (yaml, json or jsonc)")
	set.StringVar(&f.endpoint, "endpoint", "", "collector beacon URL (overrides configuration)")
	set.StringVar(&f.applicationID, "application-id", "", "application id (overrides configuration)")
	set.StringVar(&f.compression, "compression", "", "beacon compression: none, gzip, zstd, lz4 (overrides configuration)")
	set.IntVarP(&f.sessions, "sessions", "s", 10, "concurrent sessions")
	set.IntVarP(&f.actions, "actions", "a", 5, "actions per session")
	set.DurationVar(&f.pause, "pause", 200*time.Millisecond, "pause inside each action")
	set.DurationVarP(&f.duration, "duration", "d", 30*time.Second, "how long to generate load")
	set.StringVar(&f.metricsListen, "metrics-listen", "127.0.0.1:9464", "address serving /metrics (empty disables)")
	set.BoolVar(&f.showVersion, "version", false, "print version information and exit")
	if err := set.Parse(args); err != nil {
		return flags{}, err
	}
	if f.sessions < 1 {
		return flags{}, errors.New("--sessions must be at least 1")
	}
	if f.actions < 1 {
		return flags{}, errors.New("--actions must be at least 1")
	}
	return f, nil
}

// loadConfig resolves the configuration and applies flag overrides.
func loadConfig(f flags) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	switch {
	case f.configPath != "":
		cfg, err = config.LoadFile(f.configPath)
	case os.Getenv("BEACONKIT_CONFIG") != "":
		cfg, err = config.Load()
	default:
		cfg, err = config.FromEnvironment()
	}
	if err != nil {
		return nil, err
	}

	if f.endpoint != "" {
		cfg.Collector.Endpoint = f.endpoint
	}
	if f.applicationID != "" {
		cfg.Application.ID = f.applicationID
	}
	if f.compression != "" {
		cfg.Collector.Compression = f.compression
	}
	if cfg.Application.ID == "" {
		cfg.Application.ID = "beacon-loadgen"
	}
	if cfg.Application.Name == "" {
		cfg.Application.Name = "beacon-loadgen"
	}
	return cfg, cfg.Validate()
}

func run(args []string) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}
	if f.showVersion {
		version.Print("beacon-loadgen")
		return nil
	}

	cfg, err := loadConfig(f)
	if err != nil {
		return err
	}
	level, err := cfg.SlogLevel()
	if err != nil {
		return err
	}
	logger := process.NewLogger(level).With("binary", "beacon-loadgen")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	kit, err := sdk.New(cfg, sdk.WithLogger(logger))
	if err != nil {
		return err
	}

	load := &workload{
		kit:     kit,
		workers: f.sessions,
		actions: f.actions,
		pause:   f.pause,
		clock:   clock.Real(),
		logger:  logger,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	serverCtx, stopServer := context.WithCancel(groupCtx)
	defer stopServer()

	if f.metricsListen != "" {
		server := httpserver.New(httpserver.Config{
			Address: f.metricsListen,
			Handler: metricsRouter(newRegistry(kit, load)),
			Logger:  logger,
		})
		group.Go(func() error {
			return server.Serve(serverCtx)
		})
	}

	group.Go(func() error {
		defer stopServer()

		initCtx, cancelInit := context.WithTimeout(groupCtx, initTimeout)
		initialized := kit.WaitForInit(initCtx)
		cancelInit()
		if !initialized {
			logger.Warn("sender not initialized, generating load anyway", "endpoint", cfg.Collector.Endpoint)
		}

		logger.Info("generating load",
			"sessions", f.sessions,
			"actions", f.actions,
			"duration", f.duration,
		)
		workCtx, cancelWork := context.WithTimeout(groupCtx, f.duration)
		err := load.run(workCtx)
		cancelWork()

		kit.Shutdown()
		logger.Info("load finished",
			"sessions_completed", load.sessionsCompleted.Load(),
			"actions_completed", load.actionsCompleted.Load(),
			"requests_traced", load.requestsTraced.Load(),
		)
		return err
	})

	return group.Wait()
}

// newRegistry registers the SDK collector, the workload counters and
// the Go runtime collector.
func newRegistry(kit *sdk.Kit, load *workload) *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		metrics.NewCollector(metrics.Sources{Cache: kit.Cache(), Sender: kit.SendingContext()}),
		collectors.NewGoCollector(),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "beaconkit",
			Subsystem: "loadgen",
			Name:      "sessions_completed_total",
			Help:      "Synthetic sessions that ran all their actions.",
		}, func() float64 { return float64(load.sessionsCompleted.Load()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "beaconkit",
			Subsystem: "loadgen",
			Name:      "actions_completed_total",
			Help:      "Synthetic actions left.",
		}, func() float64 { return float64(load.actionsCompleted.Load()) }),
	)
	return registry
}

func metricsRouter(registry *prometheus.Registry) *mux.Router {
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	return router
}
