// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Beacon-collector-mock is an in-memory collector for integration tests
// and demos. It speaks the collector side of the beacon protocol that
// lib/collector implements, announces fixed server attributes, and keeps
// every received beacon body in memory.
//
// Routes:
//   - GET /mbeacon: status request, or new-session request with ns=1
//   - POST /mbeacon: beacon upload (gzip, zstd, lz4 or identity)
//   - GET /admin/status: request counters and stored totals
//   - POST /admin/capture?enabled=BOOL: switch the announced capture flag
//   - POST /admin/throttle?enabled=BOOL: switch 429 answers
//   - GET /admin/beacons[?client_ip=IP]: stored beacon bodies
//   - DELETE /admin/beacons: forget stored beacons
//
// Responses are JSON unless the request asks for CBOR or key-value
// through the resp query parameter or the Accept header.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/beaconkit/lib/clock"
	"github.com/bureau-foundation/beaconkit/lib/httpserver"
	"github.com/bureau-foundation/beaconkit/lib/process"
	"github.com/bureau-foundation/beaconkit/lib/protocol"
	"github.com/bureau-foundation/beaconkit/lib/version"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		process.Fatal(err)
	}
}

// flags holds the command line of the mock.
type flags struct {
	listen          string
	serverID        int
	sendInterval    time.Duration
	maxBeaconSizeKB int
	multiplicity    int
	capture         bool
	tooManyRequests bool
	retryAfter      time.Duration
	maxBodySize     int64
	debug           bool
	showVersion     bool
}

func parseFlags(args []string) (flags, error) {
	var f flags
	set := pflag.NewFlagSet("beacon-collector-mock", pflag.ContinueOnError)
	set.StringVar(&f.listen, "listen", "127.0.0.1:8080", "TCP address to serve on")
	set.IntVar(&f.serverID, "server-id", protocol.DefaultServerID, "server id announced to clients")
	set.DurationVar(&f.sendInterval, "send-interval", protocol.DefaultSendInterval, "send interval announced to clients")
	set.IntVar(&f.maxBeaconSizeKB, "max-beacon-size-kb", protocol.DefaultJSONMaxBeaconSize/1024, "maximum beacon size announced to clients")
	set.IntVar(&f.multiplicity, "multiplicity", protocol.DefaultMultiplicity, "multiplicity announced to clients (0 disables capture per session)")
	set.BoolVar(&f.capture, "capture", true, "announce capture on")
	set.BoolVar(&f.tooManyRequests, "too-many-requests", false, "answer every beacon request with 429")
	set.DurationVar(&f.retryAfter, "retry-after", time.Minute, "Retry-After announced with 429 answers")
	set.Int64Var(&f.maxBodySize, "max-body-bytes", 8<<20, "largest accepted decompressed beacon body")
	set.BoolVar(&f.debug, "debug", false, "log every received beacon")
	set.BoolVar(&f.showVersion, "version", false, "print version information and exit")
	if err := set.Parse(args); err != nil {
		return flags{}, err
	}
	return f, nil
}

// announcedAttributes returns the attributes the mock answers with.
func (f flags) announcedAttributes() protocol.Attributes {
	return protocol.JSONDefaults().
		WithCapture(f.capture).
		WithServerID(f.serverID).
		WithSendInterval(f.sendInterval).
		WithMaxBeaconSize(f.maxBeaconSizeKB * 1024).
		WithMultiplicity(f.multiplicity).
		WithCaptureErrors(true).
		WithCaptureCrashes(true)
}

func run(args []string) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}
	if f.showVersion {
		version.Print("beacon-collector-mock")
		return nil
	}

	level := slog.LevelInfo
	if f.debug {
		level = slog.LevelDebug
	}
	logger := process.NewLogger(level).With("binary", "beacon-collector-mock")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mock := newMockCollector(mockOptions{
		Attributes:      f.announcedAttributes(),
		TooManyRequests: f.tooManyRequests,
		RetryAfter:      f.retryAfter,
		MaxBodySize:     f.maxBodySize,
		Clock:           clock.Real(),
		Logger:          logger,
	})

	server := httpserver.New(httpserver.Config{
		Address: f.listen,
		Handler: mock.routes(),
		Logger:  logger,
	})

	logger.Info("collector mock starting",
		"version", version.Info(),
		"server_id", f.serverID,
		"capture", f.capture,
		"too_many_requests", f.tooManyRequests,
	)
	if err := server.Serve(ctx); err != nil {
		return err
	}

	status := mock.status()
	logger.Info("collector mock stopped",
		"beacon_requests", status.BeaconRequests,
		"stored_beacons", status.StoredBeacons,
		"stored_bytes", status.StoredBytes,
	)
	return nil
}
