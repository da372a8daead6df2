// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sdk

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/beaconkit/lib/beacon"
	"github.com/bureau-foundation/beaconkit/lib/beaconcache"
	"github.com/bureau-foundation/beaconkit/lib/clock"
	"github.com/bureau-foundation/beaconkit/lib/collector"
	"github.com/bureau-foundation/beaconkit/lib/compress"
	"github.com/bureau-foundation/beaconkit/lib/config"
	"github.com/bureau-foundation/beaconkit/lib/eviction"
	"github.com/bureau-foundation/beaconkit/lib/hwinfo"
	"github.com/bureau-foundation/beaconkit/lib/sender"
	"github.com/bureau-foundation/beaconkit/lib/version"
)

// TechnologyType is reported as the agent technology of every beacon.
const TechnologyType = "go"

type options struct {
	logger          *slog.Logger
	clock           clock.Clock
	client          collector.Client
	httpClient      *http.Client
	trafficControls func() int
	probeDevice     func() hwinfo.Device
}

// Option customizes New.
type Option func(*options)

// WithLogger sets the logger. Defaults to discarding all output.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithClock replaces the real clock, for tests.
func WithClock(clk clock.Clock) Option {
	return func(o *options) { o.clock = clk }
}

// WithClient replaces the HTTP collector client.
func WithClient(client collector.Client) Option {
	return func(o *options) { o.client = client }
}

// WithHTTPClient sets the http.Client of the collector client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(o *options) { o.httpClient = httpClient }
}

// WithTrafficControlValues replaces the uniform [0, 100) draw that
// assigns each session its traffic control value.
func WithTrafficControlValues(next func() int) Option {
	return func(o *options) { o.trafficControls = next }
}

// WithDeviceProbe replaces the host probe that fills device fields
// the configuration leaves empty.
func WithDeviceProbe(probe func() hwinfo.Device) Option {
	return func(o *options) { o.probeDevice = probe }
}

// Kit is one SDK instance. All methods are safe for concurrent use.
type Kit struct {
	identity        beacon.Identity
	cache           *beaconcache.Cache
	evictor         *eviction.Evictor
	sendingContext  *sender.Context
	sender          *sender.Sender
	clock           clock.Clock
	logger          *slog.Logger
	trafficControls func() int
	shutdownTimeout time.Duration

	nextSessionNumber atomic.Int32
	shutdownOnce      sync.Once
}

// New validates cfg, wires the SDK, and starts the evictor and the
// sender.
func New(cfg *config.Config, opts ...Option) (*Kit, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if o.clock == nil {
		o.clock = clock.Real()
	}
	if o.trafficControls == nil {
		o.trafficControls = func() int { return rand.IntN(100) }
	}
	if o.probeDevice == nil {
		o.probeDevice = hwinfo.Probe
	}

	if o.client == nil {
		encoding, err := compress.Parse(cfg.Collector.Compression)
		if err != nil {
			return nil, err
		}
		client, err := collector.NewHTTPClient(collector.Config{
			Endpoint:       cfg.Collector.Endpoint,
			ApplicationID:  cfg.Application.ID,
			AgentVersion:   version.Short(),
			TechnologyType: TechnologyType,
			Compression:    encoding,
			ResponseFormat: collector.ResponseFormat(cfg.Collector.ResponseFormat),
			HTTPClient:     o.httpClient,
			Clock:          o.clock,
			Logger:         o.logger.With("component", "collector"),
		})
		if err != nil {
			return nil, err
		}
		o.client = client
	}

	deviceID := cfg.Device.ID
	if deviceID == "" {
		deviceID = uuid.NewString()
	}

	device := hwinfo.Device{
		OperatingSystem: cfg.Device.OperatingSystem,
		Manufacturer:    cfg.Device.Manufacturer,
		ModelID:         cfg.Device.ModelID,
	}
	o.probeDevice().Fill(&device)

	cache := beaconcache.New()
	sendingContext := sender.NewContext(sender.ContextParams{
		Config: cfg.SenderConfig(),
		Client: o.client,
		Clock:  o.clock,
		Logger: o.logger.With("component", "sender"),
	})
	kit := &Kit{
		identity: beacon.Identity{
			ApplicationID:      cfg.Application.ID,
			ApplicationName:    cfg.Application.Name,
			ApplicationVersion: cfg.Application.Version,
			AgentVersion:       version.Short(),
			TechnologyType:     TechnologyType,
			DeviceID:           beacon.DeviceIDFromString(deviceID),
			OperatingSystem:    device.OperatingSystem,
			Manufacturer:       device.Manufacturer,
			ModelID:            device.ModelID,
		},
		cache:           cache,
		evictor:         eviction.New(cache, cfg.EvictionConfig(), o.clock, o.logger.With("component", "eviction")),
		sendingContext:  sendingContext,
		sender:          sender.New(sendingContext),
		clock:           o.clock,
		logger:          o.logger,
		trafficControls: o.trafficControls,
		shutdownTimeout: cfg.Sender.ShutdownTimeout,
	}

	kit.evictor.Start()
	kit.sender.Start()
	kit.logger.Info("beaconkit started",
		"application_id", cfg.Application.ID,
		"endpoint", cfg.Collector.Endpoint,
		"version", version.Short(),
	)
	return kit, nil
}

// CreateSession starts a session for the given client IP, which may
// be empty. After Shutdown the returned session records nothing.
func (k *Kit) CreateSession(clientIP string) *Session {
	if k == nil {
		return nil
	}
	b := beacon.New(beacon.Params{
		Identity:            k.identity,
		SessionNumber:       k.nextSessionNumber.Add(1),
		ClientIP:            clientIP,
		TrafficControlValue: k.trafficControls(),
		Cache:               k.cache,
		Clock:               k.clock,
	})
	session := &Session{beacon: b}
	session.tracked = k.sendingContext.StartSession(b, session.finish)
	return session
}

// WaitForInit blocks until the first status check succeeds or fails,
// or ctx is done. It reports whether the SDK initialized.
func (k *Kit) WaitForInit(ctx context.Context) bool {
	if k == nil {
		return false
	}
	return k.sender.WaitForInit(ctx)
}

// IsInitialized reports whether the first status check succeeded.
func (k *Kit) IsInitialized() bool {
	if k == nil {
		return false
	}
	return k.sendingContext.IsInitialized()
}

// Shutdown ends all sessions, flushes them to the collector, and stops
// the background goroutines. Each stage waits at most the configured
// shutdown timeout. Later calls do nothing.
func (k *Kit) Shutdown() {
	if k == nil {
		return
	}
	k.shutdownOnce.Do(func() {
		flushed := k.sender.Shutdown()
		stopped := k.evictor.Stop(k.shutdownTimeout)
		k.logger.Info("beaconkit stopped", "flushed", flushed, "evictor_stopped", stopped)
	})
}

// Cache returns the beacon cache, for metrics.
func (k *Kit) Cache() *beaconcache.Cache { return k.cache }

// SendingContext returns the sender's shared context, for metrics.
func (k *Kit) SendingContext() *sender.Context { return k.sendingContext }
