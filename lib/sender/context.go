// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sender

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bureau-foundation/beaconkit/lib/beacon"
	"github.com/bureau-foundation/beaconkit/lib/clock"
	"github.com/bureau-foundation/beaconkit/lib/collector"
	"github.com/bureau-foundation/beaconkit/lib/protocol"
)

// ContextParams configures a [Context].
type ContextParams struct {
	Config Config
	Client collector.Client
	Clock  clock.Clock
	Logger *slog.Logger
}

// Context is the state shared between the state machine and the SDK.
// The current state is only touched by the sender goroutine; shutdown,
// init completion, server configuration, and the session list are safe
// for concurrent use.
type Context struct {
	config Config
	client collector.Client
	clock  clock.Clock
	logger *slog.Logger

	// requestContext is passed to every collector call. It is
	// cancelled only when a shutdown exceeds its timeout.
	requestContext context.Context
	abortRequests  context.CancelFunc

	current     State
	next        State
	currentType atomic.Int32

	shutdownOnce sync.Once
	shutdown     chan struct{}

	initOnce      sync.Once
	initDone      chan struct{}
	initSucceeded atomic.Bool

	mu         sync.Mutex
	attributes protocol.Attributes
	// serverConfig is derived from attributes, except that capture is
	// forced off while in CaptureOff.
	serverConfig protocol.ServerConfiguration
	sessions     []*Session

	// Sender goroutine only.
	lastStatusCheck     int64
	lastOpenSessionSend int64
}

// NewContext returns a context positioned at the Init state. Panics
// if the client or clock is nil.
func NewContext(params ContextParams) *Context {
	if params.Client == nil {
		panic("sender: NewContext called with nil client")
	}
	if params.Clock == nil {
		panic("sender: NewContext called with nil clock")
	}
	logger := params.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	requestContext, abort := context.WithCancel(context.Background())
	attributes := protocol.JSONDefaults()
	c := &Context{
		config:         params.Config,
		client:         params.Client,
		clock:          params.Clock,
		logger:         logger,
		requestContext: requestContext,
		abortRequests:  abort,
		current:        InitState(),
		shutdown:       make(chan struct{}),
		initDone:       make(chan struct{}),
		attributes:     attributes,
		serverConfig:   protocol.ConfigurationFrom(attributes),
	}
	c.currentType.Store(int32(StateInit))
	return c
}

// ExecuteCurrentState runs the current state once and advances to its
// successor. A pending shutdown request redirects the successor of
// any non-shutdown state to FlushSessions.
func (c *Context) ExecuteCurrentState() {
	current := c.current
	c.next = nil
	next := step(current, c)
	if c.next != nil {
		next = c.next
	}
	if c.IsShutdownRequested() && !current.Type().IsShutdownState() {
		next = FlushSessionsState()
	}
	c.next = nil
	if next.Type() != current.Type() {
		c.logger.Debug("sender state transition",
			"from", current.Type().String(),
			"to", next.Type().String(),
		)
	}
	c.current = next
	c.currentType.Store(int32(next.Type()))
}

// SetNextState overrides the successor computed by the state
// currently executing. Only valid from within a state.
func (c *Context) SetNextState(next State) {
	c.next = next
}

// CurrentStateType returns the type of the current state. Safe to call
// from any goroutine.
func (c *Context) CurrentStateType() StateType {
	return StateType(c.currentType.Load())
}

// IsInTerminalState reports whether the machine has finished.
func (c *Context) IsInTerminalState() bool {
	return c.CurrentStateType() == StateTerminal
}

// RequestShutdown asks the machine to flush and stop. Idempotent.
func (c *Context) RequestShutdown() {
	c.shutdownOnce.Do(func() { close(c.shutdown) })
}

// IsShutdownRequested reports whether RequestShutdown has been called.
func (c *Context) IsShutdownRequested() bool {
	select {
	case <-c.shutdown:
		return true
	default:
		return false
	}
}

// Sleep waits for the duration on the context's clock. It returns
// early, with false, when shutdown is requested.
func (c *Context) Sleep(duration time.Duration) bool {
	if c.IsShutdownRequested() {
		return false
	}
	select {
	case <-c.clock.After(duration):
		return true
	case <-c.shutdown:
		return false
	}
}

// WaitForInit blocks until Init succeeds, gives up, or ctx is done. It
// reports whether initialization succeeded.
func (c *Context) WaitForInit(ctx context.Context) bool {
	select {
	case <-c.initDone:
		return c.initSucceeded.Load()
	case <-ctx.Done():
		return false
	}
}

// IsInitialized reports whether Init has completed successfully.
func (c *Context) IsInitialized() bool {
	select {
	case <-c.initDone:
		return c.initSucceeded.Load()
	default:
		return false
	}
}

func (c *Context) completeInit(success bool) {
	c.initOnce.Do(func() {
		c.initSucceeded.Store(success)
		close(c.initDone)
	})
}

// ServerID returns the collector server id all requests target.
func (c *Context) ServerID() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attributes.ServerID()
}

// ServerConfiguration returns the configuration currently in effect
// for the whole SDK.
func (c *Context) ServerConfiguration() protocol.ServerConfiguration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.serverConfig
}

// IsCaptureOn reports whether the server currently allows capture.
func (c *Context) IsCaptureOn() bool {
	return c.ServerConfiguration().CaptureEnabled
}

// updateFrom merges response attributes into the context and returns
// the resulting configuration.
func (c *Context) updateFrom(response *protocol.StatusResponse) protocol.ServerConfiguration {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attributes = c.attributes.Merge(response.Attributes)
	c.serverConfig = protocol.ConfigurationFrom(c.attributes)
	return c.serverConfig
}

// HandleStatusResponse applies a status response. When the resulting
// configuration disables capture, all captured data is dropped;
// otherwise configured sessions get their own configuration back.
func (c *Context) HandleStatusResponse(response *protocol.StatusResponse) {
	if response == nil {
		return
	}
	config := c.updateFrom(response)
	if !config.CaptureEnabled {
		c.DisableCaptureAndClear()
		return
	}
	for _, session := range c.allSessions() {
		if session.IsConfigured() {
			session.beacon.UpdateServerConfiguration(session.ownConfiguration())
		} else {
			session.beacon.UpdateServerConfiguration(config)
		}
	}
}

// DisableCaptureAndClear turns capture off for the SDK and every
// session, drops all captured data, and retires finished sessions.
func (c *Context) DisableCaptureAndClear() {
	c.mu.Lock()
	c.serverConfig.CaptureEnabled = false
	config := c.serverConfig
	sessions := slices.Clone(c.sessions)
	c.mu.Unlock()

	for _, session := range sessions {
		disabled := session.beacon.ServerConfiguration()
		disabled.CaptureEnabled = false
		session.beacon.UpdateServerConfiguration(disabled)
		session.beacon.ClearData()
		if session.IsFinished() {
			c.removeSession(session)
		}
	}
	c.logger.Debug("capture disabled", "sessions", len(sessions), "server_id", config.ServerID)
}

// StartSession registers a new session for the beacon and records its
// start. onEnd, if not nil, runs once before the session end is
// recorded, whether the application or the final flush ends it.
// Sessions begin with the SDK-wide configuration; after shutdown they
// record nothing and are not tracked.
func (c *Context) StartSession(b *beacon.Beacon, onEnd func()) *Session {
	session := &Session{
		beacon:                 b,
		newSessionRequestsLeft: c.config.MaxNewSessionRequests,
		onEnd:                  onEnd,
	}
	config := c.ServerConfiguration()
	if c.IsShutdownRequested() {
		config.CaptureEnabled = false
		session.finished = true
		b.UpdateServerConfiguration(config)
		return session
	}
	b.UpdateServerConfiguration(config)
	c.mu.Lock()
	c.sessions = append(c.sessions, session)
	c.mu.Unlock()
	b.StartSession()
	return session
}

// OpenSessionCount returns the number of sessions not yet finished.
func (c *Context) OpenSessionCount() int {
	count := 0
	for _, session := range c.allSessions() {
		if !session.IsFinished() {
			count++
		}
	}
	return count
}

// SessionCount returns the number of tracked sessions.
func (c *Context) SessionCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions)
}

func (c *Context) allSessions() []*Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.sessions)
}

func (c *Context) sessionsWhere(keep func(*Session) bool) []*Session {
	var result []*Session
	for _, session := range c.allSessions() {
		if keep(session) {
			result = append(result, session)
		}
	}
	return result
}

func (c *Context) newSessions() []*Session {
	return c.sessionsWhere(func(s *Session) bool { return !s.IsConfigured() })
}

func (c *Context) finishedConfiguredSessions() []*Session {
	return c.sessionsWhere(func(s *Session) bool { return s.IsConfigured() && s.IsFinished() })
}

func (c *Context) openConfiguredSessions() []*Session {
	return c.sessionsWhere(func(s *Session) bool { return s.IsConfigured() && !s.IsFinished() })
}

func (c *Context) removeSession(session *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions = slices.DeleteFunc(c.sessions, func(s *Session) bool { return s == session })
}

func (c *Context) now() int64 {
	return clock.TimestampMillis(c.clock)
}
