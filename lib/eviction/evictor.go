// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package eviction

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/bureau-foundation/beaconkit/lib/beaconcache"
	"github.com/bureau-foundation/beaconkit/lib/clock"
)

// State is the lifecycle state of an [Evictor].
type State int

const (
	StateNotStarted State = iota
	StateRunning
	// StateStopping means a stop was requested but the goroutine has
	// not exited yet.
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not-started"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// ObservableCache is a cache the evictor can subscribe to.
type ObservableCache interface {
	AddObserver(observer beaconcache.Observer)
}

// wakeup is the evictor's cache observer. Capacity 1 makes it a flag:
// a send when a wake is already pending is dropped.
type wakeup chan struct{}

func (w wakeup) OnDataAdded() {
	select {
	case w <- struct{}{}:
	default:
	}
}

// Evictor runs eviction strategies on a background goroutine whenever
// records are added to the cache.
type Evictor struct {
	strategies []Strategy
	clock      clock.Clock
	logger     *slog.Logger
	wake       wakeup

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	done   chan struct{}
}

// NewEvictor creates an evictor that runs strategies in order and
// registers it with cache. Panics if cache or clk is nil.
func NewEvictor(cache ObservableCache, clk clock.Clock, logger *slog.Logger, strategies ...Strategy) *Evictor {
	if cache == nil {
		panic("eviction: NewEvictor called with nil cache")
	}
	if clk == nil {
		panic("eviction: NewEvictor called with nil clock")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	evictor := &Evictor{
		strategies: strategies,
		clock:      clk,
		logger:     logger,
		wake:       make(wakeup, 1),
	}
	cache.AddObserver(evictor.wake)
	return evictor
}

// New creates an evictor over cache with the time strategy followed
// by the space strategy, both configured from config.
func New(cache *beaconcache.Cache, config Config, clk clock.Clock, logger *slog.Logger) *Evictor {
	return NewEvictor(cache, clk, logger,
		NewTimeStrategy(cache, config, clk, logger),
		NewSpaceStrategy(cache, config, logger),
	)
}

// Start launches the background goroutine and returns once it is
// running. Returns false if the evictor is already running or still
// stopping. An evictor that has stopped may be started again.
func (e *Evictor) Start() bool {
	e.mu.Lock()
	if e.state == StateRunning || e.state == StateStopping {
		e.mu.Unlock()
		return false
	}
	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	done := make(chan struct{})
	e.cancel = cancel
	e.done = done
	e.state = StateRunning
	e.mu.Unlock()

	go e.run(ctx, started, done)
	<-started
	e.logger.Debug("evictor started", "strategies", len(e.strategies))
	return true
}

func (e *Evictor) run(ctx context.Context, started, done chan struct{}) {
	defer func() {
		e.mu.Lock()
		e.state = StateStopped
		e.mu.Unlock()
		close(done)
	}()
	close(started)

	for {
		select {
		case <-e.wake:
		case <-ctx.Done():
			return
		}
		if ctx.Err() != nil {
			return
		}
		for _, strategy := range e.strategies {
			strategy.Execute(ctx)
		}
	}
}

// requestStop moves a running evictor to StateStopping and cancels its
// context. Returns the done channel of the goroutine, or nil if there
// is nothing to stop.
func (e *Evictor) requestStop() <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch e.state {
	case StateRunning:
		e.state = StateStopping
		e.cancel()
		return e.done
	case StateStopping, StateStopped:
		return e.done
	default:
		return nil
	}
}

// Stop asks the goroutine to exit and waits up to timeout for it to
// do so. Returns false if the evictor was not running or did not exit
// in time; in the latter case the goroutine may still be running and
// IsAlive keeps reporting true until it exits.
func (e *Evictor) Stop(timeout time.Duration) bool {
	e.mu.Lock()
	if e.state != StateRunning {
		e.mu.Unlock()
		return false
	}
	e.state = StateStopping
	e.cancel()
	done := e.done
	e.mu.Unlock()

	select {
	case <-done:
		e.logger.Debug("evictor stopped")
		return true
	default:
	}
	select {
	case <-done:
		e.logger.Debug("evictor stopped")
		return true
	case <-e.clock.After(timeout):
		e.logger.Warn("evictor did not stop in time", "timeout", timeout)
		return false
	}
}

// StopAndJoin asks the goroutine to exit and blocks until it has.
// Returns false only if the evictor was never started.
func (e *Evictor) StopAndJoin() bool {
	done := e.requestStop()
	if done == nil {
		return false
	}
	<-done
	e.logger.Debug("evictor joined")
	return true
}

// IsAlive reports whether the background goroutine is running,
// including after a stop request it has not yet honored.
func (e *Evictor) IsAlive() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state == StateRunning || e.state == StateStopping
}

// State returns the current lifecycle state.
func (e *Evictor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}
