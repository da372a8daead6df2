// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sender

import (
	"context"
	"sync"
)

// Sender runs the state machine of a [Context] on its own goroutine.
type Sender struct {
	context *Context

	startOnce sync.Once
	started   chan struct{}
	done      chan struct{}
}

// New returns a sender for the context. Call Start to begin.
func New(c *Context) *Sender {
	if c == nil {
		panic("sender: New called with nil context")
	}
	return &Sender{
		context: c,
		started: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Context returns the shared context.
func (s *Sender) Context() *Context { return s.context }

// Start launches the sending goroutine. Later calls do nothing.
func (s *Sender) Start() {
	s.startOnce.Do(func() {
		close(s.started)
		go s.run()
	})
}

func (s *Sender) run() {
	defer close(s.done)
	for !s.context.IsInTerminalState() {
		s.context.ExecuteCurrentState()
	}
	s.context.completeInit(false)
	s.context.logger.Debug("beacon sender stopped")
}

// WaitForInit blocks until initialization succeeds, fails, or ctx is
// done, and reports whether it succeeded.
func (s *Sender) WaitForInit(ctx context.Context) bool {
	return s.context.WaitForInit(ctx)
}

// Shutdown requests the final flush and waits up to
// Config.ShutdownTimeout for the goroutine to finish. On timeout,
// in-flight collector requests are cancelled and false is returned.
// A sender that was never started returns true immediately.
func (s *Sender) Shutdown() bool {
	s.context.RequestShutdown()
	select {
	case <-s.started:
	default:
		s.context.completeInit(false)
		return true
	}

	select {
	case <-s.done:
		return true
	case <-s.context.clock.After(s.context.config.ShutdownTimeout):
		s.context.abortRequests()
		s.context.logger.Warn("beacon sender did not stop in time",
			"timeout", s.context.config.ShutdownTimeout,
			"state", s.context.CurrentStateType().String(),
		)
		return false
	}
}

// Done is closed once the sending goroutine has exited.
func (s *Sender) Done() <-chan struct{} { return s.done }
