// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// DefaultShutdownTimeout bounds the drain of in-flight requests when
// Config.ShutdownTimeout is zero.
const DefaultShutdownTimeout = 10 * time.Second

// Config configures a Server.
type Config struct {
	// Address is the TCP listen address, for example ":8080" or
	// "127.0.0.1:0". Required.
	Address string

	// Handler serves every request. Required.
	Handler http.Handler

	// ShutdownTimeout is how long Serve waits for in-flight requests
	// after its context is cancelled. Zero means
	// DefaultShutdownTimeout.
	ShutdownTimeout time.Duration

	// Logger is required.
	Logger *slog.Logger
}

// Server serves HTTP until its context is cancelled.
type Server struct {
	config Config
	logger *slog.Logger

	// ready is closed once the listener is bound. addr is written
	// before ready is closed and never again.
	ready chan struct{}
	addr  net.Addr
}

// New creates a server. Call Serve to start accepting connections.
func New(config Config) *Server {
	if config.Address == "" {
		panic("httpserver.New: Address is required")
	}
	if config.Handler == nil {
		panic("httpserver.New: Handler is required")
	}
	if config.Logger == nil {
		panic("httpserver.New: Logger is required")
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = DefaultShutdownTimeout
	}
	return &Server{
		config: config,
		logger: config.Logger,
		ready:  make(chan struct{}),
	}
}

// Ready returns a channel closed once the server is accepting
// connections.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the bound address. Only valid after Ready is closed.
func (s *Server) Addr() net.Addr {
	return s.addr
}

// URL returns "http://" plus the bound address. Only valid after Ready
// is closed.
func (s *Server) URL() string {
	return "http://" + s.addr.String()
}

// Serve binds the listener and serves until ctx is cancelled, then
// stops accepting connections and waits up to ShutdownTimeout for
// active requests. A bind failure is returned without closing Ready.
func (s *Server) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.config.Address, err)
	}
	s.addr = listener.Addr()
	close(s.ready)

	server := &http.Server{
		Handler: s.config.Handler,

		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	s.logger.Info("http server listening", "address", s.addr.String())

	serveDone := make(chan error, 1)
	go func() {
		err := server.Serve(listener)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		serveDone <- err
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("http server shutting down")
	case err := <-serveDone:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("http server shutdown error", "error", err)
		return fmt.Errorf("http server shutdown: %w", err)
	}

	s.logger.Info("http server stopped")
	return nil
}
