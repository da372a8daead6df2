// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package httpserver

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/bureau-foundation/beaconkit/lib/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestServerLifecycle(t *testing.T) {
	handler := http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		fmt.Fprintf(writer, "path=%s", request.URL.Path)
	})
	server := New(Config{
		Address:         "127.0.0.1:0",
		Handler:         handler,
		ShutdownTimeout: 2 * time.Second,
		Logger:          discardLogger(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serveDone := make(chan error, 1)
	go func() {
		serveDone <- server.Serve(ctx)
	}()

	testutil.RequireClosed(t, server.Ready(), 5*time.Second, "server ready")

	response, err := http.Get(server.URL() + "/mbeacon")
	if err != nil {
		t.Fatalf("GET /mbeacon: %v", err)
	}
	body, err := io.ReadAll(response.Body)
	response.Body.Close()
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	if response.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", response.StatusCode)
	}
	if string(body) != "path=/mbeacon" {
		t.Errorf("body = %q, want %q", body, "path=/mbeacon")
	}

	cancel()
	if err := testutil.RequireReceive(t, serveDone, 5*time.Second, "Serve return"); err != nil {
		t.Errorf("Serve returned %v, want nil", err)
	}
}

func TestServeBindFailure(t *testing.T) {
	first := New(Config{
		Address: "127.0.0.1:0",
		Handler: http.NotFoundHandler(),
		Logger:  discardLogger(),
	})
	ctx, cancel := context.WithCancel(context.Background())
	firstDone := make(chan error, 1)
	go func() {
		firstDone <- first.Serve(ctx)
	}()
	testutil.RequireClosed(t, first.Ready(), 5*time.Second, "first server ready")
	defer func() {
		cancel()
		testutil.RequireReceive(t, firstDone, 5*time.Second, "first Serve return")
	}()

	second := New(Config{
		Address: first.Addr().String(),
		Handler: http.NotFoundHandler(),
		Logger:  discardLogger(),
	})
	if err := second.Serve(context.Background()); err == nil {
		t.Fatal("Serve on a bound address returned nil")
	}
	select {
	case <-second.Ready():
		t.Error("Ready closed after a bind failure")
	default:
	}
}

func TestNewPanicsOnMissingConfig(t *testing.T) {
	handler := http.NotFoundHandler()
	tests := []struct {
		name   string
		config Config
	}{
		{name: "missing_address", config: Config{Handler: handler, Logger: discardLogger()}},
		{name: "missing_handler", config: Config{Address: ":0", Logger: discardLogger()}},
		{name: "missing_logger", config: Config{Address: ":0", Handler: handler}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if r := recover(); r == nil {
					t.Error("New did not panic")
				}
			}()
			New(tt.config)
		})
	}
}

func TestDefaultShutdownTimeout(t *testing.T) {
	server := New(Config{Address: ":0", Handler: http.NotFoundHandler(), Logger: discardLogger()})
	if server.config.ShutdownTimeout != DefaultShutdownTimeout {
		t.Errorf("ShutdownTimeout = %v, want %v", server.config.ShutdownTimeout, DefaultShutdownTimeout)
	}
}
