// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"
)

// NewLogger creates the structured logger for a binary. When stderr is
// a terminal it uses slog.TextHandler for human-readable output. When
// stderr is piped or redirected (CI, scripts, containers) it uses
// slog.JSONHandler so the output can be ingested.
//
// Callers scope the logger with With:
//
//	logger := process.NewLogger(slog.LevelInfo).With("binary", "beacon-loadgen")
func NewLogger(level slog.Level) *slog.Logger {
	return newLogger(os.Stderr, term.IsTerminal(int(os.Stderr.Fd())), level)
}

func newLogger(w io.Writer, terminal bool, level slog.Level) *slog.Logger {
	options := &slog.HandlerOptions{Level: level}
	if terminal {
		return slog.New(slog.NewTextHandler(w, options))
	}
	return slog.New(slog.NewJSONHandler(w, options))
}
