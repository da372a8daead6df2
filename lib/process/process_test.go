// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestFatal(t *testing.T) {
	original := exit
	t.Cleanup(func() { exit = original })
	var code int
	exit = func(c int) { code = c }

	var output bytes.Buffer
	fatal(&output, errors.New("collector endpoint: missing scheme"))

	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if got, want := output.String(), "error: collector endpoint: missing scheme\n"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestNewLoggerJSONWhenNotTerminal(t *testing.T) {
	var output bytes.Buffer
	logger := newLogger(&output, false, slog.LevelInfo)
	logger.Info("sender started", "state", "init")

	var record map[string]any
	if err := json.Unmarshal(output.Bytes(), &record); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, output.String())
	}
	if record["msg"] != "sender started" || record["state"] != "init" {
		t.Errorf("record = %v", record)
	}
}

func TestNewLoggerTextOnTerminal(t *testing.T) {
	var output bytes.Buffer
	logger := newLogger(&output, true, slog.LevelInfo)
	logger.Info("sender started", "state", "init")

	line := output.String()
	if !strings.Contains(line, `msg="sender started"`) || !strings.Contains(line, "state=init") {
		t.Errorf("text output = %q", line)
	}
}

func TestNewLoggerLevel(t *testing.T) {
	var output bytes.Buffer
	logger := newLogger(&output, false, slog.LevelWarn)
	logger.Info("dropped")
	if output.Len() != 0 {
		t.Errorf("info record written at warn level: %q", output.String())
	}
	logger.Warn("kept")
	if output.Len() == 0 {
		t.Error("warn record not written")
	}
}
