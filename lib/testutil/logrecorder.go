// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"context"
	"log/slog"
	"sync"
)

// LogRecorder is an slog.Handler that stores every record at or above
// its level. Records from loggers derived with With or WithGroup land
// in the same recorder.
type LogRecorder struct {
	level slog.Level

	mu      *sync.Mutex
	records *[]slog.Record
	attrs   []slog.Attr
}

// NewLogRecorder returns a recorder that keeps records at level and
// above, and a logger writing to it.
func NewLogRecorder(level slog.Level) (*LogRecorder, *slog.Logger) {
	recorder := &LogRecorder{
		level:   level,
		mu:      &sync.Mutex{},
		records: &[]slog.Record{},
	}
	return recorder, slog.New(recorder)
}

func (r *LogRecorder) Enabled(_ context.Context, level slog.Level) bool {
	return level >= r.level
}

func (r *LogRecorder) Handle(_ context.Context, record slog.Record) error {
	record = record.Clone()
	record.AddAttrs(r.attrs...)
	r.mu.Lock()
	defer r.mu.Unlock()
	*r.records = append(*r.records, record)
	return nil
}

func (r *LogRecorder) WithAttrs(attrs []slog.Attr) slog.Handler {
	derived := *r
	derived.attrs = append(append([]slog.Attr(nil), r.attrs...), attrs...)
	return &derived
}

// WithGroup ignores the group name; tests match on messages.
func (r *LogRecorder) WithGroup(string) slog.Handler {
	return r
}

// Messages returns the message of every recorded entry in order.
func (r *LogRecorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	messages := make([]string, len(*r.records))
	for i, record := range *r.records {
		messages[i] = record.Message
	}
	return messages
}

// Count returns how many recorded entries have the given message.
func (r *LogRecorder) Count(message string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, record := range *r.records {
		if record.Message == message {
			count++
		}
	}
	return count
}
