// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil provides bounded HTTP body I/O for beaconkit.
//
// Collector responses and beacon uploads are small, so every body is
// read completely into memory, but always through a limit: a
// misbehaving collector (or a misbehaving SDK talking to the mock
// collector) must not be able to exhaust the reader's memory.
package netutil

import (
	"errors"
	"io"
	"strings"
)

// MaxStatusResponseSize bounds status and beacon response bodies. Real
// responses are a few hundred bytes.
const MaxStatusResponseSize int64 = 1 << 20

// maxErrorBodySize bounds the excerpt of an error body kept for logs.
const maxErrorBodySize = 4 << 10

// ErrBodyTooLarge is returned by ReadBody when the body exceeds the
// limit.
var ErrBodyTooLarge = errors.New("body exceeds size limit")

// ReadBody reads body completely, failing with ErrBodyTooLarge if it
// holds more than limit bytes.
func ReadBody(body io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, ErrBodyTooLarge
	}
	return data, nil
}

// ErrorBody reads the start of an error response body for diagnostic
// messages. Read errors are ignored; a partial or empty body is still
// useful in a log line.
func ErrorBody(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, maxErrorBodySize))
	return strings.TrimSpace(string(data))
}

// Drain discards the rest of body so the connection can be reused.
func Drain(body io.Reader) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, MaxStatusResponseSize))
}
