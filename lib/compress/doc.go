// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package compress encodes beacon request bodies for the wire.
//
// An [Encoding] names the algorithm and maps to the HTTP
// Content-Encoding token the collector receives:
//
//   - none: the body is sent as-is (Content-Encoding omitted).
//   - gzip: the encoding every collector accepts. Default.
//   - zstd: better ratio for the text-heavy key-value beacon format.
//   - lz4: LZ4 frame format, cheapest on CPU.
//
// Beacon chunks are small (at most the server's beacon size limit), so
// every call encodes a complete body in memory. The zstd encoder and
// decoder are shared across calls and safe for concurrent use.
//
// [Decompress] bounds its output so that a hostile or corrupt body
// cannot exhaust the receiver's memory. The mock collector uses it to
// read uploads.
package compress
