// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for beaconkit packages.
//
// [RequireReceive], [RequireSend], and [RequireClosed] encapsulate the
// timeout safety valve pattern (select with time.After fallback) so
// that individual tests do not need direct time.After calls. These are
// the only place in the test suite where real wall-clock timeouts are
// used; everything else runs on lib/clock's FakeClock.
//
// [LogRecorder] is an slog.Handler that keeps every record it handles,
// for tests that assert on what a component logged (for example, that
// a disabled eviction strategy reports itself exactly once).
//
// [UniqueID] generates monotonically increasing identifiers for test
// disambiguation, such as user tags and session client addresses.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
//
// This package has no beaconkit-internal dependencies.
package testutil
