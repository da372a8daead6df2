// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package beacon serializes one session's telemetry into the beacon
// cache and uploads it.
//
// A [Beacon] belongs to exactly one session and owns one
// [beaconcache.Key]. Every reported item (session start and end,
// actions, named events, values, errors, crashes, user identification,
// web requests) becomes one key-value record such as
//
//	et=1&na=load%20page&it=1&ca=2&pa=0&s0=3&t0=120&s1=5&t1=80
//
// where et is the event type, s0/s1 are sequence numbers and t0/t1 are
// milliseconds relative to the session start. Action records are
// stored as [beaconcache.KindAction] so they lead every chunk.
//
// [Beacon.Send] moves the session's records into flight and uploads
// them in chunks of at most the server's beacon size minus a reserve
// for the prefix. Each chunk starts with the beacon prefix (protocol
// version, application, device and session identity) followed by the
// send-time fields. A failed chunk returns every undelivered record to
// the cache so the next attempt resends it in order.
//
// Capture is gated by the server configuration: when data sending is
// not allowed, or the session falls outside the traffic control
// percentage, nothing is recorded. Errors and crashes additionally
// honor their own switches.
package beacon
