// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sender drives delivery of buffered beacons to the collector.
//
// One goroutine, started by [Sender.Start], runs a state machine over
// a shared [Context]. Each iteration executes the current state once
// and moves to the state it returns:
//
//	Init ──ok, capture on──▶ CaptureOn ◀──capture on── CaptureOff
//	  │  ──ok, capture off─▶ CaptureOff ◀─capture off/429─┘
//	  └──gave up──▶ FlushSessions ──▶ Terminal
//
//   - Init performs the first status check. Each failed round waits
//     the next delay of Config.InitRetryDelays; after
//     Config.MaxInitAttempts rounds it gives up and the SDK stays
//     inert. A 429 restarts the schedule after the Retry-After wait.
//   - CaptureOn configures new sessions, uploads finished sessions and,
//     once the server's send interval has elapsed, open sessions.
//   - CaptureOff clears captured data and only checks the server
//     status, every Config.StatusCheckInterval, after a Retry-After
//     wait, or on a doubling backoff after failures.
//   - FlushSessions ends every open session and sends everything once.
//   - Terminal does nothing. The loop exits when it is reached.
//
// Shutdown is handled once, in [Context.ExecuteCurrentState]: after a
// state has run, a pending shutdown request replaces its successor
// with FlushSessions unless the state is already FlushSessions or
// Terminal. Sleeps inside a state return early on shutdown, so the
// request is observed within one iteration.
//
// StateTimeSync is part of [StateType] for wire compatibility of
// reported state values only; no transition produces it.
package sender
