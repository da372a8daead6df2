// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package eviction keeps a [beaconcache.Cache] within its age and
// memory bounds.
//
// Two strategies implement [Strategy]:
//
//   - [TimeStrategy] removes records older than the configured maximum
//     age. It sweeps at most once per MaxRecordAge.
//   - [SpaceStrategy] starts when the cache grows beyond UpperBound and
//     removes one record per beacon per pass until the cache is at or
//     below LowerBound. Working round-robin spreads the loss across all
//     active sessions, and the gap between the two bounds keeps the
//     strategy from re-triggering on the next insertion.
//
// [Evictor] runs the strategies on a background goroutine. It
// registers with the cache as an observer at construction and wakes on
// insertions rather than polling. Wakes are coalesced: any number of
// insertions that arrive while a pass is running or pending produce
// exactly one further pass.
//
// Strategies are invoked from a single goroutine and keep their state
// in plain fields. The context passed to Execute is cancelled when the
// evictor is stopped; strategies check it between beacons so a stop
// interrupts a long sweep.
package eviction
