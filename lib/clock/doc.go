// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock is the single time source of beaconkit. Record
// timestamps, eviction age comparisons, send intervals, and every
// retry sleep of the sending state machine read time through a
// [Clock] instead of calling the time package directly.
//
// Production code uses [Real]. Tests use [Fake], which stands still
// until [FakeClock.Advance] is called:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	go worker(c)           // worker calls c.Sleep(time.Second)
//	c.WaitForTimers(1)     // block until the Sleep is registered
//	c.Advance(time.Second) // release it deterministically
//
// Record timestamps are milliseconds since the Unix epoch; use
// [TimestampMillis] rather than converting by hand so every component
// agrees on the unit.
package clock
