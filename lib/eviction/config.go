// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package eviction

import "time"

// Config holds the cache bounds. A zero or negative value disables the
// strategy that uses it.
type Config struct {
	// MaxRecordAge is the age beyond which records are evicted.
	MaxRecordAge time.Duration

	// LowerBound is the cache size in bytes that space eviction
	// reduces the cache to once it has started.
	LowerBound int64

	// UpperBound is the cache size in bytes above which space eviction
	// starts.
	UpperBound int64
}

// TimeEvictionEnabled reports whether age-based eviction is active.
func (c Config) TimeEvictionEnabled() bool {
	return c.MaxRecordAge > 0
}

// SpaceEvictionEnabled reports whether size-based eviction is active.
// Both bounds must be positive and the upper bound must not be below
// the lower one.
func (c Config) SpaceEvictionEnabled() bool {
	return c.LowerBound > 0 && c.UpperBound > 0 && c.UpperBound >= c.LowerBound
}
