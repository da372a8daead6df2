// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package eviction

import (
	"context"
	"io"
	"log/slog"

	"github.com/bureau-foundation/beaconkit/lib/clock"
)

// TimeStrategy evicts records older than Config.MaxRecordAge.
type TimeStrategy struct {
	cache  Cache
	config Config
	clock  clock.Clock
	logger *slog.Logger

	// lastRun is the millisecond timestamp of the last sweep, or of
	// the first Execute call before any sweep.
	lastRun      int64
	started      bool
	disabledSeen bool
}

// NewTimeStrategy creates an age-based strategy over cache. Panics if
// cache or clk is nil.
func NewTimeStrategy(cache Cache, config Config, clk clock.Clock, logger *slog.Logger) *TimeStrategy {
	if cache == nil {
		panic("eviction: NewTimeStrategy called with nil cache")
	}
	if clk == nil {
		panic("eviction: NewTimeStrategy called with nil clock")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &TimeStrategy{
		cache:  cache,
		config: config,
		clock:  clk,
		logger: logger.With("strategy", "time"),
	}
}

// Execute sweeps every beacon once MaxRecordAge has passed since the
// previous sweep. The first call only starts the interval.
func (s *TimeStrategy) Execute(ctx context.Context) {
	if !s.config.TimeEvictionEnabled() {
		if !s.disabledSeen {
			s.disabledSeen = true
			s.logger.Info("time eviction disabled", "max_record_age", s.config.MaxRecordAge)
		}
		return
	}

	now := clock.TimestampMillis(s.clock)
	if !s.started {
		s.started = true
		s.lastRun = now
	}
	maxAge := s.config.MaxRecordAge.Milliseconds()
	if now-s.lastRun < maxAge {
		return
	}

	keys := s.cache.Keys()
	if len(keys) == 0 {
		s.lastRun = now
		return
	}

	cutoff := now - maxAge
	debug := s.logger.Enabled(ctx, slog.LevelDebug)
	for _, key := range keys {
		if ctx.Err() != nil {
			break
		}
		removed := s.cache.EvictRecordsByAge(key, cutoff)
		if debug && removed > 0 {
			s.logger.Debug("evicted records by age",
				"beacon", key,
				"removed", removed,
				"cutoff", cutoff,
			)
		}
	}
	s.lastRun = now
}
