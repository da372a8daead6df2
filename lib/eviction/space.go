// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package eviction

import (
	"context"
	"io"
	"log/slog"
)

// SpaceStrategy holds the cache between Config.LowerBound and
// Config.UpperBound.
type SpaceStrategy struct {
	cache  Cache
	config Config
	logger *slog.Logger

	disabledSeen bool
}

// NewSpaceStrategy creates a size-based strategy over cache. Panics if
// cache is nil.
func NewSpaceStrategy(cache Cache, config Config, logger *slog.Logger) *SpaceStrategy {
	if cache == nil {
		panic("eviction: NewSpaceStrategy called with nil cache")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &SpaceStrategy{
		cache:  cache,
		config: config,
		logger: logger.With("strategy", "space"),
	}
}

// Execute does nothing unless the cache is above UpperBound. Otherwise
// it removes the oldest record of each beacon in turn, re-checking the
// size after every removal, until the cache is at or below LowerBound.
func (s *SpaceStrategy) Execute(ctx context.Context) {
	if !s.config.SpaceEvictionEnabled() {
		if !s.disabledSeen {
			s.disabledSeen = true
			s.logger.Info("space eviction disabled",
				"lower_bound", s.config.LowerBound,
				"upper_bound", s.config.UpperBound,
			)
		}
		return
	}

	if s.cache.NumBytes() <= s.config.UpperBound {
		return
	}

	debug := s.logger.Enabled(ctx, slog.LevelDebug)
	for ctx.Err() == nil && s.overLowerBound() {
		removedThisPass := 0
		for _, key := range s.cache.Keys() {
			if ctx.Err() != nil || !s.overLowerBound() {
				break
			}
			removed := s.cache.EvictRecordsByNumber(key, 1)
			removedThisPass += removed
			if debug && removed > 0 {
				s.logger.Debug("evicted record by size",
					"beacon", key,
					"cache_bytes", s.cache.NumBytes(),
				)
			}
		}
		// Records in flight to the collector are not evictable. If
		// nothing else is left, stop rather than spin.
		if removedThisPass == 0 {
			break
		}
	}
}

func (s *SpaceStrategy) overLowerBound() bool {
	return s.cache.NumBytes() > s.config.LowerBound
}
