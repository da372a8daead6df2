// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package eviction

import (
	"context"

	"github.com/bureau-foundation/beaconkit/lib/beaconcache"
)

// Strategy is one eviction policy. Execute runs one pass and returns;
// it must return promptly once ctx is cancelled.
type Strategy interface {
	Execute(ctx context.Context)
}

// Cache is the part of [beaconcache.Cache] the strategies use.
type Cache interface {
	Keys() []beaconcache.Key
	NumBytes() int64
	EvictRecordsByAge(key beaconcache.Key, minTimestamp int64) int
	EvictRecordsByNumber(key beaconcache.Key, count int) int
}

var _ Cache = (*beaconcache.Cache)(nil)
