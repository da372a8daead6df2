// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package beaconcache holds serialized telemetry records that have not
// yet been delivered to the collector, partitioned by beacon [Key].
//
// The [Cache] is shared by three parties that run concurrently:
//
//   - producers (application goroutines recording sessions and
//     actions) append records with [Cache.AddRecord];
//   - eviction strategies trim records with [Cache.EvictRecordsByAge]
//     and [Cache.EvictRecordsByNumber];
//   - the sender drains records with [Cache.PrepareDataForSending],
//     [Cache.NextBeaconChunk], [Cache.RemoveChunkedData] and
//     [Cache.ResetChunkedData].
//
// A single mutex serializes all three. Every operation is a short,
// non-blocking critical section; nothing here performs I/O.
//
// Each key owns two buckets. The "new" bucket receives appended
// records. When the sender starts a send attempt the new bucket moves
// into the in-flight bucket; records in flight are invisible to
// eviction and are not counted in [Cache.NumBytes]. A successful chunk
// removes its records; a failed send merges the whole in-flight bucket
// back in front of the new bucket so the retry preserves the original
// order. Eviction is the only way records are dropped.
//
// Observers registered with [Cache.AddObserver] are notified after
// every insertion. The eviction package uses this to wake its
// background goroutine.
package beaconcache
