// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package beaconcache

import (
	"sync"
	"sync/atomic"
)

// Observer is notified after records are added to the cache. The
// callback runs on the producer's goroutine after the cache lock has
// been released, so it must return quickly and must not block.
type Observer interface {
	OnDataAdded()
}

// Stats is a point-in-time summary of the cache for metrics.
type Stats struct {
	Beacons         int
	Bytes           int64
	EvictedByAge    uint64
	EvictedByNumber uint64
	RecordsAdded    uint64
	ChunksDelivered uint64
	ChunksReset     uint64
}

// Cache stores undelivered records per beacon key.
//
// Thread-safe: all methods may be called concurrently.
type Cache struct {
	mu        sync.Mutex
	entries   map[Key]*entry
	observers []Observer

	// numBytes mirrors the sum of every entry's new-bucket size. It is
	// only written with mu held but may be read without it.
	numBytes atomic.Int64

	recordsAdded    atomic.Uint64
	evictedByAge    atomic.Uint64
	evictedByNumber atomic.Uint64
	chunksDelivered atomic.Uint64
	chunksReset     atomic.Uint64
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{entries: make(map[Key]*entry)}
}

// AddObserver registers an observer for data-added notifications.
func (c *Cache) AddObserver(observer Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, observer)
}

// AddRecord appends record to the key's new bucket, creating the
// bucket if the key is unknown, and notifies observers. It never
// fails.
func (c *Cache) AddRecord(key Key, record Record) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		e = &entry{}
		c.entries[key] = e
	}
	e.add(record)
	c.numBytes.Add(record.Size())
	observers := c.observers
	c.mu.Unlock()

	c.recordsAdded.Add(1)
	notify(observers)
}

// AddEventData adds a non-action record.
func (c *Cache) AddEventData(key Key, timestamp int64, data string) {
	c.AddRecord(key, Record{Kind: KindEvent, Timestamp: timestamp, Data: data})
}

// AddActionData adds an action record.
func (c *Cache) AddActionData(key Key, timestamp int64, data string) {
	c.AddRecord(key, Record{Kind: KindAction, Timestamp: timestamp, Data: data})
}

// DeleteCacheEntry removes every record of key, new and in flight.
func (c *Cache) DeleteCacheEntry(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return
	}
	delete(c.entries, key)
	c.numBytes.Add(-e.numBytes)
}

// PrepareDataForSending moves the key's new bucket into flight unless
// a previous attempt is still in flight. The moved bytes leave the
// byte counter on the assumption that delivery will succeed;
// ResetChunkedData adds them back if it does not.
func (c *Cache) PrepareDataForSending(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || e.hasDataInFlight() {
		return
	}
	c.numBytes.Add(-e.moveToInFlight())
}

// HasDataForSending reports whether key has in-flight records left to
// chunk.
func (c *Cache) HasDataForSending(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return ok && e.hasDataInFlight()
}

// NextBeaconChunk returns the next chunk of in-flight data for key:
// prefix followed by delimiter-separated records, no longer than
// maxSize plus one record. A chunk always holds at least one record,
// whatever maxSize is. Returns "" when nothing is in flight.
func (c *Cache) NextBeaconChunk(key Key, prefix string, maxSize int, delimiter byte) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || !e.hasDataInFlight() {
		return ""
	}
	return e.chunk(prefix, maxSize, delimiter)
}

// RemoveChunkedData drops the records of the last chunk returned by
// NextBeaconChunk. Call it once the chunk has been delivered.
func (c *Cache) RemoveChunkedData(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return
	}
	e.removeMarked()
	c.chunksDelivered.Add(1)
}

// ResetChunkedData returns every in-flight record of key to the front
// of its new bucket after a failed send and notifies observers, since
// the byte counter grows again.
func (c *Cache) ResetChunkedData(key Key) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		return
	}
	c.numBytes.Add(e.resetInFlight())
	observers := c.observers
	c.mu.Unlock()

	c.chunksReset.Add(1)
	notify(observers)
}

// EvictRecordsByAge removes every new-bucket record of key whose
// timestamp is strictly older than minTimestamp. Returns the number of
// records removed; 0 if the key is absent.
func (c *Cache) EvictRecordsByAge(key Key, minTimestamp int64) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return 0
	}
	removed, bytes := e.removeOlderThan(minTimestamp)
	c.numBytes.Add(-bytes)
	c.evictedByAge.Add(uint64(removed))
	return removed
}

// EvictRecordsByNumber removes up to count of the oldest new-bucket
// records of key. Returns the number of records removed; 0 if the key
// is absent.
func (c *Cache) EvictRecordsByNumber(key Key, count int) int {
	if count <= 0 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return 0
	}
	removed, bytes := e.removeOldest(count)
	c.numBytes.Add(-bytes)
	c.evictedByNumber.Add(uint64(removed))
	return removed
}

// Keys returns a snapshot of the keys currently in the cache. The
// caller iterates the copy without holding the cache lock.
func (c *Cache) Keys() []Key {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]Key, 0, len(c.entries))
	for key := range c.entries {
		keys = append(keys, key)
	}
	return keys
}

// BeaconIDs returns a snapshot of the distinct beacon ids in the
// cache.
func (c *Cache) BeaconIDs() []int32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	seen := make(map[int32]struct{}, len(c.entries))
	ids := make([]int32, 0, len(c.entries))
	for key := range c.entries {
		if _, ok := seen[key.BeaconID]; ok {
			continue
		}
		seen[key.BeaconID] = struct{}{}
		ids = append(ids, key.BeaconID)
	}
	return ids
}

// NumBytes returns the byte size of all records not currently in
// flight. O(1), lock-free.
//
// Records handed to the sender by PrepareDataForSending are not
// counted until ResetChunkedData returns them, so during a send this
// is less than the size of everything stored. Eviction only ever sees
// this figure, which matches what it is allowed to remove.
func (c *Cache) NumBytes() int64 {
	return c.numBytes.Load()
}

// IsEmpty reports whether key holds no records at all. Unknown keys
// are empty.
func (c *Cache) IsEmpty(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return !ok || e.empty()
}

// Stats returns counters for metrics export.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	beacons := len(c.entries)
	c.mu.Unlock()
	return Stats{
		Beacons:         beacons,
		Bytes:           c.numBytes.Load(),
		EvictedByAge:    c.evictedByAge.Load(),
		EvictedByNumber: c.evictedByNumber.Load(),
		RecordsAdded:    c.recordsAdded.Load(),
		ChunksDelivered: c.chunksDelivered.Load(),
		ChunksReset:     c.chunksReset.Load(),
	}
}

func notify(observers []Observer) {
	for _, observer := range observers {
		observer.OnDataAdded()
	}
}
