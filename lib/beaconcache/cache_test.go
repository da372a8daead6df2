// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package beaconcache

import (
	"math/rand"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

var (
	keyOne = Key{BeaconID: 1, SequenceNumber: 0}
	keyTwo = Key{BeaconID: 2, SequenceNumber: 0}
)

type countingObserver struct {
	calls atomic.Int64
}

func (o *countingObserver) OnDataAdded() { o.calls.Add(1) }

// retainedBytes recomputes the byte counter from scratch.
func retainedBytes(c *Cache) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	var total int64
	for _, e := range c.entries {
		total += sizeOf(e.events) + sizeOf(e.actions)
	}
	return total
}

func newRecords(c *Cache, key Key) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil
	}
	var data []string
	for _, record := range e.actions {
		data = append(data, record.Data)
	}
	for _, record := range e.events {
		data = append(data, record.Data)
	}
	return data
}

func TestAddRecordTracksBytes(t *testing.T) {
	cache := New()
	if cache.NumBytes() != 0 {
		t.Fatalf("NumBytes() = %d on empty cache, want 0", cache.NumBytes())
	}

	cache.AddEventData(keyOne, 1000, "a")
	cache.AddEventData(keyOne, 1001, "bb")
	cache.AddActionData(keyTwo, 1002, "ccc")

	if got := cache.NumBytes(); got != 6 {
		t.Fatalf("NumBytes() = %d, want 6", got)
	}
	keys := cache.Keys()
	slices.SortFunc(keys, func(a, b Key) int { return int(a.BeaconID - b.BeaconID) })
	if !slices.Equal(keys, []Key{keyOne, keyTwo}) {
		t.Fatalf("Keys() = %v, want [%v %v]", keys, keyOne, keyTwo)
	}
	ids := cache.BeaconIDs()
	slices.Sort(ids)
	if !slices.Equal(ids, []int32{1, 2}) {
		t.Fatalf("BeaconIDs() = %v, want [1 2]", ids)
	}
}

func TestAddRecordNotifiesObservers(t *testing.T) {
	cache := New()
	observer := &countingObserver{}
	cache.AddObserver(observer)

	cache.AddEventData(keyOne, 1, "x")
	cache.AddActionData(keyOne, 2, "y")

	if got := observer.calls.Load(); got != 2 {
		t.Fatalf("observer called %d times, want 2", got)
	}
}

func TestKeysSnapshotIsIndependent(t *testing.T) {
	cache := New()
	cache.AddEventData(keyOne, 1, "x")
	keys := cache.Keys()
	cache.AddEventData(keyTwo, 1, "y")
	if len(keys) != 1 {
		t.Fatalf("snapshot changed after insertion: %v", keys)
	}
}

func TestEvictRecordsByAge(t *testing.T) {
	cache := New()
	cache.AddEventData(keyOne, 1000, "t1")
	cache.AddActionData(keyOne, 1500, "t2-action")
	cache.AddEventData(keyOne, 2000, "t2")
	cache.AddEventData(keyOne, 3000, "t3")

	// Only records strictly older than the threshold go.
	if removed := cache.EvictRecordsByAge(keyOne, 1000); removed != 0 {
		t.Fatalf("removed %d records below threshold 1000, want 0", removed)
	}

	removed := cache.EvictRecordsByAge(keyOne, 2000)
	if removed != 2 {
		t.Fatalf("EvictRecordsByAge(2000) removed %d, want 2", removed)
	}
	if got := newRecords(cache, keyOne); !slices.Equal(got, []string{"t2", "t3"}) {
		t.Fatalf("survivors = %v, want [t2 t3]", got)
	}
	if cache.NumBytes() != retainedBytes(cache) || cache.NumBytes() != 4 {
		t.Fatalf("NumBytes() = %d, want 4", cache.NumBytes())
	}
}

func TestEvictRecordsByAgeUnknownKey(t *testing.T) {
	cache := New()
	if removed := cache.EvictRecordsByAge(keyOne, 1<<40); removed != 0 {
		t.Fatalf("EvictRecordsByAge on unknown key = %d, want 0", removed)
	}
	if removed := cache.EvictRecordsByNumber(keyOne, 5); removed != 0 {
		t.Fatalf("EvictRecordsByNumber on unknown key = %d, want 0", removed)
	}
}

func TestEvictRecordsByNumberRemovesOldestFirst(t *testing.T) {
	cache := New()
	cache.AddEventData(keyOne, 10, "e10")
	cache.AddActionData(keyOne, 10, "a10")
	cache.AddEventData(keyOne, 20, "e20")
	cache.AddActionData(keyOne, 30, "a30")

	// Tie at 10: the action goes first.
	if removed := cache.EvictRecordsByNumber(keyOne, 1); removed != 1 {
		t.Fatalf("removed %d, want 1", removed)
	}
	if got := newRecords(cache, keyOne); !slices.Equal(got, []string{"a30", "e10", "e20"}) {
		t.Fatalf("after first eviction = %v", got)
	}

	if removed := cache.EvictRecordsByNumber(keyOne, 2); removed != 2 {
		t.Fatalf("removed %d, want 2", removed)
	}
	if got := newRecords(cache, keyOne); !slices.Equal(got, []string{"a30"}) {
		t.Fatalf("after second eviction = %v, want [a30]", got)
	}

	if removed := cache.EvictRecordsByNumber(keyOne, 10); removed != 1 {
		t.Fatalf("removed %d, want 1 (only one left)", removed)
	}
	if cache.NumBytes() != 0 {
		t.Fatalf("NumBytes() = %d, want 0", cache.NumBytes())
	}
}

func TestChunkingActionsFirst(t *testing.T) {
	cache := New()
	cache.AddEventData(keyOne, 1, "e1")
	cache.AddActionData(keyOne, 2, "a1")
	cache.AddEventData(keyOne, 3, "e2")

	cache.PrepareDataForSending(keyOne)
	if cache.NumBytes() != 0 {
		t.Fatalf("NumBytes() = %d after prepare, want 0", cache.NumBytes())
	}
	if !cache.HasDataForSending(keyOne) {
		t.Fatal("HasDataForSending() = false after prepare")
	}

	chunk := cache.NextBeaconChunk(keyOne, "prefix", 1024, '&')
	if chunk != "prefix&a1&e1&e2" {
		t.Fatalf("chunk = %q", chunk)
	}
	cache.RemoveChunkedData(keyOne)
	if cache.HasDataForSending(keyOne) {
		t.Fatal("HasDataForSending() = true after delivering the only chunk")
	}
	if !cache.IsEmpty(keyOne) {
		t.Fatal("IsEmpty() = false after everything was delivered")
	}
}

func TestChunkingRespectsMaxSize(t *testing.T) {
	cache := New()
	for i := 0; i < 5; i++ {
		cache.AddEventData(keyOne, int64(i), strings.Repeat(string(rune('a'+i)), 10))
	}
	cache.PrepareDataForSending(keyOne)

	// The builder stops once it is longer than maxSize, so each chunk
	// holds records until it crosses 15 bytes.
	var chunks []string
	for cache.HasDataForSending(keyOne) {
		chunk := cache.NextBeaconChunk(keyOne, "p", 15, '&')
		chunks = append(chunks, chunk)
		cache.RemoveChunkedData(keyOne)
	}
	want := []string{
		"p&aaaaaaaaaa&bbbbbbbbbb",
		"p&cccccccccc&dddddddddd",
		"p&eeeeeeeeee",
	}
	if !slices.Equal(chunks, want) {
		t.Fatalf("chunks = %q, want %q", chunks, want)
	}
}

func TestChunkingWithPrefixLongerThanMaxSize(t *testing.T) {
	for _, maxSize := range []int{4, 0, -1024} {
		cache := New()
		cache.AddActionData(keyOne, 1, "a1")
		cache.AddEventData(keyOne, 2, "e1")
		cache.AddEventData(keyOne, 3, "e2")
		cache.PrepareDataForSending(keyOne)

		var chunks []string
		for i := 0; cache.HasDataForSending(keyOne); i++ {
			if i == 10 {
				t.Fatalf("maxSize %d: still sending after %d chunks: %q", maxSize, i, chunks)
			}
			chunks = append(chunks, cache.NextBeaconChunk(keyOne, "long-prefix", maxSize, '&'))
			cache.RemoveChunkedData(keyOne)
		}
		want := []string{"long-prefix&a1", "long-prefix&e1", "long-prefix&e2"}
		if !slices.Equal(chunks, want) {
			t.Errorf("maxSize %d: chunks = %q, want %q", maxSize, chunks, want)
		}
		if !cache.IsEmpty(keyOne) {
			t.Errorf("maxSize %d: IsEmpty() = false after every chunk was delivered", maxSize)
		}
	}
}

func TestResetChunkedDataPreservesOrder(t *testing.T) {
	cache := New()
	observer := &countingObserver{}
	cache.AddObserver(observer)

	cache.AddEventData(keyOne, 1, "old1")
	cache.AddEventData(keyOne, 2, "old2")
	cache.PrepareDataForSending(keyOne)
	_ = cache.NextBeaconChunk(keyOne, "p", 1024, '&')

	// Produced while the send is in flight.
	cache.AddEventData(keyOne, 3, "new1")

	cache.ResetChunkedData(keyOne)
	if got := newRecords(cache, keyOne); !slices.Equal(got, []string{"old1", "old2", "new1"}) {
		t.Fatalf("after reset = %v, want [old1 old2 new1]", got)
	}
	if cache.NumBytes() != retainedBytes(cache) {
		t.Fatalf("NumBytes() = %d, recomputed %d", cache.NumBytes(), retainedBytes(cache))
	}
	if observer.calls.Load() != 4 {
		t.Fatalf("observer calls = %d, want 4 (3 adds + reset)", observer.calls.Load())
	}

	// A retry sends the restored data first, unmarked.
	cache.PrepareDataForSending(keyOne)
	if chunk := cache.NextBeaconChunk(keyOne, "p", 1024, '&'); chunk != "p&old1&old2&new1" {
		t.Fatalf("retry chunk = %q", chunk)
	}
}

func TestPrepareDoesNotOverwriteInFlight(t *testing.T) {
	cache := New()
	cache.AddEventData(keyOne, 1, "first")
	cache.PrepareDataForSending(keyOne)
	cache.AddEventData(keyOne, 2, "second")
	cache.PrepareDataForSending(keyOne)

	if chunk := cache.NextBeaconChunk(keyOne, "p", 1024, '&'); chunk != "p&first" {
		t.Fatalf("chunk = %q, want only the first in-flight batch", chunk)
	}
	if cache.NumBytes() != int64(len("second")) {
		t.Fatalf("NumBytes() = %d, want %d", cache.NumBytes(), len("second"))
	}
}

func TestEvictionIgnoresInFlightData(t *testing.T) {
	cache := New()
	cache.AddEventData(keyOne, 1, "inflight")
	cache.PrepareDataForSending(keyOne)

	if removed := cache.EvictRecordsByAge(keyOne, 100); removed != 0 {
		t.Fatalf("age eviction removed %d in-flight records", removed)
	}
	if removed := cache.EvictRecordsByNumber(keyOne, 1); removed != 0 {
		t.Fatalf("number eviction removed %d in-flight records", removed)
	}
}

func TestDeleteCacheEntry(t *testing.T) {
	cache := New()
	cache.AddEventData(keyOne, 1, "abc")
	cache.AddEventData(keyTwo, 1, "de")
	cache.DeleteCacheEntry(keyOne)
	cache.DeleteCacheEntry(keyOne)

	if cache.NumBytes() != 2 {
		t.Fatalf("NumBytes() = %d, want 2", cache.NumBytes())
	}
	if !cache.IsEmpty(keyOne) {
		t.Fatal("deleted key is not empty")
	}
	if stats := cache.Stats(); stats.Beacons != 1 {
		t.Fatalf("Stats().Beacons = %d, want 1", stats.Beacons)
	}
}

// TestByteCountInvariant drives a random sequence of operations and
// recomputes the counter after each one.
func TestByteCountInvariant(t *testing.T) {
	cache := New()
	random := rand.New(rand.NewSource(42))
	keys := []Key{keyOne, keyTwo, {BeaconID: 3, SequenceNumber: 1}}

	for step := 0; step < 2000; step++ {
		key := keys[random.Intn(len(keys))]
		switch random.Intn(8) {
		case 0, 1, 2:
			data := strings.Repeat("x", 1+random.Intn(40))
			if random.Intn(2) == 0 {
				cache.AddEventData(key, int64(step), data)
			} else {
				cache.AddActionData(key, int64(step), data)
			}
		case 3:
			cache.EvictRecordsByAge(key, int64(step-random.Intn(200)))
		case 4:
			cache.EvictRecordsByNumber(key, 1+random.Intn(3))
		case 5:
			cache.PrepareDataForSending(key)
			cache.NextBeaconChunk(key, "p", 64, '&')
		case 6:
			if random.Intn(2) == 0 {
				cache.RemoveChunkedData(key)
			} else {
				cache.ResetChunkedData(key)
			}
		case 7:
			if random.Intn(10) == 0 {
				cache.DeleteCacheEntry(key)
			}
		}
		if got, want := cache.NumBytes(), retainedBytes(cache); got != want {
			t.Fatalf("step %d: NumBytes() = %d, recomputed %d", step, got, want)
		}
	}
}

func TestConcurrentProducersAndEviction(t *testing.T) {
	cache := New()
	var waitGroup sync.WaitGroup
	for producer := 0; producer < 8; producer++ {
		waitGroup.Add(1)
		go func(id int32) {
			defer waitGroup.Done()
			key := Key{BeaconID: id}
			for i := 0; i < 500; i++ {
				cache.AddEventData(key, int64(i), "payload")
			}
		}(int32(producer))
	}
	waitGroup.Add(1)
	go func() {
		defer waitGroup.Done()
		for i := 0; i < 500; i++ {
			for _, key := range cache.Keys() {
				cache.EvictRecordsByNumber(key, 1)
			}
		}
	}()
	waitGroup.Wait()

	if got, want := cache.NumBytes(), retainedBytes(cache); got != want {
		t.Fatalf("NumBytes() = %d, recomputed %d", got, want)
	}
}
