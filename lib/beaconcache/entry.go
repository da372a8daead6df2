// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package beaconcache

import "strings"

// entry is the per-key storage. All methods are called with the
// cache's mutex held.
type entry struct {
	// New bucket: appended to by producers, trimmed by eviction.
	events  []Record
	actions []Record

	// In-flight bucket: handed to the sender, not yet confirmed.
	eventsInFlight  []Record
	actionsInFlight []Record

	// numBytes is the byte size of the new bucket only.
	numBytes int64
}

func (e *entry) add(record Record) {
	record.marked = false
	if record.Kind == KindAction {
		e.actions = append(e.actions, record)
	} else {
		e.events = append(e.events, record)
	}
	e.numBytes += record.Size()
}

func (e *entry) hasNewData() bool {
	return len(e.events) > 0 || len(e.actions) > 0
}

func (e *entry) hasDataInFlight() bool {
	return len(e.eventsInFlight) > 0 || len(e.actionsInFlight) > 0
}

func (e *entry) empty() bool {
	return !e.hasNewData() && !e.hasDataInFlight()
}

// moveToInFlight hands the whole new bucket to the sender and returns
// the number of bytes that left the new bucket.
func (e *entry) moveToInFlight() int64 {
	moved := e.numBytes
	e.eventsInFlight = e.events
	e.actionsInFlight = e.actions
	e.events = nil
	e.actions = nil
	e.numBytes = 0
	return moved
}

// chunk builds prefix followed by delimiter-separated in-flight
// records, actions first, while the chunk is no longer than maxSize.
// The first record is always written, even when the prefix alone
// exceeds maxSize, so every chunk carries at least one record. Every
// record written is marked so removeMarked can drop it once the chunk
// is delivered.
func (e *entry) chunk(prefix string, maxSize int, delimiter byte) string {
	var builder strings.Builder
	builder.Grow(max(maxSize, len(prefix)))
	builder.WriteString(prefix)
	written := appendRecords(&builder, e.actionsInFlight, maxSize, delimiter, 0)
	appendRecords(&builder, e.eventsInFlight, maxSize, delimiter, written)
	return builder.String()
}

// appendRecords writes records until the builder is longer than
// maxSize and returns the running count of records in the chunk.
func appendRecords(builder *strings.Builder, records []Record, maxSize int, delimiter byte, written int) int {
	for i := range records {
		if written > 0 && builder.Len() > maxSize {
			return written
		}
		records[i].marked = true
		builder.WriteByte(delimiter)
		builder.WriteString(records[i].Data)
		written++
	}
	return written
}

func (e *entry) removeMarked() {
	e.eventsInFlight = dropMarked(e.eventsInFlight)
	e.actionsInFlight = dropMarked(e.actionsInFlight)
}

func dropMarked(records []Record) []Record {
	kept := records[:0]
	for _, record := range records {
		if !record.marked {
			kept = append(kept, record)
		}
	}
	clearTail(records, len(kept))
	if len(kept) == 0 {
		return nil
	}
	return kept
}

// resetInFlight merges the in-flight bucket back in front of the new
// bucket and returns the number of bytes that re-entered it.
func (e *entry) resetInFlight() int64 {
	restored := sizeOf(e.eventsInFlight) + sizeOf(e.actionsInFlight)
	e.events = prependUnmarked(e.eventsInFlight, e.events)
	e.actions = prependUnmarked(e.actionsInFlight, e.actions)
	e.eventsInFlight = nil
	e.actionsInFlight = nil
	e.numBytes += restored
	return restored
}

func prependUnmarked(front, back []Record) []Record {
	if len(front) == 0 {
		return back
	}
	merged := make([]Record, 0, len(front)+len(back))
	for _, record := range front {
		record.marked = false
		merged = append(merged, record)
	}
	return append(merged, back...)
}

// removeOlderThan drops new-bucket records whose timestamp is strictly
// less than minTimestamp, preserving the order of survivors.
func (e *entry) removeOlderThan(minTimestamp int64) (removed int, bytes int64) {
	var n int
	var b int64
	e.events, n, b = filterAge(e.events, minTimestamp)
	removed, bytes = removed+n, bytes+b
	e.actions, n, b = filterAge(e.actions, minTimestamp)
	removed, bytes = removed+n, bytes+b
	e.numBytes -= bytes
	return removed, bytes
}

func filterAge(records []Record, minTimestamp int64) ([]Record, int, int64) {
	kept := records[:0]
	var removedBytes int64
	for _, record := range records {
		if record.Timestamp < minTimestamp {
			removedBytes += record.Size()
			continue
		}
		kept = append(kept, record)
	}
	removed := len(records) - len(kept)
	clearTail(records, len(kept))
	return kept, removed, removedBytes
}

// removeOldest drops up to count records from the front of the new
// bucket. Actions and events are merged by timestamp; on a tie the
// action goes first.
func (e *entry) removeOldest(count int) (removed int, bytes int64) {
	actionIndex, eventIndex := 0, 0
	for removed < count && (actionIndex < len(e.actions) || eventIndex < len(e.events)) {
		takeAction := eventIndex >= len(e.events) ||
			(actionIndex < len(e.actions) && e.actions[actionIndex].Timestamp <= e.events[eventIndex].Timestamp)
		if takeAction {
			bytes += e.actions[actionIndex].Size()
			actionIndex++
		} else {
			bytes += e.events[eventIndex].Size()
			eventIndex++
		}
		removed++
	}
	e.actions = trimFront(e.actions, actionIndex)
	e.events = trimFront(e.events, eventIndex)
	e.numBytes -= bytes
	return removed, bytes
}

func trimFront(records []Record, n int) []Record {
	if n == 0 {
		return records
	}
	clear(records[:n])
	if n == len(records) {
		return nil
	}
	return records[n:]
}

// clearTail zeroes the slots past the kept prefix so dropped payloads
// can be collected.
func clearTail(records []Record, kept int) {
	clear(records[kept:])
}

func sizeOf(records []Record) int64 {
	var total int64
	for _, record := range records {
		total += record.Size()
	}
	return total
}
