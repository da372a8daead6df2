// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package beaconcache

import "fmt"

// Key identifies one beacon's bucket: the session number and the
// session sequence number. Keys compare structurally and are usable as
// map keys.
type Key struct {
	BeaconID       int32
	SequenceNumber int32
}

// String returns a compact form for log attributes.
func (k Key) String() string {
	return fmt.Sprintf("%d/%d", k.BeaconID, k.SequenceNumber)
}

// Kind distinguishes action records from all other event records.
// Action records are placed first in every outgoing chunk.
type Kind uint8

const (
	KindEvent Kind = iota
	KindAction
)

func (k Kind) String() string {
	switch k {
	case KindEvent:
		return "event"
	case KindAction:
		return "action"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// Record is one serialized telemetry event. Records are immutable once
// added; the cache owns them until they are evicted or delivered.
type Record struct {
	Kind Kind

	// Timestamp is the creation time in milliseconds since the Unix
	// epoch. Age-based eviction compares against it.
	Timestamp int64

	// Data is the serialized event.
	Data string

	// marked is set while the record is part of the chunk currently
	// being sent.
	marked bool
}

// Size returns the number of bytes the record contributes to the
// cache's byte counter.
func (r Record) Size() int64 {
	return int64(len(r.Data))
}
