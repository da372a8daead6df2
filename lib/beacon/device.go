// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package beacon

import (
	"encoding/binary"
	"strconv"
	"strings"

	"github.com/zeebo/blake3"
)

// deviceDomainKey separates device id hashes from any other BLAKE3
// use. Changing it changes every hashed device id.
var deviceDomainKey = [32]byte{
	'b', 'e', 'a', 'c', 'o', 'n', 'k', 'i', 't', '.', 'd', 'e', 'v', 'i', 'c', 'e',
	'.', 'i', 'd', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// DeviceIDFromString converts a configured device id to the numeric
// visitor id the collector expects. Decimal strings are used as-is;
// anything else is hashed to a stable positive value so the same
// string always maps to the same visitor.
func DeviceIDFromString(id string) int64 {
	trimmed := strings.TrimSpace(id)
	if numeric, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return numeric
	}
	hasher, err := blake3.NewKeyed(deviceDomainKey[:])
	if err != nil {
		panic("beacon: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write([]byte(trimmed))
	digest := hasher.Sum(nil)
	return int64(binary.BigEndian.Uint64(digest[:8]) >> 1)
}
