// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides beaconkit's standard CBOR encoding
// configuration.
//
// The collector protocol speaks two response formats by default: the
// legacy key-value body and the JSON status document. A collector may
// instead answer with the same document encoded as CBOR
// (Content-Type application/cbor), which is smaller on the wire and
// cheaper to parse on constrained devices. This package holds the
// shared CBOR modes so the protocol parser and the mock collector
// encode and decode identically.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2): sorted
// map keys, smallest integer encoding, no indefinite-length items. Same
// logical data always produces identical bytes, which keeps recorded
// mock responses stable across runs.
//
//	data, err := codec.Marshal(document)
//	err = codec.Unmarshal(data, &document)
//
// Types shared between the JSON and CBOR forms of a document carry
// only `json` tags: fxamacker/cbor v2 reads them when `cbor` tags are
// absent, so one tag controls field naming for both encodings.
package codec
