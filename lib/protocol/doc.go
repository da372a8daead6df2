// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package protocol defines what the collector tells the SDK and how
// those answers are parsed.
//
// Every status check, new-session request and beacon upload may carry
// server attributes: whether capture is enabled, the server id later
// requests must target, the send interval, the maximum beacon size,
// the multiplicity and so on. [Attributes] holds one response's worth
// of them and records which ones the response actually contained, so
// that [Attributes.Merge] lets a newer response override only what it
// names. [ServerConfiguration] is the derived view the sender and
// beacons act on.
//
// Three body formats are accepted (see [ParseBody]):
//
//   - Key-value: the legacy "type=m&cp=1&id=5&si=120" form. The body
//     must begin with "type=m".
//   - JSON: a [StatusDocument] with mobileAgentConfig, appConfig and
//     dynamicConfig blocks plus a timestamp.
//   - CBOR: the same [StatusDocument] encoded with lib/codec.
//
// Non-2xx responses become a [*ResponseError]. A 429 carries the
// server's Retry-After interval; [IsTooManyRequests] and [RetryAfter]
// let callers branch on it without type assertions.
package protocol
