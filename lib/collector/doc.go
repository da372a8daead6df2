// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package collector talks to the beacon collector over HTTP.
//
// The sending state machine depends only on the [Client] interface,
// which has three exchanges:
//
//   - SendStatusRequest: GET with type=m, returns the server attributes.
//   - SendNewSessionRequest: the same with ns=1. The collector answers
//     with per-session attributes (multiplicity, server id).
//   - SendBeaconRequest: POST of one beacon chunk, compressed per the
//     configured [compress.Encoding], with the session's client IP in
//     X-Client-IP.
//
// Every exchange targets a server id. The collector redirects the SDK
// to another id by answering with a different one.
//
// Responses of status 400 and above become a [*protocol.ResponseError];
// network failures and malformed bodies are returned wrapped. None of
// them are fatal to the caller; the sending states retry on their own
// schedules.
package collector
