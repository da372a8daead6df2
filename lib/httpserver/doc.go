// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package httpserver runs an [http.Handler] on a TCP listener with a
// context-driven lifecycle. [Server.Serve] blocks until its context is
// cancelled and in-flight requests drain. [Server.Ready] closes once
// the listener is bound, so callers that listen on port 0 can read the
// resolved address from [Server.Addr].
//
// The mock collector serves its beacon and admin routes through it and
// the load generator serves /metrics through it.
package httpserver
