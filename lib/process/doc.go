// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides entrypoint helpers shared by the beaconkit
// binaries:
//
//   - [Fatal] reports an error from run() on stderr and exits, for the
//     window before the structured logger exists.
//   - [NewLogger] builds the binaries' structured logger, choosing a
//     text handler for terminals and a JSON handler otherwise.
//
// Library packages never use either; they take an injected
// *slog.Logger.
package process
