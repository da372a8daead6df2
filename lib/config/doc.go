// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for the beaconkit SDK
// and its binaries.
//
// Configuration comes from exactly one source:
//
//   - a file named by the BEACONKIT_CONFIG environment variable (via
//     [Load]) or passed explicitly (via [LoadFile]), or
//   - BEACONKIT_* environment variables (via [FromEnvironment]), for
//     embedders that configure processes through the environment.
//
// Sources are never layered on each other, so the effective
// configuration can always be read from one place.
//
// Files are YAML. Files ending in .json or .jsonc are JSON with
// comments and trailing commas allowed; they are normalized with
// tidwall/jsonc and then decoded by the same YAML decoder, so field
// names are identical across formats.
//
// The configuration file supports environment-specific sections
// (development, staging, production) that override base values when
// [Config].Environment matches. Production without an explicit section
// compresses beacons with gzip.
//
// The collector endpoint and application id undergo ${VAR} and
// ${VAR:-default} expansion after loading.
//
// Key exports:
//
//   - [Config] -- master struct with Collector, Application, Device,
//     Cache, and Sender sections
//   - [Default] -- returns a Config with OpenKit-compatible defaults
//   - [Load], [LoadFile], and [FromEnvironment] -- the entry points
//   - [Config.EvictionConfig] and [Config.SenderConfig] -- conversion
//     into the runtime configurations of lib/eviction and lib/sender
package config
