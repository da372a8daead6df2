// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package metrics exports beacon cache and sender state as Prometheus
// metrics.
//
// [Collector] reads its sources on every scrape, so the cache and the
// sender carry no Prometheus types of their own:
//
//	registry := prometheus.NewRegistry()
//	registry.MustRegister(metrics.NewCollector(metrics.Sources{
//		Cache:  kit.Cache(),
//		Sender: kit.SendingContext(),
//	}))
//
// Exported series:
//
//	beaconkit_cache_bytes                          gauge
//	beaconkit_cache_beacons                        gauge
//	beaconkit_cache_records_added_total            counter
//	beaconkit_cache_evicted_records_total{reason}  counter, reason=age|space
//	beaconkit_cache_chunks_total{outcome}          counter, outcome=delivered|reset
//	beaconkit_sender_state{state}                  gauge, 1 for the current state
//	beaconkit_sender_open_sessions                 gauge
package metrics
