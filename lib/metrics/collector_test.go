// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"maps"
	"slices"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bureau-foundation/beaconkit/lib/beaconcache"
	"github.com/bureau-foundation/beaconkit/lib/sender"
)

type fixedStats beaconcache.Stats

func (f fixedStats) Stats() beaconcache.Stats { return beaconcache.Stats(f) }

type fixedSender struct {
	state sender.StateType
	open  int
}

func (f fixedSender) CurrentStateType() sender.StateType { return f.state }
func (f fixedSender) OpenSessionCount() int              { return f.open }

// gather registers collector on a fresh registry and returns every
// sample keyed as name or name{label="value"}.
func gather(t *testing.T, collector prometheus.Collector) map[string]float64 {
	t.Helper()
	registry := prometheus.NewRegistry()
	registry.MustRegister(collector)
	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	samples := make(map[string]float64)
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			key := family.GetName()
			var labels []string
			for _, label := range metric.GetLabel() {
				labels = append(labels, label.GetName()+`="`+label.GetValue()+`"`)
			}
			if len(labels) > 0 {
				key += "{" + strings.Join(labels, ",") + "}"
			}
			switch {
			case metric.GetGauge() != nil:
				samples[key] = metric.GetGauge().GetValue()
			case metric.GetCounter() != nil:
				samples[key] = metric.GetCounter().GetValue()
			}
		}
	}
	return samples
}

func TestCollectorExportsCacheStats(t *testing.T) {
	samples := gather(t, NewCollector(Sources{Cache: fixedStats{
		Beacons:         3,
		Bytes:           1200,
		EvictedByAge:    5,
		EvictedByNumber: 7,
		RecordsAdded:    40,
		ChunksDelivered: 2,
		ChunksReset:     1,
	}}))

	want := map[string]float64{
		"beaconkit_cache_bytes":                                 1200,
		"beaconkit_cache_beacons":                               3,
		"beaconkit_cache_records_added_total":                   40,
		`beaconkit_cache_evicted_records_total{reason="age"}`:   5,
		`beaconkit_cache_evicted_records_total{reason="space"}`: 7,
		`beaconkit_cache_chunks_total{outcome="delivered"}`:     2,
		`beaconkit_cache_chunks_total{outcome="reset"}`:         1,
	}
	if !maps.Equal(samples, want) {
		t.Errorf("samples = %v, want %v", samples, want)
	}
}

func TestCollectorExportsSenderState(t *testing.T) {
	samples := gather(t, NewCollector(Sources{Sender: fixedSender{state: sender.StateCaptureOff, open: 4}}))

	want := map[string]float64{
		`beaconkit_sender_state{state="init"}`:           0,
		`beaconkit_sender_state{state="capture-on"}`:     0,
		`beaconkit_sender_state{state="capture-off"}`:    1,
		`beaconkit_sender_state{state="flush-sessions"}`: 0,
		`beaconkit_sender_state{state="terminal"}`:       0,
		"beaconkit_sender_open_sessions":                 4,
	}
	if !maps.Equal(samples, want) {
		t.Errorf("samples = %v, want %v", samples, want)
	}
	if slices.ContainsFunc(slices.Collect(maps.Keys(samples)), func(key string) bool {
		return strings.Contains(key, "time-sync")
	}) {
		t.Error("reserved time-sync state exported")
	}
}

func TestCollectorReadsLiveCache(t *testing.T) {
	cache := beaconcache.New()
	key := beaconcache.Key{BeaconID: 1}
	cache.AddEventData(key, 1000, "et=10&na=a")
	cache.AddEventData(key, 1001, "et=10&na=b")
	collector := NewCollector(Sources{Cache: cache})

	samples := gather(t, collector)
	if samples["beaconkit_cache_records_added_total"] != 2 || samples["beaconkit_cache_beacons"] != 1 {
		t.Errorf("unexpected samples %v", samples)
	}

	cache.DeleteCacheEntry(key)
	samples = gather(t, collector)
	if samples["beaconkit_cache_beacons"] != 0 || samples["beaconkit_cache_bytes"] != 0 {
		t.Errorf("samples after delete = %v", samples)
	}
}
