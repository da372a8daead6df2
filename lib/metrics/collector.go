// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bureau-foundation/beaconkit/lib/beaconcache"
	"github.com/bureau-foundation/beaconkit/lib/sender"
)

const namespace = "beaconkit"

// CacheStats is implemented by *beaconcache.Cache.
type CacheStats interface {
	Stats() beaconcache.Stats
}

// SenderStatus is implemented by *sender.Context.
type SenderStatus interface {
	CurrentStateType() sender.StateType
	OpenSessionCount() int
}

// Sources are the components a Collector reads. Nil sources are
// skipped.
type Sources struct {
	Cache  CacheStats
	Sender SenderStatus
}

// Collector is a prometheus.Collector over Sources.
type Collector struct {
	sources Sources

	cacheBytes   *prometheus.Desc
	cacheBeacons *prometheus.Desc
	recordsAdded *prometheus.Desc
	evicted      *prometheus.Desc
	chunks       *prometheus.Desc
	senderState  *prometheus.Desc
	openSessions *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector returns a collector reading sources.
func NewCollector(sources Sources) *Collector {
	return &Collector{
		sources: sources,
		cacheBytes: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "cache", "bytes"),
			"Bytes of cached records not yet handed to the sender.",
			nil, nil,
		),
		cacheBeacons: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "cache", "beacons"),
			"Beacons with cached records.",
			nil, nil,
		),
		recordsAdded: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "cache", "records_added_total"),
			"Records added to the cache.",
			nil, nil,
		),
		evicted: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "cache", "evicted_records_total"),
			"Records removed by eviction.",
			[]string{"reason"}, nil,
		),
		chunks: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "cache", "chunks_total"),
			"Beacon chunks removed after delivery or returned after a failed send.",
			[]string{"outcome"}, nil,
		),
		senderState: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "sender", "state"),
			"Current state of the beacon sender (1 for the active state).",
			[]string{"state"}, nil,
		),
		openSessions: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "sender", "open_sessions"),
			"Sessions started and not yet ended.",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.cacheBytes
	ch <- c.cacheBeacons
	ch <- c.recordsAdded
	ch <- c.evicted
	ch <- c.chunks
	ch <- c.senderState
	ch <- c.openSessions
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c.sources.Cache != nil {
		stats := c.sources.Cache.Stats()
		ch <- prometheus.MustNewConstMetric(c.cacheBytes, prometheus.GaugeValue, float64(stats.Bytes))
		ch <- prometheus.MustNewConstMetric(c.cacheBeacons, prometheus.GaugeValue, float64(stats.Beacons))
		ch <- prometheus.MustNewConstMetric(c.recordsAdded, prometheus.CounterValue, float64(stats.RecordsAdded))
		ch <- prometheus.MustNewConstMetric(c.evicted, prometheus.CounterValue, float64(stats.EvictedByAge), "age")
		ch <- prometheus.MustNewConstMetric(c.evicted, prometheus.CounterValue, float64(stats.EvictedByNumber), "space")
		ch <- prometheus.MustNewConstMetric(c.chunks, prometheus.CounterValue, float64(stats.ChunksDelivered), "delivered")
		ch <- prometheus.MustNewConstMetric(c.chunks, prometheus.CounterValue, float64(stats.ChunksReset), "reset")
	}

	if c.sources.Sender != nil {
		current := c.sources.Sender.CurrentStateType()
		for _, stateType := range sender.AllStateTypes {
			value := 0.0
			if stateType == current {
				value = 1
			}
			ch <- prometheus.MustNewConstMetric(c.senderState, prometheus.GaugeValue, value, stateType.String())
		}
		ch <- prometheus.MustNewConstMetric(c.openSessions, prometheus.GaugeValue, float64(c.sources.Sender.OpenSessionCount()))
	}
}
