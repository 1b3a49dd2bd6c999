// Copyright (c) 2026 The bcache Authors. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package prometheus

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/blkio/bcache"
)

// StatsProvider provides buffer cache statistics.
type StatsProvider interface {
	Stats() bcache.Stats
	LockStats() []bcache.LockStat
}

// Collector collects statistics from a buffer cache and exposes them to Prometheus.
type Collector struct {
	provider         StatsProvider
	hitsDesc         *prometheus.Desc
	missesDesc       *prometheus.Desc
	borrowsDesc      *prometheus.Desc
	evictionsDesc    *prometheus.Desc
	retriesDesc      *prometheus.Desc
	deviceReadsDesc  *prometheus.Desc
	deviceWritesDesc *prometheus.Desc
	deviceErrorsDesc *prometheus.Desc
	lockAcquiresDesc *prometheus.Desc
	lockSpinsDesc    *prometheus.Desc
	bucketLengthDesc *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector creates a new collector for the given cache statistics provider.
// Metric names are prefixed with the given namespace and subsystem,
// i.e "{namespace}_{subsystem}_{metric}".
// Supported metrics:
// - hits
// - misses
// - borrows
// - evictions
// - retries
// - device_reads
// - device_writes
// - device_errors
// - lock_acquires{bucket}
// - lock_spins{bucket}
// - bucket_length{bucket}
func NewCollector(namespace, subsystem string, provider StatsProvider) *Collector {
	bucketLabels := []string{"bucket"}
	return &Collector{
		provider: provider,
		hitsDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "hits"),
			"Number of lookups served by a cached block.",
			nil, nil,
		),
		missesDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "misses"),
			"Number of lookups that had to claim a free buffer.",
			nil, nil,
		),
		borrowsDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "borrows"),
			"Number of buffers claimed from the pool of another bucket.",
			nil, nil,
		),
		evictionsDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "evictions"),
			"Number of buffers whose last reference was released.",
			nil, nil,
		),
		retriesDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "retries"),
			"Number of lookups restarted because a bucket lock was busy.",
			nil, nil,
		),
		deviceReadsDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "device_reads"),
			"Number of blocks read from the device.",
			nil, nil,
		),
		deviceWritesDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "device_writes"),
			"Number of blocks written to the device.",
			nil, nil,
		),
		deviceErrorsDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "device_errors"),
			"Number of failed device operations.",
			nil, nil,
		),
		lockAcquiresDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "lock_acquires"),
			"Number of times a bucket lock was taken.",
			bucketLabels, nil,
		),
		lockSpinsDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "lock_spins"),
			"Number of failed test-and-set attempts on a bucket lock.",
			bucketLabels, nil,
		),
		bucketLengthDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "bucket_length"),
			"Number of buffers threaded into a bucket.",
			bucketLabels, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(descs chan<- *prometheus.Desc) {
	descs <- c.hitsDesc
	descs <- c.missesDesc
	descs <- c.borrowsDesc
	descs <- c.evictionsDesc
	descs <- c.retriesDesc
	descs <- c.deviceReadsDesc
	descs <- c.deviceWritesDesc
	descs <- c.deviceErrorsDesc
	descs <- c.lockAcquiresDesc
	descs <- c.lockSpinsDesc
	descs <- c.bucketLengthDesc
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(metrics chan<- prometheus.Metric) {
	stats := c.provider.Stats()
	metrics <- prometheus.MustNewConstMetric(
		c.hitsDesc, prometheus.CounterValue, float64(stats.Hits()),
	)
	metrics <- prometheus.MustNewConstMetric(
		c.missesDesc, prometheus.CounterValue, float64(stats.Misses()),
	)
	metrics <- prometheus.MustNewConstMetric(
		c.borrowsDesc, prometheus.CounterValue, float64(stats.Borrows()),
	)
	metrics <- prometheus.MustNewConstMetric(
		c.evictionsDesc, prometheus.CounterValue, float64(stats.Evictions()),
	)
	metrics <- prometheus.MustNewConstMetric(
		c.retriesDesc, prometheus.CounterValue, float64(stats.Retries()),
	)
	metrics <- prometheus.MustNewConstMetric(
		c.deviceReadsDesc, prometheus.CounterValue, float64(stats.DeviceReads()),
	)
	metrics <- prometheus.MustNewConstMetric(
		c.deviceWritesDesc, prometheus.CounterValue, float64(stats.DeviceWrites()),
	)
	metrics <- prometheus.MustNewConstMetric(
		c.deviceErrorsDesc, prometheus.CounterValue, float64(stats.DeviceErrors()),
	)

	for _, ls := range c.provider.LockStats() {
		bucket := strconv.Itoa(ls.Bucket)
		metrics <- prometheus.MustNewConstMetric(
			c.lockAcquiresDesc, prometheus.CounterValue, float64(ls.Acquires), bucket,
		)
		metrics <- prometheus.MustNewConstMetric(
			c.lockSpinsDesc, prometheus.CounterValue, float64(ls.Spins), bucket,
		)
		metrics <- prometheus.MustNewConstMetric(
			c.bucketLengthDesc, prometheus.GaugeValue, float64(ls.Length), bucket,
		)
	}
}
