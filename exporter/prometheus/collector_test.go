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
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/blkio/bcache"
	"github.com/blkio/bcache/device"
)

func newCache(t *testing.T) *bcache.Cache {
	t.Helper()

	c, err := bcache.New(&bcache.Options{
		Buckets:      3,
		Buffers:      6,
		BlockSize:    512,
		Device:       device.NewMemory(512, 0),
		StatsEnabled: true,
		Logger:       &bcache.NoopLogger{},
	})
	require.NoError(t, err)
	return c
}

func TestCollector_Describe(t *testing.T) {
	t.Parallel()

	collector := NewCollector("test", "bcache", newCache(t))
	descsCh := make(chan *prometheus.Desc, 11)

	collector.Describe(descsCh)

	close(descsCh)
	require.Len(t, descsCh, 11)
}

func TestCollector_Collect(t *testing.T) {
	t.Parallel()

	c := newCache(t)
	collector := NewCollector("test", "bcache", c)

	metrics := testutil.CollectAndCount(
		collector,
		"test_bcache_hits",
		"test_bcache_misses",
		"test_bcache_borrows",
		"test_bcache_evictions",
		"test_bcache_retries",
		"test_bcache_device_reads",
		"test_bcache_device_writes",
		"test_bcache_device_errors",
		"test_bcache_lock_acquires",
		"test_bcache_lock_spins",
		"test_bcache_bucket_length",
	)
	// 8 cache counters and 3 series for each of the 3 buckets.
	require.Equal(t, 8+3*3, metrics)
}

func TestCollector_Values(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := newCache(t)
	collector := NewCollector("test", "bcache", c)

	b, err := c.Read(ctx, 0, 1)
	require.NoError(t, err)
	require.NoError(t, c.Write(ctx, b))
	c.Release(b)
	b, err = c.Read(ctx, 0, 1)
	require.NoError(t, err)

	expected := `
# HELP test_bcache_hits Number of lookups served by a cached block.
# TYPE test_bcache_hits counter
test_bcache_hits 1
# HELP test_bcache_misses Number of lookups that had to claim a free buffer.
# TYPE test_bcache_misses counter
test_bcache_misses 1
# HELP test_bcache_device_writes Number of blocks written to the device.
# TYPE test_bcache_device_writes counter
test_bcache_device_writes 1
# HELP test_bcache_bucket_length Number of buffers threaded into a bucket.
# TYPE test_bcache_bucket_length gauge
test_bcache_bucket_length{bucket="0"} 0
test_bcache_bucket_length{bucket="1"} 1
test_bcache_bucket_length{bucket="2"} 0
`
	err = testutil.CollectAndCompare(
		collector,
		strings.NewReader(expected),
		"test_bcache_hits",
		"test_bcache_misses",
		"test_bcache_device_writes",
		"test_bcache_bucket_length",
	)
	require.NoError(t, err)
	c.Release(b)
}

func TestCollector_Register(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(NewCollector("test", "bcache", newCache(t))))

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 11)
}
