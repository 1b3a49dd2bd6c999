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

package bcache

import (
	"github.com/blkio/bcache/internal/stats"
)

// Stats is a statistics snapshot.
type Stats struct {
	hits      int64
	misses    int64
	borrows   int64
	evictions int64
	retries   int64
	reads     int64
	writes    int64
	ioErrors  int64
}

func newStats(s *stats.Stats) Stats {
	return Stats{
		hits:      s.Hits(),
		misses:    s.Misses(),
		borrows:   s.Borrows(),
		evictions: s.Evictions(),
		retries:   s.Retries(),
		reads:     s.Reads(),
		writes:    s.Writes(),
		ioErrors:  s.IOErrors(),
	}
}

// Hits returns the number of lookups served without a device read: the block was in its bucket
// list or still held by a free buffer of its home pool.
func (s Stats) Hits() int64 {
	return s.hits
}

// Misses returns the number of lookups that had to claim a free buffer.
func (s Stats) Misses() int64 {
	return s.misses
}

// Ratio returns the cache hit ratio.
func (s Stats) Ratio() float64 {
	requests := s.hits + s.misses
	if requests == 0 {
		return 0.0
	}
	return float64(s.hits) / float64(requests)
}

// Borrows returns the number of misses served from a pool other than the key's home bucket.
func (s Stats) Borrows() int64 {
	return s.borrows
}

// Evictions returns the number of times a buffer lost its last reference and left the cache.
func (s Stats) Evictions() int64 {
	return s.evictions
}

// Retries returns the number of lookups restarted to keep the bucket lock order.
func (s Stats) Retries() int64 {
	return s.retries
}

// DeviceReads returns the number of successful device reads.
func (s Stats) DeviceReads() int64 {
	return s.reads
}

// DeviceWrites returns the number of successful device writes.
func (s Stats) DeviceWrites() int64 {
	return s.writes
}

// DeviceErrors returns the number of failed device reads and writes.
func (s Stats) DeviceErrors() int64 {
	return s.ioErrors
}

// LockStat describes the contention on one bucket lock.
type LockStat struct {
	Bucket int
	// Acquires is the number of times the lock was taken.
	Acquires uint64
	// Spins is the number of failed test-and-set attempts while taking it.
	Spins uint64
	// Length is the number of buffers currently threaded into the bucket.
	Length int
}
