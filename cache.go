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

// Package bcache implements a fixed-capacity cache of disk blocks split into hash buckets,
// each with its own lock and its own pool of buffers.
package bcache

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/dolthub/swiss"

	"github.com/blkio/bcache/internal/stats"
	"github.com/blkio/bcache/internal/xmath"
)

// Cache is a fixed-capacity buffer cache of disk blocks.
//
// Every block has at most one buffer in the cache. Buffers are spread over a prime number of buckets,
// each owning a fixed pool of buffers and a list of the buffers currently cached for the keys
// that hash to it. When a bucket's pool is used up, a miss borrows a free buffer from the next
// buckets of the table. There is no global lock and no recency tracking: any unreferenced buffer
// may be reused.
type Cache struct {
	buckets   []paddedBucket
	bufs      []slot
	device    BlockDevice
	hasher    Hasher
	logger    Logger
	stats     *stats.Stats
	perBucket int32
	blockSize int
}

// New creates a new Cache with the given options.
func New(o *Options) (*Cache, error) {
	if o == nil {
		o = &Options{}
	}

	if err := o.validate(); err != nil {
		return nil, err
	}

	opts := *o
	opts.setDefaults()

	nbuckets := opts.Buckets
	per := xmath.DivCeil(opts.Buffers, nbuckets)
	total := nbuckets * per

	c := &Cache{
		buckets:   make([]paddedBucket, nbuckets),
		bufs:      make([]slot, total),
		device:    opts.Device,
		hasher:    opts.Hasher,
		logger:    opts.Logger,
		perBucket: int32(per),
		blockSize: opts.BlockSize,
	}
	if opts.StatsEnabled {
		c.stats = stats.New()
	}

	arena := make([]byte, total*opts.BlockSize)
	for i := range c.buckets {
		bk := &c.buckets[i]
		bk.head = nilIndex
		bk.first = int32(i * per)
		for j := 0; j < per; j++ {
			idx := i*per + j
			data := arena[idx*opts.BlockSize : (idx+1)*opts.BlockSize : (idx+1)*opts.BlockSize]
			c.bufs[idx] = newSlot(int32(idx), int32(i), data)
		}
	}

	return c, nil
}

// Must creates a configured Cache instance and
// panics if invalid parameters were specified.
func Must(o *Options) *Cache {
	c, err := New(o)
	if err != nil {
		panic(err)
	}
	return c
}

// Capacity returns the total number of buffers.
func (c *Cache) Capacity() int {
	return len(c.bufs)
}

// Buckets returns the number of buckets.
func (c *Cache) Buckets() int {
	return len(c.buckets)
}

// BlockSize returns the payload size of every buffer.
func (c *Cache) BlockSize() int {
	return c.blockSize
}

func (c *Cache) homeOf(hash uint64) int32 {
	return int32(hash % uint64(len(c.buckets)))
}

// get returns the buffer of (dev, blockno) with a new reference and its content lock held,
// claiming a free buffer on a miss. It panics with ErrNoBuffers if every buffer is referenced.
func (c *Cache) get(dev, blockno uint32) *Buf {
	hash := c.hasher(dev, blockno)
	home := c.homeOf(hash)
	for {
		if s := c.tryGet(dev, blockno, hash, home); s != nil {
			return &Buf{slot: s, token: s.lock.Lock()}
		}
		c.stats.IncRetries()
		runtime.Gosched()
	}
}

// tryGet is one locked pass of get. It returns nil when a lower-indexed bucket was busy and the
// pass had to give up all its locks.
func (c *Cache) tryGet(dev, blockno uint32, hash uint64, home int32) *slot {
	hb := &c.buckets[home]
	hb.lock.Lock()

	for i := hb.head; i != nilIndex; {
		b := &c.bufs[i]
		borrowed := b.home != home
		if borrowed && !c.lockAlso(home, b.home) {
			hb.lock.Unlock()
			return nil
		}

		hit := b.matches(dev, blockno, hash)
		if hit {
			b.refcnt++
		}
		i = b.next

		if borrowed {
			c.buckets[b.home].lock.Unlock()
		}
		if hit {
			hb.lock.Unlock()
			c.stats.IncHits()
			return b
		}
	}

	// Not cached. home stays locked until the claimed buffer is threaded into its list,
	// so no other goroutine can insert the same key meanwhile.
	n := int32(len(c.buckets))
	for k := int32(0); k < n; k++ {
		idx := (home + k) % n
		if idx != home && !c.lockAlso(home, idx) {
			hb.lock.Unlock()
			return nil
		}

		b, revived := c.claimFree(idx, dev, blockno, hash, home)

		if idx != home {
			c.buckets[idx].lock.Unlock()
		}
		if b != nil {
			hb.lock.Unlock()
			switch {
			case revived:
				c.stats.IncHits()
			case idx != home:
				c.stats.IncMisses()
				c.stats.IncBorrows()
			default:
				c.stats.IncMisses()
			}
			return b
		}
	}

	hb.lock.Unlock()
	c.fatal(context.Background(), "bget", dev, blockno, ErrNoBuffers)
	return nil
}

// claimFree takes an unreferenced buffer of bucket idx's pool for the key and threads it into
// home's list. In the home pool a free buffer still holding the key is preferred; it is revived with
// its contents. Both buckets must be locked.
func (c *Cache) claimFree(idx int32, dev, blockno uint32, hash uint64, home int32) (*slot, bool) {
	var free *slot
	first := c.buckets[idx].first
	for j := first; j < first+c.perBucket; j++ {
		b := &c.bufs[j]
		if b.refcnt != 0 {
			continue
		}
		if idx == home && b.valid && b.matches(dev, blockno, hash) {
			b.revive(home)
			c.buckets[home].push(b)
			return b, true
		}
		if free == nil {
			free = b
			if idx != home {
				break
			}
		}
	}
	if free == nil {
		return nil, false
	}

	free.claim(dev, blockno, hash, home)
	c.buckets[home].push(free)
	return free, false
}

func (c *Cache) fatal(ctx context.Context, op string, dev, blockno uint32, err error) {
	fe := &FatalError{
		Op:      op,
		Dev:     dev,
		BlockNo: blockno,
		Err:     err,
	}
	c.logger.Error(ctx, "bcache: fatal error", fe)
	panic(fe)
}

// Stats returns a current snapshot of this cache's cumulative statistics.
// All statistics are equal to zero if stats are disabled.
func (c *Cache) Stats() Stats {
	return newStats(c.stats)
}

// ResetStats zeroes the counters reported by Stats. Lock statistics keep counting.
func (c *Cache) ResetStats() {
	c.stats.Clear()
}

// LockStats returns the contention counters of every bucket lock and the current list lengths.
func (c *Cache) LockStats() []LockStat {
	ls := make([]LockStat, len(c.buckets))
	for i := range c.buckets {
		bk := &c.buckets[i]
		bk.lock.Lock()
		length := bk.length
		bk.lock.Unlock()

		ls[i] = LockStat{
			Bucket:   i,
			Acquires: bk.lock.Acquires(),
			Spins:    bk.lock.Spins(),
			Length:   int(length),
		}
	}
	return ls
}

// Check locks the whole table and verifies its structural invariants:
// a buffer is threaded iff it is referenced, it is threaded into exactly one list,
// list lengths are accurate and no block is cached twice.
//
// It is meant for tests and diagnostics. The returned error wraps ErrCorrupt for every violation.
func (c *Cache) Check() error {
	for i := range c.buckets {
		c.buckets[i].lock.Lock()
	}
	defer func() {
		for i := len(c.buckets) - 1; i >= 0; i-- {
			c.buckets[i].lock.Unlock()
		}
	}()

	var errs []error
	corrupt := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrCorrupt, fmt.Sprintf(format, args...)))
	}

	seen := make([]bool, len(c.bufs))
	keys := swiss.NewMap[Key, int32](uint32(len(c.bufs)))
	for i := range c.buckets {
		bk := &c.buckets[i]
		var length uint32
		for j := bk.head; j != nilIndex; j = c.bufs[j].next {
			if seen[j] {
				corrupt("buffer %d is threaded twice (bucket %d)", j, i)
				break
			}
			seen[j] = true
			length++

			b := &c.bufs[j]
			if b.owner != int32(i) {
				corrupt("buffer %d in list %d has owner %d", j, i, b.owner)
			}
			if b.refcnt == 0 {
				corrupt("buffer %d in list %d is unreferenced", j, i)
			}
			if c.homeOf(b.hash) != int32(i) {
				corrupt("buffer %d with hash %d is in list %d", j, b.hash, i)
			}
			key := Key{Dev: b.dev, BlockNo: b.blockno}
			if other, ok := keys.Get(key); ok {
				corrupt("block %d/%d is cached by buffers %d and %d", b.dev, b.blockno, other, j)
			}
			keys.Put(key, int32(j))
		}
		if length != bk.length {
			corrupt("bucket %d has length %d, counted %d", i, bk.length, length)
		}
	}

	for j := range c.bufs {
		b := &c.bufs[j]
		if b.home != int32(j)/c.perBucket {
			corrupt("buffer %d has home %d", j, b.home)
		}
		if (b.owner != nilIndex) != (b.refcnt > 0) {
			corrupt("buffer %d has owner %d and refcnt %d", j, b.owner, b.refcnt)
		}
		if b.owner != nilIndex && !seen[j] {
			corrupt("buffer %d claims owner %d but is in no list", j, b.owner)
		}
		if b.refcnt == 0 && b.lock.Locked() {
			corrupt("free buffer %d has its content locked", j)
		}
	}

	return errors.Join(errs...)
}
