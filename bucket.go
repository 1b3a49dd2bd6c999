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
	"unsafe"

	"github.com/blkio/bcache/internal/spinlock"
	"github.com/blkio/bcache/internal/xruntime"
)

// one cache line.
type paddedBucket struct {
	bucket

	padding [xruntime.CacheLineSize - unsafe.Sizeof(bucket{})]byte
}

// bucket owns the pool bufs[first:first+per] and a list of buffers threaded into it.
//
// lock guards the list (head, length and the links of every threaded buffer) and the key and
// reference fields of every buffer in the pool.
type bucket struct {
	lock   spinlock.SpinLock
	head   int32
	length uint32
	first  int32
}

// push threads b at the front of the list. Order carries no meaning.
func (bk *bucket) push(b *slot) {
	b.next = bk.head
	bk.head = b.idx
	bk.length++
}

// unlink removes b from the list and reports whether it was there.
func (bk *bucket) unlink(bufs []slot, b *slot) bool {
	if bk.head == b.idx {
		bk.head = b.next
		bk.length--
		return true
	}
	for i := bk.head; i != nilIndex; i = bufs[i].next {
		prev := &bufs[i]
		if prev.next == b.idx {
			prev.next = b.next
			bk.length--
			return true
		}
	}
	return false
}

// pairGuard holds the locks of a list-owner bucket and a buffer-home bucket.
type pairGuard struct {
	first  *paddedBucket
	second *paddedBucket
}

// lockPair locks the owner and home buckets in ascending index order. Equal indices are locked once.
func (c *Cache) lockPair(owner, home int32) pairGuard {
	if owner == home {
		b := &c.buckets[owner]
		b.lock.Lock()
		return pairGuard{first: b}
	}

	lo, hi := owner, home
	if lo > hi {
		lo, hi = hi, lo
	}
	g := pairGuard{
		first:  &c.buckets[lo],
		second: &c.buckets[hi],
	}
	g.first.lock.Lock()
	g.second.lock.Lock()
	return g
}

func (g pairGuard) unlock() {
	if g.second != nil {
		g.second.lock.Unlock()
	}
	g.first.lock.Unlock()
}

// lockAlso locks bucket want while bucket held is already locked. Locking upwards waits;
// locking downwards would invert the order, so it only tries and reports failure instead.
func (c *Cache) lockAlso(held, want int32) bool {
	b := &c.buckets[want]
	if want > held {
		b.lock.Lock()
		return true
	}
	return b.lock.TryLock()
}
