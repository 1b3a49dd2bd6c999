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
	"context"
)

// Release unlocks b and drops the caller's reference. When the last reference is dropped, b leaves
// its bucket list and becomes free for any block. Until it is claimed by another block, a later
// Read of the same block takes it back without reading the device.
//
// The caller must hold b. Releasing a Buf twice, or one whose block was handed to another
// caller since, is fatal.
func (c *Cache) Release(b *Buf) {
	if !b.lock.Unlock(b.token) {
		c.fatal(context.Background(), "brelse", b.dev, b.blockno, ErrNotHeld)
	}

	// owner can not change while the caller's reference is outstanding.
	owner := b.owner
	if owner == nilIndex {
		c.fatal(context.Background(), "brelse", b.dev, b.blockno, ErrNotThreaded)
	}

	g := c.lockPair(owner, b.home)
	if b.refcnt > 1 {
		b.refcnt--
		g.unlock()
		return
	}

	dev, blockno := b.dev, b.blockno
	if !c.buckets[owner].unlink(c.bufs, b.slot) {
		g.unlock()
		c.fatal(context.Background(), "brelse", dev, blockno, ErrCorrupt)
	}
	b.free()
	g.unlock()

	c.stats.IncEvictions()
}

// Pin adds a reference to b that keeps it cached until a matching Unpin, independent of
// the Read/Release pairing.
//
// b must be cached: the caller holds it or holds another reference to it.
func (c *Cache) Pin(b *Buf) {
	owner := b.owner
	if owner == nilIndex {
		c.fatal(context.Background(), "bpin", b.dev, b.blockno, ErrNotThreaded)
	}

	g := c.lockPair(owner, b.home)
	b.refcnt++
	g.unlock()
}

// Unpin drops a reference added by Pin. It never drops the last reference: that is Release's job.
func (c *Cache) Unpin(b *Buf) {
	owner := b.owner
	if owner == nilIndex {
		c.fatal(context.Background(), "bunpin", b.dev, b.blockno, ErrNotThreaded)
	}

	g := c.lockPair(owner, b.home)
	if b.refcnt <= 1 {
		dev, blockno := b.dev, b.blockno
		g.unlock()
		c.fatal(context.Background(), "bunpin", dev, blockno, ErrPinUnderflow)
	}
	b.refcnt--
	g.unlock()
}
