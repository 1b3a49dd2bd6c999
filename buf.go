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
	"github.com/blkio/bcache/internal/sleeplock"
)

const nilIndex int32 = -1

// slot is one buffer of the arena. Its content lock is taken by every reference holder in turn.
type slot struct {
	// lock guards data and valid while the slot is referenced.
	lock *sleeplock.Lock
	data []byte

	// The fields below are guarded by the lock of the home bucket and, while the slot is
	// threaded, by the lock of the owner bucket as well. Writers hold both.
	hash    uint64
	dev     uint32
	blockno uint32
	refcnt  uint32
	owner   int32
	next    int32
	valid   bool

	// home and idx never change after New.
	home int32
	idx  int32
}

func newSlot(idx, home int32, data []byte) slot {
	return slot{
		lock:  sleeplock.New(),
		data:  data,
		owner: nilIndex,
		next:  nilIndex,
		home:  home,
		idx:   idx,
	}
}

func (s *slot) matches(dev, blockno uint32, hash uint64) bool {
	return s.dev == dev && s.blockno == blockno && s.hash == hash
}

func (s *slot) claim(dev, blockno uint32, hash uint64, owner int32) {
	s.dev = dev
	s.blockno = blockno
	s.hash = hash
	s.valid = false
	s.refcnt = 1
	s.owner = owner
	s.next = nilIndex
}

func (s *slot) revive(owner int32) {
	s.refcnt = 1
	s.owner = owner
	s.next = nilIndex
}

// free keeps the key and valid, so the block can be revived by its next lookup.
func (s *slot) free() {
	s.refcnt = 0
	s.owner = nilIndex
	s.next = nilIndex
}

// Buf is one hold of an in-memory copy of a disk block.
//
// A Buf returned by Cache.Read is held exclusively by the caller until it is passed to
// Cache.Release. Every Read returns a new Buf, and a released Buf can not be released
// or written again even when another caller holds the same block by then.
type Buf struct {
	*slot

	token sleeplock.Token
}

// Data returns the block payload. It may be read and modified while the Buf is held.
func (b *Buf) Data() []byte {
	return b.data
}

func (b *Buf) Dev() uint32 {
	return b.dev
}

func (b *Buf) BlockNo() uint32 {
	return b.blockno
}

// Valid reports whether the payload holds the block as read from the device.
func (b *Buf) Valid() bool {
	return b.valid
}

func (b *Buf) held() bool {
	return b.lock.Holding(b.token)
}
