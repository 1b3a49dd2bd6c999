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
	"encoding/binary"

	"github.com/dolthub/maphash"
	"github.com/zeebo/xxh3"
)

// Key identifies a disk block.
type Key struct {
	Dev     uint32
	BlockNo uint32
}

// Hasher combines a device number and a block number into the hash that is stored with a cached
// buffer and selects its home bucket.
//
// A Hasher must be deterministic for the lifetime of a Cache.
type Hasher func(dev, blockno uint32) uint64

// PackedHasher places dev in the high and blockno in the low 32 bits.
//
// It is injective, so two different blocks never share a hash.
func PackedHasher(dev, blockno uint32) uint64 {
	return uint64(dev)<<32 | uint64(blockno)
}

// XXH3Hasher hashes the packed key with xxh3. It spreads strided block numbers better than
// PackedHasher when the bucket count divides the stride.
func XXH3Hasher(dev, blockno uint32) uint64 {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], PackedHasher(dev, blockno))
	return xxh3.Hash(b[:])
}

// NewMapHasher returns a Hasher backed by the runtime map hash with a random per-process seed.
func NewMapHasher() Hasher {
	h := maphash.NewHasher[Key]()
	return func(dev, blockno uint32) uint64 {
		return h.Hash(Key{Dev: dev, BlockNo: blockno})
	}
}
