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
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"github.com/blkio/bcache/internal/xruntime"
)

func TestPaddedBucket_Size(t *testing.T) {
	t.Parallel()

	require.Equal(t, uintptr(xruntime.CacheLineSize), unsafe.Sizeof(paddedBucket{}))
}

func TestBucket_PushUnlink(t *testing.T) {
	t.Parallel()

	bufs := make([]slot, 4)
	for i := range bufs {
		bufs[i] = newSlot(int32(i), 0, nil)
	}
	bk := bucket{head: nilIndex}
	for i := range bufs {
		bk.push(&bufs[i])
	}
	require.Equal(t, uint32(4), bk.length)
	require.Equal(t, int32(3), bk.head)

	// middle, head, tail, then the last one.
	require.True(t, bk.unlink(bufs, &bufs[1]))
	require.True(t, bk.unlink(bufs, &bufs[3]))
	require.True(t, bk.unlink(bufs, &bufs[0]))
	require.Equal(t, uint32(1), bk.length)
	require.Equal(t, int32(2), bk.head)
	require.Equal(t, nilIndex, bufs[2].next)

	require.False(t, bk.unlink(bufs, &bufs[1]))
	require.True(t, bk.unlink(bufs, &bufs[2]))
	require.Equal(t, nilIndex, bk.head)
	require.Zero(t, bk.length)
}

func TestCache_LockPair(t *testing.T) {
	t.Parallel()

	c, _ := newTestCache(t, 5, 5)

	g := c.lockPair(3, 1)
	require.True(t, c.buckets[1].lock.Locked())
	require.True(t, c.buckets[3].lock.Locked())
	require.Same(t, &c.buckets[1], g.first)
	g.unlock()
	require.False(t, c.buckets[1].lock.Locked())
	require.False(t, c.buckets[3].lock.Locked())

	g = c.lockPair(2, 2)
	require.True(t, c.buckets[2].lock.Locked())
	require.Nil(t, g.second)
	g.unlock()
	require.False(t, c.buckets[2].lock.Locked())
}

func TestCache_LockAlso(t *testing.T) {
	t.Parallel()

	c, _ := newTestCache(t, 5, 5)

	c.buckets[1].lock.Lock()
	require.False(t, c.lockAlso(3, 1), "a lower bucket is only tried")
	c.buckets[1].lock.Unlock()

	require.True(t, c.lockAlso(3, 1))
	require.True(t, c.lockAlso(1, 4))
	c.buckets[1].lock.Unlock()
	c.buckets[4].lock.Unlock()
}
