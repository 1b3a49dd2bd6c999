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
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRelease_NotHeld(t *testing.T) {
	t.Parallel()

	c, _ := newTestCache(t, 3, 6)
	b := mustRead(t, c, 0, 3)
	c.Release(b)

	fe := requireFatal(t, ErrNotHeld, func() {
		c.Release(b)
	})
	require.Equal(t, "brelse", fe.Op)
	require.NoError(t, c.Check())
}

func TestRelease_FreesBuffer(t *testing.T) {
	t.Parallel()

	c, _ := newTestCache(t, 3, 6)
	b := mustRead(t, c, 0, 3)
	require.Equal(t, uint32(1), b.refcnt)
	require.Equal(t, int32(0), b.owner)
	require.Equal(t, uint32(1), c.buckets[0].length)

	c.Release(b)
	require.Equal(t, uint32(0), b.refcnt)
	require.Equal(t, nilIndex, b.owner)
	require.Equal(t, uint32(0), c.buckets[0].length)
	require.Equal(t, nilIndex, c.buckets[0].head)
	require.Equal(t, int64(1), c.Stats().Evictions())
}

func TestRelease_WaiterGetsSameBuffer(t *testing.T) {
	t.Parallel()

	c, _ := newTestCache(t, 3, 6)
	b := mustRead(t, c, 0, 7)

	got := make(chan *Buf, 1)
	go func() {
		other, err := c.Read(context.Background(), 0, 7)
		if err != nil {
			other = nil
		}
		got <- other
	}()

	require.Eventually(t, func() bool {
		return b.lock.Waiters() == 1
	}, 5*time.Second, time.Millisecond)
	copy(b.Data(), fill(7))
	c.Release(b)

	var other *Buf
	select {
	case other = <-got:
	case <-time.After(5 * time.Second):
		t.Fatal("waiter was not woken up")
	}
	require.Same(t, b.slot, other.slot)
	require.Equal(t, fill(7), other.Data())
	require.Equal(t, int64(1), c.Stats().DeviceReads())
	c.Release(other)
	require.NoError(t, c.Check())
}

func TestPin_KeepsBufferCached(t *testing.T) {
	t.Parallel()

	c, _ := newTestCache(t, 3, 3)
	b := mustRead(t, c, 0, 2)
	c.Pin(b)
	c.Release(b)
	require.Equal(t, uint32(1), b.refcnt)
	require.Equal(t, int32(2), b.owner)

	// the only buffer of bucket 2 is pinned, so block 5 has to borrow.
	other := mustRead(t, c, 0, 5)
	require.NotSame(t, b.slot, other.slot)
	require.NotEqual(t, int32(2), other.home)
	c.Release(other)

	again := mustRead(t, c, 0, 2)
	require.Same(t, b.slot, again.slot)
	require.Equal(t, uint32(2), again.refcnt)
	c.Unpin(again)
	c.Release(again)
	require.Equal(t, nilIndex, b.owner)
	require.NoError(t, c.Check())
}

func TestPin_NotThreaded(t *testing.T) {
	t.Parallel()

	c, _ := newTestCache(t, 3, 6)
	b := mustRead(t, c, 0, 1)
	c.Release(b)

	fe := requireFatal(t, ErrNotThreaded, func() {
		c.Pin(b)
	})
	require.Equal(t, "bpin", fe.Op)

	fe = requireFatal(t, ErrNotThreaded, func() {
		c.Unpin(b)
	})
	require.Equal(t, "bunpin", fe.Op)
}

func TestUnpin_Underflow(t *testing.T) {
	t.Parallel()

	c, _ := newTestCache(t, 3, 6)
	b := mustRead(t, c, 0, 4)

	requireFatal(t, ErrPinUnderflow, func() {
		c.Unpin(b)
	})

	// nothing changed and no bucket lock is left behind.
	require.Equal(t, uint32(1), b.refcnt)
	require.NoError(t, c.Check())
	c.Release(b)
	require.NoError(t, c.Check())
}

func TestRelease_TwiceWithWaiter(t *testing.T) {
	t.Parallel()

	c, _ := newTestCache(t, 3, 3)
	first := mustRead(t, c, 0, 0)

	got := make(chan *Buf, 1)
	go func() {
		b, err := c.Read(context.Background(), 0, 0)
		if err != nil {
			b = nil
		}
		got <- b
	}()
	require.Eventually(t, func() bool {
		return first.lock.Waiters() == 1
	}, 5*time.Second, time.Millisecond)

	c.Release(first)
	var second *Buf
	select {
	case second = <-got:
	case <-time.After(5 * time.Second):
		t.Fatal("waiter was not woken up")
	}
	require.NotNil(t, second)
	require.Same(t, first.slot, second.slot)

	// the first hold is over, even though the block is held again.
	fe := requireFatal(t, ErrNotHeld, func() {
		c.Release(first)
	})
	require.Equal(t, "brelse", fe.Op)
	requireFatal(t, ErrNotHeld, func() {
		_ = c.Write(context.Background(), first)
	})

	require.True(t, second.held())
	require.Equal(t, uint32(1), second.refcnt)
	require.Equal(t, int32(0), second.owner)
	require.NoError(t, c.Check())

	// block 3 has the same home bucket and must not get the held buffer.
	other := mustRead(t, c, 0, 3)
	require.NotSame(t, second.slot, other.slot)
	c.Release(other)

	c.Release(second)
	require.Equal(t, nilIndex, second.owner)
	require.NoError(t, c.Check())
}
