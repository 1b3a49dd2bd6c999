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

package device

import (
	"context"
	"fmt"
	"sync"

	"github.com/dolthub/swiss"
	"github.com/zeebo/xxh3"
)

// Checksummed wraps a Device, remembers the xxh3 digest of every block written through it and
// verifies blocks against it when they are read back.
//
// Writes of the same block must not race; a bcache.Cache guarantees that by holding the buffer.
type Checksummed struct {
	dev Device

	mu   sync.Mutex
	sums *swiss.Map[uint64, uint64]
}

func NewChecksummed(dev Device) *Checksummed {
	return &Checksummed{
		dev:  dev,
		sums: swiss.NewMap[uint64, uint64](64),
	}
}

func (c *Checksummed) ReadBlock(ctx context.Context, dev, blockno uint32, p []byte) error {
	if err := c.dev.ReadBlock(ctx, dev, blockno, p); err != nil {
		return err
	}

	c.mu.Lock()
	want, ok := c.sums.Get(key(dev, blockno))
	c.mu.Unlock()

	if ok {
		if got := xxh3.Hash(p); got != want {
			return fmt.Errorf("%w: dev %d block %d: got %016x, want %016x", ErrChecksum, dev, blockno, got, want)
		}
	}
	return nil
}

func (c *Checksummed) WriteBlock(ctx context.Context, dev, blockno uint32, p []byte) error {
	sum := xxh3.Hash(p)
	if err := c.dev.WriteBlock(ctx, dev, blockno, p); err != nil {
		return err
	}

	c.mu.Lock()
	c.sums.Put(key(dev, blockno), sum)
	c.mu.Unlock()
	return nil
}

// Verified returns the number of blocks with a recorded digest.
func (c *Checksummed) Verified() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.sums.Count()
}
