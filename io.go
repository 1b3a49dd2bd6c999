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
	"fmt"
)

// BlockDevice reads and writes whole blocks. p always has the cache's block size.
//
// The cache never holds a bucket lock while calling a BlockDevice, but it does hold the
// content lock of the buffer whose payload is passed in.
type BlockDevice interface {
	ReadBlock(ctx context.Context, dev, blockno uint32, p []byte) error
	WriteBlock(ctx context.Context, dev, blockno uint32, p []byte) error
}

// Read returns the held buffer of block blockno on device dev, reading it from the device
// if the cached copy is not valid. It blocks while another goroutine holds the buffer;
// ctx only applies to the device read.
//
// If the device fails, the buffer is released, stays invalid and the error wraps ErrIO.
// Read panics with a *FatalError wrapping ErrNoBuffers if no buffer is free.
func (c *Cache) Read(ctx context.Context, dev, blockno uint32) (*Buf, error) {
	b := c.get(dev, blockno)
	if b.valid {
		return b, nil
	}

	if err := c.device.ReadBlock(ctx, dev, blockno, b.data); err != nil {
		c.stats.IncIOErrors()
		err = fmt.Errorf("%w: read dev %d block %d: %w", ErrIO, dev, blockno, err)
		c.logger.Warn(ctx, "bcache: read failed", err)
		c.Release(b)
		return nil, err
	}
	c.stats.IncReads()
	b.valid = true

	return b, nil
}

// Write writes the payload of b to the device. The caller must hold b; b stays held.
func (c *Cache) Write(ctx context.Context, b *Buf) error {
	if !b.held() {
		c.fatal(ctx, "bwrite", b.dev, b.blockno, ErrNotHeld)
	}

	if err := c.device.WriteBlock(ctx, b.dev, b.blockno, b.data); err != nil {
		c.stats.IncIOErrors()
		err = fmt.Errorf("%w: write dev %d block %d: %w", ErrIO, b.dev, b.blockno, err)
		c.logger.Warn(ctx, "bcache: write failed", err)
		return err
	}
	c.stats.IncWrites()

	return nil
}
