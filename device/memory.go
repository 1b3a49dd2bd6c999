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
	"sync"

	"github.com/dolthub/swiss"
)

// Memory is a sparse in-memory disk. Blocks that were never written read as zeros.
type Memory struct {
	mu        sync.RWMutex
	blocks    *swiss.Map[uint64, []byte]
	blockSize int
	nblocks   uint32
}

// NewMemory returns an empty Memory with blocks of blockSize bytes. nblocks bounds the block
// numbers of every device; zero means unbounded.
func NewMemory(blockSize int, nblocks uint32) *Memory {
	return &Memory{
		blocks:    swiss.NewMap[uint64, []byte](64),
		blockSize: blockSize,
		nblocks:   nblocks,
	}
}

func (m *Memory) ReadBlock(ctx context.Context, dev, blockno uint32, p []byte) error {
	if err := checkBlock(m.blockSize, m.nblocks, blockno, p); err != nil {
		return err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.blocks.Get(key(dev, blockno))
	if !ok {
		clear(p)
		return nil
	}
	copy(p, data)
	return nil
}

func (m *Memory) WriteBlock(ctx context.Context, dev, blockno uint32, p []byte) error {
	if err := checkBlock(m.blockSize, m.nblocks, blockno, p); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	k := key(dev, blockno)
	data, ok := m.blocks.Get(k)
	if !ok {
		data = make([]byte, m.blockSize)
		m.blocks.Put(k, data)
	}
	copy(data, p)
	return nil
}

// Written returns the number of distinct blocks ever written.
func (m *Memory) Written() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.blocks.Count()
}
