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

// Package device provides block devices for a bcache.Cache.
//
// Memory and File store blocks; Faulty, Throttled and Checksummed wrap another Device to inject
// failures, limit the operation rate and verify contents.
package device

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrOutOfRange is returned for a block number beyond the end of the device.
	ErrOutOfRange = errors.New("device: block out of range")
	// ErrBlockSize is returned when the buffer does not have the device's block size.
	ErrBlockSize = errors.New("device: wrong block size")
	// ErrNotAttached is returned for a device number with no backing storage.
	ErrNotAttached = errors.New("device: device not attached")
	// ErrInjected is the default error returned by Faulty.
	ErrInjected = errors.New("device: injected fault")
	// ErrChecksum is returned by Checksummed when a block does not match what was last written.
	ErrChecksum = errors.New("device: checksum mismatch")
)

// Device reads and writes whole blocks. It has the same method set as bcache.BlockDevice.
type Device interface {
	ReadBlock(ctx context.Context, dev, blockno uint32, p []byte) error
	WriteBlock(ctx context.Context, dev, blockno uint32, p []byte) error
}

func key(dev, blockno uint32) uint64 {
	return uint64(dev)<<32 | uint64(blockno)
}

func checkBlock(blockSize int, nblocks, blockno uint32, p []byte) error {
	if len(p) != blockSize {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrBlockSize, len(p), blockSize)
	}
	if nblocks > 0 && blockno >= nblocks {
		return fmt.Errorf("%w: block %d of %d", ErrOutOfRange, blockno, nblocks)
	}
	return nil
}
