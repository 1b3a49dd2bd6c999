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

//go:build unix

package device

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// File stores each device number in its own image file, block n at offset n*blockSize.
// Reads past the end of an image return zeros.
type File struct {
	mu        sync.RWMutex
	files     map[uint32]*os.File
	blockSize int
	nblocks   uint32
}

// NewFile returns a File with no attached images. nblocks bounds the block numbers of every
// device; zero means unbounded.
func NewFile(blockSize int, nblocks uint32) *File {
	return &File{
		files:     make(map[uint32]*os.File),
		blockSize: blockSize,
		nblocks:   nblocks,
	}
}

// Attach opens (creating if needed) the image at path as device dev.
func (f *File) Attach(dev uint32, path string) error {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("device: attach %d: %w", dev, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if old, ok := f.files[dev]; ok {
		_ = old.Close()
	}
	f.files[dev] = file
	return nil
}

// file returns the image of dev. The caller holds f.mu for as long as it uses the descriptor,
// so Attach and Close can not close it under a running pread or pwrite.
func (f *File) file(dev uint32) (*os.File, error) {
	file, ok := f.files[dev]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNotAttached, dev)
	}
	return file, nil
}

func (f *File) ReadBlock(ctx context.Context, dev, blockno uint32, p []byte) error {
	if err := checkBlock(f.blockSize, f.nblocks, blockno, p); err != nil {
		return err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()

	file, err := f.file(dev)
	if err != nil {
		return err
	}

	off := int64(blockno) * int64(f.blockSize)
	read := 0
	for read < len(p) {
		n, err := unix.Pread(int(file.Fd()), p[read:], off+int64(read))
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return fmt.Errorf("device: pread %s: %w", file.Name(), err)
		}
		if n == 0 {
			clear(p[read:])
			break
		}
		read += n
	}
	return nil
}

func (f *File) WriteBlock(ctx context.Context, dev, blockno uint32, p []byte) error {
	if err := checkBlock(f.blockSize, f.nblocks, blockno, p); err != nil {
		return err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()

	file, err := f.file(dev)
	if err != nil {
		return err
	}

	off := int64(blockno) * int64(f.blockSize)
	written := 0
	for written < len(p) {
		n, err := unix.Pwrite(int(file.Fd()), p[written:], off+int64(written))
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return fmt.Errorf("device: pwrite %s: %w", file.Name(), err)
		}
		written += n
	}
	return nil
}

// Sync flushes every attached image to stable storage.
func (f *File) Sync() error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	var errs []error
	for _, file := range f.files {
		if err := unix.Fsync(int(file.Fd())); err != nil {
			errs = append(errs, fmt.Errorf("device: fsync %s: %w", file.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Close closes every attached image.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var errs []error
	for dev, file := range f.files {
		if err := file.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(f.files, dev)
	}
	return errors.Join(errs...)
}
