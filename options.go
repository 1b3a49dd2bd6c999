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
	"errors"

	"github.com/blkio/bcache/internal/xmath"
)

const (
	defaultBuckets   = 13
	defaultBuffers   = 65
	defaultBlockSize = 1024
)

// Options should be passed to New to construct a Cache.
type Options struct {
	// Buckets specifies the number of hash buckets. It must be prime.
	//
	// The default is 13.
	Buckets int
	// Buffers specifies the minimum total number of buffers. Every bucket gets
	// ceil(Buffers / Buckets) buffers in its pool, so the real capacity may be slightly larger.
	// There must be at least one buffer per bucket.
	//
	// The default is 65.
	Buffers int
	// BlockSize specifies the payload size of one buffer in bytes.
	//
	// The default is 1024.
	BlockSize int
	// Device is the block device buffers are filled from and written to. It is required.
	Device BlockDevice
	// Hasher maps a (device, block number) pair to the hash that selects its home bucket.
	//
	// The default is PackedHasher.
	Hasher Hasher
	// StatsEnabled determines whether statistics should be collected.
	//
	// Lock statistics are always collected.
	StatsEnabled bool
	// Logger specifies the Logger implementation that will be used for logging device failures and
	// fatal conditions.
	//
	// The default wraps slog.Default().
	Logger Logger
}

func (o *Options) validate() error {
	if o.Device == nil {
		return errors.New("bcache: device is required")
	}
	if o.Buckets < 0 {
		return errors.New("bcache: buckets should be positive")
	}
	if o.Buckets > 0 && !xmath.IsPrime(o.Buckets) {
		return errors.New("bcache: buckets should be prime")
	}
	if o.Buffers < 0 {
		return errors.New("bcache: buffers should be positive")
	}
	if o.Buffers > 0 && o.Buffers < o.getBuckets() {
		return errors.New("bcache: buffers should not be less than buckets")
	}
	if o.BlockSize < 0 {
		return errors.New("bcache: block size should be positive")
	}

	return nil
}

func (o *Options) getBuckets() int {
	if o.Buckets > 0 {
		return o.Buckets
	}
	return defaultBuckets
}

func (o *Options) setDefaults() {
	o.Buckets = o.getBuckets()
	if o.Buffers == 0 {
		o.Buffers = defaultBuffers
	}
	if o.BlockSize == 0 {
		o.BlockSize = defaultBlockSize
	}
	if o.Hasher == nil {
		o.Hasher = PackedHasher
	}
	if o.Logger == nil {
		o.Logger = newDefaultLogger()
	}
}
