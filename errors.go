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
	"fmt"
)

var (
	// ErrIO wraps every error returned by the BlockDevice.
	ErrIO = errors.New("bcache: device i/o failed")

	// ErrNoBuffers means that every buffer in the table is referenced and a miss could not be served.
	ErrNoBuffers = errors.New("no buffers")
	// ErrNotHeld means that a buffer was used without holding its content lock.
	ErrNotHeld = errors.New("buffer not held")
	// ErrNotThreaded means that a buffer was used after its last reference was dropped.
	ErrNotThreaded = errors.New("buffer not in any list")
	// ErrPinUnderflow means that Unpin would drop the last reference of a cached buffer.
	ErrPinUnderflow = errors.New("unpin of last reference")
	// ErrCorrupt means that a bucket list does not contain a buffer that claims to be in it.
	ErrCorrupt = errors.New("bucket list corrupt")
)

// FatalError is the value the Cache panics with when it detects misuse or exhaustion.
//
// These conditions are never returned as ordinary errors: they mean that an invariant of the
// caller or of the cache configuration was violated and the cache cannot continue safely.
// Use errors.Is on a recovered *FatalError to find the cause.
type FatalError struct {
	Op      string
	Dev     uint32
	BlockNo uint32
	Err     error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("bcache: %s dev %d block %d: %v", e.Op, e.Dev, e.BlockNo, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}
