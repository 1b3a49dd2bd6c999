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

type op uint8

const (
	opRead op = 1 << iota
	opWrite
)

type fault struct {
	ops op
	err error
}

// Faulty wraps a Device and fails chosen operations.
type Faulty struct {
	dev Device

	mu        sync.Mutex
	rules     *swiss.Map[uint64, fault]
	failAfter int64
	afterErr  error
	ops       int64
}

// NewFaulty returns a Faulty passing every operation through to dev until told otherwise.
func NewFaulty(dev Device) *Faulty {
	return &Faulty{
		dev:       dev,
		rules:     swiss.NewMap[uint64, fault](8),
		failAfter: -1,
	}
}

// FailReads makes reads of block blockno on device dev fail with err (ErrInjected if nil).
func (f *Faulty) FailReads(dev, blockno uint32, err error) {
	f.add(dev, blockno, opRead, err)
}

// FailWrites makes writes of block blockno on device dev fail with err (ErrInjected if nil).
func (f *Faulty) FailWrites(dev, blockno uint32, err error) {
	f.add(dev, blockno, opWrite, err)
}

func (f *Faulty) add(dev, blockno uint32, o op, err error) {
	if err == nil {
		err = ErrInjected
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	k := key(dev, blockno)
	rule, _ := f.rules.Get(k)
	rule.ops |= o
	rule.err = err
	f.rules.Put(k, rule)
}

// FailAfter makes every operation after the next n fail with err (ErrInjected if nil).
// A negative n disables it.
func (f *Faulty) FailAfter(n int64, err error) {
	if err == nil {
		err = ErrInjected
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.failAfter = n
	f.afterErr = err
	f.ops = 0
}

// Heal removes every injected fault of block blockno on device dev.
func (f *Faulty) Heal(dev, blockno uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.rules.Delete(key(dev, blockno))
}

// Reset removes every injected fault.
func (f *Faulty) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.rules.Clear()
	f.failAfter = -1
	f.ops = 0
}

func (f *Faulty) check(dev, blockno uint32, o op) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if rule, ok := f.rules.Get(key(dev, blockno)); ok && rule.ops&o != 0 {
		return rule.err
	}
	if f.failAfter >= 0 {
		if f.ops >= f.failAfter {
			return f.afterErr
		}
		f.ops++
	}
	return nil
}

func (f *Faulty) ReadBlock(ctx context.Context, dev, blockno uint32, p []byte) error {
	if err := f.check(dev, blockno, opRead); err != nil {
		return err
	}
	return f.dev.ReadBlock(ctx, dev, blockno, p)
}

func (f *Faulty) WriteBlock(ctx context.Context, dev, blockno uint32, p []byte) error {
	if err := f.check(dev, blockno, opWrite); err != nil {
		return err
	}
	return f.dev.WriteBlock(ctx, dev, blockno, p)
}
