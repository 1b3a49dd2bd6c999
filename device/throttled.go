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

	"golang.org/x/time/rate"
)

// Throttled wraps a Device and limits the number of block operations per second.
type Throttled struct {
	dev     Device
	limiter *rate.Limiter
}

// NewThrottled allows opsPerSec operations per second on dev with bursts of up to burst operations.
func NewThrottled(dev Device, opsPerSec float64, burst int) *Throttled {
	if burst < 1 {
		burst = 1
	}
	return &Throttled{
		dev:     dev,
		limiter: rate.NewLimiter(rate.Limit(opsPerSec), burst),
	}
}

func (t *Throttled) ReadBlock(ctx context.Context, dev, blockno uint32, p []byte) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	return t.dev.ReadBlock(ctx, dev, blockno, p)
}

func (t *Throttled) WriteBlock(ctx context.Context, dev, blockno uint32, p []byte) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	return t.dev.WriteBlock(ctx, dev, blockno, p)
}
