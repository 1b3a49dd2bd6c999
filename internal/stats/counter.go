package stats

import (
	"sync"
	"sync/atomic"

	"github.com/blkio/bcache/internal/xmath"
	"github.com/blkio/bcache/internal/xruntime"
)

// probes remembers the stripe a goroutine last used, so that it keeps hitting the same cache line
// until it collides with another goroutine there.
var probes = sync.Pool{
	New: func() any {
		return &probe{idx: xruntime.Fastrand()}
	},
}

type probe struct {
	idx uint32
}

// counter is a monotonic event counter striped over cache-line padded cells.
//
// The hot paths of a Cache bump several counters per lookup from every goroutine, so a
// single atomic word would bounce between cores.
type counter struct {
	stripes []stripe
	mask    uint32
}

type stripe struct {
	n       atomic.Int64
	padding [xruntime.CacheLineSize - 8]byte
}

func newCounter() *counter {
	nstripes := xmath.RoundUpPowerOf2(xruntime.Parallelism())
	return &counter{
		stripes: make([]stripe, nstripes),
		mask:    nstripes - 1,
	}
}

// increment adds one. A contended stripe moves the goroutine's probe, the increment itself
// never retries.
func (c *counter) increment() {
	p := probes.Get().(*probe)
	s := &c.stripes[p.idx&c.mask]
	n := s.n.Load()
	if !s.n.CompareAndSwap(n, n+1) {
		p.idx = xruntime.Fastrand()
		c.stripes[p.idx&c.mask].n.Add(1)
	}
	probes.Put(p)
}

func (c *counter) value() int64 {
	var v int64
	for i := range c.stripes {
		v += c.stripes[i].n.Load()
	}
	return v
}

// reset zeroes every stripe. Increments racing with it may survive.
func (c *counter) reset() {
	for i := range c.stripes {
		c.stripes[i].n.Store(0)
	}
}
