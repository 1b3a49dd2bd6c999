package xruntime

import (
	"math/rand/v2"
	"runtime"
)

const (
	// CacheLineSize is useful for preventing false sharing.
	CacheLineSize = 64
)

func Parallelism() uint32 {
	maxProcs := uint32(runtime.GOMAXPROCS(0))
	numCPU := uint32(runtime.NumCPU())
	if maxProcs < numCPU {
		return maxProcs
	}
	return numCPU
}

// Fastrand returns a cheap pseudo-random number suitable for picking a stripe.
func Fastrand() uint32 {
	return rand.Uint32()
}
