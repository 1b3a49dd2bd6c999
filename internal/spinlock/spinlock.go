package spinlock

import (
	"runtime"
	"sync/atomic"
)

const maxSpins = 16

// SpinLock is an implementation of spinlock that also counts how it was acquired.
//
// The zero value is an unlocked SpinLock. A SpinLock is not reentrant: locking it twice
// from the same goroutine without an Unlock in between never returns.
type SpinLock struct {
	state    atomic.Uint32
	acquires atomic.Uint64
	spins    atomic.Uint64
}

// Lock locks sl. If the lock is already in use, the calling goroutine spins until the spinlock is available.
func (sl *SpinLock) Lock() {
	spins := 0
	var failed uint64
	for {
		for sl.state.Load() == 1 {
			failed++
			spins++
			if spins > maxSpins {
				spins = 0
				runtime.Gosched()
			}
		}

		if sl.state.CompareAndSwap(0, 1) {
			break
		}

		failed++
		spins = 0
	}

	sl.acquires.Add(1)
	if failed > 0 {
		sl.spins.Add(failed)
	}
}

// TryLock tries to lock sl and reports whether it succeeded.
func (sl *SpinLock) TryLock() bool {
	if sl.state.CompareAndSwap(0, 1) {
		sl.acquires.Add(1)
		return true
	}
	sl.spins.Add(1)
	return false
}

// Unlock unlocks sl. A locked SpinLock is not associated with a particular goroutine.
// It is allowed for one goroutine to lock a SpinLock and then arrange for another goroutine to unlock it.
//
// Unlocking an unlocked SpinLock panics.
func (sl *SpinLock) Unlock() {
	if sl.state.Swap(0) == 0 {
		panic("spinlock: unlock of unlocked spinlock")
	}
}

// Locked reports whether sl is currently held by someone.
func (sl *SpinLock) Locked() bool {
	return sl.state.Load() == 1
}

// Acquires returns the number of successful acquisitions.
func (sl *SpinLock) Acquires() uint64 {
	return sl.acquires.Load()
}

// Spins returns the number of failed test-and-set attempts.
func (sl *SpinLock) Spins() uint64 {
	return sl.spins.Load()
}
