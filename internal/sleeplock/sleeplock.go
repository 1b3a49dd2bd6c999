// Package sleeplock provides a lock whose waiters park instead of spinning.
//
// Ownership is handed directly to the longest waiting goroutine on Unlock, so a
// goroutine that has just released the lock cannot barge in front of the queue.
package sleeplock

import (
	"sync"

	"github.com/gammazero/deque"
)

// Token identifies one acquisition of a Lock. The zero Token never holds a lock.
type Token uint64

// Lock is a FIFO lock that may block the calling goroutine.
//
// Every acquisition returns a new Token and only that Token can release it, so a
// stale holder can not unlock on behalf of the goroutine the lock was handed to.
type Lock struct {
	mu      sync.Mutex
	locked  bool
	gen     Token
	waiters *deque.Deque[chan Token]
}

// New returns an unlocked Lock.
func New() *Lock {
	return &Lock{
		waiters: deque.New[chan Token](),
	}
}

// Lock acquires l, parking the calling goroutine until l is handed to it.
func (l *Lock) Lock() Token {
	l.mu.Lock()
	if !l.locked {
		l.locked = true
		l.gen++
		t := l.gen
		l.mu.Unlock()
		return t
	}

	ready := make(chan Token, 1)
	l.waiters.PushBack(ready)
	l.mu.Unlock()

	// locked stays true across the hand-off.
	return <-ready
}

// Unlock releases the acquisition identified by t, or passes l to the first waiter if
// there is one. It reports false and leaves l untouched if t does not hold l.
func (l *Lock) Unlock(t Token) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.locked || t != l.gen {
		return false
	}
	l.gen++
	if l.waiters.Len() > 0 {
		l.waiters.PopFront() <- l.gen
		return true
	}
	l.locked = false
	return true
}

// Holding reports whether t holds l.
func (l *Lock) Holding(t Token) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.locked && t == l.gen
}

// Locked reports whether l is held by anyone.
func (l *Lock) Locked() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.locked
}

// Waiters returns the number of goroutines parked on l.
func (l *Lock) Waiters() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.waiters.Len()
}
