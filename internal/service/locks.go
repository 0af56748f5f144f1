package service

import "sync"

// CartLocks serializes read-modify-save sequences per cart id. Entries are
// reference counted and dropped when the last holder unlocks.
type CartLocks struct {
	mu    sync.Mutex
	locks map[string]*cartLock
}

type cartLock struct {
	mu   sync.Mutex
	refs int
}

// NewCartLocks creates an empty lock table.
func NewCartLocks() *CartLocks {
	return &CartLocks{locks: make(map[string]*cartLock)}
}

// Lock blocks until the caller holds the lock for id and returns its release func.
func (l *CartLocks) Lock(id string) func() {
	l.mu.Lock()
	lk, ok := l.locks[id]
	if !ok {
		lk = &cartLock{}
		l.locks[id] = lk
	}
	lk.refs++
	l.mu.Unlock()

	lk.mu.Lock()
	return func() {
		lk.mu.Unlock()
		l.mu.Lock()
		lk.refs--
		if lk.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}

func (l *CartLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
