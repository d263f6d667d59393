package ingest

import (
	"sync"
	"sync/atomic"
)

// loadLock provides non-blocking lock semantics using atomic operations
type loadLock struct {
	state atomic.Int32 // 0 = unlocked, 1 = locked
}

// TryAcquire attempts to acquire the lock without blocking.
// Returns true if the lock was successfully acquired, false otherwise.
func (l *loadLock) TryAcquire() bool {
	return l.state.CompareAndSwap(0, 1)
}

// Release releases the lock.
// Must only be called by the goroutine that successfully acquired the lock.
func (l *loadLock) Release() {
	l.state.Store(0)
}

// lockTable hands out one loadLock per repo id so concurrent loads of the
// same repo are rejected while distinct repos load in parallel
type lockTable struct {
	mu    sync.Mutex
	locks map[string]*loadLock
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[string]*loadLock)}
}

func (t *lockTable) forRepo(repoID string) *loadLock {
	t.mu.Lock()
	defer t.mu.Unlock()
	lock, ok := t.locks[repoID]
	if !ok {
		lock = &loadLock{}
		t.locks[repoID] = lock
	}
	return lock
}
