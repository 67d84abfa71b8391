// ABOUTME: Per-key mutual exclusion for reconciliation passes
// ABOUTME: Serializes multi-step read-modify-write sequences on one lead
package db

import "sync"

// KeyLock provides single-writer-per-key discipline. A reconciliation pass
// holds the lock for its lead across the whole check-store, call-remote,
// write-store sequence; passes on distinct keys never block each other.
type KeyLock struct {
	mu    sync.Mutex
	locks map[string]*keyEntry
}

type keyEntry struct {
	mu   sync.Mutex
	refs int
}

// NewKeyLock creates an empty lock table.
func NewKeyLock() *KeyLock {
	return &KeyLock{locks: make(map[string]*keyEntry)}
}

// Lock acquires the mutex for key, creating it on first use.
func (kl *KeyLock) Lock(key string) {
	kl.mu.Lock()
	e, ok := kl.locks[key]
	if !ok {
		e = &keyEntry{}
		kl.locks[key] = e
	}
	e.refs++
	kl.mu.Unlock()

	e.mu.Lock()
}

// Unlock releases the mutex for key and drops the entry once nobody waits.
func (kl *KeyLock) Unlock(key string) {
	kl.mu.Lock()
	e, ok := kl.locks[key]
	if ok {
		e.refs--
		if e.refs == 0 {
			delete(kl.locks, key)
		}
	}
	kl.mu.Unlock()

	if ok {
		e.mu.Unlock()
	}
}
