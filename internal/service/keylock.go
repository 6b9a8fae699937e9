package service

import "sync"

// keyLock hands out one mutex per key. Entries are reference counted and
// removed when the last holder unlocks, so the map only ever holds keys
// that are currently in use.
type keyLock[K comparable] struct {
	mu    sync.Mutex
	locks map[K]*keyLockEntry
}

type keyLockEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyLock[K comparable]() *keyLock[K] {
	return &keyLock[K]{locks: make(map[K]*keyLockEntry)}
}

// Lock blocks until key is free and returns the matching unlock function.
func (k *keyLock[K]) Lock(key K) func() {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &keyLockEntry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
