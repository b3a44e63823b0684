package payroll

import "sync"

// keyedLocker serializes work per EntryKey. Mutexes are reference counted and
// dropped when the last holder unlocks, so the map does not grow with history.
type keyedLocker struct {
	mu    sync.Mutex
	locks map[EntryKey]*keyedMutex
}

type keyedMutex struct {
	mu   sync.Mutex
	refs int
}

func newKeyedLocker() *keyedLocker {
	return &keyedLocker{locks: make(map[EntryKey]*keyedMutex)}
}

// Lock blocks until key is free and returns the matching unlock.
func (l *keyedLocker) Lock(key EntryKey) (unlock func()) {
	l.mu.Lock()
	km, ok := l.locks[key]
	if !ok {
		km = &keyedMutex{}
		l.locks[key] = km
	}
	km.refs++
	l.mu.Unlock()

	km.mu.Lock()
	return func() {
		km.mu.Unlock()
		l.mu.Lock()
		km.refs--
		if km.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}
