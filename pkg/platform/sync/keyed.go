package sync

import (
	"context"
	"sync"
)

// Locker serializes work per resource key (a data subject, in this engine).
// Unlock functions are idempotent.
type Locker interface {
	// Lock acquires exclusive access to key.
	Lock(ctx context.Context, key string) (unlock func(), err error)
	// RLock acquires shared access to key. Implementations without shared
	// mode may hand out an exclusive lock instead.
	RLock(ctx context.Context, key string) (unlock func(), err error)
}

// KeyedRWMutex provides one reader/writer lock per key. Unlike a sharded
// mutex, two distinct keys never contend. Entries are reference counted and
// dropped once the last holder or waiter releases them, so memory tracks the
// number of keys in flight rather than the number of keys ever seen.
type KeyedRWMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	rw   sync.RWMutex
	refs int
}

// NewKeyedRWMutex creates an empty KeyedRWMutex.
func NewKeyedRWMutex() *KeyedRWMutex {
	return &KeyedRWMutex{locks: make(map[string]*keyedEntry)}
}

// Lock blocks until the exclusive lock for key is held. The context is only
// consulted before waiting; in-process locks are short-lived.
func (m *KeyedRWMutex) Lock(ctx context.Context, key string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e := m.acquire(key)
	e.rw.Lock()
	return m.releaser(key, e, e.rw.Unlock), nil
}

// RLock blocks until a shared lock for key is held.
func (m *KeyedRWMutex) RLock(ctx context.Context, key string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e := m.acquire(key)
	e.rw.RLock()
	return m.releaser(key, e, e.rw.RUnlock), nil
}

// Len returns the number of keys currently held or awaited.
func (m *KeyedRWMutex) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}

func (m *KeyedRWMutex) acquire(key string) *keyedEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.locks[key]
	if !ok {
		e = &keyedEntry{}
		m.locks[key] = e
	}
	e.refs++
	return e
}

func (m *KeyedRWMutex) releaser(key string, e *keyedEntry, unlock func()) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			unlock()
			m.mu.Lock()
			e.refs--
			if e.refs == 0 {
				delete(m.locks, key)
			}
			m.mu.Unlock()
		})
	}
}

var _ Locker = (*KeyedRWMutex)(nil)
