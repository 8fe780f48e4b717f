package store

import (
	"bytes"
	"sort"
	"sync"
)

// KeyLocker serializes work on named resources. Holders of disjoint key
// sets run in parallel, holders sharing at least one key run one after
// another. An empty key set takes an exclusive lock over everything.
//
// Keys are always acquired in ascending order, so two holders can never
// wait on each other.
type KeyLocker struct {
	global sync.RWMutex

	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	sync.Mutex
	refs int
}

// NewKeyLocker returns a locker without any key held.
func NewKeyLocker() *KeyLocker {
	return &KeyLocker{locks: make(map[string]*keyLock)}
}

// Lock blocks until all given keys are held and returns the function that
// releases them.
func (k *KeyLocker) Lock(keys [][]byte) (unlock func()) {
	if len(keys) == 0 {
		k.global.Lock()
		return k.global.Unlock
	}

	k.global.RLock()
	names := uniqueSorted(keys)
	held := make([]*keyLock, 0, len(names))
	for _, name := range names {
		l := k.acquire(name)
		l.Lock()
		held = append(held, l)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
			k.release(names[i])
		}
		k.global.RUnlock()
	}
}

func (k *KeyLocker) acquire(name string) *keyLock {
	k.mu.Lock()
	defer k.mu.Unlock()
	l, ok := k.locks[name]
	if !ok {
		l = &keyLock{}
		k.locks[name] = l
	}
	l.refs++
	return l
}

func (k *KeyLocker) release(name string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	l := k.locks[name]
	l.refs--
	if l.refs == 0 {
		delete(k.locks, name)
	}
}

func uniqueSorted(keys [][]byte) []string {
	sorted := make([][]byte, len(keys))
	copy(sorted, keys)
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i], sorted[j]) < 0
	})
	names := make([]string, 0, len(sorted))
	for i, key := range sorted {
		if i > 0 && bytes.Equal(key, sorted[i-1]) {
			continue
		}
		names = append(names, string(key))
	}
	return names
}
