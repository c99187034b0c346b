package utils

import (
	"sort"
	"sync"
)

// KeyedMutex serializes work per string key. The ledger uses one instance to
// serialize stock mutations per material and another to serialize sale
// emission per operation key. Mutexes are never evicted; the key space is
// bounded by the material and operation catalogs.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewKeyedMutex creates an empty keyed mutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*sync.Mutex)}
}

func (k *KeyedMutex) get(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	return m
}

// Lock acquires the mutex for key, creating it on first use.
func (k *KeyedMutex) Lock(key string) {
	k.get(key).Lock()
}

// Unlock releases the mutex for key.
func (k *KeyedMutex) Unlock(key string) {
	k.get(key).Unlock()
}

// LockAll acquires several keys at once, deduplicated and in sorted order so
// concurrent multi-key callers cannot deadlock. It returns the keys in
// acquisition order; pass them to UnlockAll.
func (k *KeyedMutex) LockAll(keys []string) []string {
	seen := make(map[string]bool, len(keys))
	ordered := make([]string, 0, len(keys))
	for _, key := range keys {
		if !seen[key] {
			seen[key] = true
			ordered = append(ordered, key)
		}
	}
	sort.Strings(ordered)
	for _, key := range ordered {
		k.Lock(key)
	}
	return ordered
}

// UnlockAll releases keys previously acquired with LockAll.
func (k *KeyedMutex) UnlockAll(keys []string) {
	for i := len(keys) - 1; i >= 0; i-- {
		k.Unlock(keys[i])
	}
}
