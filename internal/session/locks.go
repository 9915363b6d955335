// Package session provides per-thread serialization and session identity
// helpers.
package session

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// KeyedMutex serializes work per key while leaving distinct keys fully
// independent. It backs the one-in-flight-turn-per-thread contract: the
// checkpoint store is the only shared mutable resource, and all access to a
// thread's checkpoint happens under that thread's lock.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// NewKeyedMutex creates an empty keyed mutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*entry)}
}

// Lock acquires the lock for key, blocking while another caller holds it.
func (k *KeyedMutex) Lock(key string) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &entry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
}

// Unlock releases the lock for key and evicts the entry once no caller
// holds or waits on it.
func (k *KeyedMutex) Unlock(key string) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if ok {
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
	}
	k.mu.Unlock()

	if ok {
		e.mu.Unlock()
	}
}

// DefaultSessionID derives a stable session id from a user id, so a
// returning user without an explicit session resumes the same thread.
func DefaultSessionID(userID string) string {
	sum := sha256.Sum256([]byte("session:" + userID))
	return hex.EncodeToString(sum[:8])
}
