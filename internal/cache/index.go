package cache

import "sync"

// Index is the process-wide node index: internal key -> node, plus a
// handle -> key alias map so lookups by either form land on the same entry.
// It's safe for concurrent use.
//
// Entries are pinned for the process lifetime. Eviction would hand out two
// live nodes for the same key with diverging neighbor state, so there is
// deliberately no capacity bound here, unlike an LRU.
type Index[V any] struct {
	mu          sync.RWMutex
	byKey       map[string]V
	keyByHandle map[string]string
	// stats
	gets int
	hits int
	puts int
}

func NewIndex[V any]() *Index[V] {
	return &Index[V]{
		byKey:       make(map[string]V),
		keyByHandle: make(map[string]string),
	}
}

// Get returns the entry for key, and true if it was found.
func (ix *Index[V]) Get(key string) (V, bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.gets++
	v, ok := ix.byKey[key]
	if ok {
		ix.hits++
	}
	return v, ok
}

// KeyForHandle returns the internal key a handle resolves to, if known.
func (ix *Index[V]) KeyForHandle(handle string) (string, bool) {
	ix.mu.RLock()
	k, ok := ix.keyByHandle[handle]
	ix.mu.RUnlock()
	return k, ok
}

// Intern stores v under (key, handle) unless an entry for key already
// exists, and returns the entry that ended up in the index. The second
// result is true if v was inserted. The handle alias is recorded either way.
func (ix *Index[V]) Intern(key, handle string, v V) (V, bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if handle != "" {
		ix.keyByHandle[handle] = key
	}
	if existing, ok := ix.byKey[key]; ok {
		return existing, false
	}
	ix.byKey[key] = v
	ix.puts++
	return v, true
}

// Len returns the number of interned entries.
func (ix *Index[V]) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.byKey)
}

// Stats returns (gets, hits, puts) — all snapshot under lock.
func (ix *Index[V]) Stats() (gets, hits, puts int) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.gets, ix.hits, ix.puts
}
