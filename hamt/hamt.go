package hamt

import (
	"hash/maphash"
	"iter"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

var hashSeed = maphash.MakeSeed()

// defaultHash hashes comparable keys with a process-local random seed.
// String keys take the xxhash fast path.
func defaultHash[K comparable](key K) uint64 {
	if s, ok := any(key).(string); ok {
		return xxhash.Sum64String(s)
	}
	return maphash.Comparable(hashSeed, key)
}

// version pairs a trie root with its entry count. The two are swapped as one
// unit so Len is always consistent with the root it describes.
type version[K comparable, V any] struct {
	root node[K, V] // nil when the map is empty
	size int
}

// Map is a concurrent persistent hash map. The zero value is not usable;
// construct with New or NewHasher.
type Map[K comparable, V any] struct {
	cur  atomic.Pointer[version[K, V]]
	hash func(K) uint64
}

// New returns an empty map using the built-in hasher.
func New[K comparable, V any]() *Map[K, V] {
	return NewHasher[K, V](defaultHash[K])
}

// NewHasher returns an empty map hashing keys with hash. The function must
// be pure: equal keys must always produce equal hashes.
func NewHasher[K comparable, V any](hash func(K) uint64) *Map[K, V] {
	m := &Map[K, V]{hash: hash}
	m.cur.Store(&version[K, V]{})
	return m
}

// Get returns the value stored under key.
func (m *Map[K, V]) Get(key K) (V, bool) {
	cur := m.cur.Load()
	if cur.root == nil {
		var zero V
		return zero, false
	}
	return cur.root.get(m.hash(key), key, 0)
}

// ContainsKey reports whether key is present.
func (m *Map[K, V]) ContainsKey(key K) bool {
	_, ok := m.Get(key)
	return ok
}

// Insert stores value under key and returns the previous value, if any.
// The write path-copies the root-to-leaf spine and installs the new root
// with a CAS, recomputing from a fresh root when another writer wins.
func (m *Map[K, V]) Insert(key K, value V) (V, bool) {
	h := m.hash(key)
	for {
		cur := m.cur.Load()

		var root node[K, V]
		var prev V
		var existed bool
		if cur.root == nil {
			root = &leaf[K, V]{hash: h, key: key, value: value}
		} else {
			root, prev, existed = cur.root.insert(h, key, value, 0)
		}

		size := cur.size
		if !existed {
			size++
		}
		if m.cur.CompareAndSwap(cur, &version[K, V]{root: root, size: size}) {
			return prev, existed
		}
	}
}

// Remove deletes key and returns the value it held, if any.
func (m *Map[K, V]) Remove(key K) (V, bool) {
	h := m.hash(key)
	for {
		cur := m.cur.Load()
		if cur.root == nil {
			var zero V
			return zero, false
		}
		root, prev, existed := cur.root.remove(h, key, 0)
		if !existed {
			var zero V
			return zero, false
		}
		if m.cur.CompareAndSwap(cur, &version[K, V]{root: root, size: cur.size - 1}) {
			return prev, true
		}
	}
}

// Len returns the number of entries.
func (m *Map[K, V]) Len() int {
	return m.cur.Load().size
}

// IsEmpty reports whether the map holds no entries.
func (m *Map[K, V]) IsEmpty() bool {
	return m.Len() == 0
}

// All returns an iterator over the entries of the version current when
// iteration starts. Mutations made after that point are never observed.
// Order is by hash and unspecified.
func (m *Map[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		if root := m.cur.Load().root; root != nil {
			root.each(yield)
		}
	}
}

// Snapshot captures the current version in O(1). The snapshot shares every
// unmodified subtrie with the live map and never observes later mutations.
func (m *Map[K, V]) Snapshot() *Snapshot[K, V] {
	return &Snapshot[K, V]{v: m.cur.Load(), hash: m.hash}
}

// Snapshot is a frozen, read-only view of a Map at one instant.
type Snapshot[K comparable, V any] struct {
	v    *version[K, V]
	hash func(K) uint64
}

// Get returns the value stored under key at capture time.
func (s *Snapshot[K, V]) Get(key K) (V, bool) {
	if s.v.root == nil {
		var zero V
		return zero, false
	}
	return s.v.root.get(s.hash(key), key, 0)
}

// ContainsKey reports whether key was present at capture time.
func (s *Snapshot[K, V]) ContainsKey(key K) bool {
	_, ok := s.Get(key)
	return ok
}

// Len returns the number of entries at capture time.
func (s *Snapshot[K, V]) Len() int {
	return s.v.size
}

// All returns an iterator over the captured entries.
func (s *Snapshot[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		if s.v.root != nil {
			s.v.root.each(yield)
		}
	}
}
