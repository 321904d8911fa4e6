package hamt

import "math/bits"

const (
	bitsPerLevel = 5
	branchFactor = 1 << bitsPerLevel
	levelMask    = branchFactor - 1
)

// node is one immutable trie node. Writers build replacement nodes and never
// touch a published one, which is what makes captured roots valid forever.
//
// insert and remove return the replacement subtree along with the previous
// value for the key, if any. A nil replacement from remove means the subtree
// became empty and the parent must drop its slot.
type node[K comparable, V any] interface {
	get(hash uint64, key K, shift uint) (V, bool)
	insert(hash uint64, key K, value V, shift uint) (node[K, V], V, bool)
	remove(hash uint64, key K, shift uint) (node[K, V], V, bool)
	each(yield func(K, V) bool) bool
}

// slot extracts the 5-bit child index for the level at shift.
func slot(hash uint64, shift uint) uint {
	return uint(hash>>shift) & levelMask
}

// branch holds up to 32 children in a bitmap-compressed array: bit i set
// means slot i is occupied, and the child lives at the rank of bit i among
// the set bits.
type branch[K comparable, V any] struct {
	bitmap   uint32
	children []node[K, V]
}

func (b *branch[K, V]) pos(bit uint32) int {
	return bits.OnesCount32(b.bitmap & (bit - 1))
}

func (b *branch[K, V]) get(hash uint64, key K, shift uint) (V, bool) {
	bit := uint32(1) << slot(hash, shift)
	if b.bitmap&bit == 0 {
		var zero V
		return zero, false
	}
	return b.children[b.pos(bit)].get(hash, key, shift+bitsPerLevel)
}

func (b *branch[K, V]) insert(hash uint64, key K, value V, shift uint) (node[K, V], V, bool) {
	bit := uint32(1) << slot(hash, shift)
	pos := b.pos(bit)

	if b.bitmap&bit == 0 {
		kids := make([]node[K, V], len(b.children)+1)
		copy(kids, b.children[:pos])
		kids[pos] = &leaf[K, V]{hash: hash, key: key, value: value}
		copy(kids[pos+1:], b.children[pos:])
		var zero V
		return &branch[K, V]{bitmap: b.bitmap | bit, children: kids}, zero, false
	}

	child, prev, existed := b.children[pos].insert(hash, key, value, shift+bitsPerLevel)
	kids := make([]node[K, V], len(b.children))
	copy(kids, b.children)
	kids[pos] = child
	return &branch[K, V]{bitmap: b.bitmap, children: kids}, prev, existed
}

func (b *branch[K, V]) remove(hash uint64, key K, shift uint) (node[K, V], V, bool) {
	var zero V
	bit := uint32(1) << slot(hash, shift)
	if b.bitmap&bit == 0 {
		return b, zero, false
	}
	pos := b.pos(bit)

	child, prev, existed := b.children[pos].remove(hash, key, shift+bitsPerLevel)
	if !existed {
		return b, zero, false
	}
	if child == nil {
		if b.bitmap == bit {
			// Last occupied slot; the whole branch goes away.
			return nil, prev, true
		}
		kids := make([]node[K, V], len(b.children)-1)
		copy(kids, b.children[:pos])
		copy(kids[pos:], b.children[pos+1:])
		return &branch[K, V]{bitmap: b.bitmap &^ bit, children: kids}, prev, true
	}
	kids := make([]node[K, V], len(b.children))
	copy(kids, b.children)
	kids[pos] = child
	return &branch[K, V]{bitmap: b.bitmap, children: kids}, prev, true
}

func (b *branch[K, V]) each(yield func(K, V) bool) bool {
	for _, c := range b.children {
		if !c.each(yield) {
			return false
		}
	}
	return true
}

// leaf holds a single key along with its full hash, so splitting never needs
// to rehash.
type leaf[K comparable, V any] struct {
	hash  uint64
	key   K
	value V
}

func (l *leaf[K, V]) get(hash uint64, key K, shift uint) (V, bool) {
	if l.key == key {
		return l.value, true
	}
	var zero V
	return zero, false
}

func (l *leaf[K, V]) insert(hash uint64, key K, value V, shift uint) (node[K, V], V, bool) {
	var zero V
	if l.key == key {
		return &leaf[K, V]{hash: hash, key: key, value: value}, l.value, true
	}
	if l.hash == hash {
		// Full 64-bit hash collision on distinct keys.
		return &collision[K, V]{
			hash:    hash,
			entries: []entry[K, V]{{l.key, l.value}, {key, value}},
		}, zero, false
	}
	lf := &leaf[K, V]{hash: hash, key: key, value: value}
	return join[K, V](l, l.hash, lf, hash, shift), zero, false
}

func (l *leaf[K, V]) remove(hash uint64, key K, shift uint) (node[K, V], V, bool) {
	if l.key == key {
		return nil, l.value, true
	}
	var zero V
	return l, zero, false
}

func (l *leaf[K, V]) each(yield func(K, V) bool) bool {
	return yield(l.key, l.value)
}

type entry[K comparable, V any] struct {
	key   K
	value V
}

// collision holds every key whose hash is identical, as a flat list scanned
// linearly. Lists stay tiny in practice with a 64-bit hash.
type collision[K comparable, V any] struct {
	hash    uint64
	entries []entry[K, V]
}

func (c *collision[K, V]) get(hash uint64, key K, shift uint) (V, bool) {
	var zero V
	if c.hash != hash {
		return zero, false
	}
	for _, e := range c.entries {
		if e.key == key {
			return e.value, true
		}
	}
	return zero, false
}

func (c *collision[K, V]) insert(hash uint64, key K, value V, shift uint) (node[K, V], V, bool) {
	var zero V
	if c.hash != hash {
		lf := &leaf[K, V]{hash: hash, key: key, value: value}
		return join[K, V](c, c.hash, lf, hash, shift), zero, false
	}
	next := make([]entry[K, V], len(c.entries), len(c.entries)+1)
	copy(next, c.entries)
	for i, e := range next {
		if e.key == key {
			next[i] = entry[K, V]{key, value}
			return &collision[K, V]{hash: hash, entries: next}, e.value, true
		}
	}
	next = append(next, entry[K, V]{key, value})
	return &collision[K, V]{hash: hash, entries: next}, zero, false
}

func (c *collision[K, V]) remove(hash uint64, key K, shift uint) (node[K, V], V, bool) {
	var zero V
	if c.hash != hash {
		return c, zero, false
	}
	for i, e := range c.entries {
		if e.key != key {
			continue
		}
		if len(c.entries) == 2 {
			// One survivor; demote back to a plain leaf.
			s := c.entries[1-i]
			return &leaf[K, V]{hash: c.hash, key: s.key, value: s.value}, e.value, true
		}
		next := make([]entry[K, V], len(c.entries)-1)
		copy(next, c.entries[:i])
		copy(next[i:], c.entries[i+1:])
		return &collision[K, V]{hash: c.hash, entries: next}, e.value, true
	}
	return c, zero, false
}

func (c *collision[K, V]) each(yield func(K, V) bool) bool {
	for _, e := range c.entries {
		if !yield(e.key, e.value) {
			return false
		}
	}
	return true
}

// join builds the branch spine from shift down to the first level at which
// the two hashes occupy different slots. Callers guarantee the hashes differ,
// so recursion terminates within 64/bitsPerLevel levels.
func join[K comparable, V any](a node[K, V], ahash uint64, b node[K, V], bhash uint64, shift uint) node[K, V] {
	ai, bi := slot(ahash, shift), slot(bhash, shift)
	if ai == bi {
		child := join(a, ahash, b, bhash, shift+bitsPerLevel)
		return &branch[K, V]{bitmap: 1 << ai, children: []node[K, V]{child}}
	}
	if ai < bi {
		return &branch[K, V]{bitmap: 1<<ai | 1<<bi, children: []node[K, V]{a, b}}
	}
	return &branch[K, V]{bitmap: 1<<ai | 1<<bi, children: []node[K, V]{b, a}}
}
