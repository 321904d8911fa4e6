package skiplist

import (
	"cmp"
	"iter"
	"math/bits"
	"math/rand/v2"
	"sync/atomic"

	"strand/epoch"
)

// maxHeight bounds tower height; 2^32 expected elements saturate it.
const maxHeight = 32

type node[T any] struct {
	value  T
	next   []atomic.Pointer[node[T]]
	marked atomic.Bool // logically deleted
	marker bool        // level-0 tombstone, never a real element
}

// Set is a lock-free ordered set. The zero value is not usable; call
// New or NewFunc.
type Set[T any] struct {
	head   *node[T] // sentinel with a full-height tower
	cmp    func(a, b T) int
	height atomic.Int32
	length atomic.Int64
}

// New returns an empty set ordered by the natural order of T.
func New[T cmp.Ordered]() *Set[T] {
	return NewFunc[T](cmp.Compare[T])
}

// NewFunc returns an empty set ordered by compare, which must define a
// total order.
func NewFunc[T any](compare func(a, b T) int) *Set[T] {
	s := &Set[T]{
		head: &node[T]{next: make([]atomic.Pointer[node[T]], maxHeight)},
		cmp:  compare,
	}
	s.height.Store(1)
	return s
}

// randomHeight draws from a geometric distribution with p = 1/2.
func randomHeight() int {
	h := 1 + bits.TrailingZeros64(rand.Uint64())
	if h > maxHeight {
		h = maxHeight
	}
	return h
}

// ensureMarker installs (or finds) the level-0 tombstone behind a
// logically deleted node, so that no insert can slip in behind it.
func ensureMarker[T any](x *node[T]) *node[T] {
	for {
		succ := x.next[0].Load()
		if succ != nil && succ.marker {
			return succ
		}
		m := &node[T]{marker: true, next: make([]atomic.Pointer[node[T]], 1)}
		m.next[0].Store(succ)
		if x.next[0].CompareAndSwap(succ, m) {
			return m
		}
	}
}

// find locates v's position, filling preds/succs per level, unlinking
// every marked node it meets on the way. It reports whether an
// undeleted node equal to v sits at the bottom level.
func (s *Set[T]) find(v T, preds, succs *[maxHeight]*node[T]) bool {
retry:
	for {
		pred := s.head
		for i := maxHeight - 1; i >= 0; i-- {
			for {
				curr := pred.next[i].Load()
				if curr == nil {
					preds[i], succs[i] = pred, nil
					break
				}
				if curr.marker {
					// pred was deleted under our feet.
					continue retry
				}
				if curr.marked.Load() {
					var succ *node[T]
					if i == 0 {
						succ = ensureMarker(curr).next[0].Load()
					} else {
						succ = curr.next[i].Load()
					}
					if !pred.next[i].CompareAndSwap(curr, succ) {
						continue retry
					}
					continue
				}
				if s.cmp(curr.value, v) < 0 {
					pred = curr
					continue
				}
				preds[i], succs[i] = pred, curr
				break
			}
		}
		return succs[0] != nil && s.cmp(succs[0].value, v) == 0
	}
}

// Insert adds v. It returns false if v was already present; racing
// first inserts of the same value produce exactly one winner.
func (s *Set[T]) Insert(v T) bool {
	g := epoch.Pin()
	defer g.Release()

	var preds, succs [maxHeight]*node[T]
	h := randomHeight()
	for {
		if s.find(v, &preds, &succs) {
			return false
		}

		n := &node[T]{value: v, next: make([]atomic.Pointer[node[T]], h)}
		for i := 0; i < h; i++ {
			n.next[i].Store(succs[i])
		}

		// Linking at the bottom level is the linearization point.
		if !preds[0].next[0].CompareAndSwap(succs[0], n) {
			continue
		}
		s.length.Add(1)

	linking:
		for i := 1; i < h; i++ {
			for {
				if n.marked.Load() {
					break linking // a remover got here first
				}
				if preds[i].next[i].CompareAndSwap(succs[i], n) {
					break
				}
				s.find(v, &preds, &succs)
				if succs[0] != n {
					return true // deleted and already unlinked meanwhile
				}
				n.next[i].Store(succs[i])
			}
		}

		for {
			top := s.height.Load()
			if int32(h) <= top || s.height.CompareAndSwap(top, int32(h)) {
				break
			}
		}

		// A remover may have marked n while its tower was still going
		// up; one help pass unlinks anything left stranded.
		if n.marked.Load() {
			s.find(v, &preds, &succs)
		}
		return true
	}
}

// Remove deletes v. Exactly one of any set of racing removers of the
// same node returns true.
func (s *Set[T]) Remove(v T) bool {
	g := epoch.Pin()
	defer g.Release()

	var preds, succs [maxHeight]*node[T]
	for {
		if !s.find(v, &preds, &succs) {
			return false
		}
		x := succs[0]
		if !x.marked.CompareAndSwap(false, true) {
			// Another remover won this node; rescan in case an equal
			// element was re-inserted behind it.
			continue
		}
		s.length.Add(-1)
		ensureMarker(x)
		// One more pass physically unlinks x everywhere via helping.
		s.find(v, &preds, &succs)
		g.Defer(func() {
			var zero T
			x.value = zero
		})
		return true
	}
}

// Contains reports whether v is in the set. It never writes: marked
// but not yet unlinked nodes are simply traversed through.
func (s *Set[T]) Contains(v T) bool {
	g := epoch.Pin()
	defer g.Release()

	pred := s.head
	for i := int(s.height.Load()) - 1; i >= 1; i-- {
		curr := pred.next[i].Load()
		for curr != nil && s.cmp(curr.value, v) < 0 {
			pred = curr
			curr = pred.next[i].Load()
		}
	}

	curr := pred.next[0].Load()
	for curr != nil {
		if curr.marker {
			curr = curr.next[0].Load()
			continue
		}
		c := s.cmp(curr.value, v)
		if c >= 0 {
			return c == 0 && !curr.marked.Load()
		}
		curr = curr.next[0].Load()
	}
	return false
}

// Len returns the number of elements. Under concurrent mutation it is
// a best-effort snapshot.
func (s *Set[T]) Len() int {
	return int(s.length.Load())
}

// IsEmpty reports whether the set has no elements.
func (s *Set[T]) IsEmpty() bool {
	return s.Len() == 0
}

// All returns a lazy ascending walk over the set. The walk is not a
// frozen snapshot: mutations made while it runs may or may not be
// observed, but it never yields a torn or duplicated element. The
// caller's goroutine stays pinned for the duration of the range.
func (s *Set[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		g := epoch.Pin()
		defer g.Release()

		curr := s.head.next[0].Load()
		for curr != nil {
			if curr.marker || curr.marked.Load() {
				curr = curr.next[0].Load()
				continue
			}
			if !yield(curr.value) {
				return
			}
			curr = curr.next[0].Load()
		}
	}
}
