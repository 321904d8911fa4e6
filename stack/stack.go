package stack

import (
	"sync/atomic"

	"strand/epoch"
)

type node[T any] struct {
	value T
	next  atomic.Pointer[node[T]]
}

// Stack is a lock-free LIFO stack. The zero value is not usable; call
// New.
type Stack[T any] struct {
	head   atomic.Pointer[node[T]]
	free   atomic.Pointer[node[T]] // recycled nodes, fed by the reclaimer
	length atomic.Int64
}

// New returns an empty stack.
func New[T any]() *Stack[T] {
	return &Stack[T]{}
}

// Push places v on top of the stack.
func (s *Stack[T]) Push(v T) {
	g := epoch.Pin()
	defer g.Release()

	n := s.getNode(v)
	for {
		h := s.head.Load()
		n.next.Store(h)
		if s.head.CompareAndSwap(h, n) {
			s.length.Add(1)
			return
		}
	}
}

// Pop removes and returns the top value. The second result is false if
// the stack was empty at the linearization point.
func (s *Stack[T]) Pop() (T, bool) {
	g := epoch.Pin()
	defer g.Release()

	for {
		h := s.head.Load()
		if h == nil {
			var zero T
			return zero, false
		}
		next := h.next.Load()
		if s.head.CompareAndSwap(h, next) {
			s.length.Add(-1)
			v := h.value
			s.retire(g, h)
			return v, true
		}
	}
}

// Peek returns the top value without removing it.
func (s *Stack[T]) Peek() (T, bool) {
	g := epoch.Pin()
	defer g.Release()

	h := s.head.Load()
	if h == nil {
		var zero T
		return zero, false
	}
	return h.value, true
}

// IsEmpty reports whether the stack had no elements at the instant the
// head was read.
func (s *Stack[T]) IsEmpty() bool {
	return s.head.Load() == nil
}

// Len returns the number of elements. Under concurrent mutation it is a
// best-effort snapshot.
func (s *Stack[T]) Len() int {
	return int(s.length.Load())
}

// getNode takes a node from the freelist, or allocates one. Freelist
// pops are safe for the same reason stack pops are: a node on the
// freelist cannot be retired again while this goroutine is pinned.
func (s *Stack[T]) getNode(v T) *node[T] {
	for {
		n := s.free.Load()
		if n == nil {
			return &node[T]{value: v}
		}
		if s.free.CompareAndSwap(n, n.next.Load()) {
			n.value = v
			return n
		}
	}
}

// retire hands the unlinked node to the reclaimer. Two epochs from now
// nothing can reference it, and it joins the freelist.
func (s *Stack[T]) retire(g *epoch.Guard, n *node[T]) {
	g.Defer(func() {
		var zero T
		n.value = zero
		for {
			f := s.free.Load()
			n.next.Store(f)
			if s.free.CompareAndSwap(f, n) {
				return
			}
		}
	})
}
