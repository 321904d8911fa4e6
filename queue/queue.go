package queue

import (
	"sync/atomic"

	"strand/epoch"
)

type node[T any] struct {
	value T
	next  atomic.Pointer[node[T]]
}

// Queue is a lock-free FIFO queue. The zero value is not usable; call
// New.
type Queue[T any] struct {
	head   atomic.Pointer[node[T]] // dummy; head.next is the front
	tail   atomic.Pointer[node[T]]
	free   atomic.Pointer[node[T]]
	length atomic.Int64
}

// New returns an empty queue.
func New[T any]() *Queue[T] {
	q := &Queue[T]{}
	dummy := &node[T]{}
	q.head.Store(dummy)
	q.tail.Store(dummy)
	return q
}

// Enqueue appends v at the tail.
func (q *Queue[T]) Enqueue(v T) {
	g := epoch.Pin()
	defer g.Release()

	n := q.getNode(v)
	for {
		t := q.tail.Load()
		next := t.next.Load()
		if t != q.tail.Load() {
			continue
		}
		if next != nil {
			// Tail lags; help it forward and retry.
			q.tail.CompareAndSwap(t, next)
			continue
		}
		if t.next.CompareAndSwap(nil, n) {
			q.tail.CompareAndSwap(t, n)
			q.length.Add(1)
			return
		}
	}
}

// Dequeue removes and returns the front value. The second result is
// false if the queue was empty at the linearization point.
func (q *Queue[T]) Dequeue() (T, bool) {
	g := epoch.Pin()
	defer g.Release()

	for {
		h := q.head.Load()
		t := q.tail.Load()
		next := h.next.Load()
		if h != q.head.Load() {
			continue
		}
		if h == t {
			if next == nil {
				var zero T
				return zero, false
			}
			// Tail fell behind the real last node; help it.
			q.tail.CompareAndSwap(t, next)
			continue
		}
		v := next.value
		if q.head.CompareAndSwap(h, next) {
			q.length.Add(-1)
			q.retire(g, h)
			return v, true
		}
	}
}

// Peek returns the front value without removing it.
func (q *Queue[T]) Peek() (T, bool) {
	g := epoch.Pin()
	defer g.Release()

	h := q.head.Load()
	next := h.next.Load()
	if next == nil {
		var zero T
		return zero, false
	}
	return next.value, true
}

// IsEmpty reports whether the queue had no elements when the head was
// read.
func (q *Queue[T]) IsEmpty() bool {
	return q.head.Load().next.Load() == nil
}

// Len returns the number of elements. Under concurrent mutation it is a
// best-effort snapshot.
func (q *Queue[T]) Len() int {
	return int(q.length.Load())
}

func (q *Queue[T]) getNode(v T) *node[T] {
	for {
		n := q.free.Load()
		if n == nil {
			return &node[T]{value: v}
		}
		if q.free.CompareAndSwap(n, n.next.Load()) {
			n.value = v
			n.next.Store(nil) // this node becomes the new tail
			return n
		}
	}
}

func (q *Queue[T]) retire(g *epoch.Guard, n *node[T]) {
	g.Defer(func() {
		var zero T
		n.value = zero
		for {
			f := q.free.Load()
			n.next.Store(f)
			if q.free.CompareAndSwap(f, n) {
				return
			}
		}
	})
}
