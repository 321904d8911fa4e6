package ref

import "sync/atomic"

// inner is the shared control block: both counts plus the payload.
type inner[T any] struct {
	strong atomic.Int64
	weak   atomic.Int64
	value  T
	drop   func(T)
}

// Ref is a strong handle. Copying the struct does not add a reference;
// use Clone. Every handle obtained from New, Clone, Upgrade or
// Cell.Load owns one strong count and must be Released exactly once.
type Ref[T any] struct {
	in *inner[T]
}

// New creates a payload with a strong count of one.
func New[T any](v T) Ref[T] {
	return NewWithDrop(v, nil)
}

// NewWithDrop is New with a destructor that runs exactly once, when the
// last strong handle is released.
func NewWithDrop[T any](v T, drop func(T)) Ref[T] {
	in := &inner[T]{value: v, drop: drop}
	in.strong.Store(1)
	return Ref[T]{in: in}
}

// Clone atomically takes another strong reference.
func (r Ref[T]) Clone() Ref[T] {
	if r.in.strong.Add(1) <= 1 {
		panic("ref: clone of dead handle")
	}
	return r
}

// Value returns the payload. Calling it through a released handle is a
// bug and panics.
func (r Ref[T]) Value() T {
	if r.in.strong.Load() <= 0 {
		panic("ref: value of dead handle")
	}
	return r.in.value
}

// Release drops this handle's strong reference. The payload's drop
// function runs when the count reaches zero. Over-releasing panics: it
// means a handle was released twice somewhere.
func (r Ref[T]) Release() {
	n := r.in.strong.Add(-1)
	switch {
	case n < 0:
		panic("ref: release of dead handle")
	case n == 0:
		if r.in.drop != nil {
			r.in.drop(r.in.value)
		}
		var zero T
		r.in.value = zero
	}
}

// Downgrade returns a weak handle. It does not keep the payload alive.
func (r Ref[T]) Downgrade() Weak[T] {
	r.in.weak.Add(1)
	return Weak[T]{in: r.in}
}

// StrongCount is a best-effort snapshot of the strong count.
func (r Ref[T]) StrongCount() int64 { return r.in.strong.Load() }

// WeakCount is a best-effort snapshot of the weak count.
func (r Ref[T]) WeakCount() int64 { return r.in.weak.Load() }

// Weak observes a payload without owning it.
type Weak[T any] struct {
	in *inner[T]
}

// Upgrade returns a new strong handle if, at that instant, at least one
// strong handle still exists.
func (w Weak[T]) Upgrade() (Ref[T], bool) {
	for {
		s := w.in.strong.Load()
		if s <= 0 {
			return Ref[T]{}, false
		}
		if w.in.strong.CompareAndSwap(s, s+1) {
			return Ref[T]{in: w.in}, true
		}
	}
}

// Clone takes another weak reference.
func (w Weak[T]) Clone() Weak[T] {
	w.in.weak.Add(1)
	return w
}

// Release drops the weak reference. Bookkeeping only: weak handles
// never trigger the payload drop.
func (w Weak[T]) Release() {
	if w.in.weak.Add(-1) < 0 {
		panic("ref: release of dead weak handle")
	}
}

// StrongCount is a best-effort snapshot of the strong count.
func (w Weak[T]) StrongCount() int64 { return w.in.strong.Load() }

// WeakCount is a best-effort snapshot of the weak count.
func (w Weak[T]) WeakCount() int64 { return w.in.weak.Load() }
