package ref

import (
	"sync/atomic"

	"strand/epoch"
)

// Cell holds one strong handle and swaps it atomically. Readers and
// writers must hold an epoch guard: the guard is what makes Load safe,
// because a displaced handle's release is deferred past every guard
// that could have observed it.
type Cell[T any] struct {
	ptr atomic.Pointer[inner[T]]
}

// NewCell creates a cell holding r. The cell takes over the caller's
// handle; do not release r afterwards.
func NewCell[T any](r Ref[T]) *Cell[T] {
	c := &Cell[T]{}
	c.ptr.Store(r.in)
	return c
}

// Load returns a fresh strong handle to the currently held payload.
// The caller owns the returned handle and must Release it.
func (c *Cell[T]) Load(g *epoch.Guard) Ref[T] {
	_ = g // the pin itself is the safety argument; see below
	in := c.ptr.Load()
	for {
		s := in.strong.Load()
		if s <= 0 {
			// The cell's own reference is released through a guard
			// deferral, which cannot have run while we are pinned.
			panic("ref: cell handle died under guard")
		}
		if in.strong.CompareAndSwap(s, s+1) {
			return Ref[T]{in: in}
		}
	}
}

// Store swaps r into the cell, taking over the caller's handle. The
// displaced handle is released only after the guard's epoch has safely
// passed, so concurrent Loads never observe a dying payload.
func (c *Cell[T]) Store(r Ref[T], g *epoch.Guard) {
	old := c.ptr.Swap(r.in)
	g.Defer(func() { (Ref[T]{in: old}).Release() })
}

// CompareAndSwap installs new only if the cell still holds old's
// payload. On success the cell's displaced reference is released
// through the guard and the caller's new handle is consumed; on failure
// the caller keeps ownership of new.
func (c *Cell[T]) CompareAndSwap(old, new Ref[T], g *epoch.Guard) bool {
	if !c.ptr.CompareAndSwap(old.in, new.in) {
		return false
	}
	g.Defer(func() { (Ref[T]{in: old.in}).Release() })
	return true
}
