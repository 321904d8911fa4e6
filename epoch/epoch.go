package epoch

import "sync/atomic"

const (
	// inactive marks a participant slot with no live pin.
	inactive = ^uint64(0)

	// bagSize is how many deferrals a participant buffers locally
	// before sealing them into the global list.
	bagSize = 64
)

// globalEpoch monotonically increases. It starts at 1 so that the
// two-generation safety check never underflows.
var globalEpoch atomic.Uint64

// registry is a push-only list of every participant slot ever created.
// Released slots stay on the list and are re-claimed by later pins.
var registry atomic.Pointer[participant]

// sealed holds bags of deferrals handed off by participants, waiting for
// the epoch to move past them.
var sealed atomic.Pointer[bag]

// pending counts deferred destructors that have not run yet.
var pending atomic.Int64

func init() {
	globalEpoch.Store(1)
}

// participant is one slot in the pin registry. The atomic fields are
// read by every collector; everything else is owned by the goroutine
// currently holding the slot.
type participant struct {
	local   atomic.Uint64 // pinned epoch, inactive when unpinned
	claimed atomic.Bool

	pins int        // nested pin depth
	bag  []deferral // locally buffered destructors

	next *participant // registry chain, immutable once pushed
}

type deferral struct {
	fn    func()
	epoch uint64
}

// bag is a sealed batch of deferrals on the global list.
type bag struct {
	defers []deferral
	next   *bag
}

// Current returns the global epoch.
func Current() uint64 {
	return globalEpoch.Load()
}

// Pending returns the number of deferred destructors not yet run.
func Pending() int {
	return int(pending.Load())
}

// acquire claims an unpinned participant slot, creating one if every
// existing slot is taken.
func acquire() *participant {
	for p := registry.Load(); p != nil; p = p.next {
		if !p.claimed.Load() && p.claimed.CompareAndSwap(false, true) {
			return p
		}
	}
	p := &participant{}
	p.claimed.Store(true)
	p.local.Store(inactive)
	for {
		head := registry.Load()
		p.next = head
		if registry.CompareAndSwap(head, p) {
			return p
		}
	}
}

// seal moves the participant's local deferrals onto the global list.
func (p *participant) seal() {
	if len(p.bag) == 0 {
		return
	}
	b := &bag{defers: p.bag}
	p.bag = nil
	for {
		head := sealed.Load()
		b.next = head
		if sealed.CompareAndSwap(head, b) {
			return
		}
	}
}

// tryAdvance moves the global epoch forward by one generation if every
// pinned participant has caught up to it.
func tryAdvance() {
	e := globalEpoch.Load()
	for p := registry.Load(); p != nil; p = p.next {
		l := p.local.Load()
		if l != inactive && l < e {
			return // a pinned goroutine still straggles behind
		}
	}
	globalEpoch.CompareAndSwap(e, e+1)
}

// collect attempts one epoch advance and then runs every sealed
// deferral that is at least two generations old. Deferrals that are
// still too young go back on the list.
func collect() {
	tryAdvance()
	e := globalEpoch.Load()

	list := sealed.Swap(nil)
	for b := list; b != nil; {
		next := b.next
		var young []deferral
		for _, d := range b.defers {
			if d.epoch+2 <= e {
				d.fn()
				pending.Add(-1)
			} else {
				young = append(young, d)
			}
		}
		if len(young) > 0 {
			nb := &bag{defers: young}
			for {
				head := sealed.Load()
				nb.next = head
				if sealed.CompareAndSwap(head, nb) {
					break
				}
			}
		}
		b = next
	}
}
