package epoch

// Guard proves that its owner is pinned at some epoch. While it is
// alive, nothing retired at or after that epoch is destroyed. Guards are
// not safe for concurrent use from multiple goroutines; Clone one per
// goroutine instead.
type Guard struct {
	p        *participant
	released bool
}

// Pin registers the calling goroutine at the current global epoch and
// returns a guard. To extend a pin across scopes, Clone the guard; each
// Pin call claims its own registry slot.
func Pin() *Guard {
	p := acquire()
	// Re-read after publishing so the recorded epoch is never stale
	// relative to a concurrent advance.
	for {
		e := globalEpoch.Load()
		p.local.Store(e)
		if globalEpoch.Load() == e {
			break
		}
	}
	p.pins = 1
	return &Guard{p: p}
}

// Clone extends the pin. The participant stays registered until the
// last clone is released.
func (g *Guard) Clone() *Guard {
	if g.released {
		panic("epoch: clone of released guard")
	}
	g.p.pins++
	return &Guard{p: g.p}
}

// Defer schedules fn to run once the global epoch has advanced at least
// two generations past the current one. fn must not call back into the
// structure being reclaimed.
func (g *Guard) Defer(fn func()) {
	if g.released {
		panic("epoch: defer on released guard")
	}
	g.p.bag = append(g.p.bag, deferral{fn: fn, epoch: globalEpoch.Load()})
	pending.Add(1)
	if len(g.p.bag) >= bagSize {
		g.p.seal()
		collect()
	}
}

// Flush seals any locally buffered deferrals and attempts a collection
// pass immediately instead of waiting for the next periodic trigger.
func (g *Guard) Flush() {
	if g.released {
		panic("epoch: flush on released guard")
	}
	g.p.seal()
	collect()
}

// Release drops the guard. Releasing the last clone unpins the
// goroutine and hands its buffered deferrals to the global list.
// Release is idempotent.
func (g *Guard) Release() {
	if g.released {
		return
	}
	g.released = true
	g.p.pins--
	if g.p.pins == 0 {
		g.p.seal()
		g.p.local.Store(inactive)
		g.p.claimed.Store(false)
	}
}
