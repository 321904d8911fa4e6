package epoch

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// drain runs a few pin/flush cycles so the epoch can walk past any
// retired garbage left by earlier activity.
func drain() {
	for i := 0; i < 4; i++ {
		g := Pin()
		g.Flush()
		g.Release()
	}
}

func TestDeferRunsAfterTwoGenerations(t *testing.T) {
	var ran atomic.Int64

	g := Pin()
	g.Defer(func() { ran.Add(1) })
	g.Release()

	drain()
	require.Equal(t, int64(1), ran.Load())
}

func TestLiveGuardBlocksReclamation(t *testing.T) {
	var ran atomic.Int64

	g := Pin()
	g.Defer(func() { ran.Add(1) })
	g.Flush()

	// The guard is still pinned: no amount of flushing may run the
	// destructor, because the epoch cannot advance past the pin.
	for i := 0; i < 8; i++ {
		g.Flush()
	}
	assert.Equal(t, int64(0), ran.Load())

	g.Release()
	drain()
	assert.Equal(t, int64(1), ran.Load())
}

func TestCloneExtendsPin(t *testing.T) {
	var ran atomic.Int64

	g := Pin()
	g.Defer(func() { ran.Add(1) })
	g2 := g.Clone()
	g.Release()

	drain()
	assert.Equal(t, int64(0), ran.Load(), "clone should keep the pin alive")

	g2.Release()
	drain()
	assert.Equal(t, int64(1), ran.Load())
}

func TestReleaseIsIdempotent(t *testing.T) {
	g := Pin()
	g.Release()
	g.Release()

	assert.Panics(t, func() { g.Defer(func() {}) })
	assert.Panics(t, func() { g.Flush() })
	assert.Panics(t, func() { g.Clone() })
}

func TestEpochAdvances(t *testing.T) {
	before := Current()
	drain()
	assert.Greater(t, Current(), before)
}

func TestConcurrentDeferAllRun(t *testing.T) {
	const goroutines = 8
	const perG = 500

	var ran atomic.Int64
	var eg errgroup.Group
	for i := 0; i < goroutines; i++ {
		eg.Go(func() error {
			for j := 0; j < perG; j++ {
				g := Pin()
				g.Defer(func() { ran.Add(1) })
				g.Release()
			}
			return nil
		})
	}
	require.NoError(t, eg.Wait())

	for i := 0; i < 16 && Pending() > 0; i++ {
		drain()
	}
	assert.Equal(t, int64(goroutines*perG), ran.Load())
	assert.Zero(t, Pending())
}

func TestNestedPins(t *testing.T) {
	var ran atomic.Int64

	outer := Pin()
	inner := Pin()
	outer.Defer(func() { ran.Add(1) })
	outer.Release()

	drain()
	// The inner pin predates no garbage here, but the sealed deferral
	// from outer is only two generations stale once both pins are gone.
	inner.Release()
	drain()
	assert.Equal(t, int64(1), ran.Load())
}

func BenchmarkPinRelease(b *testing.B) {
	for i := 0; i < b.N; i++ {
		g := Pin()
		g.Release()
	}
}

func BenchmarkPinDeferRelease(b *testing.B) {
	for i := 0; i < b.N; i++ {
		g := Pin()
		g.Defer(func() {})
		g.Release()
	}
}
