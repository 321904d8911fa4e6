package ref

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestNewAndValue(t *testing.T) {
	r := New(42)
	assert.Equal(t, 42, r.Value())
	assert.Equal(t, int64(1), r.StrongCount())
	assert.Equal(t, int64(0), r.WeakCount())
	r.Release()
}

func TestCloneCounts(t *testing.T) {
	r := New("payload")
	r2 := r.Clone()
	assert.Equal(t, int64(2), r.StrongCount())
	assert.Equal(t, "payload", r2.Value())

	r2.Release()
	assert.Equal(t, int64(1), r.StrongCount())
	r.Release()
}

func TestDropRunsExactlyOnce(t *testing.T) {
	var drops atomic.Int64
	r := NewWithDrop(7, func(int) { drops.Add(1) })
	r2 := r.Clone()
	r3 := r.Clone()

	r.Release()
	r2.Release()
	assert.Equal(t, int64(0), drops.Load())
	r3.Release()
	assert.Equal(t, int64(1), drops.Load())
}

func TestWeakUpgradeWhileAlive(t *testing.T) {
	r := New(99)
	w := r.Downgrade()
	assert.Equal(t, int64(1), r.WeakCount())

	up, ok := w.Upgrade()
	require.True(t, ok)
	assert.Equal(t, 99, up.Value())
	assert.Equal(t, int64(2), r.StrongCount())

	up.Release()
	r.Release()
	w.Release()
}

func TestWeakUpgradeAfterLastStrong(t *testing.T) {
	var drops atomic.Int64
	r := NewWithDrop("gone", func(string) { drops.Add(1) })
	w := r.Downgrade()

	r.Release()
	require.Equal(t, int64(1), drops.Load())

	_, ok := w.Upgrade()
	assert.False(t, ok)
	w.Release()
}

func TestUseAfterReleasePanics(t *testing.T) {
	r := New(1)
	r.Release()
	assert.Panics(t, func() { r.Value() })
	assert.Panics(t, func() { r.Release() })
	assert.Panics(t, func() { r.Clone() })
}

func TestConcurrentCloneRelease(t *testing.T) {
	const goroutines = 8
	const perG = 1000

	var drops atomic.Int64
	r := NewWithDrop(0, func(int) { drops.Add(1) })

	var eg errgroup.Group
	for i := 0; i < goroutines; i++ {
		eg.Go(func() error {
			for j := 0; j < perG; j++ {
				c := r.Clone()
				_ = c.Value()
				c.Release()
			}
			return nil
		})
	}
	require.NoError(t, eg.Wait())

	assert.Equal(t, int64(1), r.StrongCount())
	assert.Equal(t, int64(0), drops.Load())
	r.Release()
	assert.Equal(t, int64(1), drops.Load())
}

func TestConcurrentWeakUpgrade(t *testing.T) {
	const goroutines = 8

	r := New(42)
	w := r.Downgrade()

	var eg errgroup.Group
	for i := 0; i < goroutines; i++ {
		eg.Go(func() error {
			for j := 0; j < 500; j++ {
				up, ok := w.Upgrade()
				if !ok {
					return assert.AnError
				}
				up.Release()
			}
			return nil
		})
	}
	require.NoError(t, eg.Wait())

	r.Release()
	w.Release()
}
