package stack

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestLIFOOrder(t *testing.T) {
	s := New[int]()
	s.Push(1)
	s.Push(2)
	s.Push(3)

	for _, want := range []int{3, 2, 1} {
		got, ok := s.Pop()
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
	_, ok := s.Pop()
	assert.False(t, ok)
	assert.True(t, s.IsEmpty())
}

func TestPeek(t *testing.T) {
	s := New[string]()
	_, ok := s.Peek()
	assert.False(t, ok)

	s.Push("a")
	s.Push("b")
	top, ok := s.Peek()
	require.True(t, ok)
	assert.Equal(t, "b", top)
	assert.Equal(t, 2, s.Len())
}

func TestNoLostUpdates(t *testing.T) {
	const goroutines = 8
	const perG = 1000

	s := New[int]()
	var eg errgroup.Group
	for i := 0; i < goroutines; i++ {
		base := i * perG
		eg.Go(func() error {
			for j := 0; j < perG; j++ {
				s.Push(base + j)
			}
			return nil
		})
	}
	require.NoError(t, eg.Wait())
	require.Equal(t, goroutines*perG, s.Len())

	seen := make(map[int]bool, goroutines*perG)
	for {
		v, ok := s.Pop()
		if !ok {
			break
		}
		require.False(t, seen[v], "value %d popped twice", v)
		seen[v] = true
	}
	assert.Len(t, seen, goroutines*perG)
	assert.Zero(t, s.Len())
}

func TestMixedStress(t *testing.T) {
	const goroutines = 4
	const perG = 2000

	s := New[int]()
	var eg errgroup.Group
	for i := 0; i < goroutines; i++ {
		eg.Go(func() error {
			for j := 0; j < perG; j++ {
				if j%2 == 0 {
					s.Push(j)
				} else {
					s.Pop()
				}
			}
			return nil
		})
	}
	require.NoError(t, eg.Wait())

	// Drain whatever survived; length bookkeeping must agree with
	// reality.
	n := 0
	for {
		if _, ok := s.Pop(); !ok {
			break
		}
		n++
	}
	assert.Equal(t, 0, s.Len())
	assert.True(t, s.IsEmpty())
	_ = n
}

// Repeatedly pop a value and push back a logically equal one from
// racing goroutines. If a recycled node were ever re-observed by a
// stalled compare-and-swap, the stack size would drift.
func TestABAResistance(t *testing.T) {
	const goroutines = 4
	const rounds = 200

	s := New[int]()
	s.Push(1)
	s.Push(1)

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < rounds; j++ {
				if v, ok := s.Pop(); ok {
					s.Push(v)
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 2, s.Len())
	v1, ok1 := s.Pop()
	v2, ok2 := s.Pop()
	_, ok3 := s.Pop()
	assert.True(t, ok1 && ok2)
	assert.Equal(t, 1, v1)
	assert.Equal(t, 1, v2)
	assert.False(t, ok3)
}

func BenchmarkPushPop(b *testing.B) {
	s := New[int]()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			s.Push(1)
			s.Pop()
		}
	})
}
