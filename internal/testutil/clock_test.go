package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tempo/internal/ir"
	"github.com/roach88/tempo/internal/tid"
)

func TestSteppingClock_Advances(t *testing.T) {
	clock := NewSteppingClock(Epoch, time.Second)

	assert.Equal(t, Epoch, clock.Now())
	assert.Equal(t, Epoch.Add(time.Second), clock.Now())
	assert.Equal(t, Epoch.Add(2*time.Second), clock.Peek())
	assert.Equal(t, Epoch.Add(2*time.Second), clock.Now())
}

func TestSteppingClock_Set(t *testing.T) {
	clock := NewSteppingClock(Epoch, time.Second)
	clock.Now()
	clock.Set(Epoch)
	assert.Equal(t, Epoch, clock.Now())
}

func TestSteppingClock_ThreadSafe(t *testing.T) {
	clock := NewSteppingClock(Epoch, time.Second)
	const numGoroutines = 20
	const callsPerGoroutine = 50

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[time.Time]bool)
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < callsPerGoroutine; j++ {
				now := clock.Now()
				mu.Lock()
				seen[now] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, numGoroutines*callsPerGoroutine)
}

func TestNewGenerator_Deterministic(t *testing.T) {
	g1 := NewGenerator(NewSteppingClock(Epoch, time.Second))
	g2 := NewGenerator(NewSteppingClock(Epoch, time.Second))

	for i := 0; i < 10; i++ {
		a, err := g1.Next()
		require.NoError(t, err)
		b, err := g2.Next()
		require.NoError(t, err)
		assert.Equal(t, a, b)
	}
}

func TestNewGenerator_Layout(t *testing.T) {
	g := NewGenerator(NewSteppingClock(Epoch, time.Second))
	id, err := g.Next()
	require.NoError(t, err)
	assert.Equal(t, "2003-05-01T10:00:00.000Zaabbcc1234000001", id.String())
	assert.True(t, IDAt(0).Less(id))
	assert.True(t, id.Less(IDAt(1)))
}

func TestSequenceSource(t *testing.T) {
	src := NewSequenceSource(IDAt(2), IDAt(1))
	src.Push(IDAt(3))

	for _, want := range []tid.ID{IDAt(2), IDAt(1), IDAt(3)} {
		got, err := src.Next()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := src.Next()
	assert.True(t, ir.Is(err, ir.CodeIDExhausted))
}
