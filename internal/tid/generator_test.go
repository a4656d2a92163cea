package tid

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tempo/internal/ir"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGenerator_StrictlyIncreasing(t *testing.T) {
	g := NewGenerator(WithLogger(quietLogger()), WithCounterSeed(0))

	prev := Empty
	for i := 0; i < 10000; i++ {
		id, err := g.Next()
		require.NoError(t, err)
		require.True(t, prev.Less(id), "id %d not increasing: %s <= %s", i, id, prev)
		prev = id
	}
	assert.Equal(t, prev, g.Last())
}

func TestGenerator_Layout(t *testing.T) {
	ts := time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC)
	g := NewGenerator(
		WithClock(func() time.Time { return ts }),
		WithIdentity([3]byte{0xaa, 0xbb, 0xcc}, 0x1234),
		WithCounterSeed(0x000010),
	)

	id, err := g.Next()
	require.NoError(t, err)
	assert.Equal(t, "2021-03-04T05:06:07.000Zaabbcc1234000011", id.String())
	assert.Equal(t, ts, id.CreationTime())
}

func TestGenerator_CounterWrapRetries(t *testing.T) {
	ts := time.Unix(1_600_000_000, 0)
	g := NewGenerator(
		WithClock(func() time.Time { return ts }),
		WithLogger(quietLogger()),
		WithCounterSeed(0xFFFFFE),
		WithMaxRetries(3),
	)

	first, err := g.Next()
	require.NoError(t, err)
	assert.Equal(t, byte(0xff), first[11])

	// The counter wraps to zero within the same second, so every candidate
	// sorts below the previous id until the budget runs out.
	_, err = g.Next()
	require.Error(t, err)
	assert.True(t, ir.Is(err, ir.CodeIDExhausted))
	assert.Equal(t, first, g.Last())
}

func TestGenerator_ClockStepRecovers(t *testing.T) {
	var mu sync.Mutex
	sec := int64(1_600_000_010)
	g := NewGenerator(
		WithClock(func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			now := time.Unix(sec, 0)
			sec++
			return now
		}),
		WithLogger(quietLogger()),
		WithCounterSeed(0),
	)

	a, err := g.Next()
	require.NoError(t, err)

	mu.Lock()
	sec -= 3 // clock steps backwards two seconds
	mu.Unlock()

	b, err := g.Next()
	require.NoError(t, err)
	assert.True(t, a.Less(b))
}

func TestGenerator_ConcurrentUnique(t *testing.T) {
	g := NewGenerator(WithLogger(quietLogger()), WithCounterSeed(0))
	const goroutines = 50
	const perGoroutine = 200

	var wg sync.WaitGroup
	ids := make(chan ID, goroutines*perGoroutine)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				id, err := g.Next()
				if assert.NoError(t, err) {
					ids <- id
				}
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[ID]bool)
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
	assert.Len(t, seen, goroutines*perGoroutine)
}

func TestDefault_SharedAcrossCallers(t *testing.T) {
	require.Same(t, Default(), Default())

	prev := Empty
	for i := 0; i < 200; i++ {
		id, err := Default().Next()
		require.NoError(t, err)
		require.True(t, prev.Less(id), "id %d not increasing: %s <= %s", i, id, prev)
		prev = id
	}
}
