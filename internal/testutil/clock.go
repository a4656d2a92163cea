package testutil

import (
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/tempo/internal/tid"
)

// Epoch is the default start time of test clocks.
var Epoch = time.Date(2003, 5, 1, 10, 0, 0, 0, time.UTC)

// SteppingClock is a fake wall clock that advances by a fixed step after
// every reading.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SteppingClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

// NewSteppingClock creates a clock whose first reading is start.
func NewSteppingClock(start time.Time, step time.Duration) *SteppingClock {
	return &SteppingClock{now: start, step: step}
}

// Now returns the current reading and advances the clock by one step.
func (c *SteppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

// Peek returns the next reading without advancing.
func (c *SteppingClock) Peek() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to t. Moving backwards is allowed.
func (c *SteppingClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Identity is the machine and process identity of generators built by
// NewGenerator.
var Identity = struct {
	Machine [3]byte
	PID     uint16
}{Machine: [3]byte{0xaa, 0xbb, 0xcc}, PID: 0x1234}

// NewGenerator returns a silent id generator with a fixed identity and a
// counter starting at 1, reading time from clock.
//
// Two generators over clocks with the same start and step mint the same ids.
func NewGenerator(clock *SteppingClock) *tid.Generator {
	return tid.NewGenerator(
		tid.WithClock(clock.Now),
		tid.WithIdentity(Identity.Machine, Identity.PID),
		tid.WithCounterSeed(0),
		tid.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}
