package tid

import (
	"crypto/md5"
	"encoding/binary"
	"log/slog"
	"math/rand/v2"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/tempo/internal/ir"
)

// DefaultMaxRetries bounds the monotonicity retry loop in Next.
const DefaultMaxRetries = 1024

// Source mints ids. Generator is the production implementation.
type Source interface {
	Next() (ID, error)
}

// Generator mints strictly increasing ids.
//
// Thread-safety: Next is safe for concurrent use. The counter is advanced
// atomically and the previous id is published with compare-and-swap; no
// mutex is held.
type Generator struct {
	now        func() time.Time
	machine    [3]byte
	pid        uint16
	counter    atomic.Uint32
	last       atomic.Pointer[ID]
	maxRetries int
	logger     *slog.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithClock replaces the wall clock. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithLogger sets the logger used for retry diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) { g.logger = logger }
}

// WithIdentity fixes the machine hash and process id.
func WithIdentity(machine [3]byte, pid uint16) Option {
	return func(g *Generator) {
		g.machine = machine
		g.pid = pid
	}
}

// WithCounterSeed fixes the initial counter value instead of seeding it randomly.
func WithCounterSeed(seed uint32) Option {
	return func(g *Generator) { g.counter.Store(seed & 0xFFFFFF) }
}

// WithMaxRetries overrides DefaultMaxRetries.
func WithMaxRetries(n int) Option {
	return func(g *Generator) { g.maxRetries = n }
}

// NewGenerator creates a generator bound to this host and process.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		now:        time.Now,
		machine:    machineHash(),
		pid:        uint16(os.Getpid()),
		maxRetries: DefaultMaxRetries,
		logger:     slog.Default(),
	}
	g.counter.Store(rand.Uint32() & 0xFFFFFF)
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Default returns the process-wide generator. Every id minted in this process
// through it is strictly greater than the previous one, however many
// sources share it.
var Default = sync.OnceValue(func() *Generator {
	return NewGenerator()
})

// machineHash returns 3 bytes identifying this host. The hostname is hashed
// when available; otherwise the uuid node id stands in for it.
func machineHash() [3]byte {
	var m [3]byte
	host, err := os.Hostname()
	if err == nil && host != "" {
		sum := md5.Sum([]byte(host))
		copy(m[:], sum[:3])
		return m
	}
	copy(m[:], uuid.NodeID())
	return m
}

// Next mints an id strictly greater than every id previously returned by g.
//
// If the candidate is not greater than the previous id (same second with a
// wrapped counter, a clock step backwards, or a concurrent caller winning the
// race) the counter is advanced and the attempt repeated, up to maxRetries
// times. Exhausting the budget returns an ID_EXHAUSTED error.
func (g *Generator) Next() (ID, error) {
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		prev := g.last.Load()
		id := g.compose(g.now(), g.counter.Add(1))

		if prev != nil && !prev.Less(id) {
			if attempt == 0 {
				g.logger.Warn("temporal id not greater than previous, retrying",
					"previous", prev.String(), "candidate", id.String())
			}
			continue
		}
		if !g.last.CompareAndSwap(prev, &id) {
			continue
		}
		if attempt > 0 {
			g.logger.Info("temporal id minted after retries", "retries", attempt, "id", id.String())
		}
		return id, nil
	}
	return Empty, ir.OpErrorf(ir.CodeIDExhausted, "Next",
		"no id greater than previous after %d retries", g.maxRetries)
}

// Last returns the most recently minted id, or Empty.
func (g *Generator) Last() ID {
	if p := g.last.Load(); p != nil {
		return *p
	}
	return Empty
}

func (g *Generator) compose(now time.Time, counter uint32) ID {
	var id ID
	binary.BigEndian.PutUint32(id[0:4], uint32(now.Unix()))
	copy(id[4:7], g.machine[:])
	binary.BigEndian.PutUint16(id[7:9], g.pid)
	id[9] = byte(counter >> 16)
	id[10] = byte(counter >> 8)
	id[11] = byte(counter)
	return id
}
